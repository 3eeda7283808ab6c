package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()
	level, err := NewLevelDB(filepath.Join(dir, "level"))
	require.NoError(t, err)
	bolt, err := NewBoltDB(filepath.Join(dir, "bolt.db"), nil)
	require.NoError(t, err)
	dbs := map[string]Database{
		"memory":  NewMemDB(),
		"leveldb": level,
		"bolt":    bolt,
	}
	t.Cleanup(func() {
		for _, db := range dbs {
			db.Close()
		}
	})
	return dbs
}

func TestDatabaseRoundTrip(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Get([]byte("missing"))
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, db.Put([]byte("k"), []byte("v1")))
			got, err := db.Get([]byte("k"))
			require.NoError(t, err)
			require.Equal(t, []byte("v1"), got)

			require.NoError(t, db.Delete([]byte("k")))
			_, err = db.Get([]byte("k"))
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestOverlayCommitAndDiscard(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put([]byte("keep"), []byte("base")))
			require.NoError(t, db.Put([]byte("drop"), []byte("base")))

			ov := NewOverlay(db)
			require.NoError(t, ov.Put([]byte("keep"), []byte("new")))
			require.NoError(t, ov.Delete([]byte("drop")))
			require.NoError(t, ov.Put([]byte("fresh"), []byte("x")))

			got, err := ov.Get([]byte("keep"))
			require.NoError(t, err)
			require.Equal(t, []byte("new"), got)
			_, err = ov.Get([]byte("drop"))
			require.ErrorIs(t, err, ErrNotFound)

			// base untouched before commit
			got, err = db.Get([]byte("keep"))
			require.NoError(t, err)
			require.Equal(t, []byte("base"), got)

			ov.Discard()
			require.Zero(t, ov.Len())
			got, err = ov.Get([]byte("drop"))
			require.NoError(t, err)
			require.Equal(t, []byte("base"), got)

			require.NoError(t, ov.Put([]byte("keep"), []byte("new")))
			require.NoError(t, ov.Delete([]byte("drop")))
			require.NoError(t, ov.Commit())
			require.Zero(t, ov.Len())

			got, err = db.Get([]byte("keep"))
			require.NoError(t, err)
			require.Equal(t, []byte("new"), got)
			_, err = db.Get([]byte("drop"))
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLevelDBPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := NewLevelDB(dir)
	require.NoError(t, err)
	require.NoError(t, db.WriteBatch([]Op{{Key: []byte("a"), Value: []byte("1")}}))
	db.Close()

	reopened, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), got)
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	mem, err := Open(BackendMemory, "")
	require.NoError(t, err)
	require.IsType(t, &MemDB{}, mem)

	bolt, err := Open(BackendBolt, dir)
	require.NoError(t, err)
	bolt.Close()
	_, err = os.Stat(filepath.Join(dir, "state.db"))
	require.NoError(t, err)

	_, err = Open("rocks", dir)
	require.Error(t, err)
}
