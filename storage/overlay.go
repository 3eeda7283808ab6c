package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Overlay buffers writes on top of a base Database. Reads see pending writes
// first. Nothing reaches the base until Commit; Discard drops the buffer.
type Overlay struct {
	base    Database
	pending map[string]*Op
}

// NewOverlay returns an empty write buffer over base.
func NewOverlay(base Database) *Overlay {
	return &Overlay{base: base, pending: make(map[string]*Op)}
}

func (o *Overlay) Put(key []byte, value []byte) error {
	o.pending[string(key)] = &Op{
		Key:   append([]byte(nil), key...),
		Value: append([]byte(nil), value...),
	}
	return nil
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	if op, ok := o.pending[string(key)]; ok {
		if op.Delete {
			return nil, ErrNotFound
		}
		return append([]byte(nil), op.Value...), nil
	}
	return o.base.Get(key)
}

func (o *Overlay) Delete(key []byte) error {
	o.pending[string(key)] = &Op{Key: append([]byte(nil), key...), Delete: true}
	return nil
}

// Close is a no-op; the base owns the underlying handle.
func (o *Overlay) Close() {}

// Len reports the number of buffered writes.
func (o *Overlay) Len() int { return len(o.pending) }

// Ops returns the buffered writes ordered by key.
func (o *Overlay) Ops() []Op {
	keys := make([]string, 0, len(o.pending))
	for k := range o.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ops := make([]Op, 0, len(keys))
	for _, k := range keys {
		ops = append(ops, *o.pending[k])
	}
	return ops
}

// Commit flushes the buffer into the base. Backends implementing Batcher
// apply it atomically; others receive the writes one by one.
func (o *Overlay) Commit() error {
	if len(o.pending) == 0 {
		return nil
	}
	ops := o.Ops()
	if batcher, ok := o.base.(Batcher); ok {
		if err := batcher.WriteBatch(ops); err != nil {
			return fmt.Errorf("storage: commit batch: %w", err)
		}
	} else {
		for _, op := range ops {
			var err error
			if op.Delete {
				err = o.base.Delete(op.Key)
			} else {
				err = o.base.Put(op.Key, op.Value)
			}
			if err != nil {
				return fmt.Errorf("storage: commit: %w", err)
			}
		}
	}
	o.Discard()
	return nil
}

// Discard drops every buffered write.
func (o *Overlay) Discard() {
	o.pending = make(map[string]*Op)
}

// Backend names accepted by Open.
const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendMemory  = "memory"
)

// Open returns the database selected by backend rooted at dataDir.
func Open(backend, dataDir string) (Database, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendLevelDB:
		if dataDir == "" {
			return nil, errors.New("storage: data dir required for leveldb")
		}
		return NewLevelDB(filepath.Join(dataDir, "leveldb"))
	case BackendBolt:
		if dataDir == "" {
			return nil, errors.New("storage: data dir required for bolt")
		}
		return NewBoltDB(filepath.Join(dataDir, "state.db"), nil)
	case BackendMemory:
		return NewMemDB(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}
