package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"challengechain/core/types"
	"challengechain/native/challenge"
	"challengechain/storage"
)

// Manager reads and writes ledger records on a key-value store. Keys are
// keccak256 hashes of a typed prefix; values are RLP encoded.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on db. Pass a
// storage.Overlay to stage writes for a single transaction.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	accountPrefix       = []byte("account:")
	challengePrefix     = []byte("challenge:")
	challengeIndexKey   = ethcrypto.Keccak256([]byte("challenge-index"))
	challengeTrackerKey = ethcrypto.Keccak256([]byte("challenge-tracker"))
	feeTrackerKey       = ethcrypto.Keccak256([]byte("fee-tracker"))
)

func prefixedKey(prefix, id []byte) []byte {
	buf := make([]byte, len(prefix)+len(id))
	copy(buf, prefix)
	copy(buf[len(prefix):], id)
	return ethcrypto.Keccak256(buf)
}

func accountKey(addr []byte) []byte { return prefixedKey(accountPrefix, addr) }

func challengeKey(id [32]byte) []byte { return prefixedKey(challengePrefix, id[:]) }

func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) put(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// GetAccount returns the account at addr, or an empty account when none is
// stored.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if len(addr) != 20 {
		return nil, fmt.Errorf("state: account address must be 20 bytes, got %d", len(addr))
	}
	acc := new(types.Account)
	if _, err := m.get(accountKey(addr), acc); err != nil {
		return nil, fmt.Errorf("state: load account: %w", err)
	}
	return acc, nil
}

// PutAccount stores account at addr.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) != 20 {
		return fmt.Errorf("state: account address must be 20 bytes, got %d", len(addr))
	}
	if account == nil {
		account = &types.Account{}
	}
	return m.put(accountKey(addr), account)
}

// AccountExists reports whether a record is stored for addr, even an empty
// one.
func (m *Manager) AccountExists(addr []byte) (bool, error) {
	_, err := m.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ChallengeGet loads the challenge stored under id.
func (m *Manager) ChallengeGet(id [32]byte) (*challenge.Challenge, bool, error) {
	stored := new(storedChallenge)
	ok, err := m.get(challengeKey(id), stored)
	if err != nil {
		return nil, false, fmt.Errorf("state: load challenge: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return stored.toChallenge(), true, nil
}

// ChallengePut stores c and records its identifier in the index on first
// write.
func (m *Manager) ChallengePut(c *challenge.Challenge) error {
	if c == nil {
		return fmt.Errorf("state: nil challenge")
	}
	exists, err := m.has(challengeKey(c.ID))
	if err != nil {
		return err
	}
	if err := m.put(challengeKey(c.ID), newStoredChallenge(c)); err != nil {
		return err
	}
	if exists {
		return nil
	}
	index, err := m.ChallengeIDs()
	if err != nil {
		return err
	}
	return m.put(challengeIndexKey, append(index, c.ID))
}

// ChallengeIDs lists every stored challenge in creation order.
func (m *Manager) ChallengeIDs() ([][32]byte, error) {
	var index [][32]byte
	if _, err := m.get(challengeIndexKey, &index); err != nil {
		return nil, fmt.Errorf("state: load challenge index: %w", err)
	}
	return index, nil
}

func (m *Manager) has(key []byte) (bool, error) {
	_, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ChallengeTrackerGet returns the finalized-challenge counter.
func (m *Manager) ChallengeTrackerGet() (*challenge.ChallengeTracker, error) {
	t := new(challenge.ChallengeTracker)
	if _, err := m.get(challengeTrackerKey, t); err != nil {
		return nil, fmt.Errorf("state: load challenge tracker: %w", err)
	}
	return t, nil
}

func (m *Manager) ChallengeTrackerPut(t *challenge.ChallengeTracker) error {
	return m.put(challengeTrackerKey, t)
}

// FeeTrackerGet returns the global fee totals.
func (m *Manager) FeeTrackerGet() (*challenge.FeeTracker, error) {
	t := new(challenge.FeeTracker)
	if _, err := m.get(feeTrackerKey, t); err != nil {
		return nil, fmt.Errorf("state: load fee tracker: %w", err)
	}
	return t, nil
}

func (m *Manager) FeeTrackerPut(t *challenge.FeeTracker) error {
	return m.put(feeTrackerKey, t)
}
