package state

import (
	"errors"
	"fmt"
	"math"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// StateVersion identifies the on-disk record layout. Bump it whenever a
// stored struct changes shape.
const StateVersion uint32 = 1

var (
	stateVersionKey   = ethcrypto.Keccak256([]byte("state/version"))
	genesisAppliedKey = ethcrypto.Keccak256([]byte("state/genesis"))
	// ErrStateVersionMismatch indicates the stored schema version does not
	// match the version supported by the current binary.
	ErrStateVersionMismatch = errors.New("state: schema version mismatch")
)

// SetStateVersion records the schema version.
func (m *Manager) SetStateVersion(version uint32) error {
	return m.put(stateVersionKey, uint64(version))
}

// StateVersion returns the stored schema version and whether one was set.
func (m *Manager) StateVersion() (uint32, bool, error) {
	var stored uint64
	ok, err := m.get(stateVersionKey, &stored)
	if err != nil || !ok {
		return 0, false, err
	}
	if stored > uint64(math.MaxUint32) {
		return 0, false, fmt.Errorf("state: schema version overflow: %d", stored)
	}
	return uint32(stored), true, nil
}

// EnsureStateVersion stamps an empty store with the current version and
// rejects stores written by a different layout.
func (m *Manager) EnsureStateVersion() error {
	version, ok, err := m.StateVersion()
	if err != nil {
		return err
	}
	if !ok {
		return m.SetStateVersion(StateVersion)
	}
	if version != StateVersion {
		return fmt.Errorf("%w: on-disk=%d expected=%d", ErrStateVersionMismatch, version, StateVersion)
	}
	return nil
}

// GenesisApplied reports whether genesis allocations were already credited.
func (m *Manager) GenesisApplied() (bool, error) {
	return m.has(genesisAppliedKey)
}

// MarkGenesisApplied records that genesis ran.
func (m *Manager) MarkGenesisApplied() error {
	return m.put(genesisAppliedKey, uint64(1))
}
