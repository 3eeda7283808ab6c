package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"challengechain/core/state"
	"challengechain/crypto"
	"challengechain/native/bank"
	"challengechain/storage"
)

// GenesisAccount is one allocation. Address accepts bech32 or 0x hex.
type GenesisAccount struct {
	Address string `yaml:"address" json:"address"`
	Token   uint64 `yaml:"token" json:"token"`
	Native  uint64 `yaml:"native" json:"native"`
}

// Genesis lists the balances credited once into an empty store.
type Genesis struct {
	Accounts []GenesisAccount `yaml:"accounts" json:"accounts"`
}

// ParseGenesis decodes a YAML (or JSON) allocation document. Unknown keys are
// rejected.
func ParseGenesis(data []byte) (*Genesis, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var g Genesis
	if err := dec.Decode(&g); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("genesis: decode: %w", err)
	}
	for i, acc := range g.Accounts {
		addr, err := crypto.ParseAddress(acc.Address)
		if err != nil {
			return nil, fmt.Errorf("genesis: account %d: %w", i, err)
		}
		if addr == ([20]byte{}) {
			return nil, fmt.Errorf("genesis: account %d: address required", i)
		}
	}
	return &g, nil
}

// LoadGenesis reads and parses the allocation file at path.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	return ParseGenesis(data)
}

// ApplyGenesis credits every allocation in one batch. It reports false
// without touching state when genesis already ran.
func (l *Ledger) ApplyGenesis(g *Genesis) (bool, error) {
	if g == nil {
		return false, fmt.Errorf("genesis: nil document")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	overlay := storage.NewOverlay(l.db)
	manager := state.NewManager(overlay)
	applied, err := manager.GenesisApplied()
	if err != nil {
		return false, err
	}
	if applied {
		return false, nil
	}
	b := bank.New(manager)
	for i, acc := range g.Accounts {
		addr, err := crypto.ParseAddress(acc.Address)
		if err != nil {
			overlay.Discard()
			return false, fmt.Errorf("genesis: account %d: %w", i, err)
		}
		if err := b.Credit(addr, bank.Token, acc.Token); err != nil {
			overlay.Discard()
			return false, fmt.Errorf("genesis: credit %s: %w", acc.Address, err)
		}
		if err := b.Credit(addr, bank.Native, acc.Native); err != nil {
			overlay.Discard()
			return false, fmt.Errorf("genesis: credit %s: %w", acc.Address, err)
		}
	}
	if err := manager.MarkGenesisApplied(); err != nil {
		overlay.Discard()
		return false, err
	}
	if err := overlay.Commit(); err != nil {
		return false, fmt.Errorf("genesis: commit: %w", err)
	}
	l.logger.Info("genesis applied", slog.Int("accounts", len(g.Accounts)))
	return true, nil
}
