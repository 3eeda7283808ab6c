package crypto

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	addr := key.PubKey().Address()
	encoded := addr.String()
	if !strings.HasPrefix(encoded, "chl1") {
		t.Fatalf("unexpected encoding %s", encoded)
	}
	raw, err := ParseAddress(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if raw != addr.Raw() {
		t.Fatalf("raw mismatch")
	}
	hexRaw, err := ParseAddress("0x" + strings.Repeat("ab", 20))
	if err != nil {
		t.Fatalf("parse hex: %v", err)
	}
	if hexRaw[0] != 0xab || hexRaw[19] != 0xab {
		t.Fatalf("unexpected hex decode %x", hexRaw)
	}
	zero, err := ParseAddress("  ")
	if err != nil || zero != ([20]byte{}) {
		t.Fatalf("expected zero address for empty input")
	}
}

func TestParseAddressRejectsForeignPrefix(t *testing.T) {
	foreign := MustNewAddress("zen", make([]byte, 20)).String()
	if _, err := ParseAddress(foreign); err == nil {
		t.Fatalf("expected prefix rejection")
	}
	if _, err := NewAddress(ChallengePrefix, []byte{1, 2}); err == nil {
		t.Fatalf("expected length rejection")
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	LightKDF = true
	defer func() { LightKDF = false }()

	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "keys", "operator.json")
	if err := SaveToKeystore(path, key, "hunter2"); err != nil {
		t.Fatalf("save: %v", err)
	}
	addr, err := KeystoreAddress(path)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	if addr.Raw() != key.PubKey().Address().Raw() {
		t.Fatalf("keystore address mismatch")
	}
	loaded, err := LoadFromKeystore(path, "hunter2")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.PubKey().Address().String() != key.PubKey().Address().String() {
		t.Fatalf("loaded key differs")
	}
	if _, err := LoadFromKeystore(path, "wrong"); !errors.Is(err, keystore.ErrDecrypt) {
		t.Fatalf("expected decrypt error, got %v", err)
	}
}
