package challenge

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Escrow roles.
const (
	RoleTreasury       = "treasury"
	RoleVotingTreasury = "voting-treasury"
)

var escrowDomain = []byte("challenge-escrow")

// DeriveEscrow returns the deterministic escrow address for role and the
// bump that produced it. Bumps are tried from 255 downwards; a candidate
// starting with 0xff is skipped so escrow addresses never share the marker
// byte reserved for externally owned keys.
func DeriveEscrow(role string, id [32]byte) ([20]byte, uint8) {
	var out [20]byte
	for bump := 255; bump >= 0; bump-- {
		hash := ethcrypto.Keccak256(escrowDomain, []byte(role), id[:], []byte{byte(bump)})
		if hash[12] == 0xff {
			continue
		}
		copy(out[:], hash[12:])
		return out, uint8(bump)
	}
	// Unreachable for any realistic hash distribution.
	panic("challenge: no escrow bump found")
}

// escrowSigner is the capability to debit one escrow account. Only the engine
// mints it, after loading the challenge that owns the escrow.
type escrowSigner struct {
	addr [20]byte
}

// CanDebit implements bank.Authority.
func (s escrowSigner) CanDebit(addr [20]byte) bool { return s.addr == addr }
