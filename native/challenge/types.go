package challenge

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxParticipants applies when a challenge is created with 0.
	DefaultMaxParticipants = 50
	// MaxVoters caps the number of (voter, submission) records.
	MaxVoters = 150
	// MaxSubmissionIDLength bounds the opaque submission identifier.
	MaxSubmissionIDLength = 128
)

// SubmissionTally is the running vote count of one submission. Submitter is
// zero when the entry first appeared through a vote.
type SubmissionTally struct {
	ID        string
	Submitter [20]byte
	Votes     uint64
}

// VoteRecord is a single (voter, submission) vote.
type VoteRecord struct {
	Voter        [20]byte
	SubmissionID string
}

// Challenge is the ledger entry of one competition. The identifier is the
// keccak256 hash of the creator and a caller-chosen number so clients can
// compute it before the create transaction lands.
type Challenge struct {
	ID                    [32]byte
	Creator               [20]byte
	Active                bool
	Reward                uint64
	ParticipationFee      uint64
	VotingFee             uint64
	MaxParticipants       uint8
	TreasuryAddress       [20]byte
	VotingTreasuryAddress [20]byte
	TreasuryBump          uint8
	VotingTreasuryBump    uint8
	TreasuryBalance       uint64
	VotingTreasuryBalance uint64
	Winner                string
	TotalVotes            uint64
	WinningVotes          uint64
	Participants          [][20]byte
	Submissions           []SubmissionTally
	Voters                []VoteRecord
	RewardFunded          uint64
	VotingRewardPool      uint64
	RewardClaims          [][20]byte
	CreatedAt             uint64
	FinalizedAt           uint64
}

// ComputeID derives the challenge identifier.
func ComputeID(creator [20]byte, number uint64) [32]byte {
	var num [8]byte
	binary.BigEndian.PutUint64(num[:], number)
	return ethcrypto.Keccak256Hash(creator[:], num[:])
}

// FormatID renders id as 0x-prefixed hex.
func FormatID(id [32]byte) string { return "0x" + hex.EncodeToString(id[:]) }

// ParseID decodes a 0x-prefixed (or bare) hex challenge identifier.
func ParseID(raw string) ([32]byte, error) {
	var id [32]byte
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(raw), "0x"), "0X")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return id, fmt.Errorf("challenge id: %w", err)
	}
	if len(decoded) != len(id) {
		return id, fmt.Errorf("challenge id must be 32 bytes, got %d", len(decoded))
	}
	copy(id[:], decoded)
	return id, nil
}

// Clone returns a deep copy of the challenge.
func (c *Challenge) Clone() *Challenge {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Participants = append([][20]byte(nil), c.Participants...)
	clone.Submissions = append([]SubmissionTally(nil), c.Submissions...)
	clone.Voters = append([]VoteRecord(nil), c.Voters...)
	clone.RewardClaims = append([][20]byte(nil), c.RewardClaims...)
	return &clone
}

// HasParticipant reports whether addr already paid the participation fee.
func (c *Challenge) HasParticipant(addr [20]byte) bool {
	return containsAddr(c.Participants, addr)
}

// HasVoted reports whether voter already voted for submission.
func (c *Challenge) HasVoted(voter [20]byte, submission string) bool {
	for _, v := range c.Voters {
		if v.Voter == voter && v.SubmissionID == submission {
			return true
		}
	}
	return false
}

// HasClaimed reports whether voter already received a voting reward.
func (c *Challenge) HasClaimed(voter [20]byte) bool {
	return containsAddr(c.RewardClaims, voter)
}

// Submission returns the index of the tally for id, or -1.
func (c *Challenge) Submission(id string) int {
	for i, s := range c.Submissions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Limit returns the effective participant cap.
func (c *Challenge) Limit() int {
	if c.MaxParticipants == 0 {
		return DefaultMaxParticipants
	}
	return int(c.MaxParticipants)
}

// NormalizeSubmissionID trims the identifier, folds it to Unicode NFC so
// canonically equivalent spellings name the same entry, and validates its
// length.
func NormalizeSubmissionID(id string) (string, error) {
	trimmed := norm.NFC.String(strings.TrimSpace(id))
	if trimmed == "" || len(trimmed) > MaxSubmissionIDLength {
		return "", ErrInvalidSubmissionID
	}
	return trimmed, nil
}

func containsAddr(list [][20]byte, addr [20]byte) bool {
	for _, a := range list {
		if a == addr {
			return true
		}
	}
	return false
}
