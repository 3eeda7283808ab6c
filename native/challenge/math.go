package challenge

import (
	"sort"

	"github.com/holiman/uint256"
)

const (
	// PlatformFeeBps is the platform cut of the reward in basis points (2.1%).
	PlatformFeeBps = 210
	// WinnerSharePercent of the post-fee reward goes to the winner; the
	// runner-up receives the rest.
	WinnerSharePercent = 75
	// DefaultSubmissionFee is charged for every submission.
	DefaultSubmissionFee = 50_000_000
)

// Split is the payout plan computed at finalization.
type Split struct {
	PlatformFee    uint64
	WinnerReward   uint64
	RunnerUpReward uint64
	Leftover       uint64
}

// Total returns the sum of every payout in the split.
func (s Split) Total() uint64 {
	return s.PlatformFee + s.WinnerReward + s.RunnerUpReward + s.Leftover
}

// ComputeSplit applies the fee and 75/25 division to reward. Intermediates
// are 256-bit so reward*bps cannot wrap. The runner-up share is zeroed when
// there is no runner-up. Leftover is whatever the treasury holds beyond the
// reward, or 0 when it holds less.
func ComputeSplit(reward, treasury uint64, hasRunnerUp bool) Split {
	r := uint256.NewInt(reward)
	fee := new(uint256.Int).Mul(r, uint256.NewInt(PlatformFeeBps))
	fee.Div(fee, uint256.NewInt(10_000))
	afterFee := new(uint256.Int).Sub(r, fee)
	winner := new(uint256.Int).Mul(afterFee, uint256.NewInt(WinnerSharePercent))
	winner.Div(winner, uint256.NewInt(100))
	runnerUp := new(uint256.Int).Sub(afterFee, winner)

	split := Split{
		PlatformFee:  fee.Uint64(),
		WinnerReward: winner.Uint64(),
	}
	if hasRunnerUp {
		split.RunnerUpReward = runnerUp.Uint64()
	}
	if treasury > reward {
		split.Leftover = treasury - reward
	}
	return split
}

// Rank returns the submissions ordered by votes descending. Ties keep
// insertion order.
func Rank(submissions []SubmissionTally) []SubmissionTally {
	ranked := append([]SubmissionTally(nil), submissions...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Votes > ranked[j].Votes
	})
	return ranked
}

// CountWinningVoters returns how many distinct voters backed the declared
// winner. Operators feed the result into DistributeVotingReward.
func CountWinningVoters(c *Challenge) uint64 {
	if c == nil || c.Winner == "" {
		return 0
	}
	seen := make(map[[20]byte]struct{})
	for _, v := range c.Voters {
		if v.SubmissionID == c.Winner {
			seen[v.Voter] = struct{}{}
		}
	}
	return uint64(len(seen))
}

// VoterShare is the per-voter payout from pool split across count voters.
func VoterShare(pool, count uint64) uint64 {
	if count == 0 {
		return 0
	}
	return pool / count
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum := new(uint256.Int).Add(uint256.NewInt(a), uint256.NewInt(b))
	if !sum.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return sum.Uint64(), nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrArithmeticOverflow
	}
	return a - b, nil
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
