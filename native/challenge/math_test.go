package challenge

import (
	"errors"
	"math"
	"testing"
)

func TestComputeSplitSumsToReward(t *testing.T) {
	rewards := []uint64{0, 1, 99, 100, 10_000, 1_000_000, 123_456_789, math.MaxUint64}
	for _, reward := range rewards {
		split := ComputeSplit(reward, reward, true)
		if got := split.PlatformFee + split.WinnerReward + split.RunnerUpReward; got != reward {
			t.Fatalf("reward %d: split sums to %d (%+v)", reward, got, split)
		}
		if split.Leftover != 0 {
			t.Fatalf("reward %d: unexpected leftover %d", reward, split.Leftover)
		}
	}
}

func TestComputeSplitMillion(t *testing.T) {
	split := ComputeSplit(1_000_000, 1_020_000, true)
	want := Split{PlatformFee: 21_000, WinnerReward: 734_250, RunnerUpReward: 244_750, Leftover: 20_000}
	if split != want {
		t.Fatalf("unexpected split %+v", split)
	}
	// a treasury holding only fees yields no leftover
	if got := ComputeSplit(1_000_000, 20_000, true); got.Leftover != 0 {
		t.Fatalf("expected zero leftover, got %d", got.Leftover)
	}
	if got := ComputeSplit(1_000_000, 1_000_000, false); got.RunnerUpReward != 0 || got.WinnerReward != 734_250 {
		t.Fatalf("unexpected single-entry split %+v", got)
	}
}

func TestRankIsStable(t *testing.T) {
	ranked := Rank([]SubmissionTally{
		{ID: "first", Votes: 2},
		{ID: "second", Votes: 3},
		{ID: "third", Votes: 2},
		{ID: "fourth", Votes: 3},
	})
	want := []string{"second", "fourth", "first", "third"}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, ranked[i].ID, id)
		}
	}
}

func TestCountWinningVotersDeduplicates(t *testing.T) {
	a, b := newTestAddress(0x01), newTestAddress(0x02)
	c := &Challenge{
		Winner: "w",
		Voters: []VoteRecord{
			{Voter: a, SubmissionID: "w"},
			{Voter: a, SubmissionID: "x"},
			{Voter: b, SubmissionID: "w"},
		},
	}
	if got := CountWinningVoters(c); got != 2 {
		t.Fatalf("winning voters %d", got)
	}
	if got := CountWinningVoters(&Challenge{}); got != 0 {
		t.Fatalf("undeclared winner counted %d", got)
	}
}

func TestCheckedArithmetic(t *testing.T) {
	if _, err := checkedAdd(math.MaxUint64, 1); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := checkedSub(1, 2); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
	if got := saturatingSub(1, 2); got != 0 {
		t.Fatalf("saturating sub %d", got)
	}
	if VoterShare(100_000, 4) != 25_000 || VoterShare(1, 0) != 0 {
		t.Fatalf("unexpected voter share")
	}
}

func TestDeriveEscrowDeterministic(t *testing.T) {
	id := ComputeID(newTestAddress(0x01), 42)
	first, bump := DeriveEscrow(RoleTreasury, id)
	again, bumpAgain := DeriveEscrow(RoleTreasury, id)
	if first != again || bump != bumpAgain {
		t.Fatalf("derivation not deterministic")
	}
	if first[0] == 0xff {
		t.Fatalf("derived address uses reserved marker")
	}
	other, _ := DeriveEscrow(RoleVotingTreasury, id)
	if other == first {
		t.Fatalf("roles collide")
	}
	if ComputeID(newTestAddress(0x01), 43) == id {
		t.Fatalf("challenge numbers collide")
	}
}
