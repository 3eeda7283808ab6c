package state

import "challengechain/native/challenge"

// storedChallenge is the on-disk layout of a challenge. Field order is part
// of the encoding; append new fields at the end.
type storedChallenge struct {
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
	Submissions           []storedSubmission
	Voters                []storedVote
	RewardFunded          uint64
	VotingRewardPool      uint64
	RewardClaims          [][20]byte
	CreatedAt             uint64
	FinalizedAt           uint64
}

type storedSubmission struct {
	ID        string
	Submitter [20]byte
	Votes     uint64
}

type storedVote struct {
	Voter        [20]byte
	SubmissionID string
}

func newStoredChallenge(c *challenge.Challenge) *storedChallenge {
	stored := &storedChallenge{
		ID:                    c.ID,
		Creator:               c.Creator,
		Active:                c.Active,
		Reward:                c.Reward,
		ParticipationFee:      c.ParticipationFee,
		VotingFee:             c.VotingFee,
		MaxParticipants:       c.MaxParticipants,
		TreasuryAddress:       c.TreasuryAddress,
		VotingTreasuryAddress: c.VotingTreasuryAddress,
		TreasuryBump:          c.TreasuryBump,
		VotingTreasuryBump:    c.VotingTreasuryBump,
		TreasuryBalance:       c.TreasuryBalance,
		VotingTreasuryBalance: c.VotingTreasuryBalance,
		Winner:                c.Winner,
		TotalVotes:            c.TotalVotes,
		WinningVotes:          c.WinningVotes,
		Participants:          append([][20]byte(nil), c.Participants...),
		RewardFunded:          c.RewardFunded,
		VotingRewardPool:      c.VotingRewardPool,
		RewardClaims:          append([][20]byte(nil), c.RewardClaims...),
		CreatedAt:             c.CreatedAt,
		FinalizedAt:           c.FinalizedAt,
	}
	for _, s := range c.Submissions {
		stored.Submissions = append(stored.Submissions, storedSubmission{ID: s.ID, Submitter: s.Submitter, Votes: s.Votes})
	}
	for _, v := range c.Voters {
		stored.Voters = append(stored.Voters, storedVote{Voter: v.Voter, SubmissionID: v.SubmissionID})
	}
	return stored
}

// toChallenge rebuilds the domain record. Empty lists come back nil.
func (stored *storedChallenge) toChallenge() *challenge.Challenge {
	if stored == nil {
		return nil
	}
	c := &challenge.Challenge{
		ID:                    stored.ID,
		Creator:               stored.Creator,
		Active:                stored.Active,
		Reward:                stored.Reward,
		ParticipationFee:      stored.ParticipationFee,
		VotingFee:             stored.VotingFee,
		MaxParticipants:       stored.MaxParticipants,
		TreasuryAddress:       stored.TreasuryAddress,
		VotingTreasuryAddress: stored.VotingTreasuryAddress,
		TreasuryBump:          stored.TreasuryBump,
		VotingTreasuryBump:    stored.VotingTreasuryBump,
		TreasuryBalance:       stored.TreasuryBalance,
		VotingTreasuryBalance: stored.VotingTreasuryBalance,
		Winner:                stored.Winner,
		TotalVotes:            stored.TotalVotes,
		WinningVotes:          stored.WinningVotes,
		RewardFunded:          stored.RewardFunded,
		VotingRewardPool:      stored.VotingRewardPool,
		CreatedAt:             stored.CreatedAt,
		FinalizedAt:           stored.FinalizedAt,
	}
	if len(stored.Participants) > 0 {
		c.Participants = append([][20]byte(nil), stored.Participants...)
	}
	if len(stored.RewardClaims) > 0 {
		c.RewardClaims = append([][20]byte(nil), stored.RewardClaims...)
	}
	for _, s := range stored.Submissions {
		c.Submissions = append(c.Submissions, challenge.SubmissionTally{ID: s.ID, Submitter: s.Submitter, Votes: s.Votes})
	}
	for _, v := range stored.Voters {
		c.Voters = append(c.Voters, challenge.VoteRecord{Voter: v.Voter, SubmissionID: v.SubmissionID})
	}
	return c
}
