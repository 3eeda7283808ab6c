package challenge

import (
	"strconv"

	"challengechain/core/types"
	"challengechain/crypto"
)

const (
	EventTypeChallengeCreated   = "challenge.created"
	EventTypeRewardFunded       = "challenge.reward_funded"
	EventTypeParticipated       = "challenge.participated"
	EventTypeEntrySubmitted     = "challenge.submitted"
	EventTypeVoteCast           = "challenge.voted"
	EventTypeChallengeFinalized = "challenge.finalized"
	EventTypeVoterRewarded      = "challenge.voter_rewarded"
	EventTypeCreatorClaimed     = "challenge.creator_claimed"
)

// NewCreatedEvent returns the payload for a newly created challenge.
func NewCreatedEvent(c *Challenge) *types.Event {
	evt := newChallengeEvent(EventTypeChallengeCreated, c)
	evt.Attributes["reward"] = formatUint(c.Reward)
	evt.Attributes["participationFee"] = formatUint(c.ParticipationFee)
	evt.Attributes["votingFee"] = formatUint(c.VotingFee)
	evt.Attributes["maxParticipants"] = strconv.Itoa(c.Limit())
	evt.Attributes["treasury"] = crypto.FromRaw(c.TreasuryAddress).String()
	evt.Attributes["votingTreasury"] = crypto.FromRaw(c.VotingTreasuryAddress).String()
	return evt
}

// NewRewardFundedEvent is emitted when the creator deposits reward tokens.
func NewRewardFundedEvent(c *Challenge, amount uint64) *types.Event {
	evt := newChallengeEvent(EventTypeRewardFunded, c)
	evt.Attributes["amount"] = formatUint(amount)
	evt.Attributes["rewardFunded"] = formatUint(c.RewardFunded)
	return evt
}

func NewParticipatedEvent(c *Challenge, participant [20]byte) *types.Event {
	evt := newChallengeEvent(EventTypeParticipated, c)
	evt.Attributes["participant"] = crypto.FromRaw(participant).String()
	evt.Attributes["fee"] = formatUint(c.ParticipationFee)
	evt.Attributes["participants"] = strconv.Itoa(len(c.Participants))
	return evt
}

func NewSubmittedEvent(c *Challenge, submitter [20]byte, submissionID string, fee uint64) *types.Event {
	evt := newChallengeEvent(EventTypeEntrySubmitted, c)
	evt.Attributes["submitter"] = crypto.FromRaw(submitter).String()
	evt.Attributes["submissionId"] = submissionID
	evt.Attributes["fee"] = formatUint(fee)
	return evt
}

func NewVotedEvent(c *Challenge, voter [20]byte, submissionID string, votes uint64) *types.Event {
	evt := newChallengeEvent(EventTypeVoteCast, c)
	evt.Attributes["voter"] = crypto.FromRaw(voter).String()
	evt.Attributes["submissionId"] = submissionID
	evt.Attributes["votes"] = formatUint(votes)
	evt.Attributes["totalVotes"] = formatUint(c.TotalVotes)
	return evt
}

// NewFinalizedEvent carries the payout plan that was executed.
func NewFinalizedEvent(c *Challenge, s *Settlement) *types.Event {
	evt := newChallengeEvent(EventTypeChallengeFinalized, c)
	evt.Attributes["winner"] = c.Winner
	evt.Attributes["winningVotes"] = formatUint(c.WinningVotes)
	evt.Attributes["platformFee"] = formatUint(s.Split.PlatformFee)
	evt.Attributes["winnerReward"] = formatUint(s.Split.WinnerReward)
	evt.Attributes["winnerAccount"] = crypto.FromRaw(s.WinnerAccount).String()
	if s.RunnerUp != "" {
		evt.Attributes["runnerUp"] = s.RunnerUp
		evt.Attributes["runnerUpReward"] = formatUint(s.Split.RunnerUpReward)
		if s.RunnerUpAccount != ([20]byte{}) {
			evt.Attributes["runnerUpAccount"] = crypto.FromRaw(s.RunnerUpAccount).String()
		}
	}
	evt.Attributes["leftover"] = formatUint(s.Split.Leftover)
	evt.Attributes["votingRewardPool"] = formatUint(c.VotingRewardPool)
	return evt
}

func NewVoterRewardedEvent(c *Challenge, voter [20]byte, amount uint64) *types.Event {
	evt := newChallengeEvent(EventTypeVoterRewarded, c)
	evt.Attributes["voter"] = crypto.FromRaw(voter).String()
	evt.Attributes["amount"] = formatUint(amount)
	return evt
}

func NewCreatorClaimedEvent(c *Challenge, amount uint64) *types.Event {
	evt := newChallengeEvent(EventTypeCreatorClaimed, c)
	evt.Attributes["amount"] = formatUint(amount)
	return evt
}

func newChallengeEvent(eventType string, c *Challenge) *types.Event {
	attrs := make(map[string]string)
	if c == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = FormatID(c.ID)
	attrs["creator"] = crypto.FromRaw(c.Creator).String()
	attrs["active"] = strconv.FormatBool(c.Active)
	return &types.Event{Type: eventType, Attributes: attrs}
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }
