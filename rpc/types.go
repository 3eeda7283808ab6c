package rpc

import (
	"challengechain/core/types"
	"challengechain/crypto"
	"challengechain/native/challenge"
)

type SubmissionView struct {
	ID        string `json:"id"`
	Submitter string `json:"submitter,omitempty"`
	Votes     uint64 `json:"votes"`
}

type VoteView struct {
	Voter        string `json:"voter"`
	SubmissionID string `json:"submissionId"`
}

// ChallengeView is the JSON shape of a stored challenge.
type ChallengeView struct {
	ID                    string           `json:"id"`
	Creator               string           `json:"creator"`
	Active                bool             `json:"active"`
	Reward                uint64           `json:"reward"`
	ParticipationFee      uint64           `json:"participationFee"`
	VotingFee             uint64           `json:"votingFee"`
	MaxParticipants       int              `json:"maxParticipants"`
	Treasury              string           `json:"treasury"`
	VotingTreasury        string           `json:"votingTreasury"`
	TreasuryBump          uint8            `json:"treasuryBump"`
	VotingTreasuryBump    uint8            `json:"votingTreasuryBump"`
	TreasuryBalance       uint64           `json:"treasuryBalance"`
	VotingTreasuryBalance uint64           `json:"votingTreasuryBalance"`
	Winner                string           `json:"winner,omitempty"`
	TotalVotes            uint64           `json:"totalVotes"`
	WinningVotes          uint64           `json:"winningVotes"`
	Participants          []string         `json:"participants"`
	Submissions           []SubmissionView `json:"submissions"`
	Voters                []VoteView       `json:"voters"`
	RewardFunded          uint64           `json:"rewardFunded"`
	VotingRewardPool      uint64           `json:"votingRewardPool"`
	RewardClaims          []string         `json:"rewardClaims"`
	CreatedAt             uint64           `json:"createdAt"`
	FinalizedAt           uint64           `json:"finalizedAt,omitempty"`
}

// TallyView ranks the submissions and reports the winning voter count an
// operator passes to distribute.
type TallyView struct {
	ID            string           `json:"id"`
	Active        bool             `json:"active"`
	Winner        string           `json:"winner,omitempty"`
	TotalVotes    uint64           `json:"totalVotes"`
	WinningVoters uint64           `json:"winningVoters"`
	Ranking       []SubmissionView `json:"ranking"`
}

type AccountView struct {
	Address       string `json:"address"`
	Nonce         uint64 `json:"nonce"`
	BalanceToken  uint64 `json:"balanceToken"`
	BalanceNative uint64 `json:"balanceNative"`
}

// ErrorBody is the payload of every non-2xx response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func addrString(raw [20]byte) string {
	if raw == ([20]byte{}) {
		return ""
	}
	return crypto.FromRaw(raw).String()
}

func addrList(list [][20]byte) []string {
	out := make([]string, 0, len(list))
	for _, addr := range list {
		out = append(out, addrString(addr))
	}
	return out
}

func submissionViews(list []challenge.SubmissionTally) []SubmissionView {
	out := make([]SubmissionView, 0, len(list))
	for _, s := range list {
		out = append(out, SubmissionView{ID: s.ID, Submitter: addrString(s.Submitter), Votes: s.Votes})
	}
	return out
}

func newChallengeView(c *challenge.Challenge) ChallengeView {
	voters := make([]VoteView, 0, len(c.Voters))
	for _, v := range c.Voters {
		voters = append(voters, VoteView{Voter: addrString(v.Voter), SubmissionID: v.SubmissionID})
	}
	return ChallengeView{
		ID:                    challenge.FormatID(c.ID),
		Creator:               addrString(c.Creator),
		Active:                c.Active,
		Reward:                c.Reward,
		ParticipationFee:      c.ParticipationFee,
		VotingFee:             c.VotingFee,
		MaxParticipants:       c.Limit(),
		Treasury:              addrString(c.TreasuryAddress),
		VotingTreasury:        addrString(c.VotingTreasuryAddress),
		TreasuryBump:          c.TreasuryBump,
		VotingTreasuryBump:    c.VotingTreasuryBump,
		TreasuryBalance:       c.TreasuryBalance,
		VotingTreasuryBalance: c.VotingTreasuryBalance,
		Winner:                c.Winner,
		TotalVotes:            c.TotalVotes,
		WinningVotes:          c.WinningVotes,
		Participants:          addrList(c.Participants),
		Submissions:           submissionViews(c.Submissions),
		Voters:                voters,
		RewardFunded:          c.RewardFunded,
		VotingRewardPool:      c.VotingRewardPool,
		RewardClaims:          addrList(c.RewardClaims),
		CreatedAt:             c.CreatedAt,
		FinalizedAt:           c.FinalizedAt,
	}
}

func newTallyView(c *challenge.Challenge) TallyView {
	view := TallyView{
		ID:         challenge.FormatID(c.ID),
		Active:     c.Active,
		Winner:     c.Winner,
		TotalVotes: c.TotalVotes,
		Ranking:    submissionViews(challenge.Rank(c.Submissions)),
	}
	if c.Winner != "" {
		view.WinningVoters = challenge.CountWinningVoters(c)
	}
	return view
}

func newAccountView(addr [20]byte, acc *types.Account) AccountView {
	return AccountView{
		Address:       crypto.FromRaw(addr).String(),
		Nonce:         acc.Nonce,
		BalanceToken:  acc.BalanceToken,
		BalanceNative: acc.BalanceNative,
	}
}
