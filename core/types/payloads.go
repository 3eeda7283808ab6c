package types

// Payloads carried in Transaction.Data. Addresses are bech32 strings and
// challenge identifiers are 0x-prefixed hex.

type TransferPayload struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type CreateChallengePayload struct {
	Number             uint64 `json:"number"`
	Reward             uint64 `json:"reward"`
	ParticipationFee   uint64 `json:"participationFee"`
	VotingFee          uint64 `json:"votingFee"`
	MaxParticipants    uint32 `json:"maxParticipants"`
	TreasuryHint       string `json:"treasury,omitempty"`
	VotingTreasuryHint string `json:"votingTreasury,omitempty"`
}

// ChallengePayload is used by participate and claim.
type ChallengePayload struct {
	ChallengeID string `json:"challengeId"`
}

type FundRewardPayload struct {
	ChallengeID string `json:"challengeId"`
	Amount      uint64 `json:"amount"`
}

// SubmissionPayload is used by submit and vote.
type SubmissionPayload struct {
	ChallengeID  string `json:"challengeId"`
	SubmissionID string `json:"submissionId"`
}

type FinalizePayload struct {
	ChallengeID     string `json:"challengeId"`
	Creator         string `json:"creator"`
	WinnerAccount   string `json:"winnerAccount,omitempty"`
	RunnerUpAccount string `json:"runnerUpAccount,omitempty"`
}

type DistributePayload struct {
	ChallengeID   string `json:"challengeId"`
	Voter         string `json:"voter"`
	WinningVoters uint64 `json:"winningVoters"`
}
