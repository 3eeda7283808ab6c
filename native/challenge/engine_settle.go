package challenge

import (
	"challengechain/native/bank"
)

// Settlement describes the payouts executed by Finalize.
type Settlement struct {
	Winner          string
	RunnerUp        string
	WinnerAccount   [20]byte
	RunnerUpAccount [20]byte
	Split           Split
}

func (e *Engine) authorizeSettlement(c *Challenge, caller [20]byte) error {
	if caller == c.Creator {
		return nil
	}
	if e.params.Authority != ([20]byte{}) && caller == e.params.Authority {
		return nil
	}
	return ErrUnauthorized
}

// payoutAccount picks where a placement reward goes. A recorded submitter
// always wins; a supplied account must then match it. Entries that only
// ever received votes pay the supplied account. Neither escrow of the
// challenge can be paid, since a self-transfer would leave the balance
// counters ahead of the tokens actually held.
func payoutAccount(c *Challenge, tally SubmissionTally, supplied [20]byte) ([20]byte, error) {
	account := supplied
	if tally.Submitter != ([20]byte{}) {
		if supplied != ([20]byte{}) && supplied != tally.Submitter {
			return [20]byte{}, ErrInvalidTokenAccount
		}
		account = tally.Submitter
	}
	if account == ([20]byte{}) || account == c.TreasuryAddress || account == c.VotingTreasuryAddress {
		return [20]byte{}, ErrInvalidTokenAccount
	}
	return account, nil
}

// Finalize closes the challenge, ranks the submissions and pays the platform
// fee, the winner, the runner-up and any surplus to the creator from the
// treasury.
func (e *Engine) Finalize(id [32]byte, caller, creator, winnerAccount, runnerUpAccount [20]byte) (*Settlement, error) {
	c, err := e.loadActive(id)
	if err != nil {
		return nil, err
	}
	if err := e.authorizeSettlement(c, caller); err != nil {
		return nil, err
	}
	if creator != c.Creator {
		return nil, ErrInvalidCreator
	}
	if len(c.Submissions) == 0 {
		return nil, ErrNoSubmissions
	}
	if c.TotalVotes == 0 {
		return nil, ErrNoVotes
	}
	if e.params.PlatformAccount == ([20]byte{}) {
		return nil, errNilPlatform
	}

	ranked := Rank(c.Submissions)
	winner := ranked[0]
	settlement := &Settlement{Winner: winner.ID}
	hasRunnerUp := len(ranked) > 1
	settlement.Split = ComputeSplit(c.Reward, c.TreasuryBalance, hasRunnerUp)
	split := settlement.Split

	if split.WinnerReward > 0 {
		if settlement.WinnerAccount, err = payoutAccount(c, winner, winnerAccount); err != nil {
			return nil, err
		}
	}
	if hasRunnerUp {
		settlement.RunnerUp = ranked[1].ID
		if split.RunnerUpReward > 0 {
			if settlement.RunnerUpAccount, err = payoutAccount(c, ranked[1], runnerUpAccount); err != nil {
				return nil, err
			}
		}
	}

	// Check the escrow can cover the whole plan before moving anything.
	held, err := e.bank.Balance(c.TreasuryAddress)
	if err != nil {
		return nil, err
	}
	if split.Total() > held || split.Total() > c.TreasuryBalance {
		return nil, ErrInsufficientFunds
	}

	signer := escrowSigner{addr: c.TreasuryAddress}
	payouts := []struct {
		to     [20]byte
		amount uint64
	}{
		{e.params.PlatformAccount, split.PlatformFee},
		{settlement.WinnerAccount, split.WinnerReward},
		{settlement.RunnerUpAccount, split.RunnerUpReward},
		{c.Creator, split.Leftover},
	}
	remaining := c.TreasuryBalance
	for _, p := range payouts {
		if p.amount == 0 {
			continue
		}
		if err := e.pay(c.TreasuryAddress, p.to, signer, p.amount); err != nil {
			return nil, err
		}
		if remaining, err = checkedSub(remaining, p.amount); err != nil {
			return nil, err
		}
	}

	c.TreasuryBalance = remaining
	c.Active = false
	c.Winner = winner.ID
	c.WinningVotes = winner.Votes
	c.VotingRewardPool = c.VotingTreasuryBalance
	c.FinalizedAt = e.now()
	if err := e.store(c); err != nil {
		return nil, err
	}
	if err := e.countFinalized(); err != nil {
		return nil, err
	}
	if err := e.recordFee(feePlatform, split.PlatformFee); err != nil {
		return nil, err
	}
	e.emit(NewFinalizedEvent(c, settlement))
	return settlement, nil
}

// DistributeVotingReward pays voter its share of the voting pool. The
// winning voter count comes from the caller; CountWinningVoters computes the
// reference value.
func (e *Engine) DistributeVotingReward(id [32]byte, caller, voter [20]byte, winningVoters uint64) (uint64, error) {
	c, err := e.load(id)
	if err != nil {
		return 0, err
	}
	if err := e.authorizeSettlement(c, caller); err != nil {
		return 0, err
	}
	if c.Active || c.Winner == "" {
		return 0, ErrNoWinnerDeclared
	}
	if !c.HasVoted(voter, c.Winner) {
		return 0, ErrVoterDidNotVoteForWinner
	}
	if winningVoters == 0 {
		return 0, ErrInvalidVoteCount
	}
	if c.HasClaimed(voter) {
		return 0, ErrRewardAlreadyClaimed
	}
	share := VoterShare(c.VotingRewardPool, winningVoters)
	if share == 0 {
		return 0, ErrNoRewardToDistribute
	}
	remaining, err := checkedSub(c.VotingTreasuryBalance, share)
	if err != nil {
		return 0, ErrInsufficientFunds
	}
	if err := e.pay(c.VotingTreasuryAddress, voter, escrowSigner{addr: c.VotingTreasuryAddress}, share); err != nil {
		return 0, err
	}
	c.VotingTreasuryBalance = remaining
	c.RewardClaims = append(c.RewardClaims, voter)
	if err := e.store(c); err != nil {
		return 0, err
	}
	e.emit(NewVoterRewardedEvent(c, voter, share))
	return share, nil
}

// ClaimCreatorReward sweeps everything still held by the treasury escrow to
// the creator once the challenge is finalized.
func (e *Engine) ClaimCreatorReward(id [32]byte, caller [20]byte) (uint64, error) {
	c, err := e.load(id)
	if err != nil {
		return 0, err
	}
	if c.Active {
		return 0, ErrChallengeStillActive
	}
	if caller != c.Creator {
		return 0, ErrInvalidCreator
	}
	held, err := e.bank.Balance(c.TreasuryAddress)
	if err != nil {
		return 0, err
	}
	if held == 0 {
		return 0, nil
	}
	if err := e.pay(c.TreasuryAddress, c.Creator, escrowSigner{addr: c.TreasuryAddress}, held); err != nil {
		return 0, err
	}
	c.TreasuryBalance = saturatingSub(c.TreasuryBalance, held)
	if err := e.store(c); err != nil {
		return 0, err
	}
	e.emit(NewCreatorClaimedEvent(c, held))
	return held, nil
}

var _ bank.Authority = escrowSigner{}
