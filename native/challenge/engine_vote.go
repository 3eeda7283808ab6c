package challenge

import "challengechain/native/bank"

// SubmitEntry charges the submission fee and records submissionID. Entering
// an existing ID charges again without touching its tally.
func (e *Engine) SubmitEntry(id [32]byte, submitter [20]byte, submissionID string) error {
	normalized, err := NormalizeSubmissionID(submissionID)
	if err != nil {
		return err
	}
	c, err := e.loadActive(id)
	if err != nil {
		return err
	}
	fee := e.params.SubmissionFee
	balance, err := checkedAdd(c.TreasuryBalance, fee)
	if err != nil {
		return err
	}
	if err := e.pay(submitter, c.TreasuryAddress, bank.Owner(submitter), fee); err != nil {
		return err
	}
	c.TreasuryBalance = balance
	if idx := c.Submission(normalized); idx < 0 {
		c.Submissions = append(c.Submissions, SubmissionTally{ID: normalized, Submitter: submitter})
	} else if c.Submissions[idx].Submitter == ([20]byte{}) {
		// first explicit submission of an entry that so far only had votes
		c.Submissions[idx].Submitter = submitter
	}
	if err := e.store(c); err != nil {
		return err
	}
	if err := e.recordFee(feeSubmission, fee); err != nil {
		return err
	}
	e.emit(NewSubmittedEvent(c, submitter, normalized, fee))
	return nil
}

// Vote charges the voting fee into the voting treasury and counts one vote
// for submissionID. Unknown submissions are created with no submitter.
func (e *Engine) Vote(id [32]byte, voter [20]byte, submissionID string) error {
	normalized, err := NormalizeSubmissionID(submissionID)
	if err != nil {
		return err
	}
	c, err := e.loadActive(id)
	if err != nil {
		return err
	}
	if len(c.Voters) >= MaxVoters {
		return ErrMaxVotersReached
	}
	if c.HasVoted(voter, normalized) {
		return ErrAlreadyVoted
	}
	balance, err := checkedAdd(c.VotingTreasuryBalance, c.VotingFee)
	if err != nil {
		return err
	}
	total, err := checkedAdd(c.TotalVotes, 1)
	if err != nil {
		return err
	}
	idx := c.Submission(normalized)
	var votes uint64 = 1
	if idx >= 0 {
		if votes, err = checkedAdd(c.Submissions[idx].Votes, 1); err != nil {
			return err
		}
	}
	if err := e.pay(voter, c.VotingTreasuryAddress, bank.Owner(voter), c.VotingFee); err != nil {
		return err
	}
	c.VotingTreasuryBalance = balance
	c.TotalVotes = total
	if idx >= 0 {
		c.Submissions[idx].Votes = votes
	} else {
		c.Submissions = append(c.Submissions, SubmissionTally{ID: normalized, Votes: votes})
	}
	c.Voters = append(c.Voters, VoteRecord{Voter: voter, SubmissionID: normalized})
	if err := e.store(c); err != nil {
		return err
	}
	if err := e.recordFee(feeVoting, c.VotingFee); err != nil {
		return err
	}
	e.emit(NewVotedEvent(c, voter, normalized, votes))
	return nil
}
