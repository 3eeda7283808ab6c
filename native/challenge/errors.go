package challenge

import (
	"errors"

	"challengechain/native/bank"
)

// Error is a challenge failure with a stable code name and process exit code.
type Error struct {
	code string
	exit int
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Code returns the stable name, e.g. "AlreadyVoted".
func (e *Error) Code() string { return e.code }

// ExitCode returns the CLI exit status for the error.
func (e *Error) ExitCode() int { return e.exit }

func newError(code string, exit int, msg string) *Error {
	return &Error{code: code, exit: exit, msg: "challenge: " + msg}
}

var (
	ErrChallengeNotActive       = newError("ChallengeNotActive", 2, "challenge is not active")
	ErrChallengeStillActive     = newError("ChallengeStillActive", 3, "challenge is still active")
	ErrAlreadyParticipated      = newError("AlreadyParticipated", 4, "participant already paid")
	ErrAlreadyVoted             = newError("AlreadyVoted", 5, "voter already voted for this submission")
	ErrMaxParticipantsReached   = newError("MaxParticipantsReached", 6, "maximum participants reached")
	ErrMaxVotersReached         = newError("MaxVotersReached", 7, "maximum voters reached")
	ErrNoSubmissions            = newError("NoSubmissions", 8, "no submissions")
	ErrNoVotes                  = newError("NoVotes", 9, "no votes cast")
	ErrVoterDidNotVoteForWinner = newError("VoterDidNotVoteForWinner", 10, "voter did not vote for the winner")
	ErrNoWinnerDeclared         = newError("NoWinnerDeclared", 11, "no winner declared")
	ErrRewardAlreadyClaimed     = newError("RewardAlreadyClaimed", 12, "voting reward already claimed")
	ErrNoRewardToDistribute     = newError("NoRewardToDistribute", 13, "no reward to distribute")
	ErrChallengeNotFound        = newError("ChallengeNotFound", 14, "challenge not found")
	ErrChallengeExists          = newError("ChallengeExists", 15, "challenge already exists")
	ErrInvalidSubmissionID      = newError("InvalidSubmissionId", 16, "invalid submission id")
	ErrInvalidVoteCount         = newError("InvalidVoteCount", 17, "invalid winning voter count")
	ErrInvalidMaxParticipants   = newError("InvalidMaxParticipants", 18, "max participants out of range")
	ErrInvalidAmount            = newError("InvalidAmount", 19, "amount must be positive")
	ErrInvalidCreator           = newError("InvalidCreator", 20, "caller is not the challenge creator")
	ErrUnauthorized             = newError("Unauthorized", 21, "unauthorized caller")
	ErrInvalidTreasury          = newError("InvalidTreasury", 22, "treasury account mismatch")
	ErrInvalidVotingTreasury    = newError("InvalidVotingTreasury", 23, "voting treasury account mismatch")
	ErrInvalidTokenAccount      = newError("InvalidTokenAccount", 24, "payout account mismatch")
	ErrArithmeticOverflow       = newError("ArithmeticOverflow", 25, "arithmetic overflow")
	ErrInsufficientFunds        = newError("InsufficientFunds", 26, "insufficient funds")
)

// Code maps err to its stable name. Bank failures map onto the challenge
// code they surface as. Unknown errors yield "".
func Code(err error) string {
	if ce := classify(err); ce != nil {
		return ce.code
	}
	return ""
}

// ExitCode maps err to a process exit status: 0 for nil, the error's code
// for challenge failures and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ce := classify(err); ce != nil {
		return ce.exit
	}
	return 1
}

// All lists every challenge error in exit-code order.
func All() []*Error {
	return []*Error{
		ErrChallengeNotActive, ErrChallengeStillActive, ErrAlreadyParticipated,
		ErrAlreadyVoted, ErrMaxParticipantsReached, ErrMaxVotersReached,
		ErrNoSubmissions, ErrNoVotes, ErrVoterDidNotVoteForWinner,
		ErrNoWinnerDeclared, ErrRewardAlreadyClaimed, ErrNoRewardToDistribute,
		ErrChallengeNotFound, ErrChallengeExists, ErrInvalidSubmissionID,
		ErrInvalidVoteCount, ErrInvalidMaxParticipants, ErrInvalidAmount,
		ErrInvalidCreator, ErrUnauthorized, ErrInvalidTreasury,
		ErrInvalidVotingTreasury, ErrInvalidTokenAccount, ErrArithmeticOverflow,
		ErrInsufficientFunds,
	}
}

// ByCode looks up an error by its stable name.
func ByCode(code string) (*Error, bool) {
	for _, e := range All() {
		if e.code == code {
			return e, true
		}
	}
	return nil, false
}

func classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, bank.ErrInsufficientBalance):
		return ErrInsufficientFunds
	case errors.Is(err, bank.ErrBalanceOverflow):
		return ErrArithmeticOverflow
	case errors.Is(err, bank.ErrUnauthorized):
		return ErrUnauthorized
	case errors.Is(err, bank.ErrAccountInUse):
		return ErrChallengeExists
	}
	return nil
}
