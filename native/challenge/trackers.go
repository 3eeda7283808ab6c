package challenge

// ChallengeTracker counts finalized challenges.
type ChallengeTracker struct {
	TotalChallenges uint64
}

// FeeTracker accumulates fees collected across every challenge.
// TotalChallenges counts created challenges.
type FeeTracker struct {
	TotalParticipationFees uint64
	TotalSubmissionFees    uint64
	TotalVotingFees        uint64
	TotalPlatformFees      uint64
	TotalChallenges        uint64
}

type feeKind uint8

const (
	feeParticipation feeKind = iota
	feeSubmission
	feeVoting
	feePlatform
)

func (k feeKind) String() string {
	switch k {
	case feeParticipation:
		return "participation"
	case feeSubmission:
		return "submission"
	case feeVoting:
		return "voting"
	default:
		return "platform"
	}
}

func (t *FeeTracker) add(kind feeKind, amount uint64) error {
	var field *uint64
	switch kind {
	case feeParticipation:
		field = &t.TotalParticipationFees
	case feeSubmission:
		field = &t.TotalSubmissionFees
	case feeVoting:
		field = &t.TotalVotingFees
	default:
		field = &t.TotalPlatformFees
	}
	sum, err := checkedAdd(*field, amount)
	if err != nil {
		return err
	}
	*field = sum
	return nil
}

func (e *Engine) recordFee(kind feeKind, amount uint64) error {
	tracker, err := e.state.FeeTrackerGet()
	if err != nil {
		return err
	}
	if err := tracker.add(kind, amount); err != nil {
		return err
	}
	return e.state.FeeTrackerPut(tracker)
}

func (e *Engine) countCreated() error {
	tracker, err := e.state.FeeTrackerGet()
	if err != nil {
		return err
	}
	next, err := checkedAdd(tracker.TotalChallenges, 1)
	if err != nil {
		return err
	}
	tracker.TotalChallenges = next
	return e.state.FeeTrackerPut(tracker)
}

func (e *Engine) countFinalized() error {
	tracker, err := e.state.ChallengeTrackerGet()
	if err != nil {
		return err
	}
	next, err := checkedAdd(tracker.TotalChallenges, 1)
	if err != nil {
		return err
	}
	tracker.TotalChallenges = next
	return e.state.ChallengeTrackerPut(tracker)
}
