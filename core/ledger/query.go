package ledger

import (
	"challengechain/core/state"
	"challengechain/core/types"
	"challengechain/native/challenge"
)

// Trackers bundles the global counters.
type Trackers struct {
	Challenges *challenge.ChallengeTracker `json:"challenges"`
	Fees       *challenge.FeeTracker       `json:"fees"`
}

// Challenge returns the committed challenge or challenge.ErrChallengeNotFound.
func (l *Ledger) Challenge(id [32]byte) (*challenge.Challenge, error) {
	var out *challenge.Challenge
	err := l.View(func(m *state.Manager) error {
		c, ok, err := m.ChallengeGet(id)
		if err != nil {
			return err
		}
		if !ok {
			return challenge.ErrChallengeNotFound
		}
		out = c
		return nil
	})
	return out, err
}

// ChallengeIDs lists every challenge in creation order.
func (l *Ledger) ChallengeIDs() ([][32]byte, error) {
	var ids [][32]byte
	err := l.View(func(m *state.Manager) error {
		var err error
		ids, err = m.ChallengeIDs()
		return err
	})
	return ids, err
}

// Account returns the committed account, empty when it was never written.
func (l *Ledger) Account(addr [20]byte) (*types.Account, error) {
	var out *types.Account
	err := l.View(func(m *state.Manager) error {
		acc, err := m.GetAccount(addr[:])
		out = acc
		return err
	})
	return out, err
}

func (l *Ledger) Trackers() (*Trackers, error) {
	out := new(Trackers)
	err := l.View(func(m *state.Manager) error {
		var err error
		if out.Challenges, err = m.ChallengeTrackerGet(); err != nil {
			return err
		}
		out.Fees, err = m.FeeTrackerGet()
		return err
	})
	return out, err
}
