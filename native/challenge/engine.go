package challenge

import (
	"errors"
	"fmt"
	"time"

	"challengechain/core/events"
	"challengechain/core/types"
	"challengechain/native/bank"
)

var (
	errNilState    = errors.New("challenge engine: state not configured")
	errNilPlatform = errors.New("challenge engine: platform account not configured")
)

type engineState interface {
	ChallengeGet(id [32]byte) (*Challenge, bool, error)
	ChallengePut(c *Challenge) error
	ChallengeTrackerGet() (*ChallengeTracker, error)
	ChallengeTrackerPut(t *ChallengeTracker) error
	FeeTrackerGet() (*FeeTracker, error)
	FeeTrackerPut(t *FeeTracker) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	AccountExists(addr []byte) (bool, error)
}

type challengeEvent struct {
	evt *types.Event
}

func (e challengeEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e challengeEvent) Event() *types.Event { return e.evt }

// Params are the fixed amounts and accounts the engine charges against.
type Params struct {
	// PlatformAccount receives the platform fee and creation fees.
	PlatformAccount [20]byte
	// Authority may finalize and distribute on behalf of any creator.
	// Zero disables the override.
	Authority     [20]byte
	SubmissionFee uint64
	// CreationFee is charged in native currency at create.
	CreationFee uint64
	// EscrowFunding is the native balance each escrow is opened with.
	EscrowFunding uint64
}

// DefaultParams returns the production fee schedule.
func DefaultParams() Params {
	return Params{
		SubmissionFee: DefaultSubmissionFee,
		CreationFee:   2_000_000,
		EscrowFunding: 2_000_000,
	}
}

// Engine applies challenge operations against state. Each call either
// succeeds completely or returns an error; callers that need rollback across
// partial writes run it over a buffered state.
type Engine struct {
	state   engineState
	bank    *bank.Bank
	emitter events.Emitter
	params  Params
	nowFn   func() int64
}

// NewEngine creates an engine with default params and a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		params:  DefaultParams(),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) {
	e.state = state
	e.bank = bank.New(state)
}

// SetParams replaces the fee schedule.
func (e *Engine) SetParams(p Params) { e.params = p }

// Params returns the configured fee schedule.
func (e *Engine) Params() Params { return e.params }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(challengeEvent{evt: event})
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return uint64(e.nowFn())
}

func (e *Engine) load(id [32]byte) (*Challenge, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	c, ok, err := e.state.ChallengeGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrChallengeNotFound
	}
	return c, nil
}

func (e *Engine) loadActive(id [32]byte) (*Challenge, error) {
	c, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, ErrChallengeNotActive
	}
	return c, nil
}

func (e *Engine) store(c *Challenge) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.ChallengePut(c)
}

// pay moves tokens and maps bank failures onto challenge errors.
func (e *Engine) pay(from, to [20]byte, authority bank.Authority, amount uint64) error {
	if err := e.bank.Transfer(from, to, authority, amount); err != nil {
		switch {
		case errors.Is(err, bank.ErrInsufficientBalance):
			return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
		case errors.Is(err, bank.ErrBalanceOverflow):
			return fmt.Errorf("%w: %w", ErrArithmeticOverflow, err)
		}
		return err
	}
	return nil
}

// CreateRequest carries the creator-chosen challenge terms.
type CreateRequest struct {
	Number           uint64
	Reward           uint64
	ParticipationFee uint64
	VotingFee        uint64
	MaxParticipants  uint32
	// Optional escrow addresses the client expects; checked against the
	// derived ones when non-zero.
	TreasuryHint       [20]byte
	VotingTreasuryHint [20]byte
}

// Create opens a new challenge owned by creator. The creator pays the
// creation fee and funds both escrow accounts in native currency.
func (e *Engine) Create(creator [20]byte, req CreateRequest) (*Challenge, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if req.MaxParticipants > 255 {
		return nil, ErrInvalidMaxParticipants
	}
	if e.params.PlatformAccount == ([20]byte{}) {
		return nil, errNilPlatform
	}
	id := ComputeID(creator, req.Number)
	treasury, treasuryBump := DeriveEscrow(RoleTreasury, id)
	votingTreasury, votingBump := DeriveEscrow(RoleVotingTreasury, id)
	if req.TreasuryHint != ([20]byte{}) && req.TreasuryHint != treasury {
		return nil, ErrInvalidTreasury
	}
	if req.VotingTreasuryHint != ([20]byte{}) && req.VotingTreasuryHint != votingTreasury {
		return nil, ErrInvalidVotingTreasury
	}
	if _, ok, err := e.state.ChallengeGet(id); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrChallengeExists
	}

	owner := bank.Owner(creator)
	if err := e.bank.TransferNative(creator, e.params.PlatformAccount, owner, e.params.CreationFee); err != nil {
		return nil, e.wrapOpenErr(err)
	}
	for _, escrow := range [][20]byte{treasury, votingTreasury} {
		if err := e.bank.Open(escrow, creator, owner, e.params.EscrowFunding); err != nil {
			return nil, e.wrapOpenErr(err)
		}
	}

	maxParticipants := uint8(req.MaxParticipants)
	if maxParticipants == 0 {
		maxParticipants = DefaultMaxParticipants
	}
	c := &Challenge{
		ID:                    id,
		Creator:               creator,
		Active:                true,
		Reward:                req.Reward,
		ParticipationFee:      req.ParticipationFee,
		VotingFee:             req.VotingFee,
		MaxParticipants:       maxParticipants,
		TreasuryAddress:       treasury,
		VotingTreasuryAddress: votingTreasury,
		TreasuryBump:          treasuryBump,
		VotingTreasuryBump:    votingBump,
		CreatedAt:             e.now(),
	}
	if err := e.store(c); err != nil {
		return nil, err
	}
	if err := e.countCreated(); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(c))
	return c.Clone(), nil
}

func (e *Engine) wrapOpenErr(err error) error {
	switch {
	case errors.Is(err, bank.ErrAccountInUse):
		return fmt.Errorf("%w: %w", ErrChallengeExists, err)
	case errors.Is(err, bank.ErrInsufficientBalance):
		return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
	case errors.Is(err, bank.ErrBalanceOverflow):
		return fmt.Errorf("%w: %w", ErrArithmeticOverflow, err)
	}
	return err
}

// FundReward moves amount reward tokens from the creator into the treasury.
func (e *Engine) FundReward(id [32]byte, caller [20]byte, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	c, err := e.loadActive(id)
	if err != nil {
		return err
	}
	if caller != c.Creator {
		return ErrInvalidCreator
	}
	balance, err := checkedAdd(c.TreasuryBalance, amount)
	if err != nil {
		return err
	}
	funded, err := checkedAdd(c.RewardFunded, amount)
	if err != nil {
		return err
	}
	if err := e.pay(caller, c.TreasuryAddress, bank.Owner(caller), amount); err != nil {
		return err
	}
	c.TreasuryBalance = balance
	c.RewardFunded = funded
	if err := e.store(c); err != nil {
		return err
	}
	e.emit(NewRewardFundedEvent(c, amount))
	return nil
}

// PayParticipationFee registers participant after charging the fee into the
// treasury.
func (e *Engine) PayParticipationFee(id [32]byte, participant [20]byte) error {
	c, err := e.loadActive(id)
	if err != nil {
		return err
	}
	if c.HasParticipant(participant) {
		return ErrAlreadyParticipated
	}
	if len(c.Participants) >= c.Limit() {
		return ErrMaxParticipantsReached
	}
	balance, err := checkedAdd(c.TreasuryBalance, c.ParticipationFee)
	if err != nil {
		return err
	}
	if err := e.pay(participant, c.TreasuryAddress, bank.Owner(participant), c.ParticipationFee); err != nil {
		return err
	}
	c.TreasuryBalance = balance
	c.Participants = append(c.Participants, participant)
	if err := e.store(c); err != nil {
		return err
	}
	if err := e.recordFee(feeParticipation, c.ParticipationFee); err != nil {
		return err
	}
	e.emit(NewParticipatedEvent(c, participant))
	return nil
}

// Get returns a copy of the stored challenge.
func (e *Engine) Get(id [32]byte) (*Challenge, error) {
	c, err := e.load(id)
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}
