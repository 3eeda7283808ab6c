package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"challengechain/core/events"
	"challengechain/core/state"
	"challengechain/core/types"
	"challengechain/crypto"
	"challengechain/native/bank"
	"challengechain/native/challenge"
	"challengechain/observability"
	"challengechain/observability/metrics"
	"challengechain/storage"
)

var (
	ErrNilTransaction = errors.New("ledger: nil transaction")
	ErrUnknownTxType  = errors.New("ledger: unknown transaction type")
	ErrInvalidNonce   = errors.New("ledger: invalid nonce")
	ErrInvalidPayload = errors.New("ledger: invalid payload")
)

// Receipt describes a committed transaction.
type Receipt struct {
	TxHash string            `json:"txHash"`
	Type   string            `json:"type"`
	Sender string            `json:"sender"`
	Nonce  uint64            `json:"nonce"`
	Events []types.Event     `json:"events"`
	Result map[string]string `json:"result,omitempty"`
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithEmitter forwards committed events to emitter.
func WithEmitter(emitter events.Emitter) Option {
	return func(l *Ledger) {
		if emitter != nil {
			l.emitter = emitter
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithNowFunc overrides the clock stamped onto challenges.
func WithNowFunc(now func() int64) Option {
	return func(l *Ledger) { l.nowFn = now }
}

// Ledger is the single writer over the state database. Every Apply runs in
// its own overlay and is committed as one batch, or not at all.
type Ledger struct {
	mu      sync.RWMutex
	db      storage.Database
	params  challenge.Params
	emitter events.Emitter
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.ChallengeMetrics
	nowFn   func() int64
}

// New opens a ledger over db. The store is stamped with the current state
// version, or rejected when it was written by a different layout.
func New(db storage.Database, params challenge.Params, opts ...Option) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("ledger: database required")
	}
	l := &Ledger{
		db:      db,
		params:  params,
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		tracer:  otel.Tracer("challengechain/ledger"),
		metrics: metrics.Challenge(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := state.NewManager(db).EnsureStateVersion(); err != nil {
		return nil, err
	}
	return l, nil
}

// Params returns the fee schedule transactions are applied with.
func (l *Ledger) Params() challenge.Params { return l.params }

// View runs fn against committed state under the read lock.
func (l *Ledger) View(fn func(*state.Manager) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(state.NewManager(l.db))
}

// outcome collects what a successful transaction did, for the receipt and
// metrics.
type outcome struct {
	result    map[string]string
	fees      map[string]uint64
	payouts   map[string]uint64
	finalized bool
	transfer  string
}

func newOutcome() *outcome {
	return &outcome{
		result:  make(map[string]string),
		fees:    make(map[string]uint64),
		payouts: make(map[string]uint64),
	}
}

// Apply verifies and executes tx. On error nothing is written and no event is
// emitted; the sender nonce is only consumed by successful transactions.
func (l *Ledger) Apply(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	start := time.Now()
	txType := "unknown"
	if tx != nil {
		txType = tx.Type.String()
	}
	_, span := l.tracer.Start(ctx, "ledger.apply", trace.WithAttributes(attribute.String("tx.type", txType)))
	defer span.End()

	receipt, out, err := l.apply(tx)
	code := "OK"
	if err != nil {
		code = challenge.Code(err)
		if code == "" {
			code = "Rejected"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.Info("transaction rejected",
			slog.String("type", txType),
			slog.String("code", code),
			slog.String("error", err.Error()))
	} else {
		span.SetAttributes(attribute.String("tx.hash", receipt.TxHash))
		l.record(out)
		l.logger.Debug("transaction applied",
			slog.String("tx", receipt.TxHash),
			slog.String("type", txType),
			slog.String("sender", receipt.Sender),
			slog.Int("events", len(receipt.Events)))
	}
	l.metrics.ObserveTx(txType, code, time.Since(start))
	return receipt, err
}

func (l *Ledger) record(out *outcome) {
	for kind, amount := range out.fees {
		l.metrics.RecordFee(kind, amount)
	}
	for kind, amount := range out.payouts {
		l.metrics.RecordPayout(kind, amount)
	}
	if out.finalized {
		l.metrics.RecordFinalized()
	}
	if out.transfer != "" {
		observability.Events().RecordTransfer(out.transfer)
	}
}

func (l *Ledger) apply(tx *types.Transaction) (*Receipt, *outcome, error) {
	if tx == nil {
		return nil, nil, ErrNilTransaction
	}
	if !tx.Type.Valid() {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownTxType, tx.Type)
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, nil, err
	}
	from, err := tx.From()
	if err != nil {
		return nil, nil, err
	}
	var sender [20]byte
	copy(sender[:], from)

	l.mu.Lock()
	defer l.mu.Unlock()

	overlay := storage.NewOverlay(l.db)
	manager := state.NewManager(overlay)
	account, err := manager.GetAccount(sender[:])
	if err != nil {
		return nil, nil, err
	}
	if tx.Nonce != account.Nonce {
		return nil, nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidNonce, account.Nonce, tx.Nonce)
	}
	account.Nonce++
	if err := manager.PutAccount(sender[:], account); err != nil {
		return nil, nil, err
	}

	buffer := &events.Buffer{}
	engine := challenge.NewEngine()
	engine.SetState(manager)
	engine.SetParams(l.params)
	engine.SetEmitter(buffer)
	engine.SetNowFunc(l.nowFn)

	out := newOutcome()
	if err := l.dispatch(engine, manager, sender, tx, out); err != nil {
		overlay.Discard()
		return nil, nil, err
	}
	if err := overlay.Commit(); err != nil {
		return nil, nil, fmt.Errorf("ledger: commit: %w", err)
	}

	receipt := &Receipt{
		TxHash: "0x" + hex.EncodeToString(hash),
		Type:   tx.Type.String(),
		Sender: crypto.FromRaw(sender).String(),
		Nonce:  tx.Nonce,
		Result: out.result,
	}
	for _, evt := range buffer.Events() {
		observability.Events().RecordEvent(evt.EventType())
		if carrier, ok := evt.(interface{ Event() *types.Event }); ok && carrier.Event() != nil {
			receipt.Events = append(receipt.Events, *carrier.Event())
		}
	}
	buffer.Flush(l.emitter)
	return receipt, out, nil
}

func (l *Ledger) dispatch(engine *challenge.Engine, manager *state.Manager, sender [20]byte, tx *types.Transaction, out *outcome) error {
	switch tx.Type {
	case types.TxTypeTransfer:
		return applyTransfer(manager, sender, tx, out)
	case types.TxTypeCreateChallenge:
		return applyCreate(engine, sender, tx, out)
	case types.TxTypeFundReward:
		var payload types.FundRewardPayload
		id, err := decodeChallenge(tx, &payload, func() string { return payload.ChallengeID })
		if err != nil {
			return err
		}
		if err := engine.FundReward(id, sender, payload.Amount); err != nil {
			return err
		}
		out.result["amount"] = formatUint(payload.Amount)
		return nil
	case types.TxTypeParticipate:
		var payload types.ChallengePayload
		id, err := decodeChallenge(tx, &payload, func() string { return payload.ChallengeID })
		if err != nil {
			return err
		}
		if err := engine.PayParticipationFee(id, sender); err != nil {
			return err
		}
		c, err := engine.Get(id)
		if err != nil {
			return err
		}
		out.fees["participation"] = c.ParticipationFee
		return nil
	case types.TxTypeSubmitEntry:
		var payload types.SubmissionPayload
		id, err := decodeChallenge(tx, &payload, func() string { return payload.ChallengeID })
		if err != nil {
			return err
		}
		if err := engine.SubmitEntry(id, sender, payload.SubmissionID); err != nil {
			return err
		}
		out.fees["submission"] = engine.Params().SubmissionFee
		return nil
	case types.TxTypeVote:
		var payload types.SubmissionPayload
		id, err := decodeChallenge(tx, &payload, func() string { return payload.ChallengeID })
		if err != nil {
			return err
		}
		if err := engine.Vote(id, sender, payload.SubmissionID); err != nil {
			return err
		}
		c, err := engine.Get(id)
		if err != nil {
			return err
		}
		out.fees["voting"] = c.VotingFee
		return nil
	case types.TxTypeFinalizeChallenge:
		return applyFinalize(engine, sender, tx, out)
	case types.TxTypeDistributeVotingReward:
		var payload types.DistributePayload
		id, err := decodeChallenge(tx, &payload, func() string { return payload.ChallengeID })
		if err != nil {
			return err
		}
		voter, err := parseAccount("voter", payload.Voter, true)
		if err != nil {
			return err
		}
		share, err := engine.DistributeVotingReward(id, sender, voter, payload.WinningVoters)
		if err != nil {
			return err
		}
		out.result["amount"] = formatUint(share)
		out.payouts["voter"] = share
		return nil
	case types.TxTypeClaimCreatorReward:
		var payload types.ChallengePayload
		id, err := decodeChallenge(tx, &payload, func() string { return payload.ChallengeID })
		if err != nil {
			return err
		}
		amount, err := engine.ClaimCreatorReward(id, sender)
		if err != nil {
			return err
		}
		out.result["amount"] = formatUint(amount)
		out.payouts["creator"] = amount
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnknownTxType, tx.Type)
}

func applyTransfer(manager *state.Manager, sender [20]byte, tx *types.Transaction, out *outcome) error {
	var payload types.TransferPayload
	if err := tx.DecodeData(&payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	to, err := parseAccount("to", payload.To, true)
	if err != nil {
		return err
	}
	if payload.Amount == 0 {
		return challenge.ErrInvalidAmount
	}
	if err := bank.New(manager).Transfer(sender, to, bank.Owner(sender), payload.Amount); err != nil {
		return err
	}
	out.result["amount"] = formatUint(payload.Amount)
	out.transfer = bank.Token.String()
	return nil
}

func applyCreate(engine *challenge.Engine, sender [20]byte, tx *types.Transaction, out *outcome) error {
	var payload types.CreateChallengePayload
	if err := tx.DecodeData(&payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	treasury, err := parseAccount("treasury", payload.TreasuryHint, false)
	if err != nil {
		return err
	}
	votingTreasury, err := parseAccount("votingTreasury", payload.VotingTreasuryHint, false)
	if err != nil {
		return err
	}
	c, err := engine.Create(sender, challenge.CreateRequest{
		Number:             payload.Number,
		Reward:             payload.Reward,
		ParticipationFee:   payload.ParticipationFee,
		VotingFee:          payload.VotingFee,
		MaxParticipants:    payload.MaxParticipants,
		TreasuryHint:       treasury,
		VotingTreasuryHint: votingTreasury,
	})
	if err != nil {
		return err
	}
	out.result["challengeId"] = challenge.FormatID(c.ID)
	out.result["treasury"] = crypto.FromRaw(c.TreasuryAddress).String()
	out.result["votingTreasury"] = crypto.FromRaw(c.VotingTreasuryAddress).String()
	return nil
}

func applyFinalize(engine *challenge.Engine, sender [20]byte, tx *types.Transaction, out *outcome) error {
	var payload types.FinalizePayload
	id, err := decodeChallenge(tx, &payload, func() string { return payload.ChallengeID })
	if err != nil {
		return err
	}
	creator, err := parseAccount("creator", payload.Creator, true)
	if err != nil {
		return err
	}
	winner, err := parseAccount("winnerAccount", payload.WinnerAccount, false)
	if err != nil {
		return err
	}
	runnerUp, err := parseAccount("runnerUpAccount", payload.RunnerUpAccount, false)
	if err != nil {
		return err
	}
	settlement, err := engine.Finalize(id, sender, creator, winner, runnerUp)
	if err != nil {
		return err
	}
	split := settlement.Split
	out.finalized = true
	out.result["winner"] = settlement.Winner
	if settlement.RunnerUp != "" {
		out.result["runnerUp"] = settlement.RunnerUp
	}
	out.result["platformFee"] = formatUint(split.PlatformFee)
	out.result["winnerReward"] = formatUint(split.WinnerReward)
	out.result["runnerUpReward"] = formatUint(split.RunnerUpReward)
	out.result["leftover"] = formatUint(split.Leftover)
	out.fees["platform"] = split.PlatformFee
	out.payouts["winner"] = split.WinnerReward
	out.payouts["runner_up"] = split.RunnerUpReward
	out.payouts["leftover"] = split.Leftover
	return nil
}

// decodeChallenge decodes tx data into payload and parses the challenge id
// read back through idFn.
func decodeChallenge(tx *types.Transaction, payload interface{}, idFn func() string) ([32]byte, error) {
	if err := tx.DecodeData(payload); err != nil {
		return [32]byte{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	id, err := challenge.ParseID(idFn())
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return id, nil
}

func parseAccount(field, raw string, required bool) ([20]byte, error) {
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return addr, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, field, err)
	}
	if required && addr == ([20]byte{}) {
		return addr, fmt.Errorf("%w: %s required", ErrInvalidPayload, field)
	}
	return addr, nil
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }
