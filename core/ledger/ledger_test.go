package ledger

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"challengechain/core/events"
	"challengechain/core/types"
	"challengechain/crypto"
	"challengechain/native/challenge"
	"challengechain/storage"
)

type actor struct {
	key   *crypto.PrivateKey
	addr  [20]byte
	nonce uint64
}

func newActor(t *testing.T) *actor {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return &actor{key: key, addr: key.PubKey().Address().Raw()}
}

func (a *actor) String() string { return crypto.FromRaw(a.addr).String() }

func (a *actor) tx(t *testing.T, txType types.TxType, payload interface{}) *types.Transaction {
	t.Helper()
	tx, err := types.NewTransaction(txType, a.nonce, payload)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(a.key.PrivateKey))
	return tx
}

type harness struct {
	t        *testing.T
	ledger   *Ledger
	recorder *events.Recorder
	platform [20]byte
}

func newHarness(t *testing.T, alloc ...GenesisAccount) *harness {
	t.Helper()
	var platform [20]byte
	for i := range platform {
		platform[i] = 0xA0
	}
	params := challenge.DefaultParams()
	params.PlatformAccount = platform
	params.SubmissionFee = 5_000
	recorder := events.NewRecorder(0)
	l, err := New(storage.NewMemDB(), params,
		WithEmitter(recorder),
		WithNowFunc(func() int64 { return 1_700_000_000 }))
	require.NoError(t, err)
	applied, err := l.ApplyGenesis(&Genesis{Accounts: alloc})
	require.NoError(t, err)
	require.True(t, applied)
	return &harness{t: t, ledger: l, recorder: recorder, platform: platform}
}

func (h *harness) apply(from *actor, txType types.TxType, payload interface{}) *Receipt {
	h.t.Helper()
	receipt, err := h.ledger.Apply(context.Background(), from.tx(h.t, txType, payload))
	require.NoError(h.t, err)
	from.nonce++
	return receipt
}

func (h *harness) reject(from *actor, txType types.TxType, payload interface{}) error {
	h.t.Helper()
	_, err := h.ledger.Apply(context.Background(), from.tx(h.t, txType, payload))
	require.Error(h.t, err)
	return err
}

func (h *harness) tokens(addr [20]byte) uint64 {
	h.t.Helper()
	acc, err := h.ledger.Account(addr)
	require.NoError(h.t, err)
	return acc.BalanceToken
}

func fund(a *actor, token uint64) GenesisAccount {
	return GenesisAccount{Address: a.String(), Token: token, Native: 10_000_000}
}

func createPayload(number uint64) types.CreateChallengePayload {
	return types.CreateChallengePayload{
		Number:           number,
		Reward:           1_000_000,
		ParticipationFee: 10_000,
		VotingFee:        20_000,
	}
}

func TestApplyFullLifecycle(t *testing.T) {
	creator, alice, bob := newActor(t), newActor(t), newActor(t)
	v1, v2, v3 := newActor(t), newActor(t), newActor(t)
	h := newHarness(t,
		fund(creator, 5_000_000), fund(alice, 100_000), fund(bob, 100_000),
		fund(v1, 100_000), fund(v2, 100_000), fund(v3, 100_000))

	receipt := h.apply(creator, types.TxTypeCreateChallenge, createPayload(1))
	idHex := receipt.Result["challengeId"]
	id, err := challenge.ParseID(idHex)
	require.NoError(t, err)
	require.Equal(t, challenge.ComputeID(creator.addr, 1), id)
	require.Equal(t, "create", receipt.Type)
	require.Len(t, receipt.Events, 1)
	require.Equal(t, challenge.EventTypeChallengeCreated, receipt.Events[0].Type)

	h.apply(alice, types.TxTypeParticipate, types.ChallengePayload{ChallengeID: idHex})
	h.apply(bob, types.TxTypeParticipate, types.ChallengePayload{ChallengeID: idHex})
	h.apply(alice, types.TxTypeSubmitEntry, types.SubmissionPayload{ChallengeID: idHex, SubmissionID: "alpha"})
	h.apply(bob, types.TxTypeSubmitEntry, types.SubmissionPayload{ChallengeID: idHex, SubmissionID: "beta"})
	h.apply(creator, types.TxTypeFundReward, types.FundRewardPayload{ChallengeID: idHex, Amount: 1_000_000})
	h.apply(v1, types.TxTypeVote, types.SubmissionPayload{ChallengeID: idHex, SubmissionID: "alpha"})
	h.apply(v2, types.TxTypeVote, types.SubmissionPayload{ChallengeID: idHex, SubmissionID: "alpha"})
	h.apply(v3, types.TxTypeVote, types.SubmissionPayload{ChallengeID: idHex, SubmissionID: "beta"})

	c, err := h.ledger.Challenge(id)
	require.NoError(t, err)
	require.Equal(t, uint64(1_030_000), c.TreasuryBalance)
	require.Equal(t, uint64(60_000), c.VotingTreasuryBalance)
	require.Equal(t, uint64(3), c.TotalVotes)

	receipt = h.apply(creator, types.TxTypeFinalizeChallenge, types.FinalizePayload{
		ChallengeID: idHex,
		Creator:     creator.String(),
	})
	require.Equal(t, "alpha", receipt.Result["winner"])
	require.Equal(t, "beta", receipt.Result["runnerUp"])
	require.Equal(t, "21000", receipt.Result["platformFee"])
	require.Equal(t, "734250", receipt.Result["winnerReward"])
	require.Equal(t, "244750", receipt.Result["runnerUpReward"])
	require.Equal(t, "30000", receipt.Result["leftover"])

	require.Equal(t, uint64(21_000), h.tokens(h.platform))
	require.Equal(t, uint64(100_000-15_000+734_250), h.tokens(alice.addr))
	require.Equal(t, uint64(100_000-15_000+244_750), h.tokens(bob.addr))
	require.Equal(t, uint64(5_000_000-1_000_000+30_000), h.tokens(creator.addr))
	require.Zero(t, h.tokens(c.TreasuryAddress))

	distribute := func(voter *actor) types.DistributePayload {
		return types.DistributePayload{ChallengeID: idHex, Voter: voter.String(), WinningVoters: 2}
	}
	receipt = h.apply(creator, types.TxTypeDistributeVotingReward, distribute(v1))
	require.Equal(t, "30000", receipt.Result["amount"])
	h.apply(creator, types.TxTypeDistributeVotingReward, distribute(v2))
	require.Equal(t, uint64(100_000-20_000+30_000), h.tokens(v1.addr))

	err = h.reject(creator, types.TxTypeDistributeVotingReward, distribute(v3))
	require.ErrorIs(t, err, challenge.ErrVoterDidNotVoteForWinner)
	err = h.reject(creator, types.TxTypeDistributeVotingReward, distribute(v1))
	require.ErrorIs(t, err, challenge.ErrRewardAlreadyClaimed)

	receipt = h.apply(creator, types.TxTypeClaimCreatorReward, types.ChallengePayload{ChallengeID: idHex})
	require.Equal(t, "0", receipt.Result["amount"])

	trackers, err := h.ledger.Trackers()
	require.NoError(t, err)
	require.Equal(t, uint64(1), trackers.Challenges.TotalChallenges)
	require.Equal(t, uint64(20_000), trackers.Fees.TotalParticipationFees)
	require.Equal(t, uint64(10_000), trackers.Fees.TotalSubmissionFees)
	require.Equal(t, uint64(60_000), trackers.Fees.TotalVotingFees)
	require.Equal(t, uint64(21_000), trackers.Fees.TotalPlatformFees)

	ids, err := h.ledger.ChallengeIDs()
	require.NoError(t, err)
	require.Equal(t, [][32]byte{id}, ids)
}

func TestApplyRejectsBadNonce(t *testing.T) {
	alice, bob := newActor(t), newActor(t)
	h := newHarness(t, fund(alice, 1_000))

	alice.nonce = 5
	err := h.reject(alice, types.TxTypeTransfer, types.TransferPayload{To: bob.String(), Amount: 10})
	require.ErrorIs(t, err, ErrInvalidNonce)

	alice.nonce = 0
	h.apply(alice, types.TxTypeTransfer, types.TransferPayload{To: bob.String(), Amount: 10})
	err = h.reject(&actor{key: alice.key, addr: alice.addr, nonce: 0}, types.TxTypeTransfer,
		types.TransferPayload{To: bob.String(), Amount: 10})
	require.ErrorIs(t, err, ErrInvalidNonce)

	require.Equal(t, uint64(990), h.tokens(alice.addr))
	require.Equal(t, uint64(10), h.tokens(bob.addr))
}

func TestFailedTransactionLeavesNonceAndEvents(t *testing.T) {
	alice, bob := newActor(t), newActor(t)
	h := newHarness(t, fund(alice, 100))

	err := h.reject(alice, types.TxTypeTransfer, types.TransferPayload{To: bob.String(), Amount: 1_000})
	require.Equal(t, "InsufficientFunds", challenge.Code(err))

	acc, err := h.ledger.Account(alice.addr)
	require.NoError(t, err)
	require.Zero(t, acc.Nonce)
	require.Empty(t, h.recorder.Recent(0))

	err = h.reject(alice, types.TxTypeTransfer, types.TransferPayload{To: bob.String(), Amount: 0})
	require.ErrorIs(t, err, challenge.ErrInvalidAmount)
	err = h.reject(alice, types.TxTypeTransfer, types.TransferPayload{Amount: 5})
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestFinalizeFailureIsAtomic(t *testing.T) {
	creator, alice, bob, voter := newActor(t), newActor(t), newActor(t), newActor(t)
	// alice ends up too close to the token ceiling to receive the winner reward
	h := newHarness(t,
		fund(creator, 5_000_000), fund(alice, math.MaxUint64-1_000), fund(bob, 100_000), fund(voter, 100_000))

	idHex := h.apply(creator, types.TxTypeCreateChallenge, createPayload(9)).Result["challengeId"]
	id, err := challenge.ParseID(idHex)
	require.NoError(t, err)
	h.apply(alice, types.TxTypeParticipate, types.ChallengePayload{ChallengeID: idHex})
	h.apply(alice, types.TxTypeSubmitEntry, types.SubmissionPayload{ChallengeID: idHex, SubmissionID: "alpha"})
	h.apply(bob, types.TxTypeSubmitEntry, types.SubmissionPayload{ChallengeID: idHex, SubmissionID: "beta"})
	h.apply(creator, types.TxTypeFundReward, types.FundRewardPayload{ChallengeID: idHex, Amount: 1_000_000})
	h.apply(voter, types.TxTypeVote, types.SubmissionPayload{ChallengeID: idHex, SubmissionID: "alpha"})

	before, err := h.ledger.Challenge(id)
	require.NoError(t, err)
	trackersBefore, err := h.ledger.Trackers()
	require.NoError(t, err)
	creatorBefore, err := h.ledger.Account(creator.addr)
	require.NoError(t, err)
	eventsBefore := len(h.recorder.Recent(0))

	err = h.reject(creator, types.TxTypeFinalizeChallenge, types.FinalizePayload{
		ChallengeID: idHex,
		Creator:     creator.String(),
	})
	require.ErrorIs(t, err, challenge.ErrArithmeticOverflow)

	after, err := h.ledger.Challenge(id)
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.True(t, after.Active)
	require.Zero(t, h.tokens(h.platform), "platform fee transfer must be rolled back")
	require.Equal(t, before.TreasuryBalance, h.tokens(before.TreasuryAddress))
	trackersAfter, err := h.ledger.Trackers()
	require.NoError(t, err)
	require.Equal(t, trackersBefore, trackersAfter)
	creatorAfter, err := h.ledger.Account(creator.addr)
	require.NoError(t, err)
	require.Equal(t, creatorBefore, creatorAfter)
	require.Len(t, h.recorder.Recent(0), eventsBefore)
}

func TestEventsFlushedAfterCommit(t *testing.T) {
	creator := newActor(t)
	h := newHarness(t, fund(creator, 1_000_000))

	h.apply(creator, types.TxTypeCreateChallenge, createPayload(3))
	recent := h.recorder.Recent(0)
	require.Len(t, recent, 1)
	require.Equal(t, challenge.EventTypeChallengeCreated, recent[0].EventType())

	err := h.reject(creator, types.TxTypeCreateChallenge, createPayload(3))
	require.ErrorIs(t, err, challenge.ErrChallengeExists)
	require.Len(t, h.recorder.Recent(0), 1)
}

func TestApplyRejectsUnsignedAndUnknown(t *testing.T) {
	h := newHarness(t)
	_, err := h.ledger.Apply(context.Background(), nil)
	require.ErrorIs(t, err, ErrNilTransaction)

	tx, err := types.NewTransaction(types.TxTypeTransfer, 0, types.TransferPayload{Amount: 1})
	require.NoError(t, err)
	_, err = h.ledger.Apply(context.Background(), tx)
	require.Error(t, err)

	tx.Type = types.TxType(0x7f)
	_, err = h.ledger.Apply(context.Background(), tx)
	require.ErrorIs(t, err, ErrUnknownTxType)
}

func TestApplyGenesisOnce(t *testing.T) {
	alice := newActor(t)
	h := newHarness(t, fund(alice, 42))
	applied, err := h.ledger.ApplyGenesis(&Genesis{Accounts: []GenesisAccount{fund(alice, 42)}})
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, uint64(42), h.tokens(alice.addr))
}

func TestParseGenesis(t *testing.T) {
	alice := newActor(t)
	doc := []byte("accounts:\n  - address: " + alice.String() + "\n    token: 10\n    native: 20\n")
	g, err := ParseGenesis(doc)
	require.NoError(t, err)
	require.Equal(t, []GenesisAccount{{Address: alice.String(), Token: 10, Native: 20}}, g.Accounts)

	_, err = ParseGenesis([]byte("accounts:\n  - address: nope\n"))
	require.Error(t, err)
	_, err = ParseGenesis([]byte("accounts: []\nextra: 1\n"))
	require.Error(t, err)

	empty, err := ParseGenesis(nil)
	require.NoError(t, err)
	require.Empty(t, empty.Accounts)
}
