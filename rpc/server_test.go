package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"challengechain/core/events"
	"challengechain/core/ledger"
	"challengechain/core/types"
	"challengechain/crypto"
	"challengechain/native/challenge"
	"challengechain/storage"
)

type testNode struct {
	ledger *ledger.Ledger
	server *httptest.Server
	client *Client
}

type signer struct {
	key   *crypto.PrivateKey
	addr  string
	nonce uint64
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return &signer{key: key, addr: key.PubKey().Address().String()}
}

func (s *signer) sign(t *testing.T, txType types.TxType, payload interface{}) *types.Transaction {
	t.Helper()
	tx, err := types.NewTransaction(txType, s.nonce, payload)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(s.key.PrivateKey))
	return tx
}

func newTestNode(t *testing.T, cfg Config, alloc ...ledger.GenesisAccount) *testNode {
	t.Helper()
	params := challenge.DefaultParams()
	params.PlatformAccount[0] = 0xA0
	var opts []ledger.Option
	switch {
	case cfg.Events != nil && cfg.Recent != nil:
		opts = append(opts, ledger.WithEmitter(events.Multi{cfg.Events, cfg.Recent}))
	case cfg.Events != nil:
		opts = append(opts, ledger.WithEmitter(cfg.Events))
	case cfg.Recent != nil:
		opts = append(opts, ledger.WithEmitter(cfg.Recent))
	}
	l, err := ledger.New(storage.NewMemDB(), params, opts...)
	require.NoError(t, err)
	_, err = l.ApplyGenesis(&ledger.Genesis{Accounts: alloc})
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer(l, cfg).Handler())
	t.Cleanup(srv.Close)
	return &testNode{ledger: l, server: srv, client: NewClient(srv.URL, srv.Client())}
}

func TestHealthAndMetrics(t *testing.T) {
	node := newTestNode(t, Config{})
	resp, err := http.Get(node.server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(requestIDHeader))

	resp, err = http.Get(node.server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSubmitTransferAndQueryAccount(t *testing.T) {
	alice, bob := newSigner(t), newSigner(t)
	node := newTestNode(t, Config{}, ledger.GenesisAccount{Address: alice.addr, Token: 500})
	ctx := context.Background()

	receipt, err := node.client.SubmitTx(ctx, alice.sign(t, types.TxTypeTransfer, types.TransferPayload{To: bob.addr, Amount: 200}))
	require.NoError(t, err)
	require.Equal(t, "transfer", receipt.Type)
	require.Equal(t, alice.addr, receipt.Sender)

	view, err := node.client.Account(ctx, bob.addr)
	require.NoError(t, err)
	require.Equal(t, uint64(200), view.BalanceToken)
	view, err = node.client.Account(ctx, alice.addr)
	require.NoError(t, err)
	require.Equal(t, uint64(300), view.BalanceToken)
	require.Equal(t, uint64(1), view.Nonce)

	_, err = node.client.SubmitTx(ctx, alice.sign(t, types.TxTypeTransfer, types.TransferPayload{To: bob.addr, Amount: 1}))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.Status)
	require.Equal(t, "InvalidNonce", apiErr.Code)
}

func TestChallengeErrorsCarryCodes(t *testing.T) {
	alice := newSigner(t)
	node := newTestNode(t, Config{}, ledger.GenesisAccount{Address: alice.addr, Token: 500, Native: 10_000_000})
	ctx := context.Background()
	missing := challenge.FormatID(challenge.ComputeID([20]byte{1}, 1))

	_, err := node.client.SubmitTx(ctx, alice.sign(t, types.TxTypeVote, types.SubmissionPayload{ChallengeID: missing, SubmissionID: "a"}))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "ChallengeNotFound", apiErr.Code)

	_, err = node.client.Challenge(ctx, missing)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "ChallengeNotFound", apiErr.Code)

	_, err = node.client.SubmitTx(ctx, alice.sign(t, types.TxTypeCreateChallenge, types.CreateChallengePayload{Number: 1, MaxParticipants: 300}))
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	require.Equal(t, "InvalidMaxParticipants", apiErr.Code)

	_, err = node.client.Challenge(ctx, "0x1234")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestCreateThenReadChallengeAndTally(t *testing.T) {
	creator := newSigner(t)
	node := newTestNode(t, Config{}, ledger.GenesisAccount{Address: creator.addr, Token: 1_000_000, Native: 10_000_000})
	ctx := context.Background()

	receipt, err := node.client.SubmitTx(ctx, creator.sign(t, types.TxTypeCreateChallenge, types.CreateChallengePayload{
		Number: 4, Reward: 100, VotingFee: 10,
	}))
	require.NoError(t, err)
	creator.nonce++
	id := receipt.Result["challengeId"]

	_, err = node.client.SubmitTx(ctx, creator.sign(t, types.TxTypeVote, types.SubmissionPayload{ChallengeID: id, SubmissionID: "solo"}))
	require.NoError(t, err)

	view, err := node.client.Challenge(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, view.ID)
	require.Equal(t, creator.addr, view.Creator)
	require.True(t, view.Active)
	require.Equal(t, challenge.DefaultMaxParticipants, view.MaxParticipants)
	require.Equal(t, receipt.Result["treasury"], view.Treasury)
	require.Equal(t, uint64(10), view.VotingTreasuryBalance)
	require.Equal(t, []VoteView{{Voter: creator.addr, SubmissionID: "solo"}}, view.Voters)

	tally, err := node.client.Tally(ctx, id)
	require.NoError(t, err)
	require.Equal(t, uint64(1), tally.TotalVotes)
	require.Equal(t, []SubmissionView{{ID: "solo", Votes: 1}}, tally.Ranking)
	require.Zero(t, tally.WinningVoters)

	trackers, err := node.client.Trackers(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), trackers.Fees.TotalChallenges)
	require.Equal(t, uint64(10), trackers.Fees.TotalVotingFees)
}

func TestSubmitRejectsMalformedBody(t *testing.T) {
	node := newTestNode(t, Config{})
	for _, body := range []string{"", "{not json", `{"type":1,"nonce":0,"data":{}}`} {
		resp, err := http.Post(node.server.URL+"/v1/tx", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %q", body)
	}
}

func TestRateLimiterThrottlesClient(t *testing.T) {
	node := newTestNode(t, Config{RateLimitPerSecond: 0.001, RateLimitBurst: 1})
	ctx := context.Background()
	addr := crypto.FromRaw([20]byte{9}).String()

	_, err := node.client.Account(ctx, addr)
	require.NoError(t, err)
	_, err = node.client.Account(ctx, addr)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	require.Equal(t, "RateLimited", apiErr.Code)

	// health checks sit outside the limited group
	resp, err := http.Get(node.server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestIDIsEchoed(t *testing.T) {
	node := newTestNode(t, Config{})
	req, err := http.NewRequest(http.MethodGet, node.server.URL+"/v1/trackers", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "abc-123", resp.Header.Get(requestIDHeader))
}

func TestEventStream(t *testing.T) {
	creator := newSigner(t)
	feed := events.NewFeed()
	node := newTestNode(t, Config{Events: feed}, ledger.GenesisAccount{Address: creator.addr, Token: 1_000_000, Native: 10_000_000})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(node.server.URL, "http") + "/v1/events"

	all, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer all.Close(websocket.StatusNormalClosure, "done")

	receipt, err := node.client.SubmitTx(ctx, creator.sign(t, types.TxTypeCreateChallenge, types.CreateChallengePayload{Number: 9, VotingFee: 1}))
	require.NoError(t, err)
	creator.nonce++
	id := receipt.Result["challengeId"]
	require.Equal(t, challenge.EventTypeChallengeCreated, readEvent(ctx, t, all).Type)

	scoped, _, err := websocket.Dial(ctx, wsURL+"?challenge="+id, nil)
	require.NoError(t, err)
	defer scoped.Close(websocket.StatusNormalClosure, "done")

	_, err = node.client.SubmitTx(ctx, creator.sign(t, types.TxTypeVote, types.SubmissionPayload{ChallengeID: id, SubmissionID: "a"}))
	require.NoError(t, err)
	evt := readEvent(ctx, t, scoped)
	require.Equal(t, challenge.EventTypeVoteCast, evt.Type)
	require.Equal(t, id, evt.Attributes["id"])
	require.Equal(t, challenge.EventTypeVoteCast, readEvent(ctx, t, all).Type)
}

func TestEventStreamDisabled(t *testing.T) {
	node := newTestNode(t, Config{})
	resp, err := http.Get(node.server.URL + "/v1/events")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn) types.Event {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var evt types.Event
	require.NoError(t, json.Unmarshal(data, &evt))
	return evt
}

func TestRecentEvents(t *testing.T) {
	creator := newSigner(t)
	recent := events.NewRecorder(8)
	node := newTestNode(t, Config{Recent: recent}, ledger.GenesisAccount{Address: creator.addr, Token: 1_000, Native: 10_000_000})
	ctx := context.Background()

	receipt, err := node.client.SubmitTx(ctx, creator.sign(t, types.TxTypeCreateChallenge, types.CreateChallengePayload{Number: 2}))
	require.NoError(t, err)
	creator.nonce++
	id := receipt.Result["challengeId"]
	_, err = node.client.SubmitTx(ctx, creator.sign(t, types.TxTypeVote, types.SubmissionPayload{ChallengeID: id, SubmissionID: "a"}))
	require.NoError(t, err)

	history, err := node.client.RecentEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, challenge.EventTypeChallengeCreated, history[0].Type)
	require.Equal(t, challenge.EventTypeVoteCast, history[1].Type)

	history, err = node.client.RecentEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, challenge.EventTypeVoteCast, history[0].Type)

	resp, err := http.Get(node.server.URL + "/v1/events/recent?limit=-3")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
