package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"challengechain/core/events"
	"challengechain/core/ledger"
	"challengechain/core/types"
	"challengechain/native/challenge"
)

const maxRequestBytes = 1 << 20 // 1 MiB

// Backend is the ledger surface the server exposes.
type Backend interface {
	Apply(ctx context.Context, tx *types.Transaction) (*ledger.Receipt, error)
	Challenge(id [32]byte) (*challenge.Challenge, error)
	Account(addr [20]byte) (*types.Account, error)
	Trackers() (*ledger.Trackers, error)
}

type Config struct {
	RateLimitPerSecond float64
	RateLimitBurst     int
	Logger             *slog.Logger

	// Events feeds the websocket stream; nil disables it.
	Events *events.Feed
	// Recent backs the event history read; nil disables it.
	Recent *events.Recorder
}

type Server struct {
	backend Backend
	logger  *slog.Logger
	limiter *RateLimiter
	feed    *events.Feed
	recent  *events.Recorder
	router  chi.Router
	handler http.Handler
}

func NewServer(backend Backend, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		backend: backend,
		logger:  logger,
		limiter: NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		feed:    cfg.Events,
		recent:  cfg.Recent,
	}
	s.router = s.routes()
	s.handler = otelhttp.NewHandler(s.router, "challenge-rpc")
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(observe(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(s.limiter.Middleware)
		v1.Post("/tx", s.handleSubmitTx)
		v1.Get("/challenges/{id}", s.handleGetChallenge)
		v1.Get("/challenges/{id}/tally", s.handleGetTally)
		v1.Get("/accounts/{addr}", s.handleGetAccount)
		v1.Get("/trackers", s.handleGetTrackers)
		v1.Get("/events", s.handleEventsWS)
		v1.Get("/events/recent", s.handleRecentEvents)
	})
	return r
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.handler }

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("rpc listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("rpc shutdown: %w", err)
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		RequestID: RequestID(r.Context()),
	}})
}

// writeLedgerError maps an Apply or query failure onto a status and stable
// error code.
func (s *Server) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	if code := challenge.Code(err); code != "" {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, challenge.ErrChallengeNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, r, status, code, err.Error())
		return
	}
	switch {
	case errors.Is(err, ledger.ErrInvalidNonce):
		writeError(w, r, http.StatusConflict, "InvalidNonce", err.Error())
	case errors.Is(err, ledger.ErrInvalidPayload), errors.Is(err, ledger.ErrNilTransaction):
		writeError(w, r, http.StatusBadRequest, "InvalidPayload", err.Error())
	case errors.Is(err, ledger.ErrUnknownTxType):
		writeError(w, r, http.StatusBadRequest, "UnknownTxType", err.Error())
	case errors.Is(err, types.ErrInvalidSignature):
		writeError(w, r, http.StatusBadRequest, "InvalidSignature", err.Error())
	default:
		s.logger.Error("rpc request failed",
			slog.String("request_id", RequestID(r.Context())),
			slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, "Internal", "internal error")
	}
}
