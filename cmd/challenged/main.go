package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"challengechain/config"
	"challengechain/core/events"
	"challengechain/core/ledger"
	"challengechain/observability/logging"
	telemetry "challengechain/observability/otel"
	"challengechain/rpc"
	"challengechain/storage"
)

const serviceName = "challenged"

// recentEvents is how many committed events the history read keeps.
const recentEvents = 1024

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis allocation file (overrides config GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if strings.TrimSpace(*genesisFlag) != "" {
		cfg.GenesisFile = *genesisFlag
	}

	env := cfg.Environment
	if v := strings.TrimSpace(os.Getenv("CHALLENGE_ENV")); v != "" {
		env = v
	}
	logger := logging.Setup(serviceName, env, logging.Options{
		Level: logging.ParseLevel(cfg.LogLevel),
		File:  cfg.LogFile,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, env, logger); err != nil {
		logger.Error("challenged exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, env string, logger *slog.Logger) error {
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	logger.Info("telemetry configured",
		slog.String("endpoint", cfg.Telemetry.Endpoint),
		slog.Bool("traces", cfg.Telemetry.Traces),
		slog.Bool("metrics", cfg.Telemetry.Metrics),
		logging.Secret("otlp_headers", cfg.Telemetry.Headers))
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	n, err := newNode(cfg, logger)
	if err != nil {
		return err
	}
	defer n.db.Close()

	logger.Info("challenge node started",
		slog.String("backend", cfg.DBBackend),
		slog.String("data_dir", cfg.DataDir))
	if err := n.server.Serve(ctx, cfg.ListenAddress); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("challenge node stopped")
	return nil
}

type node struct {
	db     storage.Database
	ledger *ledger.Ledger
	server *rpc.Server
	recent *events.Recorder
}

// newNode opens storage, applies genesis on first start and builds the RPC
// server around the ledger.
func newNode(cfg *config.Config, logger *slog.Logger) (*node, error) {
	params, err := cfg.ChallengeParams()
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(cfg.DBBackend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	feed := events.NewFeed()
	recent := events.NewRecorder(recentEvents)
	l, err := ledger.New(db, params, ledger.WithLogger(logger), ledger.WithEmitter(events.Multi{feed, recent}))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if path := strings.TrimSpace(cfg.GenesisFile); path != "" {
		g, err := ledger.LoadGenesis(path)
		if err != nil {
			db.Close()
			return nil, err
		}
		applied, err := l.ApplyGenesis(g)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("apply genesis: %w", err)
		}
		if applied {
			logger.Info("genesis applied", slog.Int("accounts", len(g.Accounts)))
		}
	}
	server := rpc.NewServer(l, rpc.Config{
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		Logger:             logger,
		Events:             feed,
		Recent:             recent,
	})
	return &node{db: db, ledger: l, server: server, recent: recent}, nil
}
