// Package main implements the walletsync service entry point: the data
// synchronization and caching layer sitting between the wallet-profiling API
// and its upstream collaborators (transaction indexer, trading-activity
// analyzer, label generator, wallet ranker).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/walletsync/cachestore"
	"github.com/c360/walletsync/config"
	"github.com/c360/walletsync/integration"
	"github.com/c360/walletsync/metric"
	"github.com/c360/walletsync/natskv"
	"github.com/c360/walletsync/profilesync"
	"github.com/c360/walletsync/upstream"
	"github.com/c360/walletsync/wallet"
	"github.com/c360/walletsync/warmer"
)

const (
	Version = "0.1.0"
	appName = "walletsync"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "json", "log format (json, text)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	logger := setupLogger(*logLevel, *logFormat)
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger.Info("starting walletsync",
		"version", Version,
		"remote_cache", cfg.RemoteCacheConfigured(),
		"durable_store", cfg.DurableStoreConfigured())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsRegistry := metric.NewMetricsRegistry()

	// Cache store: remote NATS KV tier first when configured, the in-process
	// tier always last so writes have somewhere to land.
	store, natsClient, err := setupCacheStore(ctx, cfg, logger, metricsRegistry)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer func() { _ = natsClient.Close() }()
	}

	// Upstream collaborators.
	collaborators, err := setupUpstream(cfg, logger)
	if err != nil {
		return err
	}

	// Durable profile store; absence degrades profile sync to local storage.
	var profileStore wallet.ProfileStore
	if cfg.DurableStoreConfigured() {
		pg, err := profilesync.NewPostgresStore(ctx, cfg.Postgres.DSN)
		if err != nil {
			logger.Warn("durable profile store unavailable, using local storage only", "error", err)
		} else {
			defer func() { _ = pg.Close() }()
			profileStore = pg
		}
	}

	syncer, err := profilesync.NewSyncer(logger, collaborators.labels, profileStore,
		profilesync.WithTransactionLimit(cfg.Warming.TransactionLimit),
		profilesync.WithMetrics(metricsRegistry))
	if err != nil {
		return fmt.Errorf("create profile syncer: %w", err)
	}
	defer func() { _ = syncer.Close() }()

	orchestrator, err := integration.New(logger, store, collaborators.activity, syncer,
		collaborators.ranker, collaborators.transactions, cfg.TTL,
		integration.WithMetrics(metricsRegistry))
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	cacheWarmer, err := warmer.New(logger, store, collaborators.transactions,
		collaborators.ranker, cfg.TTL.WalletData,
		warmer.WithMetrics(metricsRegistry))
	if err != nil {
		return fmt.Errorf("create warmer: %w", err)
	}
	if err := cacheWarmer.Initialize(warmer.SettingsFromConfig(cfg.Warming)); err != nil {
		return fmt.Errorf("initialize warmer: %w", err)
	}
	defer cacheWarmer.Stop()

	server := setupHTTPServer(cfg.MetricsAddr, metricsRegistry, cacheWarmer, orchestrator, logger)
	go func() {
		logger.Info("metrics endpoint listening", "addr", cfg.MetricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			cancel()
		}
	}()

	// Block until a shutdown signal or a fatal server error.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", "error", err)
	}
	logger.Info("walletsync stopped")
	return nil
}

// setupCacheStore builds the tiered cache store. A remote connection failure
// degrades to memory-only rather than aborting startup.
func setupCacheStore(ctx context.Context, cfg *config.Config, logger *slog.Logger,
	registry *metric.MetricsRegistry) (*cachestore.Store, *natskv.Client, error) {

	memory, err := cachestore.NewMemoryBackend(ctx, cfg.TTL.WalletData)
	if err != nil {
		return nil, nil, fmt.Errorf("create memory cache tier: %w", err)
	}
	backends := []cachestore.Backend{memory}

	var natsClient *natskv.Client
	if cfg.RemoteCacheConfigured() {
		clientOpts := []natskv.ClientOption{natskv.WithLogger(logger)}
		if cfg.NATS.Username != "" {
			clientOpts = append(clientOpts, natskv.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
		}
		if cfg.NATS.Token != "" {
			clientOpts = append(clientOpts, natskv.WithToken(cfg.NATS.Token))
		}

		client := natskv.NewClient(cfg.NATS.URL, clientOpts...)
		if err := client.Connect(); err != nil {
			logger.Warn("remote cache unavailable, running memory-only", "error", err)
		} else {
			// The longest entity TTL backstops logical expiry in the bucket.
			bucket, err := client.EnsureBucket(ctx, cfg.NATS.Bucket, maxTTL(cfg.TTL))
			if err != nil {
				logger.Warn("cache bucket unavailable, running memory-only", "error", err)
				_ = client.Close()
			} else {
				natsClient = client
				remote := cachestore.NewRemoteBackend(client.NewKVStore(bucket))
				backends = append([]cachestore.Backend{remote}, backends...)
			}
		}
	}

	store, err := cachestore.New(backends,
		cachestore.WithLogger(logger),
		cachestore.WithMetrics(registry.PrometheusRegistry()))
	if err != nil {
		return nil, nil, fmt.Errorf("create cache store: %w", err)
	}
	return store, natsClient, nil
}

// collaboratorSet bundles the upstream clients.
type collaboratorSet struct {
	transactions wallet.TransactionFetcher
	activity     wallet.TradingActivityAnalyzer
	labels       wallet.LabelGenerator
	ranker       wallet.Ranker
}

// setupUpstream builds the collaborator clients. All four endpoints are
// required; the service has nothing to do without them.
func setupUpstream(cfg *config.Config, logger *slog.Logger) (*collaboratorSet, error) {
	newClient := func(name, baseURL string) (*upstream.Client, error) {
		client, err := upstream.NewClient(baseURL,
			upstream.WithLogger(logger),
			upstream.WithRateLimit(cfg.Upstream.RateLimit, 5))
		if err != nil {
			return nil, fmt.Errorf("configure %s collaborator: %w", name, err)
		}
		return client, nil
	}

	indexer, err := newClient("indexer", cfg.Upstream.IndexerURL)
	if err != nil {
		return nil, err
	}
	analytics, err := newClient("analytics", cfg.Upstream.AnalyticsURL)
	if err != nil {
		return nil, err
	}
	labeler, err := newClient("labeler", cfg.Upstream.LabelerURL)
	if err != nil {
		return nil, err
	}
	ranking, err := newClient("ranking", cfg.Upstream.RankingURL)
	if err != nil {
		return nil, err
	}

	return &collaboratorSet{
		transactions: upstream.NewTransactionClient(indexer),
		activity:     upstream.NewActivityClient(analytics),
		labels:       upstream.NewLabelClient(labeler),
		ranker:       upstream.NewRankingClient(ranking),
	}, nil
}

// maxTTL returns the longest configured entity TTL.
func maxTTL(ttl config.TTLConfig) time.Duration {
	longest := ttl.WalletData
	for _, d := range []time.Duration{ttl.TokenData, ttl.AggregatedData, ttl.LabelData, ttl.TopWallets} {
		if d > longest {
			longest = d
		}
	}
	return longest
}
