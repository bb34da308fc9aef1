// Package config provides environment-driven configuration for walletsync.
// Defaults are merged under explicit environment overrides; an absent remote
// cache endpoint means the cache store runs on its in-process fallback only.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c360/walletsync/errors"
)

// Environment variable names recognized by Load.
const (
	EnvNATSURL       = "WALLETSYNC_NATS_URL"
	EnvNATSBucket    = "WALLETSYNC_NATS_BUCKET"
	EnvNATSUsername  = "WALLETSYNC_NATS_USERNAME"
	EnvNATSPassword  = "WALLETSYNC_NATS_PASSWORD"
	EnvNATSToken     = "WALLETSYNC_NATS_TOKEN"
	EnvPostgresDSN   = "WALLETSYNC_POSTGRES_DSN"
	EnvMetricsAddr   = "WALLETSYNC_METRICS_ADDR"
	EnvIndexerURL    = "WALLETSYNC_INDEXER_URL"
	EnvAnalyticsURL  = "WALLETSYNC_ANALYTICS_URL"
	EnvLabelerURL    = "WALLETSYNC_LABELER_URL"
	EnvRankingURL    = "WALLETSYNC_RANKING_URL"
	EnvUpstreamRate  = "WALLETSYNC_UPSTREAM_RATE_LIMIT"
	EnvWarmEnabled   = "WALLETSYNC_WARMING_ENABLED"
	EnvWarmInterval  = "WALLETSYNC_WARMING_INTERVAL"
	EnvWarmTopCount  = "WALLETSYNC_WARMING_TOP_WALLETS"
	EnvWarmWallets   = "WALLETSYNC_WARMING_CUSTOM_WALLETS"
	EnvWarmWorkers   = "WALLETSYNC_WARMING_CONCURRENCY"
	EnvWarmTxLimit   = "WALLETSYNC_WARMING_TX_LIMIT"
	EnvTTLWalletData = "WALLETSYNC_TTL_WALLET_DATA"
	EnvTTLTokenData  = "WALLETSYNC_TTL_TOKEN_DATA"
	EnvTTLAggregated = "WALLETSYNC_TTL_AGGREGATED"
	EnvTTLLabelData  = "WALLETSYNC_TTL_LABEL_DATA"
	EnvTTLTopWallets = "WALLETSYNC_TTL_TOP_WALLETS"
)

// NATSConfig locates the remote cache backend. An empty URL disables the
// remote tier entirely.
type NATSConfig struct {
	URL      string `json:"url,omitempty"`
	Bucket   string `json:"bucket"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

// PostgresConfig locates the durable profile store. An empty DSN disables
// the durable tier; profile sync then runs on local storage only.
type PostgresConfig struct {
	DSN string `json:"dsn,omitempty"`
}

// UpstreamConfig locates the external collaborator services. RateLimit is
// requests per second shared across all collaborator calls; zero disables
// throttling.
type UpstreamConfig struct {
	IndexerURL   string  `json:"indexer_url"`
	AnalyticsURL string  `json:"analytics_url"`
	LabelerURL   string  `json:"labeler_url"`
	RankingURL   string  `json:"ranking_url"`
	RateLimit    float64 `json:"rate_limit,omitempty"`
}

// WarmingConfig holds the cache warmer's initial settings.
type WarmingConfig struct {
	Enabled          bool          `json:"enabled"`
	Interval         time.Duration `json:"interval"`
	TopWalletsCount  int           `json:"top_wallets_count"`
	CustomWallets    []string      `json:"custom_wallets,omitempty"`
	Concurrency      int           `json:"concurrency"`
	TransactionLimit int           `json:"transaction_limit"`
}

// TTLConfig is the per-entity TTL table.
type TTLConfig struct {
	WalletData     time.Duration `json:"wallet_data"`
	TokenData      time.Duration `json:"token_data"`
	AggregatedData time.Duration `json:"aggregated_data"`
	LabelData      time.Duration `json:"label_data"`
	TopWallets     time.Duration `json:"top_wallets"`
}

// Config is the complete application configuration.
type Config struct {
	NATS        NATSConfig     `json:"nats"`
	Postgres    PostgresConfig `json:"postgres"`
	Upstream    UpstreamConfig `json:"upstream"`
	Warming     WarmingConfig  `json:"warming"`
	TTL         TTLConfig      `json:"ttl"`
	MetricsAddr string         `json:"metrics_addr"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		NATS: NATSConfig{
			Bucket: "walletsync-cache",
		},
		Upstream: UpstreamConfig{
			RateLimit: 10,
		},
		Warming: WarmingConfig{
			Enabled:          true,
			Interval:         30 * time.Minute,
			TopWalletsCount:  20,
			Concurrency:      3,
			TransactionLimit: 100,
		},
		TTL: TTLConfig{
			WalletData:     time.Hour,
			TokenData:      24 * time.Hour,
			AggregatedData: 6 * time.Hour,
			LabelData:      12 * time.Hour,
			TopWallets:     time.Hour,
		},
		MetricsAddr: ":9464",
	}
}

// Load builds a Config from defaults overridden by environment variables.
func Load() (*Config, error) {
	cfg := Default()

	cfg.NATS.URL = envString(EnvNATSURL, cfg.NATS.URL)
	cfg.NATS.Bucket = envString(EnvNATSBucket, cfg.NATS.Bucket)
	cfg.NATS.Username = envString(EnvNATSUsername, cfg.NATS.Username)
	cfg.NATS.Password = envString(EnvNATSPassword, cfg.NATS.Password)
	cfg.NATS.Token = envString(EnvNATSToken, cfg.NATS.Token)
	cfg.Postgres.DSN = envString(EnvPostgresDSN, cfg.Postgres.DSN)
	cfg.MetricsAddr = envString(EnvMetricsAddr, cfg.MetricsAddr)
	cfg.Upstream.IndexerURL = envString(EnvIndexerURL, cfg.Upstream.IndexerURL)
	cfg.Upstream.AnalyticsURL = envString(EnvAnalyticsURL, cfg.Upstream.AnalyticsURL)
	cfg.Upstream.LabelerURL = envString(EnvLabelerURL, cfg.Upstream.LabelerURL)
	cfg.Upstream.RankingURL = envString(EnvRankingURL, cfg.Upstream.RankingURL)

	var err error
	if cfg.Warming.Enabled, err = envBool(EnvWarmEnabled, cfg.Warming.Enabled); err != nil {
		return nil, err
	}
	if cfg.Warming.Interval, err = envDuration(EnvWarmInterval, cfg.Warming.Interval); err != nil {
		return nil, err
	}
	if cfg.Warming.TopWalletsCount, err = envInt(EnvWarmTopCount, cfg.Warming.TopWalletsCount); err != nil {
		return nil, err
	}
	if cfg.Warming.Concurrency, err = envInt(EnvWarmWorkers, cfg.Warming.Concurrency); err != nil {
		return nil, err
	}
	if cfg.Warming.TransactionLimit, err = envInt(EnvWarmTxLimit, cfg.Warming.TransactionLimit); err != nil {
		return nil, err
	}
	if cfg.Upstream.RateLimit, err = envFloat(EnvUpstreamRate, cfg.Upstream.RateLimit); err != nil {
		return nil, err
	}
	if wallets := envString(EnvWarmWallets, ""); wallets != "" {
		cfg.Warming.CustomWallets = splitList(wallets)
	}

	if cfg.TTL.WalletData, err = envDuration(EnvTTLWalletData, cfg.TTL.WalletData); err != nil {
		return nil, err
	}
	if cfg.TTL.TokenData, err = envDuration(EnvTTLTokenData, cfg.TTL.TokenData); err != nil {
		return nil, err
	}
	if cfg.TTL.AggregatedData, err = envDuration(EnvTTLAggregated, cfg.TTL.AggregatedData); err != nil {
		return nil, err
	}
	if cfg.TTL.LabelData, err = envDuration(EnvTTLLabelData, cfg.TTL.LabelData); err != nil {
		return nil, err
	}
	if cfg.TTL.TopWallets, err = envDuration(EnvTTLTopWallets, cfg.TTL.TopWallets); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RemoteCacheConfigured reports whether a remote cache endpoint is present.
func (c *Config) RemoteCacheConfigured() bool {
	return c.NATS.URL != ""
}

// DurableStoreConfigured reports whether a Postgres DSN is present.
func (c *Config) DurableStoreConfigured() bool {
	return c.Postgres.DSN != ""
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.NATS.URL != "" && c.NATS.Bucket == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "config", "Validate", "nats bucket required with nats url")
	}
	if c.Upstream.RateLimit < 0 {
		return errors.WrapFatal(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("upstream rate limit cannot be negative, got %v", c.Upstream.RateLimit))
	}
	if c.Warming.Interval <= 0 {
		return errors.WrapFatal(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("warming interval must be positive, got %v", c.Warming.Interval))
	}
	if c.Warming.Concurrency <= 0 {
		return errors.WrapFatal(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("warming concurrency must be positive, got %d", c.Warming.Concurrency))
	}
	if c.Warming.TopWalletsCount < 0 {
		return errors.WrapFatal(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("top wallets count cannot be negative, got %d", c.Warming.TopWalletsCount))
	}
	if c.Warming.TransactionLimit <= 0 {
		return errors.WrapFatal(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("transaction limit must be positive, got %d", c.Warming.TransactionLimit))
	}
	ttls := map[string]time.Duration{
		"wallet_data":     c.TTL.WalletData,
		"token_data":      c.TTL.TokenData,
		"aggregated_data": c.TTL.AggregatedData,
		"label_data":      c.TTL.LabelData,
		"top_wallets":     c.TTL.TopWallets,
	}
	for name, ttl := range ttls {
		if ttl <= 0 {
			return errors.WrapFatal(errors.ErrInvalidConfig, "config", "Validate",
				fmt.Sprintf("ttl %s must be positive, got %v", name, ttl))
		}
	}
	return nil
}

func envString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.WrapFatal(errors.ErrInvalidConfig, "config", "envBool",
			fmt.Sprintf("%s=%q is not a boolean", key, value))
	}
	return parsed, nil
}

func envInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.WrapFatal(errors.ErrInvalidConfig, "config", "envInt",
			fmt.Sprintf("%s=%q is not an integer", key, value))
	}
	return parsed, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.WrapFatal(errors.ErrInvalidConfig, "config", "envFloat",
			fmt.Sprintf("%s=%q is not a number", key, value))
	}
	return parsed, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.WrapFatal(errors.ErrInvalidConfig, "config", "envDuration",
			fmt.Sprintf("%s=%q is not a duration", key, value))
	}
	return parsed, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
