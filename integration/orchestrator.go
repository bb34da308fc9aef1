// Package integration produces the composite per-wallet view combining
// trading-activity analysis and label-profile data. Composite records carry
// the orchestrator's data version; bumping the version lazily invalidates
// every cached record without a sweep.
package integration

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/c360/walletsync/cachestore"
	"github.com/c360/walletsync/config"
	"github.com/c360/walletsync/errors"
	"github.com/c360/walletsync/metric"
	"github.com/c360/walletsync/wallet"
)

const (
	// keyPrefix namespaces every integration entry in the cache store.
	keyPrefix = "integration:"

	// missingRank sorts unranked entries after every ranked one.
	missingRank = 999

	// syncBatchSize and syncBatchPause pace bulk resyncs to stay under
	// upstream rate limits.
	syncBatchSize  = 5
	syncBatchPause = time.Second
)

// ProfileProvider supplies label profiles. Implemented by the profile sync
// layer; the orchestrator never invokes the label generator directly.
type ProfileProvider interface {
	SyncWalletLabelProfile(ctx context.Context, address string, limit int, forceRefresh bool) (*wallet.LabelProfile, error)
}

// Options parameterizes a single integrated-data request. The zero value
// requests everything with caching disabled.
type Options struct {
	Limit           int
	UseCache        bool
	ForceRefresh    bool
	IncludeActivity bool
	IncludeLabels   bool
}

// TopOptions parameterizes a top-wallets request.
type TopOptions struct {
	Limit    int
	SortBy   string // "score" (default, descending) or "rank" (ascending)
	UseCache bool
}

// Orchestrator assembles integrated wallet records with cache-aware
// short-circuiting and version-based invalidation.
type Orchestrator struct {
	logger   *slog.Logger
	cache    *cachestore.Store
	activity wallet.TradingActivityAnalyzer
	profiles ProfileProvider
	ranker   wallet.Ranker
	fetcher  wallet.TransactionFetcher
	ttl      config.TTLConfig

	dataVersion atomic.Int64
	metrics     *orchestratorMetrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics enables Prometheus metrics.
func WithMetrics(registrar metric.MetricsRegistrar) Option {
	return func(o *Orchestrator) {
		o.metrics = newOrchestratorMetrics(registrar, o.logger)
	}
}

// New creates an orchestrator. fetcher may be nil when no transaction
// collaborator participates in cache clearing.
func New(logger *slog.Logger, cache *cachestore.Store, activity wallet.TradingActivityAnalyzer,
	profiles ProfileProvider, ranker wallet.Ranker, fetcher wallet.TransactionFetcher,
	ttl config.TTLConfig, opts ...Option) (*Orchestrator, error) {

	if cache == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "integration", "New", "nil cache store")
	}
	if activity == nil || profiles == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "integration", "New", "missing collaborator")
	}
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		logger:   logger.With("service", "integration"),
		cache:    cache,
		activity: activity,
		profiles: profiles,
		ranker:   ranker,
		fetcher:  fetcher,
		ttl:      ttl,
	}
	o.dataVersion.Store(time.Now().UnixMilli())
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// GetDataVersion returns the current global data version.
func (o *Orchestrator) GetDataVersion() int64 {
	return o.dataVersion.Load()
}

// UpdateDataVersion bumps the global data version, lazily invalidating every
// cached composite record. Returns the new version.
func (o *Orchestrator) UpdateDataVersion() int64 {
	for {
		current := o.dataVersion.Load()
		next := time.Now().UnixMilli()
		if next <= current {
			// Clock has not moved since the last bump; stay monotonic.
			next = current + 1
		}
		if o.dataVersion.CompareAndSwap(current, next) {
			o.metrics.recordVersionBump()
			o.logger.Info("data version updated", "version", next)
			return next
		}
	}
}

// walletKey builds the cache key for a composite record. The key encodes
// everything that changes the record's shape.
func walletKey(address string, opts Options) string {
	return fmt.Sprintf("%swallet:%s:%d:%t:%t", keyPrefix, address, opts.Limit, opts.IncludeActivity, opts.IncludeLabels)
}

// topKey builds the cache key for a top-wallets list.
func topKey(opts TopOptions) string {
	return fmt.Sprintf("%stop:%d:%s", keyPrefix, opts.Limit, opts.SortBy)
}

// topWalletsEnvelope wraps a cached leaderboard with the data version it was
// assembled under, so a version bump invalidates cached lists the same way it
// invalidates per-wallet records.
type topWalletsEnvelope struct {
	DataVersion int64                        `json:"data_version"`
	Wallets     []wallet.TopWalletIntegrated `json:"wallets"`
}

// GetIntegratedWalletData returns the composite record for address. A cached
// record is served only when its embedded data version matches the current
// global version; otherwise the sub-analyses are fetched concurrently, each
// degrading to nil on failure rather than aborting the other.
func (o *Orchestrator) GetIntegratedWalletData(ctx context.Context, address string, opts Options) (*wallet.IntegratedWalletData, error) {
	normalized, err := wallet.ValidateAndNormalize(address)
	if err != nil {
		return nil, err
	}
	if !opts.IncludeActivity && !opts.IncludeLabels {
		opts.IncludeActivity = true
		opts.IncludeLabels = true
	}

	key := walletKey(normalized, opts)
	if opts.UseCache && !opts.ForceRefresh {
		if cached, _, ok := cachestore.GetJSON[*wallet.IntegratedWalletData](ctx, o.cache, key); ok {
			if cached.DataVersion == o.dataVersion.Load() {
				o.metrics.recordCacheHit("wallet")
				return cached, nil
			}
			// Version mismatch is a miss; the write below repairs the key.
			o.metrics.recordVersionMiss()
		}
	}
	o.metrics.recordCacheMiss("wallet")

	start := time.Now()
	data := &wallet.IntegratedWalletData{
		WalletAddress: normalized,
		DataVersion:   o.dataVersion.Load(),
		Timestamp:     start,
	}

	// Each branch owns its own result; aggregation happens after the join.
	var (
		wg       sync.WaitGroup
		activity *wallet.TradingActivity
		profile  *wallet.LabelProfile
	)
	if opts.IncludeActivity {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := o.activity.GetWalletTradingActivity(ctx, normalized, opts.Limit, opts.UseCache, opts.ForceRefresh)
			if err != nil {
				o.logger.Warn("trading activity fetch failed", "wallet", normalized, "error", err)
				return
			}
			activity = result
		}()
	}
	if opts.IncludeLabels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := o.profiles.SyncWalletLabelProfile(ctx, normalized, opts.Limit, opts.ForceRefresh)
			if err != nil {
				o.logger.Warn("label profile fetch failed", "wallet", normalized, "error", err)
				return
			}
			profile = result
		}()
	}
	wg.Wait()

	data.TradingActivity = activity
	data.DataProviders.Transactions = activity != nil
	data.LabelData = profile
	data.DataProviders.TokenMetadata = profile != nil

	data.ProcessingTimeMs = time.Since(start).Milliseconds()
	o.metrics.observeAssembly(time.Since(start))

	if opts.UseCache {
		if err := cachestore.SetJSON(ctx, o.cache, key, data, o.ttl.AggregatedData); err != nil {
			o.logger.Warn("composite record cache write failed", "wallet", normalized, "error", err)
		}
	}
	return data, nil
}

// GetTopWalletsIntegrated returns the ranked leaderboard with each entry
// enriched by its composite record. A cached list is served only while its
// data version is current. Enrichment is sequential; a per-wallet enrichment
// failure degrades to the bare ranked entry.
func (o *Orchestrator) GetTopWalletsIntegrated(ctx context.Context, opts TopOptions) ([]wallet.TopWalletIntegrated, error) {
	if o.ranker == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "integration", "GetTopWalletsIntegrated", "no ranking collaborator")
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.SortBy == "" {
		opts.SortBy = "score"
	}

	key := topKey(opts)
	version := o.dataVersion.Load()
	if opts.UseCache {
		if cached, _, ok := cachestore.GetJSON[*topWalletsEnvelope](ctx, o.cache, key); ok {
			if cached.DataVersion == version {
				o.metrics.recordCacheHit("top")
				return cached.Wallets, nil
			}
			// Version mismatch is a miss; the write below repairs the key.
			o.metrics.recordVersionMiss()
		}
	}
	o.metrics.recordCacheMiss("top")

	ranked, err := o.ranker.GetTopWallets(ctx, wallet.TopWalletsQuery{
		Limit:    opts.Limit,
		SortBy:   opts.SortBy,
		UseCache: opts.UseCache,
	})
	if err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrRankingFailed, err),
			"integration", "GetTopWalletsIntegrated", "fetch top wallets")
	}

	integrated := make([]wallet.TopWalletIntegrated, 0, len(ranked))
	for _, top := range ranked {
		entry := wallet.TopWalletIntegrated{TopWallet: top}
		data, err := o.GetIntegratedWalletData(ctx, top.Address, Options{
			Limit:    opts.Limit,
			UseCache: opts.UseCache,
		})
		if err != nil {
			o.logger.Warn("top wallet enrichment failed, serving bare entry",
				"wallet", top.Address, "error", err)
		} else {
			entry.Data = data
		}
		integrated = append(integrated, entry)
	}

	sortIntegrated(integrated, opts.SortBy)

	if opts.UseCache {
		envelope := &topWalletsEnvelope{DataVersion: version, Wallets: integrated}
		if err := cachestore.SetJSON(ctx, o.cache, key, envelope, o.ttl.TopWallets); err != nil {
			o.logger.Warn("top wallets cache write failed", "error", err)
		}
	}
	return integrated, nil
}

// sortIntegrated orders entries by score descending or rank ascending. A
// missing rank sorts last.
func sortIntegrated(entries []wallet.TopWalletIntegrated, sortBy string) {
	if sortBy == "rank" {
		sort.SliceStable(entries, func(i, j int) bool {
			return effectiveRank(entries[i].Rank) < effectiveRank(entries[j].Rank)
		})
		return
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
}

func effectiveRank(rank int) int {
	if rank <= 0 {
		return missingRank
	}
	return rank
}

// SynchronizeWalletsBatch force-refreshes a list of wallets in fixed batches
// of five, pausing one second between batches to stay under upstream rate
// limits. A single wallet's failure is recorded and the batch proceeds.
func (o *Orchestrator) SynchronizeWalletsBatch(ctx context.Context, addresses []string, limit int) (*wallet.SyncResult, error) {
	if len(addresses) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyBatch, "integration", "SynchronizeWalletsBatch", "no addresses")
	}

	start := time.Now()
	result := &wallet.SyncResult{
		BatchID:   uuid.NewString(),
		Timestamp: start,
	}

	var mu sync.Mutex
	for batchStart := 0; batchStart < len(addresses); batchStart += syncBatchSize {
		if batchStart > 0 {
			select {
			case <-ctx.Done():
				result.ProcessingTimeMs = time.Since(start).Milliseconds()
				return result, errors.WrapTransient(ctx.Err(), "integration", "SynchronizeWalletsBatch", "context cancelled")
			case <-time.After(syncBatchPause):
			}
		}

		batchEnd := min(batchStart+syncBatchSize, len(addresses))
		var wg sync.WaitGroup
		for _, address := range addresses[batchStart:batchEnd] {
			wg.Add(1)
			go func(address string) {
				defer wg.Done()
				_, err := o.GetIntegratedWalletData(ctx, address, Options{
					Limit:        limit,
					UseCache:     false,
					ForceRefresh: true,
				})
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.Failed = append(result.Failed, wallet.WalletError{
						Address: address,
						Error:   err.Error(),
					})
					return
				}
				result.Successful = append(result.Successful, address)
			}(address)
		}
		wg.Wait()
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	o.metrics.recordBatchSync(len(result.Successful), len(result.Failed))
	o.logger.Info("batch synchronization complete",
		"batch_id", result.BatchID,
		"successful", len(result.Successful),
		"failed", len(result.Failed),
		"duration_ms", result.ProcessingTimeMs)
	return result, nil
}

// ClearAllCaches deletes every integration-prefixed cache entry, bumps the
// data version, and asks the collaborators to drop their own caches. This is
// the full immediate reset, distinct from lazy version invalidation.
func (o *Orchestrator) ClearAllCaches(ctx context.Context) (int, error) {
	deleted, err := o.cache.ClearByPrefix(ctx, keyPrefix)
	if err != nil {
		o.logger.Warn("prefix clear failed", "error", err)
	}
	o.UpdateDataVersion()

	if o.activity != nil {
		if err := o.activity.ClearCache(ctx); err != nil {
			o.logger.Warn("trading activity cache clear failed", "error", err)
		}
	}
	if o.fetcher != nil {
		if err := o.fetcher.ClearCache(ctx); err != nil {
			o.logger.Warn("transaction fetcher cache clear failed", "error", err)
		}
	}

	o.logger.Info("all integration caches cleared", "deleted", deleted)
	return deleted, nil
}
