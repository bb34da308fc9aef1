// Package warmer proactively populates the cache store for a working set of
// wallets (the ranked top N unioned with a custom list) so first-touch
// latency for popular wallets is avoided. Runs are driven by a recurring
// timer; a tick that lands while a run is active is dropped, not queued.
package warmer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/walletsync/cachestore"
	"github.com/c360/walletsync/errors"
	"github.com/c360/walletsync/health"
	"github.com/c360/walletsync/metric"
	"github.com/c360/walletsync/wallet"
)

// Warmer keeps the cache store populated for the working set. Construct with
// New, then Initialize to apply settings and install the schedule; Stop
// cancels the schedule and waits for an in-flight run.
type Warmer struct {
	logger  *slog.Logger
	cache   *cachestore.Store
	fetcher wallet.TransactionFetcher
	ranker  wallet.Ranker
	ttl     time.Duration
	metrics *warmerMetrics

	mu        sync.Mutex
	settings  Settings
	stats     Stats
	isRunning bool
	stopTimer chan struct{} // closes the active schedule goroutine, nil when no schedule
	wg        sync.WaitGroup
}

// Option configures a Warmer.
type Option func(*Warmer)

// WithMetrics enables Prometheus metrics.
func WithMetrics(registrar metric.MetricsRegistrar) Option {
	return func(w *Warmer) {
		w.metrics = newWarmerMetrics(registrar, w.logger)
	}
}

// New creates a warmer. cacheTTL is the nominal TTL for warmed entries; the
// freshness skip threshold is half of it.
func New(logger *slog.Logger, cache *cachestore.Store, fetcher wallet.TransactionFetcher,
	ranker wallet.Ranker, cacheTTL time.Duration, opts ...Option) (*Warmer, error) {

	if cache == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "warmer", "New", "nil cache store")
	}
	if fetcher == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "warmer", "New", "nil transaction fetcher")
	}
	if cacheTTL <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "warmer", "New", "cache ttl must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Warmer{
		logger:  logger.With("service", "warmer"),
		cache:   cache,
		fetcher: fetcher,
		ranker:  ranker,
		ttl:     cacheTTL,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Initialize merges settings over the current ones and, when warming is
// enabled, installs the periodic schedule.
func (w *Warmer) Initialize(settings Settings) error {
	if settings.Interval <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "warmer", "Initialize", "interval must be positive")
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = 1
	}
	settings.CustomWallets, _ = wallet.NormalizeSet(settings.CustomWallets)

	w.mu.Lock()
	w.settings = settings.Clone()
	w.mu.Unlock()

	w.scheduleWarmingJob()
	w.logger.Info("warmer initialized",
		"enabled", settings.Enabled,
		"interval", settings.Interval,
		"concurrency", settings.Concurrency,
		"top_wallets", settings.TopWalletsCount,
		"custom_wallets", len(settings.CustomWallets))
	return nil
}

// Stop cancels the schedule and waits for any in-flight run to finish.
func (w *Warmer) Stop() {
	w.cancelSchedule()
	w.wg.Wait()
	w.logger.Info("warmer stopped")
}

// scheduleWarmingJob cancels any existing timer and installs a new repeating
// one at the current interval. A tick that lands while a run is active is
// dropped.
func (w *Warmer) scheduleWarmingJob() {
	w.cancelSchedule()

	w.mu.Lock()
	enabled, interval := w.settings.Enabled, w.settings.Interval
	if !enabled || interval <= 0 {
		w.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	w.stopTimer = stop
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				result := w.warmCaches(context.Background())
				if result.Status == StatusSkipped {
					w.logger.Debug("warming tick dropped", "reason", result.Reason)
				}
			}
		}
	}()
}

// cancelSchedule tears down the active timer goroutine, if any.
func (w *Warmer) cancelSchedule() {
	w.mu.Lock()
	if w.stopTimer != nil {
		close(w.stopTimer)
		w.stopTimer = nil
	}
	w.mu.Unlock()
}

// GetStats returns a copy of the accumulated warming stats.
func (w *Warmer) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats.clone()
}

// GetSettings returns a copy of the current settings.
func (w *Warmer) GetSettings() Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings.Clone()
}

// UpdateSettings merges patch over the current settings. A change to the
// interval or the enabled flag reinstalls (or cancels) the schedule.
func (w *Warmer) UpdateSettings(patch SettingsPatch) Settings {
	w.mu.Lock()
	previous := w.settings
	w.settings = w.settings.Merge(patch)
	current := w.settings.Clone()
	w.mu.Unlock()

	if previous.Interval != current.Interval || previous.Enabled != current.Enabled {
		w.scheduleWarmingJob()
	}
	w.logger.Info("warmer settings updated", "enabled", current.Enabled, "interval", current.Interval)
	return current
}

// AddCustomWallets adds addresses to the custom wallet set, normalized and
// de-duplicated. Malformed addresses are returned as rejects.
func (w *Warmer) AddCustomWallets(addresses []string) ([]string, []wallet.WalletError) {
	normalized, rejects := wallet.NormalizeSet(addresses)

	w.mu.Lock()
	defer w.mu.Unlock()
	existing := make(map[string]struct{}, len(w.settings.CustomWallets))
	for _, addr := range w.settings.CustomWallets {
		existing[addr] = struct{}{}
	}
	for _, addr := range normalized {
		if _, dup := existing[addr]; dup {
			continue
		}
		existing[addr] = struct{}{}
		w.settings.CustomWallets = append(w.settings.CustomWallets, addr)
	}
	return slices.Clone(w.settings.CustomWallets), rejects
}

// RemoveCustomWallets removes addresses from the custom wallet set. Both the
// stored and the incoming addresses are normalized before comparing, so
// spelling differences never cause a silent no-op.
func (w *Warmer) RemoveCustomWallets(addresses []string) []string {
	normalized, _ := wallet.NormalizeSet(addresses)
	remove := make(map[string]struct{}, len(normalized))
	for _, addr := range normalized {
		remove[addr] = struct{}{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.settings.CustomWallets[:0]
	for _, addr := range w.settings.CustomWallets {
		norm, err := wallet.ValidateAndNormalize(addr)
		if err != nil {
			norm = addr
		}
		if _, drop := remove[norm]; drop {
			continue
		}
		kept = append(kept, addr)
	}
	w.settings.CustomWallets = kept
	return slices.Clone(kept)
}

// TriggerWarming runs one warming pass immediately with overrides applied,
// restoring the prior settings on every exit path.
func (w *Warmer) TriggerWarming(ctx context.Context, overrides SettingsPatch) *JobResult {
	w.mu.Lock()
	snapshot := w.settings.Clone()
	w.settings = w.settings.Merge(overrides)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.settings = snapshot
		w.mu.Unlock()
	}()

	return w.warmCaches(ctx)
}

// warmCaches executes one warming run: resolve the working set, process it
// in concurrency-sized batches, and fold the outcomes into the stats.
func (w *Warmer) warmCaches(ctx context.Context) *JobResult {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return &JobResult{
			RunID:     uuid.NewString(),
			Status:    StatusSkipped,
			Reason:    ReasonAlreadyRunning,
			StartedAt: time.Now(),
		}
	}
	w.isRunning = true
	settings := w.settings.Clone()
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.isRunning = false
		w.mu.Unlock()
	}()

	start := time.Now()
	result := &JobResult{
		RunID:     uuid.NewString(),
		StartedAt: start,
	}
	logger := w.logger.With("run_id", result.RunID)
	logger.Info("warming run started")

	workingSet, err := w.resolveWorkingSet(ctx, settings)
	if err != nil {
		// Failure to construct the unit of work escalates to a whole-run
		// error; per-wallet failures below never do.
		result.Status = StatusError
		result.Error = err.Error()
		result.DurationMs = time.Since(start).Milliseconds()
		w.finishRun(result, logger)
		return result
	}

	for batchStart := 0; batchStart < len(workingSet); batchStart += settings.Concurrency {
		batchEnd := min(batchStart+settings.Concurrency, len(workingSet))
		batch := workingSet[batchStart:batchEnd]

		outcomes := make([]WalletOutcome, len(batch))
		var wg sync.WaitGroup
		for i, address := range batch {
			wg.Add(1)
			go func(i int, address string) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						outcomes[i] = WalletOutcome{
							Address: "unknown",
							Status:  OutcomeError,
							Error:   fmt.Sprintf("panic during warming: %v", r),
						}
					}
				}()
				outcomes[i] = w.warmWalletCache(ctx, address, settings.TransactionLimit)
			}(i, address)
		}
		wg.Wait()
		result.Outcomes = append(result.Outcomes, outcomes...)
	}

	for _, outcome := range result.Outcomes {
		switch outcome.Status {
		case OutcomeSuccess:
			result.Successes++
		case OutcomeSkipped:
			result.Skipped++
		default:
			result.Errors++
		}
		w.metrics.recordOutcome(outcome.Status)
	}

	result.Status = StatusCompleted
	result.DurationMs = time.Since(start).Milliseconds()
	w.finishRun(result, logger)
	return result
}

// finishRun folds the result into the stats and logs the summary.
func (w *Warmer) finishRun(result *JobResult, logger *slog.Logger) {
	w.mu.Lock()
	w.stats.record(result)
	w.mu.Unlock()

	w.metrics.recordRun(result.Status, time.Duration(result.DurationMs)*time.Millisecond)
	logger.Info("warming run finished",
		"status", result.Status,
		"successes", result.Successes,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"duration_ms", result.DurationMs)
}

// resolveWorkingSet unions the ranked top N with the custom wallets,
// de-duplicated, custom wallets last.
func (w *Warmer) resolveWorkingSet(ctx context.Context, settings Settings) ([]string, error) {
	seen := make(map[string]struct{})
	var workingSet []string

	if settings.TopWalletsCount > 0 && w.ranker != nil {
		top, err := w.ranker.GetTopWallets(ctx, wallet.TopWalletsQuery{
			Limit:    settings.TopWalletsCount,
			SortBy:   "score",
			UseCache: true,
		})
		if err != nil {
			return nil, errors.WrapTransient(
				fmt.Errorf("%w: %w", errors.ErrRankingFailed, err),
				"warmer", "warmCaches", "resolve top wallets")
		}
		for _, entry := range top {
			if _, dup := seen[entry.Address]; dup {
				continue
			}
			seen[entry.Address] = struct{}{}
			workingSet = append(workingSet, entry.Address)
		}
	}

	for _, addr := range settings.CustomWallets {
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		workingSet = append(workingSet, addr)
	}
	return workingSet, nil
}

// walletCacheKey names the warmed transaction entry for an address and limit.
func walletCacheKey(address string, limit int) string {
	return fmt.Sprintf("wallet:tx:%s:%d", address, limit)
}

// warmWalletCache warms a single wallet: skip when the cached entry is still
// fresh (age below half its TTL), otherwise force-fetch, enrich, and write
// back.
func (w *Warmer) warmWalletCache(ctx context.Context, address string, limit int) WalletOutcome {
	normalized, err := wallet.ValidateAndNormalize(address)
	if err != nil {
		return WalletOutcome{Address: address, Status: OutcomeError, Error: err.Error()}
	}

	key := walletCacheKey(normalized, limit)
	if entry, ok := w.cache.Get(ctx, key); ok && entry.IsFresh() {
		return WalletOutcome{Address: normalized, Status: OutcomeSkipped, Reason: ReasonFreshCache}
	}

	txs, err := w.fetcher.GetTransactions(ctx, normalized, limit, true)
	if err != nil {
		return WalletOutcome{Address: normalized, Status: OutcomeError, Error: err.Error()}
	}
	if err := w.fetcher.Enrich(ctx, txs); err != nil {
		return WalletOutcome{Address: normalized, Status: OutcomeError, Error: err.Error()}
	}

	if err := cachestore.SetJSON(ctx, w.cache, key, txs, w.ttl); err != nil {
		w.logger.Warn("warmed entry cache write failed", "wallet", normalized, "error", err)
	}
	return WalletOutcome{Address: normalized, Status: OutcomeSuccess, TransactionCount: len(txs)}
}

// Health reports the warmer's operational state.
func (w *Warmer) Health() health.Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Configured-off is a valid state, not a degradation.
	if !w.settings.Enabled {
		return health.NewHealthy("warmer", "warming disabled")
	}
	if w.stats.TotalRuns > 0 && w.stats.LastRunStatus == StatusError {
		return health.NewDegraded("warmer", "last warming run failed")
	}
	return health.NewHealthy("warmer", "")
}
