// Package profilesync keeps wallet label profiles reasonably fresh without
// invoking the expensive label-generation collaborator more often than
// necessary. Reads go memo -> durable store -> regeneration; writes go
// durable store -> local ephemeral fallback, so callers never see a write
// failure, only a possible downgrade in durability.
package profilesync

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/c360/walletsync/errors"
	"github.com/c360/walletsync/metric"
	"github.com/c360/walletsync/pkg/cache"
	"github.com/c360/walletsync/wallet"
)

const (
	// memoTTL is how long a profile is served from the in-process memo
	// without consulting the store.
	memoTTL = 10 * time.Minute

	// stalenessThreshold is the age past which a stored profile is
	// regenerated instead of returned.
	stalenessThreshold = 24 * time.Hour

	defaultTransactionLimit = 100
)

// Syncer coordinates the memo cache, the durable profile store, the local
// fallback store, and the label-generation collaborator.
type Syncer struct {
	logger    *slog.Logger
	generator wallet.LabelGenerator
	durable   wallet.ProfileStore // nil when no durable store is configured
	local     *LocalStore
	memo      cache.Cache[*wallet.LabelProfile]
	txLimit   int
	metrics   *syncMetrics
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithTransactionLimit overrides the default transaction limit passed to the
// label generator.
func WithTransactionLimit(limit int) SyncerOption {
	return func(s *Syncer) {
		if limit > 0 {
			s.txLimit = limit
		}
	}
}

// WithMetrics enables Prometheus metrics for the syncer.
func WithMetrics(registrar metric.MetricsRegistrar) SyncerOption {
	return func(s *Syncer) {
		s.metrics = newSyncMetrics(registrar, s.logger)
	}
}

// NewSyncer creates a profile syncer. durable may be nil; all persistence
// then goes through the local ephemeral store.
func NewSyncer(logger *slog.Logger, generator wallet.LabelGenerator, durable wallet.ProfileStore, opts ...SyncerOption) (*Syncer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if generator == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "profilesync", "NewSyncer", "nil label generator")
	}

	memo, err := cache.NewTTL[*wallet.LabelProfile](context.Background(), memoTTL, time.Minute)
	if err != nil {
		return nil, errors.Wrap(err, "profilesync", "NewSyncer", "create memo cache")
	}

	s := &Syncer{
		logger:    logger.With("service", "profilesync"),
		generator: generator,
		durable:   durable,
		local:     NewLocalStore(),
		memo:      memo,
		txLimit:   defaultTransactionLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the memo cache.
func (s *Syncer) Close() error {
	return s.memo.Close()
}

// SyncWalletLabelProfile returns a reasonably fresh profile for address.
// Resolution order: memo, durable store (when younger than 24h), then
// regeneration. forceRefresh skips the memo and the store and always
// regenerates. limit <= 0 uses the syncer's default transaction limit.
func (s *Syncer) SyncWalletLabelProfile(ctx context.Context, address string, limit int, forceRefresh bool) (*wallet.LabelProfile, error) {
	normalized, err := wallet.ValidateAndNormalize(address)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.txLimit
	}

	if !forceRefresh {
		if profile, ok := s.memo.Get(normalized); ok {
			s.metrics.recordMemoHit()
			return profile, nil
		}

		if s.durable != nil {
			stored, err := s.durable.Get(ctx, normalized)
			switch {
			case err == nil && stored.Age() < stalenessThreshold:
				s.metrics.recordStoreHit()
				_, _ = s.memo.Set(normalized, stored)
				return stored, nil
			case err != nil && !stderrors.Is(err, errors.ErrProfileNotFound):
				// Store read failure falls through to regeneration.
				s.logger.Warn("durable profile read failed, regenerating",
					"wallet", normalized, "error", err)
			}
		}
	}

	return s.regenerate(ctx, normalized, limit, forceRefresh)
}

// regenerate invokes the label generator and persists the result, degrading
// to the local store when the durable write fails.
func (s *Syncer) regenerate(ctx context.Context, address string, limit int, forceRefresh bool) (*wallet.LabelProfile, error) {
	profile, err := s.generator.GenerateLabelProfile(ctx, address, limit, !forceRefresh)
	if err != nil {
		s.metrics.recordGenerationFailure()
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrGenerationFailed, err),
			"profilesync", "SyncWalletLabelProfile", "generate profile")
	}
	if profile == nil {
		s.metrics.recordGenerationFailure()
		return nil, errors.WrapTransient(errors.ErrGenerationFailed,
			"profilesync", "SyncWalletLabelProfile", "generator returned no profile")
	}
	s.metrics.recordGeneration()

	if profile.WalletAddress == "" {
		profile.WalletAddress = address
	}
	if profile.GeneratedAt.IsZero() {
		profile.GeneratedAt = time.Now()
	}

	s.persist(ctx, address, profile)
	_, _ = s.memo.Set(address, profile)
	return profile, nil
}

// persist writes profile durably, falling back to the ephemeral local store.
// Callers never see a write failure.
func (s *Syncer) persist(ctx context.Context, address string, profile *wallet.LabelProfile) {
	if s.durable != nil {
		_, err := s.durable.Update(ctx, address, profile, true)
		if err == nil {
			return
		}
		s.metrics.recordFallbackWrite()
		s.logger.Warn("durable profile write failed, using local store",
			"wallet", address, "error", err)
	}
	if _, err := s.local.Update(ctx, address, profile, true); err != nil {
		s.logger.Error("local profile write failed", "wallet", address, "error", err)
	}
}

// GetWalletLabelProfile returns the current profile, syncing it if needed.
// When withHistory is true, prior snapshots are attached newest first.
func (s *Syncer) GetWalletLabelProfile(ctx context.Context, address string, withHistory bool) (*wallet.LabelProfile, error) {
	profile, err := s.SyncWalletLabelProfile(ctx, address, 0, false)
	if err != nil {
		return nil, err
	}
	if !withHistory {
		return profile, nil
	}

	snapshots, err := s.GetWalletLabelHistory(ctx, profile.WalletAddress, 0)
	if err != nil {
		s.logger.Warn("history lookup failed, returning current profile only",
			"wallet", profile.WalletAddress, "error", err)
		return profile, nil
	}

	// Don't mutate the memoized profile.
	withSnapshots := *profile
	if len(snapshots) > 1 {
		withSnapshots.HistorySnapshots = snapshots[1:]
	}
	return &withSnapshots, nil
}

// GetWalletLabelHistory returns the profile history for address, newest
// first, with the current profile as the first element. The durable store is
// preferred; the local fallback store is consulted when the durable store is
// absent or fails.
func (s *Syncer) GetWalletLabelHistory(ctx context.Context, address string, limit int) ([]*wallet.LabelProfile, error) {
	normalized, err := wallet.ValidateAndNormalize(address)
	if err != nil {
		return nil, err
	}

	if s.durable != nil {
		snapshots, err := s.durable.History(ctx, normalized, limit)
		if err == nil && len(snapshots) > 0 {
			return snapshots, nil
		}
		if err != nil {
			s.logger.Warn("durable history read failed, using local store",
				"wallet", normalized, "error", err)
		}
	}
	return s.local.History(ctx, normalized, limit)
}

// BatchSyncWalletLabels syncs a batch of addresses sequentially. A single
// wallet's failure is recorded and iteration continues.
func (s *Syncer) BatchSyncWalletLabels(ctx context.Context, addresses []string, limit int) (*wallet.SyncResult, error) {
	if len(addresses) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyBatch, "profilesync", "BatchSyncWalletLabels", "no addresses")
	}

	start := time.Now()
	result := &wallet.SyncResult{
		BatchID:   uuid.NewString(),
		Timestamp: start,
	}

	for _, address := range addresses {
		if _, err := s.SyncWalletLabelProfile(ctx, address, limit, false); err != nil {
			result.Failed = append(result.Failed, wallet.WalletError{
				Address: address,
				Error:   err.Error(),
			})
			continue
		}
		result.Successful = append(result.Successful, address)
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	s.logger.Info("batch label sync complete",
		"batch_id", result.BatchID,
		"successful", len(result.Successful),
		"failed", len(result.Failed),
		"duration_ms", result.ProcessingTimeMs)
	return result, nil
}
