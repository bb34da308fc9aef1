package wallet

import "context"

// TransactionFetcher is the transaction-fetch collaborator boundary. The
// concrete blockchain-indexer clients live outside this module.
type TransactionFetcher interface {
	// GetTransactions returns up to limit transactions for the address.
	// forceFresh bypasses any caching the collaborator maintains.
	GetTransactions(ctx context.Context, address string, limit int, forceFresh bool) ([]Transaction, error)

	// Enrich augments transactions in place (token metadata, prices).
	Enrich(ctx context.Context, txs []Transaction) error

	// ClearCache drops any internal request cache the collaborator holds.
	ClearCache(ctx context.Context) error
}

// TradingActivityAnalyzer is the trading-activity collaborator boundary.
type TradingActivityAnalyzer interface {
	GetWalletTradingActivity(ctx context.Context, address string, limit int, useCache, forceRefresh bool) (*TradingActivity, error)

	ClearCache(ctx context.Context) error
}

// LabelGenerator is the label-generation collaborator boundary. Generation
// is expensive; callers are expected to go through the profile sync layer
// rather than invoking this directly.
type LabelGenerator interface {
	GenerateLabelProfile(ctx context.Context, address string, limit int, useCache bool) (*LabelProfile, error)
}

// TopWalletsQuery parameterizes a ranking lookup.
type TopWalletsQuery struct {
	Limit    int
	SortBy   string // "score" or "rank"
	UseCache bool
}

// Ranker is the ranking collaborator boundary.
type Ranker interface {
	GetTopWallets(ctx context.Context, query TopWalletsQuery) ([]TopWallet, error)
}

// ProfileStore persists label profiles. Implementations: the Postgres store
// (durable, preferred) and the in-process local store (ephemeral fallback).
type ProfileStore interface {
	// Get returns the current profile for address, or
	// errors.ErrProfileNotFound if none is stored.
	Get(ctx context.Context, address string) (*LabelProfile, error)

	// Update stores profile as the current profile for address. When
	// saveHistory is true the superseded profile is retained as a history
	// snapshot. Returns the stored profile.
	Update(ctx context.Context, address string, profile *LabelProfile, saveHistory bool) (*LabelProfile, error)

	// History returns up to limit prior snapshots, newest first. The
	// current profile is the first element.
	History(ctx context.Context, address string, limit int) ([]*LabelProfile, error)
}
