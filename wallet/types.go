// Package wallet defines the domain model shared by the walletsync services:
// wallet addresses, label profiles, composite integrated records, and the
// contracts of the external collaborators this module orchestrates.
package wallet

import "time"

// Label is a named classification element (archetype, emotional state, trait).
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LabelProfile is a wallet's behavioral classification produced by the
// label-generation collaborator. Snapshots are retained for history and diff
// analysis, newest first.
type LabelProfile struct {
	WalletAddress   string    `json:"wallet_address"`
	Archetype       Label     `json:"archetype"`
	EmotionalStates []Label   `json:"emotional_states"`
	Traits          []Label   `json:"traits"`
	GeneratedAt     time.Time `json:"generated_at"`

	// HistorySnapshots holds prior profiles, newest first. Populated only
	// when history is requested; never nested recursively.
	HistorySnapshots []*LabelProfile `json:"history_snapshots,omitempty"`
}

// Age returns how long ago the profile was generated.
func (p *LabelProfile) Age() time.Duration {
	return time.Since(p.GeneratedAt)
}

// Transaction is a single on-chain transaction as returned by the
// transaction-fetch collaborator. Only the fields this module needs are
// modeled; the indexer's full shape stays behind the collaborator boundary.
type Transaction struct {
	Signature string    `json:"signature"`
	Timestamp time.Time `json:"timestamp"`
	AmountUSD float64   `json:"amount_usd"`
	TokenMint string    `json:"token_mint,omitempty"`
}

// TradingActivity is the trading-activity collaborator's per-wallet analysis.
type TradingActivity struct {
	WalletAddress    string    `json:"wallet_address"`
	TransactionCount int       `json:"transaction_count"`
	BuyCount         int       `json:"buy_count"`
	SellCount        int       `json:"sell_count"`
	TotalVolumeUSD   float64   `json:"total_volume_usd"`
	LastActive       time.Time `json:"last_active"`
}

// DataProviders records which upstream sources contributed to a composite
// record.
type DataProviders struct {
	Transactions  bool `json:"transactions"`
	TokenMetadata bool `json:"token_metadata"`
	TokenPrices   bool `json:"token_prices"`
}

// IntegratedWalletData is the orchestrator's composite per-wallet record.
// A cached record is stale when its DataVersion no longer equals the
// orchestrator's current global version.
type IntegratedWalletData struct {
	WalletAddress    string           `json:"wallet_address"`
	DataVersion      int64            `json:"data_version"`
	TradingActivity  *TradingActivity `json:"trading_activity,omitempty"`
	LabelData        *LabelProfile    `json:"label_data,omitempty"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	Timestamp        time.Time        `json:"timestamp"`
	DataProviders    DataProviders    `json:"data_providers"`
}

// TopWallet is one entry of the ranking collaborator's leaderboard.
type TopWallet struct {
	Address string  `json:"address"`
	Score   float64 `json:"score"`
	Tier    string  `json:"tier,omitempty"`
	Rank    int     `json:"rank,omitempty"`
}

// TopWalletIntegrated is a ranked entry enriched with its composite record.
// Data is nil when enrichment failed; the bare ranked entry is still served.
type TopWalletIntegrated struct {
	TopWallet
	Data *IntegratedWalletData `json:"data,omitempty"`
}

// WalletError pairs an address with the failure it produced.
type WalletError struct {
	Address string `json:"address"`
	Error   string `json:"error"`
}

// SyncResult is the outcome of one batch-synchronize call. Immutable after
// construction.
type SyncResult struct {
	BatchID          string        `json:"batch_id"`
	Successful       []string      `json:"successful"`
	Failed           []WalletError `json:"failed"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
	Timestamp        time.Time     `json:"timestamp"`
}
