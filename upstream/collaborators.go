package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/c360/walletsync/wallet"
)

// TransactionClient talks to the blockchain indexer. Implements
// wallet.TransactionFetcher.
type TransactionClient struct {
	client *Client
}

// NewTransactionClient wraps the shared transport.
func NewTransactionClient(client *Client) *TransactionClient {
	return &TransactionClient{client: client}
}

// GetTransactions returns up to limit transactions for address. forceFresh
// asks the indexer to bypass its own cache.
func (t *TransactionClient) GetTransactions(ctx context.Context, address string, limit int, forceFresh bool) ([]wallet.Transaction, error) {
	query := url.Values{
		"limit":       {strconv.Itoa(limit)},
		"force_fresh": {strconv.FormatBool(forceFresh)},
	}
	var txs []wallet.Transaction
	if err := t.client.getJSON(ctx, "/v1/wallets/"+address+"/transactions", query, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// Enrich augments transactions in place with token metadata and prices.
func (t *TransactionClient) Enrich(ctx context.Context, txs []wallet.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	enriched := make([]wallet.Transaction, 0, len(txs))
	if err := t.client.postJSON(ctx, "/v1/transactions/enrich", txs, &enriched); err != nil {
		return err
	}
	copy(txs, enriched)
	return nil
}

// ClearCache asks the indexer to drop its request cache.
func (t *TransactionClient) ClearCache(ctx context.Context) error {
	return t.client.postJSON(ctx, "/v1/cache/clear", nil, nil)
}

// ActivityClient talks to the trading-activity analyzer. Implements
// wallet.TradingActivityAnalyzer.
type ActivityClient struct {
	client *Client
}

// NewActivityClient wraps the shared transport.
func NewActivityClient(client *Client) *ActivityClient {
	return &ActivityClient{client: client}
}

// GetWalletTradingActivity returns the analyzer's view of a wallet.
func (a *ActivityClient) GetWalletTradingActivity(ctx context.Context, address string, limit int, useCache, forceRefresh bool) (*wallet.TradingActivity, error) {
	query := url.Values{
		"limit":         {strconv.Itoa(limit)},
		"use_cache":     {strconv.FormatBool(useCache)},
		"force_refresh": {strconv.FormatBool(forceRefresh)},
	}
	var activity wallet.TradingActivity
	if err := a.client.getJSON(ctx, "/v1/wallets/"+address+"/activity", query, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

// ClearCache asks the analyzer to drop its cache.
func (a *ActivityClient) ClearCache(ctx context.Context) error {
	return a.client.postJSON(ctx, "/v1/cache/clear", nil, nil)
}

// LabelClient talks to the label-generation service. Implements
// wallet.LabelGenerator.
type LabelClient struct {
	client *Client
}

// NewLabelClient wraps the shared transport.
func NewLabelClient(client *Client) *LabelClient {
	return &LabelClient{client: client}
}

// GenerateLabelProfile requests a fresh behavioral classification.
func (l *LabelClient) GenerateLabelProfile(ctx context.Context, address string, limit int, useCache bool) (*wallet.LabelProfile, error) {
	body := map[string]any{
		"address":   address,
		"limit":     limit,
		"use_cache": useCache,
	}
	var profile wallet.LabelProfile
	if err := l.client.postJSON(ctx, "/v1/labels/generate", body, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// RankingClient talks to the wallet ranking service. Implements
// wallet.Ranker.
type RankingClient struct {
	client *Client
}

// NewRankingClient wraps the shared transport.
func NewRankingClient(client *Client) *RankingClient {
	return &RankingClient{client: client}
}

// GetTopWallets returns the leaderboard for the query.
func (r *RankingClient) GetTopWallets(ctx context.Context, query wallet.TopWalletsQuery) ([]wallet.TopWallet, error) {
	params := url.Values{
		"limit":     {strconv.Itoa(query.Limit)},
		"use_cache": {strconv.FormatBool(query.UseCache)},
	}
	if query.SortBy != "" {
		params.Set("sort_by", query.SortBy)
	}
	var top []wallet.TopWallet
	if err := r.client.getJSON(ctx, "/v1/wallets/top", params, &top); err != nil {
		return nil, fmt.Errorf("top wallets lookup: %w", err)
	}
	return top, nil
}
