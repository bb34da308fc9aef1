package integration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/walletsync/cachestore"
	"github.com/c360/walletsync/config"
	"github.com/c360/walletsync/errors"
	"github.com/c360/walletsync/wallet"
)

func testAddress(b byte) string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = b
	}
	return base58.Encode(key)
}

// stubActivity counts fetches and can be made to fail.
type stubActivity struct {
	mu          sync.Mutex
	calls       int
	fail        bool
	cacheClears int
}

func (a *stubActivity) GetWalletTradingActivity(_ context.Context, address string, _ int, _, _ bool) (*wallet.TradingActivity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.fail {
		return nil, fmt.Errorf("indexer unreachable")
	}
	return &wallet.TradingActivity{
		WalletAddress:    address,
		TransactionCount: 42,
		TotalVolumeUSD:   1000,
		LastActive:       time.Now(),
	}, nil
}

func (a *stubActivity) ClearCache(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cacheClears++
	return nil
}

func (a *stubActivity) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// stubProfiles implements ProfileProvider.
type stubProfiles struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (p *stubProfiles) SyncWalletLabelProfile(_ context.Context, address string, _ int, _ bool) (*wallet.LabelProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.fail {
		return nil, fmt.Errorf("label service unreachable")
	}
	return &wallet.LabelProfile{
		WalletAddress: address,
		Archetype:     wallet.Label{ID: "a1", Name: "Whale"},
		GeneratedAt:   time.Now(),
	}, nil
}

// stubRanker returns a canned leaderboard.
type stubRanker struct {
	wallets []wallet.TopWallet
	fail    bool
	calls   int
}

func (r *stubRanker) GetTopWallets(context.Context, wallet.TopWalletsQuery) ([]wallet.TopWallet, error) {
	r.calls++
	if r.fail {
		return nil, fmt.Errorf("ranking service unreachable")
	}
	return r.wallets, nil
}

func newMemoryStore(t *testing.T) *cachestore.Store {
	t.Helper()
	mem, err := cachestore.NewMemoryBackend(context.Background(), time.Minute)
	require.NoError(t, err)
	store, err := cachestore.New([]cachestore.Backend{mem})
	require.NoError(t, err)
	return store
}

func testTTL() config.TTLConfig {
	return config.TTLConfig{
		WalletData:     time.Hour,
		TokenData:      time.Hour,
		AggregatedData: time.Hour,
		LabelData:      time.Hour,
		TopWallets:     time.Hour,
	}
}

func newTestOrchestrator(t *testing.T, activity *stubActivity, profiles *stubProfiles, ranker wallet.Ranker) *Orchestrator {
	t.Helper()
	o, err := New(slog.Default(), newMemoryStore(t), activity, profiles, ranker, nil, testTTL())
	require.NoError(t, err)
	return o
}

func TestGetIntegratedWalletDataAssemblesBothSources(t *testing.T) {
	activity := &stubActivity{}
	profiles := &stubProfiles{}
	o := newTestOrchestrator(t, activity, profiles, nil)

	data, err := o.GetIntegratedWalletData(context.Background(), testAddress(1), Options{UseCache: true})
	require.NoError(t, err)

	require.NotNil(t, data.TradingActivity)
	require.NotNil(t, data.LabelData)
	assert.True(t, data.DataProviders.Transactions)
	assert.True(t, data.DataProviders.TokenMetadata)
	assert.Equal(t, o.GetDataVersion(), data.DataVersion)
}

func TestGetIntegratedWalletDataCacheHit(t *testing.T) {
	activity := &stubActivity{}
	profiles := &stubProfiles{}
	o := newTestOrchestrator(t, activity, profiles, nil)
	addr := testAddress(2)

	_, err := o.GetIntegratedWalletData(context.Background(), addr, Options{UseCache: true})
	require.NoError(t, err)
	_, err = o.GetIntegratedWalletData(context.Background(), addr, Options{UseCache: true})
	require.NoError(t, err)

	assert.Equal(t, 1, activity.callCount(), "second call should be a cache hit")
}

func TestVersionBumpInvalidatesCachedRecords(t *testing.T) {
	activity := &stubActivity{}
	profiles := &stubProfiles{}
	o := newTestOrchestrator(t, activity, profiles, nil)
	addr := testAddress(3)

	_, err := o.GetIntegratedWalletData(context.Background(), addr, Options{UseCache: true})
	require.NoError(t, err)
	_, err = o.GetIntegratedWalletData(context.Background(), addr, Options{UseCache: true})
	require.NoError(t, err)
	require.Equal(t, 1, activity.callCount())

	before := o.GetDataVersion()
	after := o.UpdateDataVersion()
	assert.Greater(t, after, before)

	// The cached record's physical TTL has not expired, but its version no
	// longer matches, so the next read refetches.
	data, err := o.GetIntegratedWalletData(context.Background(), addr, Options{UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, 2, activity.callCount())
	assert.Equal(t, after, data.DataVersion)
}

func TestPartialUpstreamFailureDegradesToNil(t *testing.T) {
	activity := &stubActivity{fail: true}
	profiles := &stubProfiles{}
	o := newTestOrchestrator(t, activity, profiles, nil)

	data, err := o.GetIntegratedWalletData(context.Background(), testAddress(4), Options{})
	require.NoError(t, err, "one failing sub-analysis must not abort the record")

	assert.Nil(t, data.TradingActivity)
	assert.False(t, data.DataProviders.Transactions)
	require.NotNil(t, data.LabelData)
	assert.True(t, data.DataProviders.TokenMetadata)
}

func TestGetIntegratedWalletDataRejectsInvalidAddress(t *testing.T) {
	o := newTestOrchestrator(t, &stubActivity{}, &stubProfiles{}, nil)

	_, err := o.GetIntegratedWalletData(context.Background(), "bogus", Options{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestTopWalletsIntegratedSortsByScore(t *testing.T) {
	ranker := &stubRanker{wallets: []wallet.TopWallet{
		{Address: testAddress(5), Score: 10},
		{Address: testAddress(6), Score: 30},
		{Address: testAddress(7), Score: 20},
	}}
	o := newTestOrchestrator(t, &stubActivity{}, &stubProfiles{}, ranker)

	integrated, err := o.GetTopWalletsIntegrated(context.Background(), TopOptions{Limit: 3, SortBy: "score"})
	require.NoError(t, err)

	require.Len(t, integrated, 3)
	assert.Equal(t, float64(30), integrated[0].Score)
	assert.Equal(t, float64(20), integrated[1].Score)
	assert.Equal(t, float64(10), integrated[2].Score)
	for _, entry := range integrated {
		assert.NotNil(t, entry.Data, "enrichment should populate each entry")
	}
}

func TestTopWalletsIntegratedSortsByRankWithMissingLast(t *testing.T) {
	ranker := &stubRanker{wallets: []wallet.TopWallet{
		{Address: testAddress(8), Rank: 0}, // unranked
		{Address: testAddress(9), Rank: 2},
		{Address: testAddress(10), Rank: 1},
	}}
	o := newTestOrchestrator(t, &stubActivity{}, &stubProfiles{}, ranker)

	integrated, err := o.GetTopWalletsIntegrated(context.Background(), TopOptions{Limit: 3, SortBy: "rank"})
	require.NoError(t, err)

	require.Len(t, integrated, 3)
	assert.Equal(t, 1, integrated[0].Rank)
	assert.Equal(t, 2, integrated[1].Rank)
	assert.Equal(t, 0, integrated[2].Rank, "unranked entry sorts last")
}

func TestTopWalletsEnrichmentFailureServesBareEntry(t *testing.T) {
	bad := "not-a-wallet-address"
	ranker := &stubRanker{wallets: []wallet.TopWallet{
		{Address: testAddress(11), Score: 5},
		{Address: bad, Score: 4},
	}}
	o := newTestOrchestrator(t, &stubActivity{}, &stubProfiles{}, ranker)

	integrated, err := o.GetTopWalletsIntegrated(context.Background(), TopOptions{Limit: 2})
	require.NoError(t, err)

	require.Len(t, integrated, 2)
	assert.NotNil(t, integrated[0].Data)
	assert.Nil(t, integrated[1].Data, "failed enrichment degrades to the bare ranked entry")
	assert.Equal(t, bad, integrated[1].Address)
}

func TestVersionBumpInvalidatesCachedTopWallets(t *testing.T) {
	ranker := &stubRanker{wallets: []wallet.TopWallet{
		{Address: testAddress(15), Score: 9},
	}}
	o := newTestOrchestrator(t, &stubActivity{}, &stubProfiles{}, ranker)
	opts := TopOptions{Limit: 1, UseCache: true}

	_, err := o.GetTopWalletsIntegrated(context.Background(), opts)
	require.NoError(t, err)
	_, err = o.GetTopWalletsIntegrated(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, 1, ranker.calls, "second read should be a cache hit")

	after := o.UpdateDataVersion()

	// The cached list's physical TTL has not expired, but it was assembled
	// under the previous version, so the next read rebuilds it.
	integrated, err := o.GetTopWalletsIntegrated(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, ranker.calls)
	require.Len(t, integrated, 1)
	require.NotNil(t, integrated[0].Data)
	assert.Equal(t, after, integrated[0].Data.DataVersion)
}

func TestTopWalletsRankerFailurePropagates(t *testing.T) {
	o := newTestOrchestrator(t, &stubActivity{}, &stubProfiles{}, &stubRanker{fail: true})

	_, err := o.GetTopWalletsIntegrated(context.Background(), TopOptions{Limit: 3})
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestSynchronizeWalletsBatchIsolatesFailures(t *testing.T) {
	o := newTestOrchestrator(t, &stubActivity{}, &stubProfiles{}, nil)

	addresses := []string{testAddress(12), "bogus", testAddress(13)}
	result, err := o.SynchronizeWalletsBatch(context.Background(), addresses, 0)
	require.NoError(t, err)

	assert.NotEmpty(t, result.BatchID)
	assert.Len(t, result.Successful, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "bogus", result.Failed[0].Address)
}

func TestSynchronizeWalletsBatchRejectsEmpty(t *testing.T) {
	o := newTestOrchestrator(t, &stubActivity{}, &stubProfiles{}, nil)

	_, err := o.SynchronizeWalletsBatch(context.Background(), nil, 0)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestClearAllCachesResetsEverything(t *testing.T) {
	activity := &stubActivity{}
	profiles := &stubProfiles{}
	o := newTestOrchestrator(t, activity, profiles, nil)
	addr := testAddress(14)

	_, err := o.GetIntegratedWalletData(context.Background(), addr, Options{UseCache: true})
	require.NoError(t, err)

	before := o.GetDataVersion()
	deleted, err := o.ClearAllCaches(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, deleted, 1)
	assert.Greater(t, o.GetDataVersion(), before)
	assert.Equal(t, 1, activity.cacheClears)

	// The next read is a full miss.
	_, err = o.GetIntegratedWalletData(context.Background(), addr, Options{UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, 2, activity.callCount())
}

func TestUpdateDataVersionMonotonic(t *testing.T) {
	o := newTestOrchestrator(t, &stubActivity{}, &stubProfiles{}, nil)

	previous := o.GetDataVersion()
	for i := 0; i < 5; i++ {
		next := o.UpdateDataVersion()
		assert.Greater(t, next, previous)
		previous = next
	}
}
