package profilesync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/walletsync/wallet"
)

func storeSnapshots(t *testing.T, store *LocalStore, addr string, snapshots ...*wallet.LabelProfile) {
	t.Helper()
	for _, snap := range snapshots {
		_, err := store.Update(context.Background(), addr, snap, true)
		require.NoError(t, err)
	}
}

func TestAnalyzeChangesArchetypeAndTraits(t *testing.T) {
	store := NewLocalStore()
	addr := testAddress(20)

	older := &wallet.LabelProfile{
		WalletAddress: addr,
		Archetype:     wallet.Label{ID: "arch-whale", Name: "Whale"},
		Traits: []wallet.Label{
			{ID: "t1", Name: "patient"},
			{ID: "t2", Name: "contrarian"},
		},
		GeneratedAt: time.Now().Add(-2 * time.Hour),
	}
	newer := &wallet.LabelProfile{
		WalletAddress: addr,
		Archetype:     wallet.Label{ID: "arch-degen", Name: "Degen"},
		Traits: []wallet.Label{
			{ID: "t2", Name: "contrarian"},
			{ID: "t3", Name: "impulsive"},
		},
		GeneratedAt: time.Now().Add(-1 * time.Hour),
	}
	storeSnapshots(t, store, addr, older, newer)

	s := newTestSyncer(t, &stubGenerator{}, store)
	analysis, err := s.AnalyzeWalletLabelChanges(context.Background(), addr)
	require.NoError(t, err)

	assert.True(t, analysis.HasChanges)
	require.Len(t, analysis.Changes, 1)

	change := analysis.Changes[0]
	require.NotNil(t, change.Archetype)
	assert.Equal(t, "Whale", change.Archetype.From)
	assert.Equal(t, "Degen", change.Archetype.To)

	require.NotNil(t, change.Traits)
	assert.Equal(t, []string{"impulsive"}, change.Traits.Added)
	assert.Equal(t, []string{"patient"}, change.Traits.Removed)

	assert.Nil(t, change.EmotionalStates)
}

func TestAnalyzeChangesEmotionalStates(t *testing.T) {
	store := NewLocalStore()
	addr := testAddress(21)

	older := &wallet.LabelProfile{
		WalletAddress:   addr,
		Archetype:       wallet.Label{ID: "a1", Name: "Holder"},
		EmotionalStates: []wallet.Label{{ID: "e1", Name: "calm"}},
		GeneratedAt:     time.Now().Add(-2 * time.Hour),
	}
	newer := &wallet.LabelProfile{
		WalletAddress:   addr,
		Archetype:       wallet.Label{ID: "a1", Name: "Holder"},
		EmotionalStates: []wallet.Label{{ID: "e2", Name: "anxious"}},
		GeneratedAt:     time.Now().Add(-1 * time.Hour),
	}
	storeSnapshots(t, store, addr, older, newer)

	s := newTestSyncer(t, &stubGenerator{}, store)
	analysis, err := s.AnalyzeWalletLabelChanges(context.Background(), addr)
	require.NoError(t, err)

	require.Len(t, analysis.Changes, 1)
	change := analysis.Changes[0]
	assert.Nil(t, change.Archetype)
	require.NotNil(t, change.EmotionalStates)
	assert.Equal(t, []string{"anxious"}, change.EmotionalStates.Added)
	assert.Equal(t, []string{"calm"}, change.EmotionalStates.Removed)
}

func TestAnalyzeChangesPairwiseAcrossThreeSnapshots(t *testing.T) {
	store := NewLocalStore()
	addr := testAddress(22)

	base := time.Now().Add(-3 * time.Hour)
	snapshots := []*wallet.LabelProfile{
		{WalletAddress: addr, Archetype: wallet.Label{ID: "a1", Name: "Holder"}, GeneratedAt: base},
		{WalletAddress: addr, Archetype: wallet.Label{ID: "a2", Name: "Whale"}, GeneratedAt: base.Add(time.Hour)},
		{WalletAddress: addr, Archetype: wallet.Label{ID: "a3", Name: "Degen"}, GeneratedAt: base.Add(2 * time.Hour)},
	}
	storeSnapshots(t, store, addr, snapshots...)

	s := newTestSyncer(t, &stubGenerator{}, store)
	analysis, err := s.AnalyzeWalletLabelChanges(context.Background(), addr)
	require.NoError(t, err)

	require.Len(t, analysis.Changes, 2)
	// Newest pair first.
	assert.Equal(t, "Whale", analysis.Changes[0].Archetype.From)
	assert.Equal(t, "Degen", analysis.Changes[0].Archetype.To)
	assert.Equal(t, "Holder", analysis.Changes[1].Archetype.From)
	assert.Equal(t, "Whale", analysis.Changes[1].Archetype.To)
}

func TestAnalyzeChangesInsufficientHistory(t *testing.T) {
	store := NewLocalStore()
	addr := testAddress(23)
	storeSnapshots(t, store, addr, &wallet.LabelProfile{
		WalletAddress: addr,
		Archetype:     wallet.Label{ID: "a1", Name: "Holder"},
		GeneratedAt:   time.Now(),
	})

	s := newTestSyncer(t, &stubGenerator{}, store)
	analysis, err := s.AnalyzeWalletLabelChanges(context.Background(), addr)
	require.NoError(t, err)

	assert.False(t, analysis.HasChanges)
	assert.NotEmpty(t, analysis.Message)
	assert.Empty(t, analysis.Changes)
}

func TestAnalyzeChangesNoDifference(t *testing.T) {
	store := NewLocalStore()
	addr := testAddress(24)

	profile := wallet.LabelProfile{
		WalletAddress: addr,
		Archetype:     wallet.Label{ID: "a1", Name: "Holder"},
		Traits:        []wallet.Label{{ID: "t1", Name: "patient"}},
	}
	older, newer := profile, profile
	older.GeneratedAt = time.Now().Add(-2 * time.Hour)
	newer.GeneratedAt = time.Now().Add(-1 * time.Hour)
	storeSnapshots(t, store, addr, &older, &newer)

	s := newTestSyncer(t, &stubGenerator{}, store)
	analysis, err := s.AnalyzeWalletLabelChanges(context.Background(), addr)
	require.NoError(t, err)

	assert.False(t, analysis.HasChanges)
	assert.Empty(t, analysis.Changes)
}

func TestAnalyzeChangesRejectsInvalidAddress(t *testing.T) {
	s := newTestSyncer(t, &stubGenerator{}, nil)

	_, err := s.AnalyzeWalletLabelChanges(context.Background(), "bogus")
	require.Error(t, err)
}

func TestDiffSnapshotsMalformed(t *testing.T) {
	_, err := diffSnapshots(nil, &wallet.LabelProfile{})
	require.Error(t, err)

	_, err = diffSnapshots(&wallet.LabelProfile{}, nil)
	require.Error(t, err)
}

func TestLocalStoreHistoryNewestFirst(t *testing.T) {
	store := NewLocalStore()
	addr := testAddress(25)

	base := time.Now().Add(-3 * time.Hour)
	for i := 0; i < 3; i++ {
		_, err := store.Update(context.Background(), addr, &wallet.LabelProfile{
			WalletAddress: addr,
			Archetype:     wallet.Label{ID: "a1", Name: "Holder"},
			GeneratedAt:   base.Add(time.Duration(i) * time.Hour),
		}, true)
		require.NoError(t, err)
	}

	snapshots, err := store.History(context.Background(), addr, 0)
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	for i := 1; i < len(snapshots); i++ {
		assert.True(t, snapshots[i-1].GeneratedAt.After(snapshots[i].GeneratedAt),
			"history must be newest first")
	}

	limited, err := store.History(context.Background(), addr, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
