package warmer

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/walletsync/config"
)

func TestSettingsMergeAppliesOnlySetFields(t *testing.T) {
	base := Settings{
		Enabled:          true,
		Interval:         30 * time.Minute,
		TopWalletsCount:  20,
		Concurrency:      3,
		TransactionLimit: 100,
	}

	interval := 5 * time.Minute
	merged := base.Merge(SettingsPatch{Interval: &interval})

	assert.Equal(t, interval, merged.Interval)
	assert.Equal(t, base.TopWalletsCount, merged.TopWalletsCount)
	assert.Equal(t, base.Concurrency, merged.Concurrency)
	// The original is untouched.
	assert.Equal(t, 30*time.Minute, base.Interval)
}

func TestSettingsMergeNormalizesCustomWallets(t *testing.T) {
	addr := testAddress(1)
	custom := []string{addr, " " + addr + " ", "bogus"}
	merged := Settings{}.Merge(SettingsPatch{CustomWallets: &custom})

	assert.Equal(t, []string{addr}, merged.CustomWallets)
}

func TestSettingsCloneIsDeep(t *testing.T) {
	original := Settings{CustomWallets: []string{testAddress(2)}}
	clone := original.Clone()
	clone.CustomWallets[0] = "changed"

	assert.Equal(t, testAddress(2), original.CustomWallets[0])
}

func TestSettingsFromConfig(t *testing.T) {
	addr := testAddress(3)
	cfg := config.WarmingConfig{
		Enabled:          true,
		Interval:         time.Minute,
		TopWalletsCount:  10,
		Concurrency:      2,
		TransactionLimit: 50,
		CustomWallets:    []string{addr, "bogus"},
	}

	settings := SettingsFromConfig(cfg)
	assert.True(t, settings.Enabled)
	assert.Equal(t, time.Minute, settings.Interval)
	assert.Equal(t, []string{addr}, settings.CustomWallets, "malformed configured wallets are dropped")
}

func TestAddAndRemoveCustomWallets(t *testing.T) {
	w, err := New(slog.Default(), newMemoryStore(t), &stubFetcher{}, nil, time.Hour)
	require.NoError(t, err)
	require.NoError(t, w.Initialize(Settings{Interval: time.Hour, Concurrency: 1}))
	t.Cleanup(w.Stop)

	a, b := testAddress(4), testAddress(5)

	current, rejects := w.AddCustomWallets([]string{a, b, a, "bogus"})
	assert.Equal(t, []string{a, b}, current)
	require.Len(t, rejects, 1)
	assert.Equal(t, "bogus", rejects[0].Address)

	// Removal normalizes before comparing, so a padded spelling still matches.
	current = w.RemoveCustomWallets([]string{"  " + a + "  "})
	assert.Equal(t, []string{b}, current)
}
