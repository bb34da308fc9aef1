package warmer

import (
	"slices"
	"time"

	"github.com/c360/walletsync/config"
	"github.com/c360/walletsync/wallet"
)

// Settings is the warmer's runtime configuration. The custom wallet list is
// kept normalized and de-duplicated.
type Settings struct {
	Enabled          bool          `json:"enabled"`
	Interval         time.Duration `json:"interval"`
	TopWalletsCount  int           `json:"top_wallets_count"`
	Concurrency      int           `json:"concurrency"`
	TransactionLimit int           `json:"transaction_limit"`
	CustomWallets    []string      `json:"custom_wallets,omitempty"`
}

// SettingsPatch is a partial settings update. Nil fields keep their current
// value.
type SettingsPatch struct {
	Enabled          *bool          `json:"enabled,omitempty"`
	Interval         *time.Duration `json:"interval,omitempty"`
	TopWalletsCount  *int           `json:"top_wallets_count,omitempty"`
	Concurrency      *int           `json:"concurrency,omitempty"`
	TransactionLimit *int           `json:"transaction_limit,omitempty"`
	CustomWallets    *[]string      `json:"custom_wallets,omitempty"`
}

// SettingsFromConfig converts the application warming config, normalizing
// any configured custom wallets and dropping malformed ones.
func SettingsFromConfig(cfg config.WarmingConfig) Settings {
	custom, _ := wallet.NormalizeSet(cfg.CustomWallets)
	return Settings{
		Enabled:          cfg.Enabled,
		Interval:         cfg.Interval,
		TopWalletsCount:  cfg.TopWalletsCount,
		Concurrency:      cfg.Concurrency,
		TransactionLimit: cfg.TransactionLimit,
		CustomWallets:    custom,
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	out.CustomWallets = slices.Clone(s.CustomWallets)
	return out
}

// Merge applies patch over s and returns the result. s is not modified.
func (s Settings) Merge(patch SettingsPatch) Settings {
	out := s.Clone()
	if patch.Enabled != nil {
		out.Enabled = *patch.Enabled
	}
	if patch.Interval != nil {
		out.Interval = *patch.Interval
	}
	if patch.TopWalletsCount != nil {
		out.TopWalletsCount = *patch.TopWalletsCount
	}
	if patch.Concurrency != nil {
		out.Concurrency = *patch.Concurrency
	}
	if patch.TransactionLimit != nil {
		out.TransactionLimit = *patch.TransactionLimit
	}
	if patch.CustomWallets != nil {
		custom, _ := wallet.NormalizeSet(*patch.CustomWallets)
		out.CustomWallets = custom
	}
	return out
}
