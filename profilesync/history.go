package profilesync

import (
	"context"
	"fmt"
	"time"

	"github.com/c360/walletsync/wallet"
)

// ArchetypeChange records an archetype identity change between two snapshots.
type ArchetypeChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SetChange records additions and removals between two label sets, by name.
type SetChange struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// SnapshotDiff is the difference between one snapshot and its predecessor.
// Nil fields mean no change of that kind.
type SnapshotDiff struct {
	FromGeneratedAt time.Time        `json:"from_generated_at"`
	ToGeneratedAt   time.Time        `json:"to_generated_at"`
	Archetype       *ArchetypeChange `json:"archetype,omitempty"`
	EmotionalStates *SetChange       `json:"emotional_states,omitempty"`
	Traits          *SetChange       `json:"traits,omitempty"`
}

// ChangeAnalysis is the result of analyzing a wallet's label history.
type ChangeAnalysis struct {
	WalletAddress string         `json:"wallet_address"`
	HasChanges    bool           `json:"has_changes"`
	Message       string         `json:"message,omitempty"`
	Changes       []SnapshotDiff `json:"changes,omitempty"`
}

// AnalyzeWalletLabelChanges diffs each history snapshot against its
// predecessor. A wallet with fewer than two snapshots reports no changes, and
// a diff failure is reported in the result message rather than returned as an
// error.
func (s *Syncer) AnalyzeWalletLabelChanges(ctx context.Context, address string) (*ChangeAnalysis, error) {
	normalized, err := wallet.ValidateAndNormalize(address)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.GetWalletLabelHistory(ctx, normalized, 0)
	if err != nil {
		return &ChangeAnalysis{
			WalletAddress: normalized,
			HasChanges:    false,
			Message:       fmt.Sprintf("history unavailable: %v", err),
		}, nil
	}
	if len(snapshots) < 2 {
		return &ChangeAnalysis{
			WalletAddress: normalized,
			HasChanges:    false,
			Message:       "insufficient history for change analysis",
		}, nil
	}

	analysis := &ChangeAnalysis{WalletAddress: normalized}
	// Snapshots are newest first; diff each against its predecessor in time.
	for i := 0; i < len(snapshots)-1; i++ {
		newer, older := snapshots[i], snapshots[i+1]
		diff, err := diffSnapshots(older, newer)
		if err != nil {
			return &ChangeAnalysis{
				WalletAddress: normalized,
				HasChanges:    false,
				Message:       fmt.Sprintf("change analysis failed: %v", err),
			}, nil
		}
		if diff != nil {
			analysis.Changes = append(analysis.Changes, *diff)
		}
	}
	analysis.HasChanges = len(analysis.Changes) > 0
	return analysis, nil
}

// diffSnapshots compares two chronologically adjacent snapshots. Returns nil
// when nothing changed.
func diffSnapshots(older, newer *wallet.LabelProfile) (*SnapshotDiff, error) {
	if older == nil || newer == nil {
		return nil, fmt.Errorf("malformed snapshot: nil profile")
	}

	diff := &SnapshotDiff{
		FromGeneratedAt: older.GeneratedAt,
		ToGeneratedAt:   newer.GeneratedAt,
	}

	if older.Archetype.ID != newer.Archetype.ID {
		diff.Archetype = &ArchetypeChange{
			From: older.Archetype.Name,
			To:   newer.Archetype.Name,
		}
	}
	diff.EmotionalStates = diffLabelSets(older.EmotionalStates, newer.EmotionalStates)
	diff.Traits = diffLabelSets(older.Traits, newer.Traits)

	if diff.Archetype == nil && diff.EmotionalStates == nil && diff.Traits == nil {
		return nil, nil
	}
	return diff, nil
}

// diffLabelSets set-differences two label lists by ID, reporting names.
// Returns nil when the sets are identical.
func diffLabelSets(older, newer []wallet.Label) *SetChange {
	olderByID := make(map[string]wallet.Label, len(older))
	for _, label := range older {
		olderByID[label.ID] = label
	}
	newerByID := make(map[string]wallet.Label, len(newer))
	for _, label := range newer {
		newerByID[label.ID] = label
	}

	change := &SetChange{}
	for _, label := range newer {
		if _, ok := olderByID[label.ID]; !ok {
			change.Added = append(change.Added, label.Name)
		}
	}
	for _, label := range older {
		if _, ok := newerByID[label.ID]; !ok {
			change.Removed = append(change.Removed, label.Name)
		}
	}

	if len(change.Added) == 0 && len(change.Removed) == 0 {
		return nil
	}
	return change
}
