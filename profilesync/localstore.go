package profilesync

import (
	"context"
	"sync"

	"github.com/c360/walletsync/errors"
	"github.com/c360/walletsync/wallet"
)

// maxLocalHistory bounds per-wallet snapshot retention in the ephemeral
// store so a long-running process does not grow without limit.
const maxLocalHistory = 20

// LocalStore is the in-process, ephemeral profile store. It is the write
// fallback when the durable store is unavailable: callers never see a write
// failure, only a downgrade in durability. Contents are lost on restart.
type LocalStore struct {
	mu       sync.RWMutex
	profiles map[string]*wallet.LabelProfile
	history  map[string][]*wallet.LabelProfile // newest first
}

// NewLocalStore creates an empty local store.
func NewLocalStore() *LocalStore {
	return &LocalStore{
		profiles: make(map[string]*wallet.LabelProfile),
		history:  make(map[string][]*wallet.LabelProfile),
	}
}

// Get returns the current profile for address.
func (s *LocalStore) Get(_ context.Context, address string) (*wallet.LabelProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[address]
	if !ok {
		return nil, errors.ErrProfileNotFound
	}
	return profile, nil
}

// Update stores profile as current. The superseded profile becomes the
// newest history snapshot when saveHistory is true.
func (s *LocalStore) Update(_ context.Context, address string, profile *wallet.LabelProfile, saveHistory bool) (*wallet.LabelProfile, error) {
	if profile == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "profilesync", "localUpdate", "nil profile")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if saveHistory {
		if previous, ok := s.profiles[address]; ok {
			snapshots := append([]*wallet.LabelProfile{previous}, s.history[address]...)
			if len(snapshots) > maxLocalHistory {
				snapshots = snapshots[:maxLocalHistory]
			}
			s.history[address] = snapshots
		}
	}
	s.profiles[address] = profile
	return profile, nil
}

// History returns the current profile followed by prior snapshots, newest
// first, up to limit entries.
func (s *LocalStore) History(_ context.Context, address string, limit int) ([]*wallet.LabelProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	current, ok := s.profiles[address]
	if !ok {
		return nil, nil
	}

	snapshots := append([]*wallet.LabelProfile{current}, s.history[address]...)
	if limit > 0 && len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}
	return snapshots, nil
}
