// Package memory provides single-process stores for records and settings.
//
// Reads and writes copy values so callers never share mutable state with the
// store. Updates take a per-key lock, so read-modify-write cycles on one key
// are linearized while different keys proceed in parallel.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/pscheid92/chatledger/internal/domain"
)

type recordKey struct {
	groupID string
	userID  string
}

// keyedLocks hands out one mutex per key.
type keyedLocks[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*sync.Mutex
}

func (k *keyedLocks[K]) lock(key K) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[K]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

type RecordStore struct {
	locks keyedLocks[recordKey]

	mu      sync.RWMutex
	records map[recordKey]domain.InteractionRecord
}

func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[recordKey]domain.InteractionRecord)}
}

func (s *RecordStore) GetRecord(_ context.Context, groupID, userID string) (*domain.InteractionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordKey{groupID, userID}]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	clone := r.Clone()
	return &clone, nil
}

// ListGroupRecords returns the group's records ordered by user ID.
func (s *RecordStore) ListGroupRecords(_ context.Context, groupID string) ([]domain.InteractionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.InteractionRecord
	for k, r := range s.records {
		if k.groupID == groupID {
			out = append(out, r.Clone())
		}
	}
	slices.SortFunc(out, func(a, b domain.InteractionRecord) int {
		if a.UserID < b.UserID {
			return -1
		}
		if a.UserID > b.UserID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *RecordStore) ListGroups(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make(map[string]struct{})
	for k := range s.records {
		groups[k.groupID] = struct{}{}
	}
	return slices.Sorted(maps.Keys(groups)), nil
}

func (s *RecordStore) UpdateRecord(_ context.Context, groupID, userID string, mutate domain.RecordMutation) (*domain.InteractionRecord, error) {
	k := recordKey{groupID, userID}
	unlock := s.locks.lock(k)
	defer unlock()

	s.mu.RLock()
	existing, ok := s.records[k]
	s.mu.RUnlock()

	var current *domain.InteractionRecord
	if ok {
		clone := existing.Clone()
		current = &clone
	}

	next, err := mutate(current)
	if err != nil {
		return nil, err
	}
	next.GroupID, next.UserID = groupID, userID

	s.mu.Lock()
	s.records[k] = next.Clone()
	s.mu.Unlock()

	return &next, nil
}

func (s *RecordStore) UpsertRecords(_ context.Context, records []domain.InteractionRecord) error {
	for _, r := range records {
		k := recordKey{r.GroupID, r.UserID}
		unlock := s.locks.lock(k)
		s.mu.Lock()
		s.records[k] = r.Clone()
		s.mu.Unlock()
		unlock()
	}
	return nil
}

type SettingStore struct {
	locks keyedLocks[string]

	mu       sync.RWMutex
	settings map[string]domain.UserSetting
}

func NewSettingStore() *SettingStore {
	return &SettingStore{settings: make(map[string]domain.UserSetting)}
}

func (s *SettingStore) GetSetting(_ context.Context, userID string) (*domain.UserSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setting, ok := s.settings[userID]
	if !ok {
		return nil, domain.ErrSettingNotFound
	}
	clone := setting.Clone()
	return &clone, nil
}

func (s *SettingStore) UpdateSetting(_ context.Context, userID string, mutate domain.SettingMutation) (*domain.UserSetting, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	s.mu.RLock()
	existing, ok := s.settings[userID]
	s.mu.RUnlock()

	var current *domain.UserSetting
	if ok {
		clone := existing.Clone()
		current = &clone
	}

	next, err := mutate(current)
	if err != nil {
		return nil, err
	}
	next.UserID = userID

	s.mu.Lock()
	s.settings[userID] = next.Clone()
	s.mu.Unlock()

	return &next, nil
}
