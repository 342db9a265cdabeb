package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/chatledger/internal/adapter/metrics"
	"github.com/pscheid92/chatledger/internal/domain"
	"github.com/pscheid92/chatledger/internal/platform/retry"
)

const maxUpdateAttempts = 16

// conflictPolicy retries lost WATCH races immediately; anything else is
// returned to the caller.
func conflictPolicy(m *metrics.StoreMetrics) retry.Policy {
	return retry.Policy{
		MaxAttempts:    maxUpdateAttempts,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
		OnRetry: func(attempt int, err error, _ time.Duration) {
			if m != nil {
				m.Conflicts.WithLabelValues(backendLabel).Inc()
			}
			slog.Debug("Optimistic update conflict, retrying", "attempt", attempt, "error", err)
		},
	}
}

func classifyConflict(err error) retry.Action {
	if errors.Is(err, goredis.TxFailedErr) {
		return retry.Now
	}
	return retry.Stop
}

// unwrapPermanent hands mutation errors back unchanged so callers can match
// on them.
func unwrapPermanent(err error) error {
	if perm, ok := errors.AsType[*retry.PermanentError](err); ok {
		return perm.Err
	}
	return err
}

// RecordStore keeps each record as a JSON string plus set indexes of groups
// and of users per group.
type RecordStore struct {
	rdb    *goredis.Client
	policy retry.Policy
}

// NewRecordStore creates a store. m may be nil.
func NewRecordStore(rdb *goredis.Client, m *metrics.StoreMetrics) *RecordStore {
	return &RecordStore{rdb: rdb, policy: conflictPolicy(m)}
}

func (s *RecordStore) GetRecord(ctx context.Context, groupID, userID string) (*domain.InteractionRecord, error) {
	record, err := loadRecord(ctx, s.rdb, recordKey(groupID, userID))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrRecordNotFound
	}
	return record, nil
}

func (s *RecordStore) ListGroupRecords(ctx context.Context, groupID string) ([]domain.InteractionRecord, error) {
	users, err := s.rdb.SMembers(ctx, groupMembersKey(groupID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list group users: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	slices.Sort(users)

	keys := make([]string, len(users))
	for i, u := range users {
		keys[i] = recordKey(groupID, u)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load group records: %w", err)
	}

	records := make([]domain.InteractionRecord, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var record domain.InteractionRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("failed to decode record %s: %w", keys[i], err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *RecordStore) ListGroups(ctx context.Context) ([]string, error) {
	groups, err := s.rdb.SMembers(ctx, groupsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	slices.Sort(groups)
	return groups, nil
}

// UpdateRecord applies mutate under WATCH and retries when another writer
// changed the record in between.
func (s *RecordStore) UpdateRecord(ctx context.Context, groupID, userID string, mutate domain.RecordMutation) (*domain.InteractionRecord, error) {
	key := recordKey(groupID, userID)

	result, err := retry.Do(ctx, s.policy, classifyConflict, func(ctx context.Context) (*domain.InteractionRecord, error) {
		var written *domain.InteractionRecord
		err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			current, err := loadRecord(ctx, tx, key)
			if err != nil {
				return err
			}

			next, err := mutate(current)
			if err != nil {
				return err
			}
			next.GroupID, next.UserID = groupID, userID

			data, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				pipe.SAdd(ctx, groupMembersKey(groupID), userID)
				pipe.SAdd(ctx, groupsKey, groupID)
				return nil
			})
			if err != nil {
				return err
			}
			written = &next
			return nil
		}, key)
		return written, err
	})
	if err != nil {
		return nil, unwrapPermanent(err)
	}
	return result, nil
}

func (s *RecordStore) UpsertRecords(ctx context.Context, records []domain.InteractionRecord) error {
	if len(records) == 0 {
		return nil
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, record := range records {
			data, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}
			pipe.Set(ctx, recordKey(record.GroupID, record.UserID), data, 0)
			pipe.SAdd(ctx, groupMembersKey(record.GroupID), record.UserID)
			pipe.SAdd(ctx, groupsKey, record.GroupID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert records: %w", err)
	}
	return nil
}

func loadRecord(ctx context.Context, c goredis.Cmdable, key string) (*domain.InteractionRecord, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}

	var record domain.InteractionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &record, nil
}
