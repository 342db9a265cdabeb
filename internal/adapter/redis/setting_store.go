package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/chatledger/internal/adapter/metrics"
	"github.com/pscheid92/chatledger/internal/domain"
	"github.com/pscheid92/chatledger/internal/platform/retry"
)

type SettingStore struct {
	rdb    *goredis.Client
	policy retry.Policy
}

// NewSettingStore creates a store. m may be nil.
func NewSettingStore(rdb *goredis.Client, m *metrics.StoreMetrics) *SettingStore {
	return &SettingStore{rdb: rdb, policy: conflictPolicy(m)}
}

func (s *SettingStore) GetSetting(ctx context.Context, userID string) (*domain.UserSetting, error) {
	setting, err := loadSetting(ctx, s.rdb, settingKey(userID))
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, domain.ErrSettingNotFound
	}
	return setting, nil
}

func (s *SettingStore) UpdateSetting(ctx context.Context, userID string, mutate domain.SettingMutation) (*domain.UserSetting, error) {
	key := settingKey(userID)

	result, err := retry.Do(ctx, s.policy, classifyConflict, func(ctx context.Context) (*domain.UserSetting, error) {
		var written *domain.UserSetting
		err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			current, err := loadSetting(ctx, tx, key)
			if err != nil {
				return err
			}

			next, err := mutate(current)
			if err != nil {
				return err
			}
			next.UserID = userID

			data, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("failed to encode setting: %w", err)
			}

			if _, err := tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			}); err != nil {
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

func loadSetting(ctx context.Context, c goredis.Cmdable, key string) (*domain.UserSetting, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load setting: %w", err)
	}

	var setting domain.UserSetting
	if err := json.Unmarshal(raw, &setting); err != nil {
		return nil, fmt.Errorf("failed to decode setting: %w", err)
	}
	return &setting, nil
}
