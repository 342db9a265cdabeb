package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscheid92/chatledger/internal/domain"
)

const (
	selectSettingSQL = `
SELECT user_id, opt_out, last_toggle_at, overrides
FROM user_settings
WHERE user_id = $1`

	upsertSettingSQL = `
INSERT INTO user_settings (user_id, opt_out, last_toggle_at, overrides)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE SET
    opt_out        = EXCLUDED.opt_out,
    last_toggle_at = EXCLUDED.last_toggle_at,
    overrides      = EXCLUDED.overrides`
)

type SettingRepo struct {
	pool *pgxpool.Pool
}

func NewSettingRepo(pool *pgxpool.Pool) *SettingRepo {
	return &SettingRepo{pool: pool}
}

func (r *SettingRepo) GetSetting(ctx context.Context, userID string) (*domain.UserSetting, error) {
	setting, err := scanSetting(r.pool.QueryRow(ctx, selectSettingSQL, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSettingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return setting, nil
}

func (r *SettingRepo) UpdateSetting(ctx context.Context, userID string, mutate domain.SettingMutation) (*domain.UserSetting, error) {
	var next domain.UserSetting
	err := withKeyLock(ctx, r.pool, settingLock(userID), func(tx pgx.Tx) error {
		current, err := scanSetting(tx.QueryRow(ctx, selectSettingSQL, userID))
		if errors.Is(err, pgx.ErrNoRows) {
			current = nil
		} else if err != nil {
			return fmt.Errorf("failed to read setting: %w", err)
		}

		next, err = mutate(current)
		if err != nil {
			return err
		}
		next.UserID = userID

		overrides := next.Overrides
		if overrides == nil {
			overrides = map[string]bool{}
		}
		encoded, err := json.Marshal(overrides)
		if err != nil {
			return fmt.Errorf("failed to encode overrides: %w", err)
		}

		var lastToggle *time.Time
		if !next.LastToggleTime.IsZero() {
			lastToggle = &next.LastToggleTime
		}

		if _, err := tx.Exec(ctx, upsertSettingSQL, userID, next.OptOut, lastToggle, encoded); err != nil {
			return fmt.Errorf("failed to write setting: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func scanSetting(row pgx.Row) (*domain.UserSetting, error) {
	var setting domain.UserSetting
	var lastToggle *time.Time
	var overrides []byte
	if err := row.Scan(&setting.UserID, &setting.OptOut, &lastToggle, &overrides); err != nil {
		return nil, err
	}
	if lastToggle != nil {
		setting.LastToggleTime = *lastToggle
	}
	setting.Overrides = make(map[string]bool)
	if err := json.Unmarshal(overrides, &setting.Overrides); err != nil {
		return nil, fmt.Errorf("failed to decode overrides: %w", err)
	}
	return &setting, nil
}
