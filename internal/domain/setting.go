package domain

import (
	"context"
	"maps"
	"time"
)

// UserSetting holds a user's global privacy preferences.
type UserSetting struct {
	UserID         string          `json:"user_id"`
	OptOut         bool            `json:"opt_out"`
	LastToggleTime time.Time       `json:"last_toggle_time"`
	Overrides      map[string]bool `json:"overrides"`
}

// SettingMutation computes the next setting from the current one, which is
// nil for users without a stored setting. Returning an error aborts the write.
type SettingMutation func(current *UserSetting) (UserSetting, error)

type SettingStore interface {
	GetSetting(ctx context.Context, userID string) (*UserSetting, error)
	UpdateSetting(ctx context.Context, userID string, mutate SettingMutation) (*UserSetting, error)
}

// Override reports the explicit choice the owner made about other, if any.
// Safe on a nil receiver.
func (s *UserSetting) Override(other string) (allowed, ok bool) {
	if s == nil {
		return false, false
	}
	allowed, ok = s.Overrides[other]
	return allowed, ok
}

// IsOptedOut is safe on a nil receiver.
func (s *UserSetting) IsOptedOut() bool {
	return s != nil && s.OptOut
}

func (s UserSetting) Clone() UserSetting {
	out := s
	out.Overrides = make(map[string]bool, len(s.Overrides))
	maps.Copy(out.Overrides, s.Overrides)
	return out
}
