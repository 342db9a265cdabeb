package permission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pscheid92/chatledger/internal/domain"
)

// ToggleResult reports whether a toggle was applied. When throttled,
// Remaining is the cooldown left and Setting is the unchanged setting.
type ToggleResult struct {
	Applied   bool
	Remaining time.Duration
	Setting   domain.UserSetting
}

type throttledError struct {
	remaining time.Duration
	current   domain.UserSetting
}

func (e *throttledError) Error() string {
	return fmt.Sprintf("toggle cooldown active for another %s", e.remaining)
}

// SetOptOut changes the user's opt-out flag. Opt-out and override changes
// share one cooldown per user.
func (r *Resolver) SetOptOut(ctx context.Context, userID string, optOut bool) (ToggleResult, error) {
	return r.toggle(ctx, userID, func(s *domain.UserSetting) {
		s.OptOut = optOut
	})
}

// SetOverride records owner's explicit allow or deny for other.
func (r *Resolver) SetOverride(ctx context.Context, ownerID, otherID string, allowed bool) (ToggleResult, error) {
	return r.toggle(ctx, ownerID, func(s *domain.UserSetting) {
		s.Overrides[otherID] = allowed
	})
}

func (r *Resolver) toggle(ctx context.Context, userID string, apply func(*domain.UserSetting)) (ToggleResult, error) {
	now := r.clock.Now()

	updated, err := r.settings.UpdateSetting(ctx, userID, func(current *domain.UserSetting) (domain.UserSetting, error) {
		next := domain.UserSetting{UserID: userID}
		if current != nil {
			next = current.Clone()
		}
		if next.Overrides == nil {
			next.Overrides = make(map[string]bool)
		}

		if !next.LastToggleTime.IsZero() {
			if elapsed := now.Sub(next.LastToggleTime); elapsed < r.cooldown {
				return domain.UserSetting{}, &throttledError{remaining: r.cooldown - elapsed, current: next}
			}
		}

		apply(&next)
		next.LastToggleTime = now
		return next, nil
	})

	var throttled *throttledError
	if errors.As(err, &throttled) {
		return ToggleResult{Remaining: throttled.remaining, Setting: throttled.current}, nil
	}
	if err != nil {
		return ToggleResult{}, fmt.Errorf("failed to update setting for %s: %w", userID, err)
	}
	return ToggleResult{Applied: true, Setting: *updated}, nil
}
