package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/pscheid92/chatledger/internal/platform/errors"
)

type ToggleOutcome struct {
	Applied   bool
	Remaining time.Duration
	Message   string
	OptOut    bool
	Overrides map[string]bool
}

// SetOptOut switches a user's global opt-out.
func (s *Service) SetOptOut(ctx context.Context, userID string, optOut bool) (*ToggleOutcome, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ValidationError("user id is required")
	}

	res, err := s.permissions.SetOptOut(ctx, userID, optOut)
	if err != nil {
		return nil, err
	}

	out := &ToggleOutcome{Applied: res.Applied, Remaining: res.Remaining, OptOut: res.Setting.OptOut, Overrides: res.Setting.Overrides}
	switch {
	case !res.Applied:
		out.Message = cooldownMessage(res.Remaining)
	case optOut:
		out.Message = "You have opted out. Nobody can interact with you unless you allow them explicitly."
	default:
		out.Message = "You have opted back in to interactions."
	}
	return out, nil
}

// SetOverride records the owner's explicit allow or deny for another user.
func (s *Service) SetOverride(ctx context.Context, ownerID, otherID string, allowed bool) (*ToggleOutcome, error) {
	ownerID, otherID = strings.TrimSpace(ownerID), strings.TrimSpace(otherID)
	if ownerID == "" || otherID == "" {
		return nil, apperrors.ValidationError("owner id and other user id are required")
	}
	if ownerID == otherID {
		return nil, apperrors.ValidationError("cannot set an override for yourself")
	}

	res, err := s.permissions.SetOverride(ctx, ownerID, otherID, allowed)
	if err != nil {
		return nil, err
	}

	out := &ToggleOutcome{Applied: res.Applied, Remaining: res.Remaining, OptOut: res.Setting.OptOut, Overrides: res.Setting.Overrides}
	otherName := s.names.Resolve(ctx, "", otherID)
	switch {
	case !res.Applied:
		out.Message = cooldownMessage(res.Remaining)
	case allowed:
		out.Message = fmt.Sprintf("%s may interact with you.", otherName)
	default:
		out.Message = fmt.Sprintf("%s can no longer interact with you.", otherName)
	}
	return out, nil
}

func cooldownMessage(remaining time.Duration) string {
	return fmt.Sprintf("Settings were changed recently. Try again in %ds.", seconds(remaining))
}
