// Package permission decides whether an actor may interact with a target and
// manages the opt-out and per-peer override toggles behind that decision.
package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/chatledger/internal/domain"
	"github.com/pscheid92/chatledger/internal/platform/retry"
)

type Reason int

const (
	Allowed Reason = iota
	TargetBlacklisted
	ActorBlockedTarget
	TargetBlockedActor
	TargetOptedOut
	SelfInteractionDisabled
	SettingsUnavailable
)

func (r Reason) String() string {
	switch r {
	case Allowed:
		return "allowed"
	case TargetBlacklisted:
		return "target_blacklisted"
	case ActorBlockedTarget:
		return "actor_blocked_target"
	case TargetBlockedActor:
		return "target_blocked_actor"
	case TargetOptedOut:
		return "target_opted_out"
	case SelfInteractionDisabled:
		return "self_interaction_disabled"
	case SettingsUnavailable:
		return "settings_unavailable"
	default:
		return "unknown"
	}
}

type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision        { return Decision{Allowed: true, Reason: Allowed} }
func deny(r Reason) Decision { return Decision{Reason: r} }

type Options struct {
	Blacklist       []string
	AllowSelf       bool
	ToggleCooldown  time.Duration
	SettingsRetries int
}

type Resolver struct {
	settings  domain.SettingStore
	clock     clockwork.Clock
	blacklist map[string]struct{}
	allowSelf bool
	cooldown  time.Duration
	readRetry retry.Policy
}

func NewResolver(settings domain.SettingStore, clock clockwork.Clock, opts Options) *Resolver {
	blacklist := make(map[string]struct{}, len(opts.Blacklist))
	for _, id := range opts.Blacklist {
		blacklist[id] = struct{}{}
	}
	attempts := opts.SettingsRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	return &Resolver{
		settings:  settings,
		clock:     clock,
		blacklist: blacklist,
		allowSelf: opts.AllowSelf,
		cooldown:  opts.ToggleCooldown,
		readRetry: retry.Policy{MaxAttempts: attempts, Clock: clock},
	}
}

// Check applies the rules in order and stops at the first denial:
// blacklist, the actor's own override, the target's override, the target's
// opt-out (lifted by an explicit allow override), then self-interaction.
// actorSetting may be nil.
func (r *Resolver) Check(ctx context.Context, actorID, targetID string, actorSetting *domain.UserSetting) Decision {
	if _, ok := r.blacklist[targetID]; ok {
		return deny(TargetBlacklisted)
	}

	if allowed, ok := actorSetting.Override(targetID); ok && !allowed {
		return deny(ActorBlockedTarget)
	}

	targetSetting, err := r.loadSetting(ctx, targetID)
	if err != nil {
		slog.WarnContext(ctx, "Target settings unavailable, denying interaction",
			"actor", actorID, "target", targetID, "error", err)
		return deny(SettingsUnavailable)
	}

	targetAllows, hasOverride := targetSetting.Override(actorID)
	if hasOverride && !targetAllows {
		return deny(TargetBlockedActor)
	}
	if targetSetting.IsOptedOut() && !(hasOverride && targetAllows) {
		return deny(TargetOptedOut)
	}

	if actorID == targetID && !r.allowSelf {
		return deny(SelfInteractionDisabled)
	}

	return allow()
}

// Setting returns the stored setting for userID, or nil when there is none.
func (r *Resolver) Setting(ctx context.Context, userID string) (*domain.UserSetting, error) {
	return r.loadSetting(ctx, userID)
}

func (r *Resolver) loadSetting(ctx context.Context, userID string) (*domain.UserSetting, error) {
	setting, err := retry.Do(ctx, r.readRetry, classifyRead, func(ctx context.Context) (*domain.UserSetting, error) {
		s, err := r.settings.GetSetting(ctx, userID)
		if errors.Is(err, domain.ErrSettingNotFound) {
			return nil, nil
		}
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load setting for %s: %w", userID, err)
	}
	return setting, nil
}

func classifyRead(err error) retry.Action {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}
	return retry.Now
}
