package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/pscheid92/chatledger/internal/domain"
	"github.com/pscheid92/chatledger/internal/nickname"
	"github.com/pscheid92/chatledger/internal/permission"
	apperrors "github.com/pscheid92/chatledger/internal/platform/errors"
	"github.com/pscheid92/chatledger/internal/ratelimit"
)

type Status string

const (
	StatusAccepted      Status = "accepted"
	StatusActorOptedOut Status = "actor_opted_out"
	StatusBanned        Status = "banned"
	StatusThrottled     Status = "throttled"
	StatusDenied        Status = "denied"
)

// InteractionRequest is one attempt by ActorID in GroupID. An empty TargetID
// targets the actor. Names are optional hints reported by the caller.
type InteractionRequest struct {
	GroupID    string
	ActorID    string
	ActorName  string
	TargetID   string
	TargetName string
}

// InteractionOutcome describes what happened. Rejections are outcomes, not
// errors: Status says which gate stopped the attempt and Message explains it.
type InteractionOutcome struct {
	Status     Status
	Reason     string
	Message    string
	Notice     string
	Remaining  time.Duration
	TargetID   string
	TargetName string
	Minutes    float64
	Magnitude  float64
	Critical   bool
	Count      int
	FirstTime  bool
	PostHocBan bool
}

// Roll is the random part of an interaction.
type Roll struct {
	Minutes   float64
	Magnitude float64
	Critical  bool
}

// RollInteraction draws a duration in [1, 60) minutes and a magnitude in
// [1, 100), both rounded to two decimals. A critical roll doubles the magnitude.
func RollInteraction(r domain.Random, critProbability float64) Roll {
	roll := Roll{
		Minutes:   domain.RoundVolume(r.Float64()*59 + 1),
		Magnitude: domain.RoundVolume(r.Float64()*99 + 1),
	}
	if r.Float64() < critProbability {
		roll.Critical = true
		roll.Magnitude = domain.RoundVolume(roll.Magnitude * 2)
	}
	return roll
}

// Interact runs one interaction through the pipeline: actor opt-out, rate
// limiter, permission resolver, roll, aggregation, post-hoc ban. Settings that
// cannot be read deny the attempt for the actor and the target alike. Only a
// failed write is returned as an error; a post-hoc ban never undoes the write.
func (s *Service) Interact(ctx context.Context, req InteractionRequest) (*InteractionOutcome, error) {
	req.GroupID = strings.TrimSpace(req.GroupID)
	req.ActorID = strings.TrimSpace(req.ActorID)
	req.TargetID = strings.TrimSpace(req.TargetID)
	if req.GroupID == "" {
		return nil, apperrors.ValidationError("group id is required")
	}
	if req.ActorID == "" {
		return nil, apperrors.ValidationError("actor id is required")
	}
	if req.TargetID == "" {
		req.TargetID = req.ActorID
		req.TargetName = req.ActorName
	}

	ctx = nickname.WithHint(ctx, req.ActorID, req.ActorName)
	ctx = nickname.WithHint(ctx, req.TargetID, req.TargetName)

	outcome, err := s.interact(ctx, req)
	if err != nil {
		s.observer.ObserveOutcome("error")
		return nil, err
	}
	s.observer.ObserveOutcome(string(outcome.Status))
	return outcome, nil
}

func (s *Service) interact(ctx context.Context, req InteractionRequest) (*InteractionOutcome, error) {
	actorSetting, err := s.permissions.Setting(ctx, req.ActorID)
	if err != nil {
		slog.WarnContext(ctx, "Actor settings unavailable, denying interaction",
			"group", req.GroupID, "actor", req.ActorID, "error", err)
		return &InteractionOutcome{
			Status:   StatusDenied,
			Reason:   permission.SettingsUnavailable.String(),
			TargetID: req.TargetID,
			Message:  denialMessage(permission.SettingsUnavailable, ""),
		}, nil
	}
	if actorSetting.IsOptedOut() {
		return &InteractionOutcome{
			Status:   StatusActorOptedOut,
			TargetID: req.TargetID,
			Message:  "You have opted out of interactions. Opt back in to interact with others.",
		}, nil
	}

	policy := s.policies.For(req.ActorID)
	switch d := s.limiter.TryAttempt(req.ActorID, policy); d.Verdict {
	case ratelimit.Banned:
		return &InteractionOutcome{
			Status:    StatusBanned,
			TargetID:  req.TargetID,
			Remaining: d.Remaining,
			Message:   fmt.Sprintf("You are banned from interacting for another %ds.", seconds(d.Remaining)),
		}, nil
	case ratelimit.Throttled:
		return &InteractionOutcome{
			Status:    StatusThrottled,
			TargetID:  req.TargetID,
			Remaining: d.Remaining,
			Message:   fmt.Sprintf("Too many interactions. You are banned for %ds.", seconds(d.Remaining)),
		}, nil
	}

	targetName := s.names.Resolve(ctx, req.GroupID, req.TargetID)

	decision := s.permissions.Check(ctx, req.ActorID, req.TargetID, actorSetting)
	if !decision.Allowed {
		return &InteractionOutcome{
			Status:     StatusDenied,
			Reason:     decision.Reason.String(),
			TargetID:   req.TargetID,
			TargetName: targetName,
			Message:    denialMessage(decision.Reason, targetName),
		}, nil
	}

	roll := RollInteraction(s.random, policy.CritProbability)
	s.observer.ObserveRoll(roll.Magnitude, roll.Critical)

	record, err := s.aggregator.Record(ctx, req.GroupID, req.TargetID, req.ActorID, roll.Magnitude)
	if err != nil {
		return nil, apperrors.InternalError("failed to record interaction", err).
			WithField("group", req.GroupID).
			WithField("target", req.TargetID)
	}

	outcome := &InteractionOutcome{
		Status:     StatusAccepted,
		TargetID:   req.TargetID,
		TargetName: targetName,
		Minutes:    roll.Minutes,
		Magnitude:  roll.Magnitude,
		Critical:   roll.Critical,
		Count:      record.Count,
		FirstTime:  record.Count == 1,
	}
	outcome.Message = successMessage(outcome)

	slog.InfoContext(ctx, "Interaction recorded",
		"group", req.GroupID, "actor", req.ActorID, "target", req.TargetID,
		"magnitude", roll.Magnitude, "critical", roll.Critical, "count", record.Count)

	if s.limiter.RollPostHocBan(req.ActorID, policy) {
		s.observer.ObservePostHocBan()
		outcome.PostHocBan = true
		outcome.Remaining = policy.BanDuration
		outcome.Notice = fmt.Sprintf("That one backfired. You are banned from interacting for %ds.", seconds(policy.BanDuration))
	}

	return outcome, nil
}

func successMessage(o *InteractionOutcome) string {
	var b strings.Builder
	if o.Critical {
		b.WriteString("Critical! ")
	}
	fmt.Fprintf(&b, "Interaction with %s lasted %.2f min at volume %.2f.", o.TargetName, o.Minutes, o.Magnitude)
	if o.FirstTime {
		fmt.Fprintf(&b, " This is the first interaction %s has received.", o.TargetName)
	} else {
		fmt.Fprintf(&b, " %s has now received %d interactions.", o.TargetName, o.Count)
	}
	return b.String()
}

func denialMessage(reason permission.Reason, targetName string) string {
	switch reason {
	case permission.TargetBlacklisted:
		return fmt.Sprintf("%s cannot receive interactions.", targetName)
	case permission.ActorBlockedTarget:
		return fmt.Sprintf("You have blocked interactions with %s.", targetName)
	case permission.TargetBlockedActor:
		return fmt.Sprintf("%s does not accept interactions from you.", targetName)
	case permission.TargetOptedOut:
		return fmt.Sprintf("%s has opted out of interactions.", targetName)
	case permission.SelfInteractionDisabled:
		return "You cannot interact with yourself."
	case permission.SettingsUnavailable:
		return "Privacy settings could not be checked. Try again later."
	default:
		return "This interaction is not allowed."
	}
}

// seconds rounds up so a remaining 0.2s never reads as 0s.
func seconds(d time.Duration) int64 {
	return int64(math.Ceil(d.Seconds()))
}
