package httpserver

import (
	"math"
	"time"

	"github.com/pscheid92/chatledger/internal/app"
)

type interactionRequest struct {
	ActorID    string `json:"actor_id"`
	ActorName  string `json:"actor_name"`
	TargetID   string `json:"target_id"`
	TargetName string `json:"target_name"`
}

type interactionResponse struct {
	Status           string  `json:"status"`
	Reason           string  `json:"reason,omitempty"`
	Message          string  `json:"message"`
	Notice           string  `json:"notice,omitempty"`
	RemainingSeconds int64   `json:"remaining_seconds,omitempty"`
	TargetID         string  `json:"target_id,omitempty"`
	TargetName       string  `json:"target_name,omitempty"`
	Minutes          float64 `json:"minutes,omitempty"`
	Magnitude        float64 `json:"magnitude,omitempty"`
	Critical         bool    `json:"critical"`
	Count            int     `json:"count,omitempty"`
	FirstTime        bool    `json:"first_time"`
	PostHocBan       bool    `json:"post_hoc_ban"`
}

func newInteractionResponse(o *app.InteractionOutcome) interactionResponse {
	return interactionResponse{
		Status:           string(o.Status),
		Reason:           o.Reason,
		Message:          o.Message,
		Notice:           o.Notice,
		RemainingSeconds: ceilSeconds(o.Remaining),
		TargetID:         o.TargetID,
		TargetName:       o.TargetName,
		Minutes:          o.Minutes,
		Magnitude:        o.Magnitude,
		Critical:         o.Critical,
		Count:            o.Count,
		FirstTime:        o.FirstTime,
		PostHocBan:       o.PostHocBan,
	}
}

type rankingEntry struct {
	Rank         int     `json:"rank"`
	UserID       string  `json:"user_id"`
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	ProducerID   string  `json:"producer_id,omitempty"`
	ProducerName string  `json:"producer_name,omitempty"`
}

type rankingResponse struct {
	GroupID string         `json:"group_id"`
	Kind    string         `json:"kind"`
	Entries []rankingEntry `json:"entries"`
}

func newRankingResponse(v *app.RankingView) rankingResponse {
	entries := make([]rankingEntry, len(v.Entries))
	for i, e := range v.Entries {
		entries[i] = rankingEntry(e)
	}
	return rankingResponse{GroupID: v.GroupID, Kind: string(v.Kind), Entries: entries}
}

type profileResponse struct {
	UserID         string  `json:"user_id"`
	Name           string  `json:"name"`
	FirstActorID   string  `json:"first_actor_id,omitempty"`
	FirstActorName string  `json:"first_actor_name,omitempty"`
	Received       int     `json:"received"`
	Given          int     `json:"given"`
	Volume         float64 `json:"volume"`
	Peak           float64 `json:"peak"`
}

func newProfileResponse(v *app.ProfileView) profileResponse {
	return profileResponse{
		UserID:         v.UserID,
		Name:           v.Name,
		FirstActorID:   v.FirstActor,
		FirstActorName: v.FirstActorName,
		Received:       v.Received,
		Given:          v.Given,
		Volume:         v.Volume,
		Peak:           v.Peak,
	}
}

type optOutRequest struct {
	OptOut *bool `json:"opt_out"`
}

type overrideRequest struct {
	Allowed *bool `json:"allowed"`
}

type memberRequest struct {
	DisplayName string `json:"display_name"`
}

type toggleResponse struct {
	Status           string          `json:"status"`
	Message          string          `json:"message"`
	RemainingSeconds int64           `json:"remaining_seconds,omitempty"`
	OptOut           bool            `json:"opt_out"`
	Overrides        map[string]bool `json:"overrides,omitempty"`
}

func newToggleResponse(o *app.ToggleOutcome) toggleResponse {
	status := "applied"
	if !o.Applied {
		status = "throttled"
	}
	return toggleResponse{
		Status:           status,
		Message:          o.Message,
		RemainingSeconds: ceilSeconds(o.Remaining),
		OptOut:           o.OptOut,
		Overrides:        o.Overrides,
	}
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
