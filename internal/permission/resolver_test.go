package permission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/chatledger/internal/domain"
)

type fakeSettings struct {
	mu       sync.Mutex
	settings map[string]domain.UserSetting
	getErrs  []error
	gets     int
}

func newFakeSettings(settings ...domain.UserSetting) *fakeSettings {
	f := &fakeSettings{settings: make(map[string]domain.UserSetting)}
	for _, s := range settings {
		f.settings[s.UserID] = s
	}
	return f
}

func (f *fakeSettings) GetSetting(_ context.Context, userID string) (*domain.UserSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if len(f.getErrs) > 0 {
		err := f.getErrs[0]
		f.getErrs = f.getErrs[1:]
		return nil, err
	}
	s, ok := f.settings[userID]
	if !ok {
		return nil, domain.ErrSettingNotFound
	}
	clone := s.Clone()
	return &clone, nil
}

func (f *fakeSettings) UpdateSetting(_ context.Context, userID string, mutate domain.SettingMutation) (*domain.UserSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var current *domain.UserSetting
	if s, ok := f.settings[userID]; ok {
		clone := s.Clone()
		current = &clone
	}
	next, err := mutate(current)
	if err != nil {
		return nil, err
	}
	f.settings[userID] = next.Clone()
	return &next, nil
}

func newTestResolver(store *fakeSettings, opts Options) (*Resolver, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewResolver(store, clock, opts), clock
}

func TestCheck_Allowed(t *testing.T) {
	r, _ := newTestResolver(newFakeSettings(), Options{})
	d := r.Check(context.Background(), "a", "b", nil)
	assert.True(t, d.Allowed)
	assert.Equal(t, Allowed, d.Reason)
}

func TestCheck_Rules(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		actor    *domain.UserSetting
		target   *domain.UserSetting
		actorID  string
		targetID string
		want     Reason
	}{
		{
			name:     "blacklisted target",
			opts:     Options{Blacklist: []string{"b"}},
			actorID:  "a",
			targetID: "b",
			want:     TargetBlacklisted,
		},
		{
			name:     "blacklist wins over allow override",
			opts:     Options{Blacklist: []string{"b"}},
			target:   &domain.UserSetting{UserID: "b", Overrides: map[string]bool{"a": true}},
			actorID:  "a",
			targetID: "b",
			want:     TargetBlacklisted,
		},
		{
			name:     "actor blocked target",
			actor:    &domain.UserSetting{UserID: "a", Overrides: map[string]bool{"b": false}},
			actorID:  "a",
			targetID: "b",
			want:     ActorBlockedTarget,
		},
		{
			name:     "target blocked actor",
			target:   &domain.UserSetting{UserID: "b", Overrides: map[string]bool{"a": false}},
			actorID:  "a",
			targetID: "b",
			want:     TargetBlockedActor,
		},
		{
			name:     "target opted out",
			target:   &domain.UserSetting{UserID: "b", OptOut: true},
			actorID:  "a",
			targetID: "b",
			want:     TargetOptedOut,
		},
		{
			name:     "allow override lifts opt-out",
			target:   &domain.UserSetting{UserID: "b", OptOut: true, Overrides: map[string]bool{"a": true}},
			actorID:  "a",
			targetID: "b",
			want:     Allowed,
		},
		{
			name:     "self interaction disabled",
			actorID:  "a",
			targetID: "a",
			want:     SelfInteractionDisabled,
		},
		{
			name:     "self interaction enabled",
			opts:     Options{AllowSelf: true},
			actorID:  "a",
			targetID: "a",
			want:     Allowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeSettings()
			if tt.target != nil {
				store.settings[tt.target.UserID] = *tt.target
			}
			r, _ := newTestResolver(store, tt.opts)

			d := r.Check(context.Background(), tt.actorID, tt.targetID, tt.actor)
			assert.Equal(t, tt.want, d.Reason)
			assert.Equal(t, tt.want == Allowed, d.Allowed)
		})
	}
}

func TestCheck_TransientReadIsRetried(t *testing.T) {
	store := newFakeSettings(domain.UserSetting{UserID: "b", OptOut: true})
	store.getErrs = []error{errors.New("connection reset")}
	r, _ := newTestResolver(store, Options{SettingsRetries: 1})

	d := r.Check(context.Background(), "a", "b", nil)
	assert.Equal(t, TargetOptedOut, d.Reason)
	assert.Equal(t, 2, store.gets)
}

func TestCheck_PersistentReadFailureFailsClosed(t *testing.T) {
	store := newFakeSettings()
	store.getErrs = []error{errors.New("down"), errors.New("down")}
	r, _ := newTestResolver(store, Options{SettingsRetries: 1})

	d := r.Check(context.Background(), "a", "b", nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, SettingsUnavailable, d.Reason)
}

func TestSetOptOut_Cooldown(t *testing.T) {
	store := newFakeSettings()
	r, clock := newTestResolver(store, Options{ToggleCooldown: 1800 * time.Second})
	ctx := context.Background()

	res, err := r.SetOptOut(ctx, "u", true)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.True(t, res.Setting.OptOut)
	assert.Equal(t, clock.Now(), res.Setting.LastToggleTime)

	clock.Advance(100 * time.Second)
	res, err = r.SetOptOut(ctx, "u", false)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, 1700*time.Second, res.Remaining)
	assert.True(t, store.settings["u"].OptOut, "throttled toggle must not write")

	clock.Advance(1700 * time.Second)
	res, err = r.SetOptOut(ctx, "u", false)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, store.settings["u"].OptOut)
}

func TestSetOverride_SharesCooldownWithOptOut(t *testing.T) {
	store := newFakeSettings()
	r, clock := newTestResolver(store, Options{ToggleCooldown: time.Minute})
	ctx := context.Background()

	res, err := r.SetOverride(ctx, "owner", "peer", false)
	require.NoError(t, err)
	require.True(t, res.Applied)
	assert.Equal(t, map[string]bool{"peer": false}, store.settings["owner"].Overrides)

	clock.Advance(30 * time.Second)
	res, err = r.SetOptOut(ctx, "owner", true)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, 30*time.Second, res.Remaining)
}

func TestSetOverride_PreservesOtherOverrides(t *testing.T) {
	store := newFakeSettings(domain.UserSetting{UserID: "owner", Overrides: map[string]bool{"x": true}})
	r, _ := newTestResolver(store, Options{})

	_, err := r.SetOverride(context.Background(), "owner", "y", false)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"x": true, "y": false}, store.settings["owner"].Overrides)
}

func TestSetOverride_AffectsCheck(t *testing.T) {
	store := newFakeSettings()
	r, _ := newTestResolver(store, Options{})
	ctx := context.Background()

	_, err := r.SetOverride(ctx, "target", "actor", false)
	require.NoError(t, err)
	assert.Equal(t, TargetBlockedActor, r.Check(ctx, "actor", "target", nil).Reason)
	assert.True(t, r.Check(ctx, "someone-else", "target", nil).Allowed)
}

func TestReason_String(t *testing.T) {
	assert.Equal(t, "target_opted_out", TargetOptedOut.String())
	assert.Equal(t, "unknown", Reason(99).String())
}
