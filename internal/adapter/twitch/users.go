// Package twitch resolves display names through the Twitch Helix API.
package twitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nicklaw5/helix/v2"

	"github.com/pscheid92/chatledger/internal/domain"
	"github.com/pscheid92/chatledger/internal/platform/retry"
)

// usersAPI is the part of *helix.Client the resolver needs.
type usersAPI interface {
	GetUsers(params *helix.UsersParams) (*helix.UsersResponse, error)
	RequestAppAccessToken(scopes []string) (*helix.AppAccessTokenResponse, error)
	SetAppAccessToken(accessToken string)
}

var errUnauthorized = errors.New("helix: unauthorized")

// UserResolver maps Twitch user IDs to display names with an app access
// token. Names are global on Twitch, so the scope is ignored.
type UserResolver struct {
	mu       sync.Mutex
	api      usersAPI
	hasToken bool
	policy   retry.Policy
}

func NewUserResolver(clientID, clientSecret string) (*UserResolver, error) {
	client, err := helix.NewClient(&helix.Options{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}
	return newUserResolver(client), nil
}

func newUserResolver(api usersAPI) *UserResolver {
	return &UserResolver{
		api: api,
		policy: retry.Policy{
			MaxAttempts:    2,
			InitialBackoff: 200 * time.Millisecond,
		},
	}
}

func (r *UserResolver) ResolveName(ctx context.Context, _ string, userID string) (string, error) {
	name, err := retry.Do(ctx, r.policy, classify, func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return r.lookup(userID)
	})
	if perm, ok := errors.AsType[*retry.PermanentError](err); ok {
		return "", perm.Err
	}
	return name, err
}

func classify(err error) retry.Action {
	switch {
	case errors.Is(err, domain.ErrNameNotFound), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return retry.Stop
	case errors.Is(err, errUnauthorized):
		return retry.Now
	default:
		return retry.Retry
	}
}

// lookup holds r.mu only while it checks or refreshes the token, so lookups
// for different users run concurrently.
func (r *UserResolver) lookup(userID string) (string, error) {
	if err := r.ensureToken(); err != nil {
		return "", err
	}

	resp, err := r.api.GetUsers(&helix.UsersParams{IDs: []string{userID}})
	if err != nil {
		return "", fmt.Errorf("failed to get users: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		r.invalidateToken()
		return "", errUnauthorized
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("unexpected status code: %d, error: %s, message: %s", resp.StatusCode, resp.Error, resp.ErrorMessage)
	}

	for _, u := range resp.Data.Users {
		if u.ID != userID {
			continue
		}
		if u.DisplayName != "" {
			return u.DisplayName, nil
		}
		if u.Login != "" {
			return u.Login, nil
		}
	}
	return "", domain.ErrNameNotFound
}

func (r *UserResolver) ensureToken() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasToken {
		return nil
	}
	return r.refreshToken()
}

func (r *UserResolver) invalidateToken() {
	r.mu.Lock()
	r.hasToken = false
	r.mu.Unlock()
}

// refreshToken requires r.mu.
func (r *UserResolver) refreshToken() error {
	resp, err := r.api.RequestAppAccessToken(nil)
	if err != nil {
		return fmt.Errorf("failed to request app access token: %w", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Data.AccessToken == "" {
		return fmt.Errorf("app access token rejected: status %d, message: %s", resp.StatusCode, resp.ErrorMessage)
	}

	r.api.SetAppAccessToken(resp.Data.AccessToken)
	r.hasToken = true
	slog.Debug("Refreshed Helix app access token")
	return nil
}
