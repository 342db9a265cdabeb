package twitch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/nicklaw5/helix/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/chatledger/internal/domain"
)

type mockUsersAPI struct {
	getUsersFn     func(params *helix.UsersParams) (*helix.UsersResponse, error)
	tokenFn        func() (*helix.AppAccessTokenResponse, error)
	tokenRequests  int
	installedToken string
}

func (m *mockUsersAPI) GetUsers(params *helix.UsersParams) (*helix.UsersResponse, error) {
	return m.getUsersFn(params)
}

func (m *mockUsersAPI) RequestAppAccessToken(_ []string) (*helix.AppAccessTokenResponse, error) {
	m.tokenRequests++
	if m.tokenFn != nil {
		return m.tokenFn()
	}
	resp := &helix.AppAccessTokenResponse{}
	resp.StatusCode = http.StatusOK
	resp.Data.AccessToken = "app-token"
	return resp, nil
}

func (m *mockUsersAPI) SetAppAccessToken(token string) { m.installedToken = token }

func usersResponse(status int, users ...helix.User) *helix.UsersResponse {
	resp := &helix.UsersResponse{}
	resp.StatusCode = status
	resp.Data.Users = users
	return resp
}

func TestUserResolver_ReturnsDisplayName(t *testing.T) {
	api := &mockUsersAPI{getUsersFn: func(params *helix.UsersParams) (*helix.UsersResponse, error) {
		assert.Equal(t, []string{"123"}, params.IDs)
		return usersResponse(http.StatusOK, helix.User{ID: "123", Login: "alice", DisplayName: "Alice"}), nil
	}}
	r := newUserResolver(api)

	name, err := r.ResolveName(context.Background(), "group", "123")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
	assert.Equal(t, "app-token", api.installedToken)

	_, err = r.ResolveName(context.Background(), "group", "123")
	require.NoError(t, err)
	assert.Equal(t, 1, api.tokenRequests, "token is reused")
}

func TestUserResolver_FallsBackToLogin(t *testing.T) {
	api := &mockUsersAPI{getUsersFn: func(*helix.UsersParams) (*helix.UsersResponse, error) {
		return usersResponse(http.StatusOK, helix.User{ID: "123", Login: "alice"}), nil
	}}

	name, err := newUserResolver(api).ResolveName(context.Background(), "", "123")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)
}

func TestUserResolver_UnknownUser(t *testing.T) {
	calls := 0
	api := &mockUsersAPI{getUsersFn: func(*helix.UsersParams) (*helix.UsersResponse, error) {
		calls++
		return usersResponse(http.StatusOK), nil
	}}

	_, err := newUserResolver(api).ResolveName(context.Background(), "", "404")
	assert.ErrorIs(t, err, domain.ErrNameNotFound)
	assert.Equal(t, 1, calls, "not-found is not retried")
}

func TestUserResolver_RefreshesTokenOnUnauthorized(t *testing.T) {
	calls := 0
	api := &mockUsersAPI{getUsersFn: func(*helix.UsersParams) (*helix.UsersResponse, error) {
		calls++
		if calls == 1 {
			return usersResponse(http.StatusUnauthorized), nil
		}
		return usersResponse(http.StatusOK, helix.User{ID: "1", DisplayName: "Bob"}), nil
	}}

	name, err := newUserResolver(api).ResolveName(context.Background(), "", "1")
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)
	assert.Equal(t, 2, api.tokenRequests)
}

func TestUserResolver_TokenFailure(t *testing.T) {
	api := &mockUsersAPI{
		getUsersFn: func(*helix.UsersParams) (*helix.UsersResponse, error) {
			t.Fatal("GetUsers must not be called without a token")
			return nil, nil
		},
		tokenFn: func() (*helix.AppAccessTokenResponse, error) {
			return nil, errors.New("network down")
		},
	}
	r := newUserResolver(api)
	r.policy.InitialBackoff = 0

	_, err := r.ResolveName(context.Background(), "", "1")
	assert.ErrorContains(t, err, "network down")
	assert.Equal(t, 2, api.tokenRequests)
}

func TestUserResolver_CancelledContext(t *testing.T) {
	api := &mockUsersAPI{getUsersFn: func(*helix.UsersParams) (*helix.UsersResponse, error) {
		t.Fatal("must not call helix with a cancelled context")
		return nil, nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newUserResolver(api).ResolveName(ctx, "", "1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUserResolver_LookupsRunConcurrently(t *testing.T) {
	const callers = 4
	arrived := make(chan struct{}, callers)
	release := make(chan struct{})
	api := &mockUsersAPI{getUsersFn: func(params *helix.UsersParams) (*helix.UsersResponse, error) {
		arrived <- struct{}{}
		<-release
		return usersResponse(http.StatusOK, helix.User{ID: params.IDs[0], DisplayName: "N" + params.IDs[0]}), nil
	}}
	r := newUserResolver(api)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.ResolveName(context.Background(), "", string(rune('a'+i)))
			assert.NoError(t, err)
		}()
	}

	for range callers {
		select {
		case <-arrived:
		case <-time.After(2 * time.Second):
			close(release)
			t.Fatal("helix calls were serialized")
		}
	}
	close(release)
	wg.Wait()
	assert.Equal(t, 1, api.tokenRequests)
}
