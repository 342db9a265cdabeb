package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pscheid92/chatledger/internal/app"
	"github.com/pscheid92/chatledger/internal/ledger"
	"github.com/pscheid92/chatledger/internal/platform/config"
)

const testToken = "secret-token"

type mockAppService struct {
	interactFn       func(ctx context.Context, req app.InteractionRequest) (*app.InteractionOutcome, error)
	rankingFn        func(ctx context.Context, groupID string, kind ledger.Kind) (*app.RankingView, error)
	profileFn        func(ctx context.Context, groupID, userID string) (*app.ProfileView, error)
	setOptOutFn      func(ctx context.Context, userID string, optOut bool) (*app.ToggleOutcome, error)
	setOverrideFn    func(ctx context.Context, ownerID, otherID string, allowed bool) (*app.ToggleOutcome, error)
	rememberMemberFn func(ctx context.Context, groupID, userID, name string) error
}

func (m *mockAppService) Interact(ctx context.Context, req app.InteractionRequest) (*app.InteractionOutcome, error) {
	if m.interactFn != nil {
		return m.interactFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) Ranking(ctx context.Context, groupID string, kind ledger.Kind) (*app.RankingView, error) {
	if m.rankingFn != nil {
		return m.rankingFn(ctx, groupID, kind)
	}
	return &app.RankingView{GroupID: groupID, Kind: kind}, nil
}

func (m *mockAppService) Profile(ctx context.Context, groupID, userID string) (*app.ProfileView, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, groupID, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) SetOptOut(ctx context.Context, userID string, optOut bool) (*app.ToggleOutcome, error) {
	if m.setOptOutFn != nil {
		return m.setOptOutFn(ctx, userID, optOut)
	}
	return &app.ToggleOutcome{Applied: true, OptOut: optOut}, nil
}

func (m *mockAppService) SetOverride(ctx context.Context, ownerID, otherID string, allowed bool) (*app.ToggleOutcome, error) {
	if m.setOverrideFn != nil {
		return m.setOverrideFn(ctx, ownerID, otherID, allowed)
	}
	return &app.ToggleOutcome{Applied: true}, nil
}

func (m *mockAppService) RememberMember(ctx context.Context, groupID, userID, name string) error {
	if m.rememberMemberFn != nil {
		return m.rememberMemberFn(ctx, groupID, userID, name)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:          "0",
		APIToken:      testToken,
		HTTPRateLimit: 1000,
		HTTPRateBurst: 1000,
	}
}

func newTestServer(t *testing.T, svc appService, checks ...HealthCheck) *Server {
	t.Helper()
	return NewServer(testConfig(), svc, nil, nil, checks)
}

// do sends an authenticated request with an optional JSON body.
func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.NotNil(t, rec)
	return rec
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
}
