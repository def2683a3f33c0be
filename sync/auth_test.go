package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/oauth2"
)

type fakeRefresher struct {
	calls     int
	expiresIn int64
	err       error
	seen      []Credentials
}

func (f *fakeRefresher) RefreshToken(ctx context.Context, credentials Credentials) (*oauth2.Token, error) {
	f.calls++
	f.seen = append(f.seen, credentials)
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: fmt.Sprintf("token-%d", f.calls), ExpiresIn: f.expiresIn}, nil
}

func testSyncContext(t *testing.T, objectType ObjectType) *SyncContext {
	return NewSyncContext(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "refresh",
		ObjectType:   objectType,
		BatchSize:    DefaultBatchSize,
	}, zaptest.NewLogger(t))
}

func TestAccessTokenRefreshesOnlyWhenStale(t *testing.T) {
	refresher := &fakeRefresher{expiresIn: 100}
	handler := NewAuthenticationHandler(testSyncContext(t, Contacts), refresher)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	handler.now = func() time.Time { return now }

	token, err := handler.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, Credentials{ClientID: "client", ClientSecret: "secret", RefreshToken: "refresh"}, refresher.seen[0])

	for _, offset := range []time.Duration{0, 60 * time.Second, 70 * time.Second} {
		now = start.Add(offset)
		token, err := handler.AccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "token-1", token, "offset %s", offset)
	}
	assert.Equal(t, 1, refresher.calls)

	now = start.Add(71 * time.Second)
	token, err = handler.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
	assert.Equal(t, 2, refresher.calls)

	token, err = handler.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
	assert.Equal(t, 2, refresher.calls)
}

func TestAccessTokenShortLivedTokenRefreshesEveryCall(t *testing.T) {
	refresher := &fakeRefresher{expiresIn: 20}
	handler := NewAuthenticationHandler(testSyncContext(t, Contacts), refresher)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	handler.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := handler.AccessToken(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, refresher.calls)
}

func TestAccessTokenPropagatesRefreshFailure(t *testing.T) {
	failure := &APIError{Operation: opRefreshToken, StatusCode: 401, Body: "BAD_REFRESH_TOKEN"}
	handler := NewAuthenticationHandler(testSyncContext(t, Contacts), &fakeRefresher{err: failure})

	_, err := handler.AccessToken(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.StatusCode)
}

func TestAuthHeaders(t *testing.T) {
	handler := NewAuthenticationHandler(testSyncContext(t, Contacts), &fakeRefresher{expiresIn: 1800})

	headers, err := handler.AuthHeaders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Bearer token-1", headers.Get("Authorization"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
}

func TestTokenSource(t *testing.T) {
	handler := NewAuthenticationHandler(testSyncContext(t, Contacts), &fakeRefresher{expiresIn: 1800})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	handler.now = func() time.Time { return now }

	token, err := handler.Token()

	require.NoError(t, err)
	assert.Equal(t, "token-1", token.AccessToken)
	assert.Equal(t, now.Add(1800*time.Second), token.Expiry)
}
