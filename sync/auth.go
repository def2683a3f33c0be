package sync

import (
	"context"
	"errors"
	"net/http"
	gosync "sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// tokenStalenessWindow is how long before expiry a token is already treated as stale.
const tokenStalenessWindow = 30 * time.Second

// Credentials identify the OAuth app and the portal connection being written to.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// TokenRefresher exchanges a refresh token for a new access token.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, credentials Credentials) (*oauth2.Token, error)
}

// AuthenticationHandler owns the cached access token and refreshes it when stale.
// Refreshing never needs a network hop to decide; staleness is judged from the
// expiry recorded at the last refresh.
type AuthenticationHandler struct {
	*SyncContext
	refresher TokenRefresher
	now       func() time.Time

	mu    gosync.Mutex
	token *oauth2.Token // nil until the first refresh, i.e. stale
}

var _ oauth2.TokenSource = (*AuthenticationHandler)(nil)

// NewAuthenticationHandler creates a handler that starts out stale.
func NewAuthenticationHandler(sc *SyncContext, refresher TokenRefresher) *AuthenticationHandler {
	return &AuthenticationHandler{
		SyncContext: sc,
		refresher:   refresher,
		now:         time.Now,
	}
}

func (a *AuthenticationHandler) isStale(now time.Time) bool {
	if a.token == nil || a.token.AccessToken == "" {
		return true
	}
	return now.After(a.token.Expiry.Add(-tokenStalenessWindow))
}

// AccessToken returns a token that is not stale, refreshing at most once per call.
func (a *AuthenticationHandler) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isStale(a.now()) {
		return a.token.AccessToken, nil
	}

	a.Logger.Info("retrieving new access token", zap.String("client_id", a.Config.ClientID))
	token, err := a.refresher.RefreshToken(ctx, a.Config.Credentials())
	if err != nil {
		return "", err
	}
	if token == nil || token.AccessToken == "" {
		return "", errors.New("token refresh returned no access token")
	}

	refreshed := *token
	refreshed.Expiry = a.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	if token.ExpiresIn <= int64(tokenStalenessWindow/time.Second) {
		a.Logger.Warn("access token expires within the staleness window", zap.Int64("expires_in", token.ExpiresIn))
	}
	a.token = &refreshed

	a.Logger.Info("refreshed access token", zap.Int64("expires_in", token.ExpiresIn))
	return refreshed.AccessToken, nil
}

// Token implements oauth2.TokenSource over the same cache.
func (a *AuthenticationHandler) Token() (*oauth2.Token, error) {
	if _, err := a.AccessToken(context.Background()); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	token := *a.token
	return &token, nil
}

// AuthHeaders returns the headers every authenticated HubSpot call needs.
func (a *AuthenticationHandler) AuthHeaders(ctx context.Context) (http.Header, error) {
	token, err := a.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+token)
	h.Set("Content-Type", "application/json")
	return h, nil
}
