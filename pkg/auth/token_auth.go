package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultTokenTTL is how long a refreshed access token is trusted.
const DefaultTokenTTL = time.Hour

// TokenAuth is a bearer handler whose access token can be renewed with a
// refresh token and account email.
type TokenAuth struct {
	AuthURL      string
	RefreshToken string
	Email        string
	TTL          time.Duration

	client HTTPDoer
	now    func() time.Time
	logger *slog.Logger

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time // zero until the first refresh
}

// TokenOption configures a TokenAuth.
type TokenOption func(*TokenAuth)

// WithHTTPClient sets the client used for refresh calls.
func WithHTTPClient(doer HTTPDoer) TokenOption {
	return func(t *TokenAuth) { t.client = doer }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenAuth) { t.now = now }
}

// WithTTL sets the lifetime assigned to refreshed tokens.
func WithTTL(ttl time.Duration) TokenOption {
	return func(t *TokenAuth) { t.TTL = ttl }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) TokenOption {
	return func(t *TokenAuth) { t.logger = l }
}

// NewTokenAuth creates a refreshable bearer handler. accessToken may be
// empty, in which case the first request triggers a refresh.
func NewTokenAuth(authURL, accessToken, refreshToken, email string, opts ...TokenOption) *TokenAuth {
	t := &TokenAuth{
		AuthURL:      authURL,
		RefreshToken: refreshToken,
		Email:        email,
		TTL:          DefaultTokenTTL,
		client:       &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
		logger:       slog.Default(),
		accessToken:  accessToken,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ApplyAuth sets the Authorization header with the current access token.
func (t *TokenAuth) ApplyAuth(req *http.Request) error {
	token, _ := t.token()
	return setBearer(req, token)
}

// Expired reports whether the token must be refreshed before use. A token
// supplied at startup has no known expiry and is trusted until a 401.
func (t *TokenAuth) Expired() bool {
	token, expiresAt := t.token()
	if token == "" {
		return true
	}
	return !expiresAt.IsZero() && !t.now().Before(expiresAt)
}

// token returns the current access token and its expiry.
func (t *TokenAuth) token() (string, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.accessToken, t.expiresAt
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	Email        string `json:"email"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// Refresh exchanges the refresh token for a new access token. Any failure
// is a *TokenRefreshError and is not retried.
func (t *TokenAuth) Refresh(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.RefreshToken == "" || t.Email == "" {
		return &TokenRefreshError{Cause: fmt.Errorf("refresh token and email are required")}
	}

	buf, err := json.Marshal(refreshRequest{RefreshToken: t.RefreshToken, Email: t.Email})
	if err != nil {
		return &TokenRefreshError{Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.AuthURL, bytes.NewReader(buf))
	if err != nil {
		return &TokenRefreshError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Error("token refresh request failed", "error", err)
		return &TokenRefreshError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TokenRefreshError{Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		t.logger.Error("token refresh rejected", "status", resp.StatusCode)
		return &TokenRefreshError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out refreshResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return &TokenRefreshError{Cause: fmt.Errorf("decode refresh response: %w", err)}
	}
	if out.AccessToken == "" {
		return &TokenRefreshError{Cause: fmt.Errorf("refresh response has no access_token")}
	}

	t.accessToken = out.AccessToken
	t.expiresAt = t.now().Add(t.TTL)
	t.logger.Info("access token refreshed", "expires_at", t.expiresAt.Format(time.RFC3339))
	return nil
}

// String returns a string representation of this auth method for testing
func (t *TokenAuth) String() string {
	return fmt.Sprintf("TokenAuth(email: %s, token: [REDACTED])", t.Email)
}
