package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/logging"
)

// Helper functions for tests
func assertHeader(t *testing.T, req *http.Request, header, expected string) {
	t.Helper()
	if value := req.Header.Get(header); value != expected {
		t.Errorf("Expected %s header '%s', got '%s'", header, expected, value)
	}
}

func assertErrorContains(t *testing.T, err error, expected string) {
	t.Helper()
	if err == nil {
		t.Errorf("Expected error containing '%s', got nil", expected)
		return
	}
	if !strings.Contains(err.Error(), expected) {
		t.Errorf("Expected error containing '%s', got '%s'", expected, err.Error())
	}
}

func TestBearerAuth(t *testing.T) {
	t.Run("ValidToken", func(t *testing.T) {
		auth := NewBearerAuth("test-token")
		req, _ := http.NewRequest("POST", "https://api.example.com/graphql", nil)

		if err := auth.ApplyAuth(req); err != nil {
			t.Fatalf("ApplyAuth failed: %v", err)
		}
		assertHeader(t, req, "Authorization", "Bearer test-token")
	})

	t.Run("EmptyToken", func(t *testing.T) {
		auth := NewBearerAuth("")
		req, _ := http.NewRequest("POST", "https://api.example.com/graphql", nil)

		err := auth.ApplyAuth(req)
		assertErrorContains(t, err, "token is required")
		if !errors.Is(err, errors.ErrAuthentication) {
			t.Errorf("Expected ErrAuthentication, got %v", err)
		}
	})

	t.Run("StringRedacts", func(t *testing.T) {
		if s := NewBearerAuth("secret").String(); strings.Contains(s, "secret") {
			t.Errorf("Expected token to be redacted, got '%s'", s)
		}
	})
}

func newRefreshServer(t *testing.T, status int, token string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body.RefreshToken != "refresh-abc" || body.Email != "ops@example.com" {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"bad credentials"}`))
			return
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			json.NewEncoder(w).Encode(map[string]string{"access_token": token})
		} else {
			w.Write([]byte(`{"error":"nope"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestTokenAuth_Refresh(t *testing.T) {
	srv, calls := newRefreshServer(t, http.StatusOK, "fresh-token")
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	auth := NewTokenAuth(srv.URL, "stale-token", "refresh-abc", "ops@example.com",
		WithClock(func() time.Time { return now }),
		WithLogger(logging.Discard()),
	)

	if auth.Expired() {
		t.Fatalf("Expected startup token with unknown expiry to be usable")
	}

	if err := auth.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if *calls != 1 {
		t.Errorf("Expected 1 refresh call, got %d", *calls)
	}

	token, expiresAt := auth.token()
	if token != "fresh-token" {
		t.Errorf("Expected 'fresh-token', got '%s'", token)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("Expected expiry one hour from now, got %v", expiresAt)
	}

	req, _ := http.NewRequest("POST", "https://api.example.com/graphql", nil)
	if err := auth.ApplyAuth(req); err != nil {
		t.Fatalf("ApplyAuth failed: %v", err)
	}
	assertHeader(t, req, "Authorization", "Bearer fresh-token")

	now = now.Add(61 * time.Minute)
	if !auth.Expired() {
		t.Errorf("Expected token to be expired after the TTL")
	}
}

func TestTokenAuth_EmptyTokenIsExpired(t *testing.T) {
	auth := NewTokenAuth("http://unused", "", "refresh-abc", "ops@example.com")
	if !auth.Expired() {
		t.Errorf("Expected empty token to count as expired")
	}
}

func TestTokenAuth_RefreshFailure(t *testing.T) {
	t.Run("Rejected", func(t *testing.T) {
		srv, _ := newRefreshServer(t, http.StatusUnauthorized, "")
		auth := NewTokenAuth(srv.URL, "old", "refresh-abc", "ops@example.com", WithLogger(logging.Discard()))

		err := auth.Refresh(context.Background())
		if !errors.Is(err, errors.ErrAuthentication) {
			t.Fatalf("Expected ErrAuthentication, got %v", err)
		}
		var refreshErr *TokenRefreshError
		if !errors.As(err, &refreshErr) || refreshErr.StatusCode != http.StatusUnauthorized {
			t.Errorf("Expected TokenRefreshError with status 401, got %v", err)
		}
		if token, _ := auth.token(); token != "old" {
			t.Errorf("Expected token to be unchanged after failure, got '%s'", token)
		}
	})

	t.Run("MissingAccessToken", func(t *testing.T) {
		srv, _ := newRefreshServer(t, http.StatusOK, "")
		auth := NewTokenAuth(srv.URL, "old", "refresh-abc", "ops@example.com", WithLogger(logging.Discard()))
		assertErrorContains(t, auth.Refresh(context.Background()), "no access_token")
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		auth := NewTokenAuth("http://unused", "old", "", "")
		err := auth.Refresh(context.Background())
		if !errors.Is(err, errors.ErrAuthentication) {
			t.Errorf("Expected ErrAuthentication, got %v", err)
		}
	})

	t.Run("Unreachable", func(t *testing.T) {
		srv, _ := newRefreshServer(t, http.StatusOK, "x")
		url := srv.URL
		srv.Close()
		auth := NewTokenAuth(url, "old", "refresh-abc", "ops@example.com", WithLogger(logging.Discard()))
		if err := auth.Refresh(context.Background()); !errors.Is(err, errors.ErrAuthentication) {
			t.Errorf("Expected ErrAuthentication for network failure, got %v", err)
		}
	})
}
