package auth

import (
	"fmt"
	"net/http"

	"github.com/saturnines/shiphero-core/pkg/errors"
)

// Handler defines the interface for auth handlers
type Handler interface {
	ApplyAuth(req *http.Request) error
}

// HTTPDoer can perform HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenRefreshError represents a token refresh failure. It matches
// errors.ErrAuthentication.
type TokenRefreshError struct {
	StatusCode int
	Body       string
	Cause      error
}

func (e *TokenRefreshError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("token refresh failed: status %d: %s", e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("token refresh failed: status %d", e.StatusCode)
	default:
		return fmt.Sprintf("token refresh failed: %v", e.Cause)
	}
}

func (e *TokenRefreshError) Unwrap() []error {
	if e.Cause == nil {
		return []error{errors.ErrAuthentication}
	}
	return []error{errors.ErrAuthentication, e.Cause}
}
