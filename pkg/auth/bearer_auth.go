package auth

import (
	"fmt"
	"net/http"

	"github.com/saturnines/shiphero-core/pkg/errors"
)

// BearerAuth applies a fixed bearer token. Used for endpoints that do not
// need refresh.
type BearerAuth struct {
	Token string // The bearer token
}

// NewBearerAuth creates a new bearer token authentication handler
func NewBearerAuth(token string) *BearerAuth {
	return &BearerAuth{
		Token: token,
	}
}

// ApplyAuth adds the Bearer token to the Authorization header
func (b *BearerAuth) ApplyAuth(req *http.Request) error {
	return setBearer(req, b.Token)
}

// String returns a string representation of this auth method for testing
func (b *BearerAuth) String() string {
	return "BearerAuth(token: [REDACTED])"
}

func setBearer(req *http.Request, token string) error {
	if token == "" {
		return errors.WrapError(
			fmt.Errorf("token is required"),
			errors.ErrAuthentication,
			"apply bearer auth",
		)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
