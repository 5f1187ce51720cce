package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/saturnines/shiphero-core/pkg/auth"
	"github.com/saturnines/shiphero-core/pkg/errors"
)

// Builder constructs GraphQL requests.
type Builder struct {
	Endpoint    string
	Headers     map[string]string
	AuthHandler auth.Handler
}

// NewBuilder sets up a Builder posting to endpoint, the full URL of the
// GraphQL API.
func NewBuilder(endpoint string, authHandler auth.Handler, opts ...BuilderOption) *Builder {
	b := &Builder{
		Endpoint:    endpoint,
		Headers:     map[string]string{"User-Agent": DefaultUserAgent},
		AuthHandler: authHandler,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Payload is the JSON body of a GraphQL POST.
type Payload struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// Build creates the *http.Request with JSON body. Auth is applied last so a
// refreshed token is picked up on every attempt.
func (b *Builder) Build(ctx context.Context, query string, variables map[string]interface{}) (*http.Request, error) {
	if variables == nil {
		variables = map[string]interface{}{}
	}
	buf, err := json.Marshal(Payload{Query: query, Variables: variables})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrValidation, "encode graphql payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrConfiguration, "create graphql request")
	}
	for k, v := range b.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if b.AuthHandler != nil {
		if err := b.AuthHandler.ApplyAuth(req); err != nil {
			return nil, err
		}
	}
	return req, nil
}
