package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/saturnines/shiphero-core/pkg/errors"
)

// HTTPDoer is the minimal interface satisfied by *http.Client.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Response is one decoded GraphQL reply.
type Response struct {
	StatusCode int
	Data       map[string]interface{}
	Errors     []errors.GraphQLError
	Raw        map[string]interface{}
}

// StatusError is returned for any non-2xx reply.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client executes GraphQL operations.
type Client struct {
	builder *Builder
	doer    HTTPDoer
}

// NewClient wraps an HTTPDoer (e.g. *http.Client).
func NewClient(builder *Builder, doer HTTPDoer, opts ...ClientOption) *Client {
	if doer == nil {
		doer = &http.Client{}
	}
	c := &Client{builder: builder, doer: doer}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send issues one request. Non-2xx replies return *StatusError, network
// failures match errors.ErrTransport and undecodable bodies match
// errors.ErrValidation.
func (c *Client) Send(ctx context.Context, query string, variables map[string]interface{}) (*Response, error) {
	req, err := c.builder.Build(ctx, query, variables)
	if err != nil {
		return nil, err
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.WrapError(err, errors.ErrTransport, "send graphql request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrTransport, "read graphql response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return Decode(resp.StatusCode, body)
}

// Decode parses a GraphQL reply body.
func Decode(status int, body []byte) (*Response, error) {
	var envelope struct {
		Data   map[string]interface{} `json:"data"`
		Errors []errors.GraphQLError  `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.WrapError(err, errors.ErrValidation, "decode graphql response")
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.WrapError(err, errors.ErrValidation, "decode graphql response")
	}
	return &Response{
		StatusCode: status,
		Data:       envelope.Data,
		Errors:     envelope.Errors,
		Raw:        raw,
	}, nil
}
