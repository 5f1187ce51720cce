package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/transport/graphql"
)

// Request sends query with variables and returns the decoded reply.
//
// An expired token is refreshed before sending. A 401 triggers at most one
// refresh per call; a second 401 is an authentication failure. A 429 is
// returned as a rate limit error without retrying. Transport failures are
// retried maxRetries times with a delay of baseDelay * retry number.
func (c *Client) Request(ctx context.Context, query string, variables map[string]interface{}) (*graphql.Response, error) {
	var (
		retries   int
		refreshed bool
	)

	for {
		if c.tokens != nil && c.tokens.Expired() {
			c.logger.Debug("access token expired, refreshing before request")
			if err := c.tokens.Refresh(ctx); err != nil {
				return nil, err
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		resp, err := c.transport.Send(ctx, query, variables)
		if err == nil {
			if len(resp.Errors) > 0 {
				return nil, &errors.APIError{
					Kind:          errors.ErrAPI,
					StatusCode:    resp.StatusCode,
					Response:      resp.Raw,
					GraphQLErrors: resp.Errors,
					Message:       "graphql errors",
				}
			}
			return resp, nil
		}

		var statusErr *graphql.StatusError
		switch {
		case errors.As(err, &statusErr):
			switch statusErr.StatusCode {
			case http.StatusTooManyRequests:
				c.logger.Warn("rate limit reached", "status", statusErr.StatusCode)
				return nil, statusAPIError(errors.ErrRateLimit, statusErr, "rate limit exceeded")
			case http.StatusUnauthorized:
				if c.tokens == nil || refreshed {
					return nil, statusAPIError(errors.ErrAuthentication, statusErr, "unauthorized")
				}
				c.logger.Info("unauthorized, refreshing access token")
				if err := c.tokens.Refresh(ctx); err != nil {
					return nil, err
				}
				refreshed = true
				continue
			default:
				return nil, statusAPIError(errors.ErrAPI, statusErr, "unexpected status")
			}

		case errors.Is(err, errors.ErrTransport):
			if retries >= c.maxRetries {
				return nil, &errors.APIError{
					Kind:    errors.ErrAPI,
					Message: fmt.Sprintf("max retries exceeded after %d attempts", retries+1),
					Cause:   err,
				}
			}
			retries++
			delay := c.baseDelay * time.Duration(retries)
			c.logger.Warn("request failed, retrying", "retry", retries, "max_retries", c.maxRetries, "delay", delay, "error", err)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}

		default:
			return nil, err
		}
	}
}

func statusAPIError(kind error, se *graphql.StatusError, message string) *errors.APIError {
	apiErr := &errors.APIError{
		Kind:       kind,
		StatusCode: se.StatusCode,
		Body:       se.Body,
		Message:    message,
	}
	var parsed map[string]interface{}
	if json.Unmarshal([]byte(se.Body), &parsed) == nil {
		apiErr.Response = parsed
		if list, ok := parsed["errors"].([]interface{}); ok {
			for _, item := range list {
				if m, ok := item.(map[string]interface{}); ok {
					msg, _ := m["message"].(string)
					apiErr.GraphQLErrors = append(apiErr.GraphQLErrors, errors.GraphQLError{Message: msg})
				}
			}
		}
	}
	return apiErr
}

// sleepWithContext waits for delay or until ctx is done.
func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
