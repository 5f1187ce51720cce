package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/saturnines/shiphero-core/pkg/auth"
	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/logging"
	"github.com/saturnines/shiphero-core/pkg/transport/graphql"
)

// scriptedTransport replays results in order.
type scriptedTransport struct {
	results []func() (*graphql.Response, error)
	calls   int
}

func (s *scriptedTransport) Send(ctx context.Context, query string, variables map[string]interface{}) (*graphql.Response, error) {
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		return nil, fmt.Errorf("unexpected call %d", i+1)
	}
	return s.results[i]()
}

func ok(data map[string]interface{}) func() (*graphql.Response, error) {
	return func() (*graphql.Response, error) {
		return &graphql.Response{StatusCode: 200, Data: data}, nil
	}
}

func status(code int, body string) func() (*graphql.Response, error) {
	return func() (*graphql.Response, error) {
		return nil, &graphql.StatusError{StatusCode: code, Body: body}
	}
}

func netErr() func() (*graphql.Response, error) {
	return func() (*graphql.Response, error) {
		return nil, errors.WrapError(fmt.Errorf("connection reset"), errors.ErrTransport, "send graphql request")
	}
}

type fakeTokens struct {
	expired   bool
	refreshes int
	fail      error
}

func (f *fakeTokens) Expired() bool { return f.expired }

func (f *fakeTokens) Refresh(ctx context.Context) error {
	f.refreshes++
	if f.fail != nil {
		return f.fail
	}
	f.expired = false
	return nil
}

type sleepRecorder struct{ delays []time.Duration }

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestClient(tr Transport, tokens TokenSource, sleeper *sleepRecorder, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithSleepFunc(sleeper.sleep),
		WithRateLimit(0),
		WithLogger(logging.Discard()),
	}
	return NewClient(tr, tokens, append(base, opts...)...)
}

func TestRequest_Success(t *testing.T) {
	tr := &scriptedTransport{results: []func() (*graphql.Response, error){ok(map[string]interface{}{"a": 1.0})}}
	c := newTestClient(tr, &fakeTokens{}, &sleepRecorder{})

	resp, err := c.Request(context.Background(), "{a}", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.Data["a"] != 1.0 {
		t.Errorf("Expected data a=1, got %v", resp.Data)
	}
}

func TestRequest_ProactiveRefresh(t *testing.T) {
	tokens := &fakeTokens{expired: true}
	tr := &scriptedTransport{results: []func() (*graphql.Response, error){ok(nil)}}
	c := newTestClient(tr, tokens, &sleepRecorder{})

	if _, err := c.Request(context.Background(), "{a}", nil); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if tokens.refreshes != 1 {
		t.Errorf("Expected 1 proactive refresh, got %d", tokens.refreshes)
	}
}

func TestRequest_UnauthorizedRefreshesOnce(t *testing.T) {
	t.Run("RetrySucceeds", func(t *testing.T) {
		data := map[string]interface{}{"product": map[string]interface{}{"sku": "A-1"}}
		tokens := &fakeTokens{}
		tr := &scriptedTransport{results: []func() (*graphql.Response, error){status(401, ""), ok(data)}}
		c := newTestClient(tr, tokens, &sleepRecorder{})

		resp, err := c.Request(context.Background(), "{product}", nil)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		if !reflect.DeepEqual(resp.Data, data) {
			t.Errorf("Expected same data as a direct success, got %v", resp.Data)
		}
		if tokens.refreshes != 1 {
			t.Errorf("Expected exactly 1 refresh, got %d", tokens.refreshes)
		}
	})

	t.Run("RepeatedUnauthorized", func(t *testing.T) {
		tokens := &fakeTokens{}
		tr := &scriptedTransport{results: []func() (*graphql.Response, error){
			status(401, ""), status(401, `{"errors":[{"message":"bad token"}]}`), ok(nil),
		}}
		c := newTestClient(tr, tokens, &sleepRecorder{})

		_, err := c.Request(context.Background(), "{a}", nil)
		if !errors.Is(err, errors.ErrAuthentication) {
			t.Fatalf("Expected ErrAuthentication, got %v", err)
		}
		if tokens.refreshes != 1 {
			t.Errorf("Expected refresh at most once, got %d", tokens.refreshes)
		}
		if tr.calls != 2 {
			t.Errorf("Expected 2 sends, got %d", tr.calls)
		}
	})

	t.Run("RefreshFails", func(t *testing.T) {
		refreshErr := &auth.TokenRefreshError{StatusCode: 403}
		tokens := &fakeTokens{fail: refreshErr}
		tr := &scriptedTransport{results: []func() (*graphql.Response, error){status(401, "")}}
		c := newTestClient(tr, tokens, &sleepRecorder{})

		_, err := c.Request(context.Background(), "{a}", nil)
		if !errors.Is(err, errors.ErrAuthentication) {
			t.Errorf("Expected ErrAuthentication, got %v", err)
		}
	})

	t.Run("NoTokenSource", func(t *testing.T) {
		tr := &scriptedTransport{results: []func() (*graphql.Response, error){status(401, "")}}
		c := newTestClient(tr, nil, &sleepRecorder{})
		if _, err := c.Request(context.Background(), "{a}", nil); !errors.Is(err, errors.ErrAuthentication) {
			t.Errorf("Expected ErrAuthentication, got %v", err)
		}
	})
}

func TestRequest_RateLimitNotRetried(t *testing.T) {
	tr := &scriptedTransport{results: []func() (*graphql.Response, error){status(429, "slow down"), ok(nil)}}
	sleeper := &sleepRecorder{}
	c := newTestClient(tr, &fakeTokens{}, sleeper)

	_, err := c.Request(context.Background(), "{a}", nil)
	if !errors.Is(err, errors.ErrRateLimit) {
		t.Fatalf("Expected ErrRateLimit, got %v", err)
	}
	if tr.calls != 1 || len(sleeper.delays) != 0 {
		t.Errorf("Expected no retry, got %d calls and %d sleeps", tr.calls, len(sleeper.delays))
	}
}

func TestRequest_NonOKStatus(t *testing.T) {
	tr := &scriptedTransport{results: []func() (*graphql.Response, error){
		status(500, `{"errors":[{"message":"internal"}]}`),
	}}
	c := newTestClient(tr, &fakeTokens{}, &sleepRecorder{})

	_, err := c.Request(context.Background(), "{a}", nil)
	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != 500 {
		t.Errorf("Expected status 500, got %d", apiErr.StatusCode)
	}
	if apiErr.Response == nil || len(apiErr.GraphQLErrors) != 1 {
		t.Errorf("Expected parsed body, got %+v", apiErr)
	}
	if errors.Is(err, errors.ErrRateLimit) || errors.Is(err, errors.ErrAuthentication) {
		t.Errorf("Expected plain API error kind")
	}
}

func TestRequest_GraphQLErrors(t *testing.T) {
	tr := &scriptedTransport{results: []func() (*graphql.Response, error){
		func() (*graphql.Response, error) {
			return &graphql.Response{StatusCode: 200, Errors: []errors.GraphQLError{{Message: "Kit not found"}}}, nil
		},
	}}
	c := newTestClient(tr, &fakeTokens{}, &sleepRecorder{})

	_, err := c.Request(context.Background(), "{a}", nil)
	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) || len(apiErr.GraphQLErrors) != 1 {
		t.Fatalf("Expected APIError carrying graphql errors, got %v", err)
	}
}

func TestRequest_TransportRetries(t *testing.T) {
	t.Run("RecoversWithLinearBackoff", func(t *testing.T) {
		tr := &scriptedTransport{results: []func() (*graphql.Response, error){netErr(), netErr(), ok(nil)}}
		sleeper := &sleepRecorder{}
		c := newTestClient(tr, &fakeTokens{}, sleeper, WithBaseDelay(time.Second))

		if _, err := c.Request(context.Background(), "{a}", nil); err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		want := []time.Duration{time.Second, 2 * time.Second}
		if !reflect.DeepEqual(sleeper.delays, want) {
			t.Errorf("Expected delays %v, got %v", want, sleeper.delays)
		}
	})

	t.Run("Exhausted", func(t *testing.T) {
		tr := &scriptedTransport{results: []func() (*graphql.Response, error){netErr(), netErr(), netErr(), netErr(), ok(nil)}}
		sleeper := &sleepRecorder{}
		c := newTestClient(tr, &fakeTokens{}, sleeper, WithMaxRetries(3))

		_, err := c.Request(context.Background(), "{a}", nil)
		if !errors.Is(err, errors.ErrAPI) {
			t.Fatalf("Expected ErrAPI after exhausting retries, got %v", err)
		}
		if !errors.Is(err, errors.ErrTransport) {
			t.Errorf("Expected transport cause to be kept")
		}
		if tr.calls != 4 {
			t.Errorf("Expected 4 sends (1 + 3 retries), got %d", tr.calls)
		}
		if len(sleeper.delays) != 3 {
			t.Errorf("Expected 3 sleeps, got %d", len(sleeper.delays))
		}
	})

	t.Run("CanceledDuringBackoff", func(t *testing.T) {
		tr := &scriptedTransport{results: []func() (*graphql.Response, error){netErr(), ok(nil)}}
		c := newTestClient(tr, &fakeTokens{}, &sleepRecorder{}, WithSleepFunc(func(ctx context.Context, d time.Duration) error {
			return context.Canceled
		}))
		if _, err := c.Request(context.Background(), "{a}", nil); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}

func TestRequest_EndToEndRefresh(t *testing.T) {
	var authCalls int32
	authServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&authCalls, 1)
		json.NewEncoder(w).Encode(map[string]string{"access_token": "new_token_456"})
	}))
	defer authServer.Close()

	gqlServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new_token_456" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errors":[{"message":"Token expired"}]}`))
			return
		}
		w.Write([]byte(`{"data":{"account":{"request_id":"r1"}}}`))
	}))
	defer gqlServer.Close()

	tokens := auth.NewTokenAuth(authServer.URL, "initial_token_123", "refresh", "ops@example.com",
		auth.WithLogger(logging.Discard()))
	transport := graphql.NewClient(graphql.NewBuilder(gqlServer.URL, tokens), gqlServer.Client())
	c := newTestClient(transport, tokens, &sleepRecorder{})

	resp, err := c.Request(context.Background(), `query { account { request_id } }`, nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if v, _ := ExtractField(resp.Data, "account.request_id"); v != "r1" {
		t.Errorf("Expected request_id r1, got %v", v)
	}
	if atomic.LoadInt32(&authCalls) != 1 {
		t.Errorf("Expected 1 refresh call, got %d", authCalls)
	}
}

func TestRateLimiterThrottles(t *testing.T) {
	tr := &scriptedTransport{results: []func() (*graphql.Response, error){ok(nil), ok(nil)}}
	c := newTestClient(tr, nil, &sleepRecorder{}, WithLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.Request(ctx, "{a}", nil); err != nil {
		t.Fatalf("First request should not wait: %v", err)
	}
	if _, err := c.Request(ctx, "{a}", nil); err == nil {
		t.Errorf("Expected second request to be throttled past the deadline")
	}
	if tr.calls != 1 {
		t.Errorf("Expected 1 send, got %d", tr.calls)
	}
}

func TestRateLimit_PerMinuteCeiling(t *testing.T) {
	for _, rpm := range []int{1, 7, 60, 100, 240} {
		c := NewClient(nil, nil, WithRateLimit(rpm))
		start := time.Now()

		var admitted []time.Duration
		for elapsed := time.Duration(0); elapsed < 3*time.Minute; elapsed += 10 * time.Millisecond {
			if c.limiter.AllowN(start.Add(elapsed), 1) {
				admitted = append(admitted, elapsed)
			}
		}

		for i := 0; i+rpm < len(admitted); i++ {
			if gap := admitted[i+rpm] - admitted[i]; gap < time.Minute {
				t.Fatalf("rpm %d: Expected at most %d requests per minute, got %d within %v",
					rpm, rpm, rpm+1, gap)
			}
		}
		if want := 3*rpm - 3; len(admitted) < want {
			t.Errorf("rpm %d: Expected at least %d requests over 3 minutes, got %d", rpm, want, len(admitted))
		}
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	if c := NewClient(nil, nil, WithRateLimit(0)); c.limiter != nil {
		t.Errorf("Expected no limiter for a zero rate")
	}
}
