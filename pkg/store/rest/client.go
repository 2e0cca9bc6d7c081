// Package rest is a store backed by a PostgREST-compatible HTTP API, such as
// the REST endpoint of a hosted Supabase project.
//
// Hosted deployments cap every response (max-rows, 1000 by default) and do
// not report the truncation; package scan pages through it.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/carbonstats/pkg/observability"
	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultRetryInterval = 500 * time.Millisecond
	restPath             = "/rest/v1/"
)

// Options configures New.
type Options struct {
	// URL is the project base URL, e.g. https://xyz.supabase.co.
	URL string

	// APIKey is sent both as apikey and as the bearer token.
	APIKey string

	// Schema selects a non-default schema through Accept-Profile.
	Schema string

	Timeout time.Duration

	// Retries is the number of extra attempts for 429 and 5xx responses and
	// transport errors. Zero fails on the first error.
	Retries int

	// RetryInterval is the first backoff delay. Defaults to 500ms.
	RetryInterval time.Duration

	// Order maps a collection to the column that gives its pages a stable
	// order. Collections without an entry use the server's order.
	Order map[string]string

	HTTPClient *http.Client
	Tracer     trace.Tracer
}

// Client implements store.Store over PostgREST.
type Client struct {
	base   *url.URL
	opts   Options
	http   *http.Client
	tracer trace.Tracer
}

var _ store.Store = (*Client)(nil)

// New validates opts and returns a client. No request is made.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" || strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%w: rest url and api key are required", store.ErrNotConfigured)
	}

	base, err := url.Parse(strings.TrimRight(opts.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: parse rest url: %w", store.ErrNotConfigured, err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: rest url must be http or https, got %q", store.ErrNotConfigured, opts.URL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	if opts.Retries < 0 {
		opts.Retries = 0
	}

	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(observability.InstrumentationName)
	}

	return &Client{base: base, opts: opts, http: httpClient, tracer: tracer}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()

	return nil
}

// Ping checks that the API answers with the configured key.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, "ping", http.MethodHead, c.base.JoinPath(restPath), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return apiError(resp)
	}

	return nil
}

// do sends one request with auth headers, retrying retryable failures.
func (c *Client) do(ctx context.Context, op, method string, target *url.URL, header http.Header) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, "store.rest."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("store.rest.path", target.Path),
		))
	defer span.End()

	attempt := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, target.String(), http.NoBody)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
		}

		for key, values := range header {
			req.Header[key] = values
		}

		req.Header.Set("apikey", c.opts.APIKey)
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
		req.Header.Set("Accept", "application/json")

		if c.opts.Schema != "" {
			req.Header.Set("Accept-Profile", c.opts.Schema)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(fmt.Errorf("%s %s: %w", method, target.Path, err))
			}

			return nil, fmt.Errorf("%s %s: %w", method, target.Path, err)
		}

		if retryable(resp.StatusCode) {
			apiErr := apiError(resp)
			resp.Body.Close()

			return nil, apiErr
		}

		return resp, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.opts.RetryInterval

	resp, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.opts.Retries)+1), //nolint:gosec // Retries is clamped to >= 0 in New.
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	return resp, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// APIError is a non-success PostgREST response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("postgrest %d %s: %s", e.Status, e.Code, e.Message)
	}

	return fmt.Sprintf("postgrest %d: %s", e.Status, e.Message)
}

// Unwrap maps well-known PostgREST failures to store sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.Code == "42P01" || e.Code == "PGRST205" || (e.Status == http.StatusNotFound && e.Code == ""):
		return store.ErrUnknownCollection
	case e.Code == "42703" || e.Code == "PGRST204":
		return store.ErrUnknownColumn
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return store.ErrNotConfigured
	default:
		return nil
	}
}
