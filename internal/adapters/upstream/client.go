// Package upstream holds the HTTP adapters for the services this one
// depends on: the identity provider and the owners of replicated
// collections.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/metrics"
	"github.com/SscSPs/bank_mesh/internal/middleware"
	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"
)

const defaultTimeout = 5 * time.Second

// httpClient sends JSON requests authenticated with a bearer token.
type httpClient struct {
	base     *http.Client
	timeout  time.Duration
	validate *validator.Validate
}

func newHTTPClient(timeout time.Duration, base *http.Client) *httpClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if base == nil {
		base = &http.Client{}
	}
	return &httpClient{base: base, timeout: timeout, validate: validator.New()}
}

// clientFor returns an HTTP client that adds the bearer token to every request.
func (c *httpClient) clientFor(ctx context.Context, token string) *http.Client {
	if token == "" {
		return c.base
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}

// do performs one call and decodes the JSON response into out (when non-nil).
// target labels the call in metrics and logs.
func (c *httpClient) do(ctx context.Context, target, method, url, token string, body, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, method, url, token, body, out)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.UpstreamRequestDuration.WithLabelValues(target, outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Debug("Upstream call failed",
			slog.String("target", target),
			slog.String("method", method),
			slog.String("url", url),
			slog.String("error", err.Error()))
	}
	return err
}

func (c *httpClient) roundTrip(ctx context.Context, method, url, token string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, url, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := middleware.RequestIDFromCtx(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	resp, err := c.clientFor(ctx, token).Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", apperrors.ErrUpstreamUnavailable, method, url, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", apperrors.ErrUpstreamUnavailable, method, url, err)
	}
	return nil
}

// statusError maps an upstream status code onto the error taxonomy. Only
// server-side failures are reported as unavailable, so only they are retried.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("%s %s returned %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, bytes.TrimSpace(detail))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", apperrors.ErrUnauthenticated, msg)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", apperrors.ErrForbidden, msg)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, msg)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", apperrors.ErrUpstreamUnavailable, msg)
	default:
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, msg)
	}
}

// validRecords keeps the records that pass their struct validation tags.
// Invalid records are logged and dropped so one bad row cannot block a sync.
func validRecords[T any](ctx context.Context, v *validator.Validate, target string, records []T) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if err := v.Struct(r); err != nil {
			middleware.GetLoggerFromCtx(ctx).Warn("Dropping invalid upstream record",
				slog.String("target", target),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, r)
	}
	return out
}
