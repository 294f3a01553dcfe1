package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	apperrors "chat-assistant/internal/common/errors"
	"chat-assistant/internal/common/metrics"
)

// Client wraps http.Client for one named external service. Every call is
// bounded by the configured timeout and failures come back classified as
// ErrExternalTimeout or ErrExternalServiceError.
type Client struct {
	httpClient *http.Client
	service    string
	timeout    time.Duration
}

func NewClient(service string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		service:    service,
		timeout:    timeout,
	}
}

func (c *Client) Service() string {
	return c.service
}

// Do sends req and returns the response only when the status is 200. The
// caller closes the body.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	start := time.Now()

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		cancel()
		c.observe(start, "error")
		if isTimeout(ctx, err) {
			return nil, apperrors.NewExternalTimeoutError(c.service)
		}
		return nil, apperrors.NewExternalServiceError(c.service, err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		cancel()
		c.observe(start, "status")
		return nil, apperrors.NewExternalServiceError(c.service,
			fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)))
	}

	c.observe(start, "ok")
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// DoJSON posts body as JSON and decodes a 200 response into out.
func (c *Client) DoJSON(ctx context.Context, method, url string, headers map[string]string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return apperrors.NewExternalServiceError(c.service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(ctx, err) {
			return apperrors.NewExternalTimeoutError(c.service)
		}
		return apperrors.NewExternalServiceError(c.service, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) observe(start time.Time, outcome string) {
	metrics.ExternalCallDuration.WithLabelValues(c.service, outcome).Observe(time.Since(start).Seconds())
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
