package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"momo-gateway/internal/domain"
)

const defaultTimeout = 15 * time.Second

// httpClient is the transport shared by the three adapters. Each adapter
// owns its own instance: base URL, timeout and auth headers are fixed at
// construction and never mutated.
type httpClient struct {
	base    string
	client  *http.Client
	headers map[string]string
}

func newHTTPClient(base string, timeout time.Duration, headers map[string]string) httpClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return httpClient{
		base:    base,
		client:  &http.Client{Timeout: timeout},
		headers: headers,
	}
}

// WithTransport swaps the underlying round tripper; tests use this to stub
// the provider API.
func (c *httpClient) WithTransport(rt http.RoundTripper) {
	c.client.Transport = rt
}

// do issues one JSON request and decodes the body into out when non-nil.
// Transport failures come back as canonical TIMEOUT / NETWORK_ERROR; the
// HTTP status is returned so adapters can map provider business errors.
func (c *httpClient) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, mapTransportError(err)
	}
	defer resp.Body.Close()

	if out != nil {
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return resp.StatusCode, mapTransportError(err)
		}
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(raw, out); err != nil {
				// Providers and their load balancers answer rejections with
				// empty or HTML bodies. The status code carries the verdict
				// then; only a garbled success body is a transport problem.
				if resp.StatusCode >= http.StatusBadRequest {
					return resp.StatusCode, nil
				}
				return resp.StatusCode, domain.WrapPaymentError(domain.ErrCodeNetwork, "malformed provider response", err)
			}
		}
	}
	return resp.StatusCode, nil
}

func (c *httpClient) postJSON(ctx context.Context, path string, in, out any) (int, error) {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *httpClient) getJSON(ctx context.Context, path string, out any) (int, error) {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func mapTransportError(err error) *domain.PaymentError {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return domain.WrapPaymentError(domain.ErrCodeTimeout, "provider request timed out", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapPaymentError(domain.ErrCodeTimeout, "provider request timed out", err)
	}
	return domain.WrapPaymentError(domain.ErrCodeNetwork, "provider unreachable", err)
}
