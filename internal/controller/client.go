// Package controller is the controller client (component J): signed
// HTTPS calls to the cluster controller, with per-peer tolerant parsing
// of the free-form `extra` field.
package controller

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
)

const (
	// requestTimeout is the default http.Client timeout when the caller
	// (or agent.yaml) doesn't specify one.
	requestTimeout  = 15 * time.Second
	retryMaxElapsed = 10 * time.Second
)

// Client signs and sends requests to a single controller base URL.
type Client struct {
	baseURL    *url.URL
	privateKey ed25519.PrivateKey
	clientID   string
	httpClient *http.Client
	validate   *validator.Validate
}

// NewClient builds a Client for domainPrefix, signing every request with
// priv and deriving the X-Client-Id header from its public half.
// httpTimeout <= 0 falls back to requestTimeout.
func NewClient(domainPrefix string, priv ed25519.PrivateKey, httpTimeout time.Duration) (*Client, error) {
	base, err := url.Parse(domainPrefix)
	if err != nil {
		return nil, fmt.Errorf("parse controller base url: %w", err)
	}
	id, err := clientID(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	if httpTimeout <= 0 {
		httpTimeout = requestTimeout
	}
	return &Client{
		baseURL:    base,
		privateKey: priv,
		clientID:   id,
		httpClient: &http.Client{
			Timeout:   httpTimeout,
			Transport: &retryRoundTripper{base: http.DefaultTransport},
		},
		validate: validator.New(),
	}, nil
}

// retryRoundTripper retries only transient network errors, never retrying
// once a request has reached the server — a non-2xx response is a hard
// failure the caller must see, not something to paper over with a retry.
type retryRoundTripper struct {
	base http.RoundTripper
}

func (rt *retryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	attempt := func() (*http.Response, error) {
		resp, err := rt.base.RoundTrip(req)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return resp, nil
	}
	boff := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(100*time.Millisecond),
		backoff.WithMaxInterval(1*time.Second),
		backoff.WithMaxElapsedTime(retryMaxElapsed),
	), req.Context())
	return backoff.RetryWithData(attempt, boff)
}

// ResponseError is returned for any non-2xx controller response, body
// captured for diagnostics.
type ResponseError struct {
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("controller responded %d: %s", e.StatusCode, e.Body)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}
	qs := query.Encode()

	u := *c.baseURL
	u.Path = joinPath(u.Path, path)
	u.RawQuery = qs

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", path, err)
	}
	c.signRequest(req, path, nonce, qs)
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body for %s: %w", path, err)
	}

	u := *c.baseURL
	u.Path = joinPath(u.Path, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.signRequest(req, path, nonce, string(body))
	return c.do(req)
}

func (c *Client) signRequest(req *http.Request, path, nonce, qsOrBody string) {
	req.Header.Set("X-Client-Id", c.clientID)
	req.Header.Set("X-Client-Nonce", nonce)
	req.Header.Set("X-Client-Sign", sign(c.privateKey, path, nonce, qsOrBody))
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body for %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ResponseError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func joinPath(base, path string) string {
	if base == "" || base == "/" {
		return path
	}
	return base + path
}
