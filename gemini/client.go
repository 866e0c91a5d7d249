// Copyright (c) 2025 BVK Chaitanya

// Package gemini implements the exchange gateway for the Gemini REST and
// websocket APIs.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"

	"github.com/bvk/gembot/ctxutil"
	"github.com/bvk/gembot/exchange"

	"golang.org/x/time/rate"
)

type Client struct {
	opts Options

	key    string
	secret []byte

	nonces NonceSource

	client http.Client

	limiter *rate.Limiter
}

// New returns a client for the Gemini API. Private calls are signed with
// the given key and secret; nonces for the signatures are drawn from the
// given source.
func New(key, secret string, nonces NonceSource, opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	if len(key) == 0 || len(secret) == 0 {
		return nil, fmt.Errorf("api key and secret cannot be empty")
	}
	if nonces == nil {
		return nil, fmt.Errorf("nonce source cannot be nil")
	}
	c := &Client{
		opts:   *opts,
		key:    key,
		secret: []byte(secret),
		nonces: nonces,
		client: http.Client{
			Timeout: opts.HttpClientTimeout,
		},
		limiter: rate.NewLimiter(opts.MaxRequestsPerSecond, 1),
	}
	return c, nil
}

func (c *Client) restURL(subpath string) *url.URL {
	return &url.URL{
		Scheme: c.opts.RestURL.Scheme,
		Host:   c.opts.RestURL.Host,
		Path:   path.Join(c.opts.RestURL.Path, subpath),
	}
}

// withRetry runs one API call with the gateway's bounded retry policy: a
// rate-limited call is retried once after a long wait, any other transient
// failure is retried once after a short wait and exchange-reported
// rejections are never retried. A second failure propagates to the caller.
func (c *Client) withRetry(ctx context.Context, name string, call func(ctx context.Context) error) error {
	err := call(ctx)
	if err == nil || ctx.Err() != nil {
		return err
	}

	var reject *exchange.RejectError
	if errors.As(err, &reject) {
		return err
	}

	wait := c.opts.TransientRetryWait
	if errors.Is(err, exchange.ErrRateLimited) {
		wait = c.opts.RateLimitRetryWait
	}
	slog.Warn("gemini api call failed (retrying once)", "call", name, "wait", wait, "err", err)
	ctxutil.Sleep(ctx, wait)
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	return call(ctx)
}

func (c *Client) httpGetJSON(ctx context.Context, addrURL *url.URL, response any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addrURL.String(), nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, response)
}

func (c *Client) httpSignedPost(ctx context.Context, apiPath string, request, response any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	// The signed "request" field carries the full path, version prefix
	// included.
	addrURL := c.restURL(apiPath)
	headers, err := c.signRequest(ctx, addrURL.Path, request)
	if err != nil {
		return err
	}
	// The signed payload travels in the headers; the body stays empty.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addrURL.String(), nil)
	if err != nil {
		return err
	}
	req.Header = headers
	return c.doJSON(req, response)
}

func (c *Client) doJSON(req *http.Request, response any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return exchange.ErrRateLimited
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response body: %w", err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("http status %d: %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, response); err != nil {
		return fmt.Errorf("could not decode response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

// checkResult converts an exchange-reported error payload into a reject
// error. Rejections are logical failures and are not retried.
func checkResult(result, reason, message string) error {
	if result == "error" {
		return &exchange.RejectError{Reason: reason, Message: message}
	}
	return nil
}
