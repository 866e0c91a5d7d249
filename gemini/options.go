// Copyright (c) 2025 BVK Chaitanya

package gemini

import (
	"fmt"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// RestURL is the default address for the Gemini REST API.
var RestURL = &url.URL{
	Scheme: "https",
	Host:   "api.gemini.com",
	Path:   "/v1",
}

// WebsocketURL is the default address for the Gemini websocket API.
var WebsocketURL = &url.URL{
	Scheme: "wss",
	Host:   "api.gemini.com",
	Path:   "/v1",
}

type Options struct {
	// RestURL and WebsocketURL override the API endpoints, mainly for
	// tests.
	RestURL      *url.URL
	WebsocketURL *url.URL

	HttpClientTimeout time.Duration

	// RateLimitRetryWait is how long to wait before the single retry after
	// the exchange reports a rate limit. TransientRetryWait is the wait
	// before the single retry after any other transient failure.
	RateLimitRetryWait time.Duration
	TransientRetryWait time.Duration

	// MaxRequestsPerSecond limits outgoing API calls on the client side,
	// before the exchange has a chance to rate-limit us.
	MaxRequestsPerSecond rate.Limit
}

func (v *Options) setDefaults() {
	if v.RestURL == nil {
		v.RestURL = RestURL
	}
	if v.WebsocketURL == nil {
		v.WebsocketURL = WebsocketURL
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 30 * time.Second
	}
	if v.RateLimitRetryWait == 0 {
		v.RateLimitRetryWait = 10 * time.Second
	}
	if v.TransientRetryWait == 0 {
		v.TransientRetryWait = 2 * time.Second
	}
	if v.MaxRequestsPerSecond == 0 {
		v.MaxRequestsPerSecond = 2
	}
}

func (v *Options) Check() error {
	if v.RestURL == nil || len(v.RestURL.Host) == 0 {
		return fmt.Errorf("rest api url cannot be empty")
	}
	if v.WebsocketURL == nil || len(v.WebsocketURL.Host) == 0 {
		return fmt.Errorf("websocket api url cannot be empty")
	}
	if v.HttpClientTimeout <= 0 {
		return fmt.Errorf("http client timeout must be positive")
	}
	return nil
}
