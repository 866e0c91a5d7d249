// Copyright (c) 2025 BVK Chaitanya

package gemini

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
)

// NonceSource hands out strictly increasing nonces for signed requests.
// Every value must be durable before it is used, so that a restarted
// process can never reuse or decrease a nonce.
type NonceSource interface {
	NextNonce(ctx context.Context) (uint64, error)
}

// signRequest builds the authentication headers for a private API call.
// The request payload, the API path and a fresh nonce are merged into one
// JSON object, base64-encoded into the payload header and signed with
// HMAC-SHA384. A fresh nonce is drawn on every invocation, so retries are
// signed independently.
func (c *Client) signRequest(ctx context.Context, apiPath string, request any) (http.Header, error) {
	payload := make(map[string]any)
	if request != nil {
		data, err := json.Marshal(request)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request payload: %w", err)
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("could not remarshal request payload: %w", err)
		}
	}

	nonce, err := c.nonces.NextNonce(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not acquire a request nonce: %w", err)
	}
	payload["request"] = apiPath
	payload["nonce"] = nonce

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("could not marshal signing payload: %w", err)
	}
	b64 := base64.StdEncoding.EncodeToString(data)

	mac := hmac.New(sha512.New384, c.secret)
	mac.Write([]byte(b64))
	signature := hex.EncodeToString(mac.Sum(nil))

	headers := make(http.Header)
	headers.Set("Content-Type", "text/plain")
	headers.Set("Content-Length", "0")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("X-GEMINI-APIKEY", c.key)
	headers.Set("X-GEMINI-PAYLOAD", b64)
	headers.Set("X-GEMINI-SIGNATURE", signature)
	return headers, nil
}
