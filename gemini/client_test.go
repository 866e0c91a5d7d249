// Copyright (c) 2025 BVK Chaitanya

package gemini

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bvk/gembot/exchange"
	"github.com/bvk/gembot/gemini/internal"
)

type countingNonces struct {
	last atomic.Uint64
}

func (s *countingNonces) NextNonce(ctx context.Context) (uint64, error) {
	return s.last.Add(1), nil
}

func testOptions(s *httptest.Server) *Options {
	u, _ := url.Parse(s.URL)
	u.Path = "/v1"
	return &Options{
		RestURL:              u,
		RateLimitRetryWait:   time.Millisecond,
		TransientRetryWait:   time.Millisecond,
		MaxRequestsPerSecond: 1000,
	}
}

func TestGetTicker(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/pubticker/ethusd" {
			t.Errorf("unexpected request path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"bid":"99.9","ask":"100.1","last":"100.00","volume":{"ETH":"1234.5","USD":"123450.0","timestamp":1494870642000}}`)
	}))
	defer s.Close()

	c, err := New("key", "secret", &countingNonces{}, testOptions(s))
	if err != nil {
		t.Fatal(err)
	}

	ticker, err := c.GetTicker(context.Background(), "ethusd")
	if err != nil {
		t.Fatal(err)
	}
	if ticker.Price.String() != "100" {
		t.Errorf("ticker price must be 100: got %s", ticker.Price)
	}
	if ticker.Volume.String() != "1234.5" {
		t.Errorf("ticker volume must be 1234.5: got %s", ticker.Volume)
	}

	if _, err := c.GetTicker(context.Background(), "dogeusd"); err == nil {
		t.Errorf("unknown symbol must be rejected before any request is made")
	}
}

func TestTickerWithoutPriceIsRejected(t *testing.T) {
	// A 200 response with an unexpected body decodes to a zero price; the
	// gateway must turn it into an error instead of handing the engine a
	// price it cannot divide by.
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer s.Close()

	c, err := New("key", "secret", &countingNonces{}, testOptions(s))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetTicker(context.Background(), "ethusd"); err == nil {
		t.Fatal("ticker response without a positive price must be rejected")
	}
}

func TestSignedRequestHeaders(t *testing.T) {
	var payloads []string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if k := r.Header.Get("X-GEMINI-APIKEY"); k != "test-key" {
			t.Errorf("api key header must be test-key: got %q", k)
		}
		b64 := r.Header.Get("X-GEMINI-PAYLOAD")
		payloads = append(payloads, b64)

		mac := hmac.New(sha512.New384, []byte("test-secret"))
		mac.Write([]byte(b64))
		if want := hex.EncodeToString(mac.Sum(nil)); r.Header.Get("X-GEMINI-SIGNATURE") != want {
			t.Errorf("payload signature mismatch")
		}
		fmt.Fprint(w, `{"result":true}`)
	}))
	defer s.Close()

	c, err := New("test-key", "test-secret", &countingNonces{}, testOptions(s))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := c.Heartbeat(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	if len(payloads) != 2 {
		t.Fatalf("expected 2 signed requests: got %d", len(payloads))
	}
	var nonces []uint64
	for _, b64 := range payloads {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			t.Fatal(err)
		}
		var payload struct {
			Request string `json:"request"`
			Nonce   uint64 `json:"nonce"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatal(err)
		}
		if payload.Request != "/v1/heartbeat" {
			t.Errorf("payload request must be /v1/heartbeat: got %q", payload.Request)
		}
		nonces = append(nonces, payload.Nonce)
	}
	if nonces[1] <= nonces[0] {
		t.Errorf("nonces must increase across requests: got %v", nonces)
	}
}

func TestRateLimitRetry(t *testing.T) {
	var calls atomic.Int32
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"last":"50.0","volume":{}}`)
	}))
	defer s.Close()

	c, err := New("key", "secret", &countingNonces{}, testOptions(s))
	if err != nil {
		t.Fatal(err)
	}
	ticker, err := c.GetTicker(context.Background(), "ethusd")
	if err != nil {
		t.Fatal(err)
	}
	if ticker.Price.String() != "50" {
		t.Errorf("ticker price must be 50: got %s", ticker.Price)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("rate-limited call must be retried exactly once: got %d calls", n)
	}
}

func TestTransientRetryExhausted(t *testing.T) {
	var calls atomic.Int32
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer s.Close()

	c, err := New("key", "secret", &countingNonces{}, testOptions(s))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetTicker(context.Background(), "ethusd"); err == nil {
		t.Fatal("exhausted retries must surface an error")
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("transient failure must be retried exactly once: got %d calls", n)
	}
}

func TestRejectedOrderIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"result":"error","reason":"InsufficientFunds","message":"not enough USD"}`)
	}))
	defer s.Close()

	c, err := New("key", "secret", &countingNonces{}, testOptions(s))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.GetOrder(context.Background(), "44375901")
	if err == nil {
		t.Fatal("rejected response must surface an error")
	}
	var reject *exchange.RejectError
	if !errors.As(err, &reject) {
		t.Fatalf("error must be a reject error: got %v", err)
	}
	if reject.Reason != "InsufficientFunds" {
		t.Errorf("reject reason must survive: got %q", reject.Reason)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("rejected call must not be retried: got %d calls", n)
	}
}

func TestToOrderValidation(t *testing.T) {
	if _, err := toOrder(&internal.OrderResponse{Symbol: "ethusd"}); err == nil {
		t.Errorf("order response without an id must be rejected")
	}
	if _, err := toOrder(&internal.OrderResponse{OrderID: "1", Symbol: "nopair"}); err == nil {
		t.Errorf("order response with an unknown symbol must be rejected")
	}

	resp := &internal.OrderResponse{
		OrderID:     "44375901",
		Symbol:      "ethusd",
		Side:        "buy",
		TimestampMS: 1494870642156,
		IsLive:      true,
	}
	order, err := toOrder(resp)
	if err != nil {
		t.Fatal(err)
	}
	if order.OrderID != "44375901" || !order.IsLive {
		t.Errorf("converted order did not carry the wire fields: %+v", order)
	}
	if order.CreateTime.UnixMilli() != 1494870642156 {
		t.Errorf("create time must come from timestampms: got %v", order.CreateTime)
	}
}
