// Copyright (c) 2025 BVK Chaitanya

package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderID string

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// ErrRateLimited indicates the exchange has rejected a request for
// exceeding its rate limits. The gateway retries these with a longer
// backoff than other transient failures.
var ErrRateLimited = errors.New("exchange rate limit exceeded")

// RejectError is an exchange-reported logical failure, like an order
// rejected for insufficient funds. It is never retried.
type RejectError struct {
	Reason  string
	Message string
}

func (e *RejectError) Error() string {
	if len(e.Message) != 0 {
		return fmt.Sprintf("exchange rejected request: %s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("exchange rejected request: %s", e.Reason)
}

// Ticker is one observation of the market price for a trading pair.
type Ticker struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
	Time   time.Time
}

// Exchange is the gateway interface consumed by the order-lifecycle
// engine. Every call blocks the caller; transient failures are retried a
// bounded number of times by the gateway and surface as errors only after
// the retries are exhausted.
type Exchange interface {
	// GetTicker returns the current price and volume for a symbol.
	GetTicker(ctx context.Context, symbol string) (*Ticker, error)

	// NewOrder submits a limit order and returns its initial snapshot. The
	// client order id is chosen by the caller and echoed back by the
	// exchange, so a resubmitted request can be correlated.
	NewOrder(ctx context.Context, clientOrderID, side, symbol string, size, price decimal.Decimal) (*Order, error)

	// GetOrder fetches a fresh snapshot of an existing order.
	GetOrder(ctx context.Context, id OrderID) (*Order, error)

	// Heartbeat sends a keep-alive ping to the exchange.
	Heartbeat(ctx context.Context) error
}
