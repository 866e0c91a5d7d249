// Copyright (c) 2025 BVK Chaitanya

// Package gobs holds the gob-encoded types persisted in the datastore.
// Fields can only be added to these types; removing or renaming fields
// breaks older snapshots.
package gobs

import (
	"time"

	"github.com/bvk/gembot/exchange"
	"github.com/shopspring/decimal"
)

// ActiveOrders is the point-in-time snapshot of all open buy orders,
// keyed by the exchange order id. Saved as a whole on every tick.
type ActiveOrders struct {
	OrderMap map[exchange.OrderID]*exchange.Order
}

// OrderPair is one completed buy/sell round trip.
type OrderPair struct {
	Buy  *exchange.Order
	Sell *exchange.Order
}

// ClosedOrders is the snapshot of all completed round trips, keyed by the
// originating buy order id. A pair is inserted exactly once.
type ClosedOrders struct {
	PairMap map[exchange.OrderID]*OrderPair
}

// OrderLogEntry is one line of the append-only order action log.
type OrderLogEntry struct {
	Timestamp time.Time
	Order     *exchange.Order
}

// PricePoint is one line of the append-only price history log.
type PricePoint struct {
	Timestamp time.Time
	Symbol    string
	Price     decimal.Decimal
	Volume    decimal.Decimal
}

// TraderState carries the engine state that cannot be derived from the
// order snapshots, currently just the client order-id offset.
type TraderState struct {
	Symbol         string
	ClientIDOffset uint64
}

// NonceState is the persisted request-signing nonce counter.
type NonceState struct {
	Last uint64
}
