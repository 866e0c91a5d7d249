// Copyright (c) 2025 BVK Chaitanya

// Package internal defines the wire request/response types for the Gemini
// REST and websocket APIs.
package internal

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrorResult is present on every private API response that failed. A
// response with Result == "error" must never be turned into an order.
type ErrorResult struct {
	Result  string `json:"result,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *ErrorResult) IsError() bool {
	return e.Result == "error"
}

// TickerResponse is the /v1/pubticker/{symbol} response. The volume object
// carries one entry per currency in the pair plus a millisecond timestamp.
type TickerResponse struct {
	ErrorResult

	Bid    decimal.Decimal            `json:"bid"`
	Ask    decimal.Decimal            `json:"ask"`
	Last   decimal.Decimal            `json:"last"`
	Volume map[string]json.RawMessage `json:"volume"`
}

// VolumeOf returns the traded volume for a currency symbol from the volume
// object, or zero when absent.
func (r *TickerResponse) VolumeOf(symbol string) decimal.Decimal {
	raw, ok := r.Volume[strings.ToUpper(symbol)]
	if !ok {
		return decimal.Zero
	}
	var v decimal.Decimal
	if err := json.Unmarshal(raw, &v); err != nil {
		return decimal.Zero
	}
	return v
}

// NewOrderRequest is the /v1/order/new payload. Amount and price are
// strings already rounded to the currency precision.
type NewOrderRequest struct {
	ClientOrderID string `json:"client_order_id,omitempty"`
	Symbol        string `json:"symbol"`
	Amount        string `json:"amount"`
	Price         string `json:"price"`
	Side          string `json:"side"`
	Type          string `json:"type"`
}

// OrderStatusRequest is the /v1/order/status payload.
type OrderStatusRequest struct {
	OrderID string `json:"order_id"`
}

// OrderResponse is the order object returned by /v1/order/new and
// /v1/order/status.
type OrderResponse struct {
	ErrorResult

	OrderID string `json:"order_id"`
	ID      string `json:"id"`

	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Side     string `json:"side"`
	Type     string `json:"type"`

	Timestamp   string `json:"timestamp"`
	TimestampMS int64  `json:"timestampms"`

	IsLive      bool `json:"is_live"`
	IsCancelled bool `json:"is_cancelled"`
	IsHidden    bool `json:"is_hidden"`
	WasForced   bool `json:"was_forced"`

	ClientOrderID string `json:"client_order_id"`

	Price             decimal.Decimal `json:"price"`
	AvgExecutionPrice decimal.Decimal `json:"avg_execution_price"`
	OriginalAmount    decimal.Decimal `json:"original_amount"`
	ExecutedAmount    decimal.Decimal `json:"executed_amount"`
	RemainingAmount   decimal.Decimal `json:"remaining_amount"`
}

// HeartbeatResponse is the /v1/heartbeat response.
type HeartbeatResponse struct {
	ErrorResult

	OK bool `json:"-"`
}

// UnmarshalJSON accepts both the documented boolean result and the "ok"
// string some API versions return.
func (r *HeartbeatResponse) UnmarshalJSON(data []byte) error {
	var v struct {
		Result  json.RawMessage `json:"result"`
		Reason  string          `json:"reason"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	r.Reason, r.Message = v.Reason, v.Message
	switch s := string(v.Result); s {
	case "true", `"ok"`:
		r.OK = true
	case `"error"`:
		r.Result = "error"
	}
	return nil
}

// OrderEvent is one message from the /v1/order/events websocket feed.
type OrderEvent struct {
	Type    string `json:"type"`
	OrderID string `json:"order_id"`

	Symbol string `json:"symbol"`
	Side   string `json:"side"`

	Timestamp   string `json:"timestamp"`
	TimestampMS int64  `json:"timestampms"`

	IsLive      bool `json:"is_live"`
	IsCancelled bool `json:"is_cancelled"`

	Price           decimal.Decimal `json:"price"`
	OriginalAmount  decimal.Decimal `json:"original_amount"`
	ExecutedAmount  decimal.Decimal `json:"executed_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}
