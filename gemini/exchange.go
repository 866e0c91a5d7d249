// Copyright (c) 2025 BVK Chaitanya

package gemini

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bvk/gembot/currency"
	"github.com/bvk/gembot/exchange"
	"github.com/bvk/gembot/gemini/internal"

	"github.com/shopspring/decimal"
)

var _ exchange.Exchange = (*Client)(nil)

// GetTicker fetches the current price and traded volume for a symbol.
func (c *Client) GetTicker(ctx context.Context, symbol string) (*exchange.Ticker, error) {
	pair, err := currency.PairBySymbol(symbol)
	if err != nil {
		return nil, err
	}

	var ticker *exchange.Ticker
	err = c.withRetry(ctx, "get-ticker", func(ctx context.Context) error {
		resp := new(internal.TickerResponse)
		if err := c.httpGetJSON(ctx, c.restURL("/pubticker/"+symbol), resp); err != nil {
			return err
		}
		if err := checkResult(resp.Result, resp.Reason, resp.Message); err != nil {
			return err
		}
		// A malformed body decodes to a zero price without a json error;
		// it must never reach the engine.
		if !resp.Last.IsPositive() {
			return fmt.Errorf("ticker response for %q carries no positive price", symbol)
		}
		ticker = &exchange.Ticker{
			Price:  resp.Last,
			Volume: resp.VolumeOf(pair.Base.Symbol),
			Time:   time.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticker, nil
}

// NewOrder submits a limit order. The amount and price are rounded to the
// pair's base and quote currency precision before they hit the wire.
func (c *Client) NewOrder(ctx context.Context, clientOrderID, side, symbol string, size, price decimal.Decimal) (*exchange.Order, error) {
	pair, err := currency.PairBySymbol(symbol)
	if err != nil {
		return nil, err
	}
	if side != exchange.SideBuy && side != exchange.SideSell {
		return nil, fmt.Errorf("invalid order side %q", side)
	}

	request := &internal.NewOrderRequest{
		ClientOrderID: clientOrderID,
		Symbol:        symbol,
		Amount:        currency.New(pair.Base, size).String(),
		Price:         currency.New(pair.Quote, price).String(),
		Side:          side,
		Type:          "exchange limit",
	}

	var order *exchange.Order
	err = c.withRetry(ctx, "new-order", func(ctx context.Context) error {
		resp := new(internal.OrderResponse)
		if err := c.httpSignedPost(ctx, "/order/new", request, resp); err != nil {
			return err
		}
		v, err := toOrder(resp)
		if err != nil {
			return err
		}
		order = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder fetches a fresh snapshot of an existing order.
func (c *Client) GetOrder(ctx context.Context, id exchange.OrderID) (*exchange.Order, error) {
	request := &internal.OrderStatusRequest{OrderID: string(id)}

	var order *exchange.Order
	err := c.withRetry(ctx, "order-status", func(ctx context.Context) error {
		resp := new(internal.OrderResponse)
		if err := c.httpSignedPost(ctx, "/order/status", request, resp); err != nil {
			return err
		}
		v, err := toOrder(resp)
		if err != nil {
			return err
		}
		order = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Heartbeat sends a keep-alive ping to the exchange.
func (c *Client) Heartbeat(ctx context.Context) error {
	return c.withRetry(ctx, "heartbeat", func(ctx context.Context) error {
		resp := new(internal.HeartbeatResponse)
		if err := c.httpSignedPost(ctx, "/heartbeat", nil, resp); err != nil {
			return err
		}
		if err := checkResult(resp.Result, resp.Reason, resp.Message); err != nil {
			return err
		}
		if !resp.OK {
			return fmt.Errorf("heartbeat request was not acknowledged")
		}
		return nil
	})
}

// toOrder converts a wire order object into an order snapshot. An error
// payload or a payload without an order id never produces an order.
func toOrder(r *internal.OrderResponse) (*exchange.Order, error) {
	if err := checkResult(r.Result, r.Reason, r.Message); err != nil {
		return nil, err
	}

	id := r.OrderID
	if len(id) == 0 {
		id = r.ID
	}
	if len(id) == 0 {
		return nil, fmt.Errorf("order response carries no order id")
	}
	if _, err := currency.PairBySymbol(r.Symbol); err != nil {
		return nil, fmt.Errorf("order %s: %w", id, err)
	}

	var createTime time.Time
	if r.TimestampMS != 0 {
		createTime = time.UnixMilli(r.TimestampMS)
	} else if len(r.Timestamp) != 0 {
		if secs, err := strconv.ParseInt(r.Timestamp, 10, 64); err == nil {
			createTime = time.Unix(secs, 0)
		}
	}

	return &exchange.Order{
		OrderID:         exchange.OrderID(id),
		ClientOrderID:   r.ClientOrderID,
		Symbol:          r.Symbol,
		Side:            r.Side,
		Price:           r.Price,
		OriginalAmount:  r.OriginalAmount,
		ExecutedAmount:  r.ExecutedAmount,
		RemainingAmount: r.RemainingAmount,
		CreateTime:      createTime,
		IsLive:          r.IsLive,
		IsCancelled:     r.IsCancelled,
	}, nil
}
