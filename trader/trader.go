// Copyright (c) 2025 BVK Chaitanya

// Package trader implements the order-lifecycle engine. The engine owns
// the active and closed order sets and advances them one tick at a time:
// refresh active orders, open new buys up to capacity, close matured
// positions, persist the snapshots and check the stop bounds. One tick
// runs to completion before the next begins; there is no concurrency.
package trader

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/bvk/gembot/currency"
	"github.com/bvk/gembot/exchange"
	"github.com/bvk/gembot/gobs"
	"github.com/bvk/gembot/idgen"
	"github.com/bvk/gembot/store"

	"github.com/shopspring/decimal"
)

// Decision is the engine's verdict after a tick.
type Decision int

const (
	// Continue means neither stop bound has been hit.
	Continue Decision = iota

	// Success means net gains went above the configured gains stop.
	Success

	// Failure means net gains fell below the configured loss stop.
	Failure
)

func (d Decision) String() string {
	switch d {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "continue"
	}
}

const idgenSeedKeyspace = "/gembot/trader/"

type Trader struct {
	cfg Config

	ex exchange.Exchange

	db *store.Store

	idgen *idgen.Generator

	active map[exchange.OrderID]*exchange.Order
	closed map[exchange.OrderID]*gobs.OrderPair
}

// New validates the configuration and restores the engine state from the
// datastore. Missing snapshots restore as empty state.
func New(ctx context.Context, cfg *Config, ex exchange.Exchange, db *store.Store) (*Trader, error) {
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid trader configuration: %w", err)
	}

	active, err := db.LoadActive(ctx)
	if err != nil {
		return nil, err
	}
	closed, err := db.LoadClosed(ctx)
	if err != nil {
		return nil, err
	}
	state, err := db.LoadTraderState(ctx)
	if err != nil {
		return nil, err
	}

	var offset uint64
	if state != nil {
		if state.Symbol != cfg.Pair.Symbol {
			return nil, fmt.Errorf("datastore belongs to trading pair %q, not %q", state.Symbol, cfg.Pair.Symbol)
		}
		offset = state.ClientIDOffset
	}

	v := &Trader{
		cfg:    *cfg,
		ex:     ex,
		db:     db,
		idgen:  idgen.New(idgenSeedKeyspace+cfg.Pair.Symbol, offset),
		active: active,
		closed: closed,
	}
	return v, nil
}

func (t *Trader) NumActive() int {
	return len(t.active)
}

func (t *Trader) NumClosed() int {
	return len(t.closed)
}

// NetGains returns cumulative realized profit across all closed pairs, in
// the quote currency. It is a pure function of the closed set.
func (t *Trader) NetGains() currency.Amount {
	quote := t.cfg.Pair.Quote
	total := decimal.Zero
	for _, pair := range t.closed {
		total = total.Add(netProfit(pair, quote).Decimal())
	}
	return currency.New(quote, total)
}

// netProfit is the realized profit of one closed pair: the sell leg's
// filled amount minus the buy leg's filled amount. May be negative.
func netProfit(pair *gobs.OrderPair, quote currency.Kind) currency.Amount {
	profit, err := pair.Sell.FilledAmount(quote).Sub(pair.Buy.FilledAmount(quote))
	if err != nil {
		// Both legs are typed by the same quote kind; this cannot happen.
		slog.Error("could not compute net profit for a closed pair", "err", err)
		return currency.New(quote, decimal.Zero)
	}
	return profit
}

// Tick advances the engine by one poll cycle. Failures on individual
// orders abort only that order's action for this tick; failures to persist
// the snapshots are fatal for the whole tick and are returned.
func (t *Trader) Tick(ctx context.Context, price, volume decimal.Decimal) (Decision, error) {
	// Order sizes divide by the price, so a non-positive price can never
	// enter the tick.
	if !price.IsPositive() {
		return Continue, fmt.Errorf("ticker price must be positive: %s", price)
	}

	if err := t.db.AppendPrice(ctx, t.cfg.Pair.Symbol, price, volume); err != nil {
		return Continue, err
	}

	t.refresh(ctx)
	fresh := t.replenish(ctx, price)
	t.matureAndClose(ctx, price, fresh)

	if err := t.db.SaveActive(ctx, t.active); err != nil {
		return Continue, err
	}
	if err := t.db.SaveClosed(ctx, t.closed); err != nil {
		return Continue, err
	}

	gains := t.NetGains()
	if gains.CmpDecimal(t.cfg.MaxNetGains) > 0 {
		return Success, nil
	}
	if gains.CmpDecimal(t.cfg.MaxNetLoss) < 0 {
		return Failure, nil
	}
	return Continue, nil
}

// refresh replaces every unfilled active order with a freshly fetched
// snapshot. Orders already filled are left as-is. A failed fetch keeps the
// previous snapshot and never fails the tick.
func (t *Trader) refresh(ctx context.Context) {
	for id, order := range t.active {
		if order.IsFilled() {
			continue
		}
		fresh, err := t.ex.GetOrder(ctx, id)
		if err != nil {
			slog.Warn("could not refresh order status (keeping previous snapshot)", "order", id, "err", err)
			continue
		}
		t.active[id] = fresh
	}
}

// replenish opens new buy orders until the active set reaches capacity.
// Each order's quote notional is drawn uniformly between the configured
// min and max; the limit price is set slightly above the observed price so
// the order fills promptly. Returns the ids created in this tick, which
// are exempt from maturity evaluation until their status has been fetched.
func (t *Trader) replenish(ctx context.Context, price decimal.Decimal) map[exchange.OrderID]bool {
	one := decimal.NewFromInt(1)
	fresh := make(map[exchange.OrderID]bool)

	for len(t.active) < t.cfg.MaxActiveOrders {
		value := t.randomOrderValue()
		size := currency.New(t.cfg.Pair.Base, value.Div(price))
		buyPrice := currency.New(t.cfg.Pair.Quote, price.Mul(one.Add(t.cfg.OverpayRatio)))

		clientID := t.idgen.NextID()
		order, err := t.ex.NewOrder(ctx, clientID.String(), exchange.SideBuy,
			t.cfg.Pair.Symbol, size.Decimal(), buyPrice.Decimal())
		if err != nil {
			t.idgen.RevertID()
			slog.Warn("could not submit a new buy order (skipping replenish for this tick)", "err", err)
			break
		}
		t.active[order.OrderID] = order
		fresh[order.OrderID] = true
		slog.Info("submitted a new buy order", "order", order.OrderID, "size", size, "price", buyPrice)

		if err := t.db.AppendOrder(ctx, order); err != nil {
			slog.Error("could not append the new buy order to the order log", "order", order.OrderID, "err", err)
		}
		if err := t.saveState(ctx); err != nil {
			slog.Error("could not persist the client id offset", "err", err)
		}
	}
	return fresh
}

// randomOrderValue draws a quote notional uniformly between the min and
// max order values, inclusive, at percent granularity.
func (t *Trader) randomOrderValue() decimal.Decimal {
	spread := t.cfg.MaxOrderValue.Sub(t.cfg.MinOrderValue)
	if spread.IsZero() {
		return t.cfg.MinOrderValue
	}
	pct := decimal.NewFromInt(rand.Int64N(101)).Div(decimal.NewFromInt(100))
	return t.cfg.MinOrderValue.Add(spread.Mul(pct))
}

// matureAndClose sells every active order whose thresholds the observed
// price has crossed. Maturity is tested against each order's own limit
// price, not the tick price. All matured orders close in a single pass, in
// order-id order; capacity freed here is not reused until the next tick.
func (t *Trader) matureAndClose(ctx context.Context, price decimal.Decimal, fresh map[exchange.OrderID]bool) {
	one := decimal.NewFromInt(1)

	ids := make([]exchange.OrderID, 0, len(t.active))
	for id := range t.active {
		if !fresh[id] {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	for _, id := range ids {
		buy := t.active[id]

		gainLimit := buy.Price.Mul(one.Add(t.cfg.GainRatio))
		lossLimit := buy.Price.Mul(one.Add(t.cfg.LossRatio))
		if !price.GreaterThan(gainLimit) && !price.LessThan(lossLimit) {
			continue
		}

		sellPrice := currency.New(t.cfg.Pair.Quote, price.Mul(one.Sub(t.cfg.OverpayRatio)))
		clientID := t.idgen.NextID()
		sell, err := t.ex.NewOrder(ctx, clientID.String(), exchange.SideSell,
			t.cfg.Pair.Symbol, buy.OriginalAmount, sellPrice.Decimal())
		if err != nil {
			// The buy order stays active; it will be retested next tick.
			t.idgen.RevertID()
			slog.Warn("could not submit the sell order (order stays active)", "order", id, "err", err)
			continue
		}

		delete(t.active, id)
		t.closed[id] = &gobs.OrderPair{Buy: buy, Sell: sell}
		slog.Info("closed a matured order", "buy", id, "sell", sell.OrderID, "sellPrice", sellPrice)

		if err := t.db.AppendOrder(ctx, buy); err != nil {
			slog.Error("could not append the closed buy order to the order log", "order", id, "err", err)
		}
		if err := t.db.AppendOrder(ctx, sell); err != nil {
			slog.Error("could not append the sell order to the order log", "order", sell.OrderID, "err", err)
		}
		if err := t.saveState(ctx); err != nil {
			slog.Error("could not persist the client id offset", "err", err)
		}
	}
}

func (t *Trader) saveState(ctx context.Context) error {
	state := &gobs.TraderState{
		Symbol:         t.cfg.Pair.Symbol,
		ClientIDOffset: t.idgen.Offset(),
	}
	return t.db.SaveTraderState(ctx, state)
}
