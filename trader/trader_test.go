// Copyright (c) 2025 BVK Chaitanya

package trader

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bvk/gembot/currency"
	"github.com/bvk/gembot/exchange"
	"github.com/bvk/gembot/store"

	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

// fakeExchange is an in-memory exchange gateway. Orders fill immediately
// when fillOnCreate is set, mimicking aggressively priced limit orders.
type fakeExchange struct {
	nextID int

	fillOnCreate bool

	refreshErr error

	orders map[exchange.OrderID]*exchange.Order
}

func newFakeExchange(fillOnCreate bool) *fakeExchange {
	return &fakeExchange{
		fillOnCreate: fillOnCreate,
		orders:       make(map[exchange.OrderID]*exchange.Order),
	}
}

func (f *fakeExchange) GetTicker(ctx context.Context, symbol string) (*exchange.Ticker, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeExchange) NewOrder(ctx context.Context, clientOrderID, side, symbol string, size, price decimal.Decimal) (*exchange.Order, error) {
	f.nextID++
	order := &exchange.Order{
		OrderID:         exchange.OrderID(fmt.Sprintf("%06d", f.nextID)),
		ClientOrderID:   clientOrderID,
		Symbol:          symbol,
		Side:            side,
		Price:           price,
		OriginalAmount:  size,
		RemainingAmount: size,
		CreateTime:      time.Now(),
		IsLive:          true,
	}
	if f.fillOnCreate {
		order.ExecutedAmount = size
		order.RemainingAmount = decimal.Zero
		order.IsLive = false
	}
	f.orders[order.OrderID] = order
	return order, nil
}

func (f *fakeExchange) GetOrder(ctx context.Context, id exchange.OrderID) (*exchange.Order, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	order, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("no order with id %s", id)
	}
	return order, nil
}

func (f *fakeExchange) Heartbeat(ctx context.Context) error {
	return nil
}

func testConfig() *Config {
	pair, _ := currency.PairBySymbol("ethusd")
	return &Config{
		Pair:            pair,
		MinOrderValue:   decimal.NewFromInt(10),
		MaxOrderValue:   decimal.NewFromInt(10),
		GainRatio:       decimal.RequireFromString("0.10"),
		LossRatio:       decimal.RequireFromString("-0.05"),
		OverpayRatio:    decimal.RequireFromString("0.005"),
		MaxActiveOrders: 1,
		MaxNetGains:     decimal.NewFromInt(100),
		MaxNetLoss:      decimal.NewFromInt(-100),
		PollInterval:    time.Second,
	}
}

func mustTick(t *testing.T, v *Trader, price int64) Decision {
	t.Helper()
	d, err := v.Tick(context.Background(), decimal.NewFromInt(price), decimal.Zero)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestBuyThenSellRoundTrip(t *testing.T) {
	ctx := context.Background()
	ex := newFakeExchange(true)
	db := store.New(kvmemdb.New())

	v, err := New(ctx, testConfig(), ex, db)
	if err != nil {
		t.Fatal(err)
	}

	// Tick 1 at price 100: one buy order of 10/100 = 0.1 ETH at 100.50.
	if d := mustTick(t, v, 100); d != Continue {
		t.Fatalf("tick 1 must continue: got %v", d)
	}
	if v.NumActive() != 1 || v.NumClosed() != 0 {
		t.Fatalf("tick 1 must leave one active order: active=%d closed=%d", v.NumActive(), v.NumClosed())
	}
	var buy *exchange.Order
	for _, o := range v.active {
		buy = o
	}
	if !buy.OriginalAmount.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("buy size must be 0.1 eth: got %s", buy.OriginalAmount)
	}
	if !buy.Price.Equal(decimal.RequireFromString("100.50")) {
		t.Errorf("buy price must be 100.50: got %s", buy.Price)
	}

	// Tick 2 at price 100: no threshold crossed, nothing changes.
	if d := mustTick(t, v, 100); d != Continue {
		t.Fatalf("tick 2 must continue: got %v", d)
	}
	if v.NumActive() != 1 || v.NumClosed() != 0 {
		t.Fatalf("tick 2 must not close anything: active=%d closed=%d", v.NumActive(), v.NumClosed())
	}

	// Tick 3 at price 115: 115 > 100.50 * 1.10 = 110.55, so the position
	// closes with a sell at 115 * 0.995 = 114.43 (rounded to cents).
	if d := mustTick(t, v, 115); d != Continue {
		t.Fatalf("tick 3 must continue: got %v", d)
	}
	if v.NumClosed() != 1 {
		t.Fatalf("tick 3 must close the order: closed=%d", v.NumClosed())
	}
	// A freed slot is refilled on the next tick, not the same one.
	if v.NumActive() != 0 {
		t.Fatalf("freed capacity must not be reused within the tick: active=%d", v.NumActive())
	}
	for _, pair := range v.closed {
		if pair.Buy == nil || pair.Sell == nil {
			t.Fatalf("closed pair must carry both legs: %+v", pair)
		}
		if !pair.Sell.Price.Equal(decimal.RequireFromString("114.43")) {
			t.Errorf("sell price must be 114.43: got %s", pair.Sell.Price)
		}
	}

	// Net gains: 114.43*0.1 - 100.50*0.1 = 11.44 - 10.05 = 1.39 USD.
	if gains := v.NetGains(); gains.String() != "1.39" {
		t.Errorf("net gains must be 1.39 usd: got %s", gains)
	}

	// The persisted snapshots must agree with the in-memory maps.
	active, err := db.LoadActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("persisted active snapshot must be empty: got %d", len(active))
	}
	closed, err := db.LoadClosed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(closed) != 1 {
		t.Errorf("persisted closed snapshot must have one pair: got %d", len(closed))
	}
}

func TestActiveSetCapacity(t *testing.T) {
	ctx := context.Background()
	ex := newFakeExchange(true)
	db := store.New(kvmemdb.New())

	cfg := testConfig()
	cfg.MaxActiveOrders = 3
	v, err := New(ctx, cfg, ex, db)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		mustTick(t, v, 100)
		if n := v.NumActive(); n > cfg.MaxActiveOrders {
			t.Fatalf("active set must never exceed %d: got %d", cfg.MaxActiveOrders, n)
		}
	}
	if n := v.NumActive(); n != 3 {
		t.Errorf("replenish must fill the active set to capacity: got %d", n)
	}
}

func TestGainStop(t *testing.T) {
	ctx := context.Background()
	ex := newFakeExchange(true)
	db := store.New(kvmemdb.New())

	cfg := testConfig()
	cfg.MaxNetGains = decimal.NewFromInt(1)
	v, err := New(ctx, cfg, ex, db)
	if err != nil {
		t.Fatal(err)
	}

	mustTick(t, v, 100)
	// Net gains after this close are 1.39, above the stop at 1.
	if d := mustTick(t, v, 115); d != Success {
		t.Fatalf("gains above the stop must return success: got %v", d)
	}
}

func TestLossStop(t *testing.T) {
	ctx := context.Background()
	ex := newFakeExchange(true)
	db := store.New(kvmemdb.New())

	cfg := testConfig()
	cfg.MaxNetLoss = decimal.RequireFromString("-0.5")
	v, err := New(ctx, cfg, ex, db)
	if err != nil {
		t.Fatal(err)
	}

	mustTick(t, v, 100)
	// 94 < 100.50 * 0.95 = 95.475, so the position closes at a loss:
	// 94 * 0.995 = 93.53, net 9.35 - 10.05 = -0.70, below the stop.
	if d := mustTick(t, v, 94); d != Failure {
		t.Fatalf("losses below the stop must return failure: got %v", d)
	}
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	ex := newFakeExchange(false)
	db := store.New(kvmemdb.New())

	v, err := New(ctx, testConfig(), ex, db)
	if err != nil {
		t.Fatal(err)
	}

	mustTick(t, v, 100)
	var before *exchange.Order
	for _, o := range v.active {
		before = o
	}

	// A refresh error must keep the previous snapshot and must not
	// propagate out of the tick.
	ex.refreshErr = &exchange.RejectError{Reason: "ServerError"}
	if d := mustTick(t, v, 100); d != Continue {
		t.Fatalf("tick with failing refresh must continue: got %v", d)
	}
	var after *exchange.Order
	for _, o := range v.active {
		after = o
	}
	if before != after {
		t.Errorf("failed refresh must not replace the active order entry")
	}
}

func TestSellFailureKeepsOrderActive(t *testing.T) {
	ctx := context.Background()
	ex := newFakeExchange(true)
	db := store.New(kvmemdb.New())

	v, err := New(ctx, testConfig(), ex, db)
	if err != nil {
		t.Fatal(err)
	}

	mustTick(t, v, 100)

	// Fail the sell submit: the matured buy must stay active with no
	// partially inserted closed pair.
	ex.refreshErr = nil
	failing := &failingNewOrders{fakeExchange: ex}
	v.ex = failing
	if d := mustTick(t, v, 115); d != Continue {
		t.Fatalf("tick with failing sell must continue: got %v", d)
	}
	if v.NumActive() != 1 || v.NumClosed() != 0 {
		t.Fatalf("failed sell must leave the buy active: active=%d closed=%d", v.NumActive(), v.NumClosed())
	}

	// Once submits work again the next tick closes it.
	v.ex = ex
	if d := mustTick(t, v, 115); d != Continue {
		t.Fatalf("recovery tick must continue: got %v", d)
	}
	if v.NumActive() != 0 || v.NumClosed() != 1 {
		t.Fatalf("recovery tick must close the order: active=%d closed=%d", v.NumActive(), v.NumClosed())
	}
}

type failingNewOrders struct {
	*fakeExchange
}

func (f *failingNewOrders) NewOrder(ctx context.Context, clientOrderID, side, symbol string, size, price decimal.Decimal) (*exchange.Order, error) {
	return nil, &exchange.RejectError{Reason: "InsufficientFunds"}
}

func TestRestartRestoresState(t *testing.T) {
	ctx := context.Background()
	ex := newFakeExchange(true)
	mdb := kvmemdb.New()
	db := store.New(mdb)

	v1, err := New(ctx, testConfig(), ex, db)
	if err != nil {
		t.Fatal(err)
	}
	mustTick(t, v1, 100)
	mustTick(t, v1, 115)
	mustTick(t, v1, 100)

	v2, err := New(ctx, testConfig(), ex, store.New(mdb))
	if err != nil {
		t.Fatal(err)
	}
	if v2.NumActive() != v1.NumActive() || v2.NumClosed() != v1.NumClosed() {
		t.Fatalf("restart must restore the order sets: active=%d/%d closed=%d/%d",
			v2.NumActive(), v1.NumActive(), v2.NumClosed(), v1.NumClosed())
	}
	if g1, g2 := v1.NetGains(), v2.NetGains(); g1.String() != g2.String() {
		t.Errorf("net gains must be derivable from the restored snapshot: %s != %s", g1, g2)
	}
	// The client id stream must continue, not repeat.
	if id1, id2 := v1.idgen.Offset(), v2.idgen.Offset(); id1 != id2 {
		t.Errorf("restored client id offset must match: %d != %d", id1, id2)
	}

	// A datastore bound to another trading pair must be rejected.
	cfg := testConfig()
	cfg.Pair, _ = currency.PairBySymbol("btcusd")
	if _, err := New(ctx, cfg, ex, store.New(mdb)); err == nil {
		t.Errorf("mismatched trading pair must be rejected at startup")
	}
}

func TestNonPositivePriceIsRejected(t *testing.T) {
	ctx := context.Background()
	ex := newFakeExchange(true)
	db := store.New(kvmemdb.New())

	v, err := New(ctx, testConfig(), ex, db)
	if err != nil {
		t.Fatal(err)
	}

	for _, price := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-1)} {
		if _, err := v.Tick(ctx, price, decimal.Zero); err == nil {
			t.Errorf("tick with price %s must fail", price)
		}
	}
	if v.NumActive() != 0 || v.NumClosed() != 0 {
		t.Errorf("rejected tick must not change the order sets: active=%d closed=%d",
			v.NumActive(), v.NumClosed())
	}
}

func TestConfigCheck(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Check(); err != nil {
		t.Fatalf("valid config must pass: %v", err)
	}

	bad := *cfg
	bad.LossRatio = decimal.RequireFromString("0.05")
	if err := bad.Check(); err == nil {
		t.Errorf("positive loss ratio must be rejected")
	}

	bad = *cfg
	bad.MaxOrderValue = decimal.NewFromInt(1)
	if err := bad.Check(); err == nil {
		t.Errorf("max order value below min must be rejected")
	}

	bad = *cfg
	bad.Pair.Symbol = "dogeusd"
	if err := bad.Check(); err == nil {
		t.Errorf("unknown trading pair must be rejected")
	}

	bad = *cfg
	bad.MaxActiveOrders = 0
	if err := bad.Check(); err == nil {
		t.Errorf("zero max active orders must be rejected")
	}
}
