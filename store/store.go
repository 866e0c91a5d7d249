// Copyright (c) 2025 BVK Chaitanya

// Package store is the persistence gateway. Active and closed order sets
// are saved as whole snapshots (last write wins); the order and price
// histories are append-only logs; the request nonce is a monotonic counter
// persisted on every increment.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bvk/gembot/exchange"
	"github.com/bvk/gembot/gobs"
	"github.com/bvk/gembot/kvutil"

	"github.com/bvkgo/kv"
	"github.com/shopspring/decimal"
)

const (
	activeOrdersKey = "/gembot/orders/active"
	closedOrdersKey = "/gembot/orders/closed"
	traderStateKey  = "/gembot/trader"
	nonceKey        = "/gembot/nonce"

	orderLogKeyspace = "/gembot/log/orders"
	priceLogKeyspace = "/gembot/log/prices"
)

type Store struct {
	db kv.Database

	// seq disambiguates log keys written within the same nanosecond.
	seq uint64
}

func New(db kv.Database) *Store {
	return &Store{db: db}
}

// Database exposes the underlying kv database, for inspection commands.
func (s *Store) Database() kv.Database {
	return s.db
}

// LoadActive returns the persisted active-order snapshot. A missing
// snapshot is an empty map, not an error.
func (s *Store) LoadActive(ctx context.Context) (map[exchange.OrderID]*exchange.Order, error) {
	gv, err := kvutil.GetDB[gobs.ActiveOrders](ctx, s.db, activeOrdersKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[exchange.OrderID]*exchange.Order), nil
		}
		return nil, fmt.Errorf("could not load active orders: %w", err)
	}
	if gv.OrderMap == nil {
		gv.OrderMap = make(map[exchange.OrderID]*exchange.Order)
	}
	return gv.OrderMap, nil
}

// SaveActive overwrites the active-order snapshot.
func (s *Store) SaveActive(ctx context.Context, orders map[exchange.OrderID]*exchange.Order) error {
	gv := &gobs.ActiveOrders{OrderMap: orders}
	if err := kvutil.SetDB(ctx, s.db, activeOrdersKey, gv); err != nil {
		return fmt.Errorf("could not save active orders: %w", err)
	}
	return nil
}

// LoadClosed returns the persisted closed-pair snapshot. A missing
// snapshot is an empty map, not an error.
func (s *Store) LoadClosed(ctx context.Context) (map[exchange.OrderID]*gobs.OrderPair, error) {
	gv, err := kvutil.GetDB[gobs.ClosedOrders](ctx, s.db, closedOrdersKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[exchange.OrderID]*gobs.OrderPair), nil
		}
		return nil, fmt.Errorf("could not load closed orders: %w", err)
	}
	if gv.PairMap == nil {
		gv.PairMap = make(map[exchange.OrderID]*gobs.OrderPair)
	}
	return gv.PairMap, nil
}

// SaveClosed overwrites the closed-pair snapshot.
func (s *Store) SaveClosed(ctx context.Context, pairs map[exchange.OrderID]*gobs.OrderPair) error {
	gv := &gobs.ClosedOrders{PairMap: pairs}
	if err := kvutil.SetDB(ctx, s.db, closedOrdersKey, gv); err != nil {
		return fmt.Errorf("could not save closed orders: %w", err)
	}
	return nil
}

// LoadTraderState returns the persisted engine state, or nil when none
// exists yet.
func (s *Store) LoadTraderState(ctx context.Context) (*gobs.TraderState, error) {
	gv, err := kvutil.GetDB[gobs.TraderState](ctx, s.db, traderStateKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not load trader state: %w", err)
	}
	return gv, nil
}

func (s *Store) SaveTraderState(ctx context.Context, state *gobs.TraderState) error {
	if err := kvutil.SetDB(ctx, s.db, traderStateKey, state); err != nil {
		return fmt.Errorf("could not save trader state: %w", err)
	}
	return nil
}

func (s *Store) logKey(keyspace string, at time.Time) string {
	s.seq++
	return fmt.Sprintf("%s/%s-%08d", keyspace, at.UTC().Format(time.RFC3339Nano), s.seq)
}

// AppendOrder appends one order action to the order log. Log entries are
// never rewritten.
func (s *Store) AppendOrder(ctx context.Context, order *exchange.Order) error {
	entry := &gobs.OrderLogEntry{
		Timestamp: time.Now(),
		Order:     order,
	}
	key := s.logKey(orderLogKeyspace, entry.Timestamp)
	if err := kvutil.SetDB(ctx, s.db, key, entry); err != nil {
		return fmt.Errorf("could not append to the order log: %w", err)
	}
	return nil
}

// AppendPrice appends one ticker observation to the price log.
func (s *Store) AppendPrice(ctx context.Context, symbol string, price, volume decimal.Decimal) error {
	point := &gobs.PricePoint{
		Timestamp: time.Now(),
		Symbol:    symbol,
		Price:     price,
		Volume:    volume,
	}
	key := s.logKey(priceLogKeyspace, point.Timestamp)
	if err := kvutil.SetDB(ctx, s.db, key, point); err != nil {
		return fmt.Errorf("could not append to the price log: %w", err)
	}
	return nil
}

// ScanOrderLog iterates the order log in append order.
func (s *Store) ScanOrderLog(ctx context.Context, fn func(*gobs.OrderLogEntry) error) error {
	begin, end := kvutil.PathRange(orderLogKeyspace)
	return kvutil.AscendDB(ctx, s.db, begin, end, func(ctx context.Context, r kv.Reader, k string, v *gobs.OrderLogEntry) error {
		return fn(v)
	})
}

// ScanPriceLog iterates the price log in append order.
func (s *Store) ScanPriceLog(ctx context.Context, fn func(*gobs.PricePoint) error) error {
	begin, end := kvutil.PathRange(priceLogKeyspace)
	return kvutil.AscendDB(ctx, s.db, begin, end, func(ctx context.Context, r kv.Reader, k string, v *gobs.PricePoint) error {
		return fn(v)
	})
}
