// Copyright (c) 2025 BVK Chaitanya

package trader

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bvk/gembot/currency"
	"github.com/bvk/gembot/exchange"
)

type Status struct {
	Symbol string

	NumActive int
	NumClosed int

	NetGains currency.Amount
}

func (t *Trader) Status() *Status {
	return &Status{
		Symbol:    t.cfg.Pair.Symbol,
		NumActive: len(t.active),
		NumClosed: len(t.closed),
		NetGains:  t.NetGains(),
	}
}

// Summary renders the per-tick status table printed to the operator.
func (t *Trader) Summary() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Buys:\n")
	for _, id := range sortedKeys(t.active) {
		fmt.Fprintf(&sb, "  %s: %s\n", id, t.active[id])
	}

	fmt.Fprintf(&sb, "Sells:\n")
	for _, id := range sortedKeys(t.closed) {
		pair := t.closed[id]
		fmt.Fprintf(&sb, "  %s: %s -> %s (net %s)\n",
			id, pair.Buy, pair.Sell, netProfit(pair, t.cfg.Pair.Quote))
	}

	fmt.Fprintf(&sb, "Net Gains: %s %s\n", t.NetGains(), t.cfg.Pair.Quote)
	return sb.String()
}

func sortedKeys[T any](m map[exchange.OrderID]T) []exchange.OrderID {
	keys := make([]exchange.OrderID, 0, len(m))
	for id := range m {
		keys = append(keys, id)
	}
	slices.Sort(keys)
	return keys
}
