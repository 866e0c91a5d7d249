// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/bvk/gembot/cli"
	"github.com/bvk/gembot/currency"
	"github.com/bvk/gembot/exchange"
	"github.com/bvk/gembot/gobs"
	"github.com/bvk/gembot/store"
	"github.com/bvk/gembot/subcmds/cmdutil"
	"github.com/shopspring/decimal"
)

type Status struct {
	cmdutil.DBFlags

	showOrders bool
}

func (c *Status) Synopsis() string {
	return "Status prints a summary of the saved trading state"
}

func (c *Status) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.BoolVar(&c.showOrders, "show-orders", false, "also print individual orders")
	return fset, cli.CmdFunc(c.run)
}

func (c *Status) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()
	datastore := store.New(db)

	state, err := datastore.LoadTraderState(ctx)
	if err != nil {
		return fmt.Errorf("could not load trader state: %w", err)
	}
	if state == nil {
		fmt.Println("no saved trading state found; did the bot run at least once?")
		return nil
	}
	pair, err := currency.PairBySymbol(state.Symbol)
	if err != nil {
		return err
	}

	active, err := datastore.LoadActive(ctx)
	if err != nil {
		return fmt.Errorf("could not load active orders: %w", err)
	}
	closed, err := datastore.LoadClosed(ctx)
	if err != nil {
		return fmt.Errorf("could not load closed orders: %w", err)
	}

	total := decimal.Zero
	for _, p := range closed {
		sold := p.Sell.FilledAmount(pair.Quote).Decimal()
		bought := p.Buy.FilledAmount(pair.Quote).Decimal()
		total = total.Add(sold.Sub(bought))
	}
	netGains := currency.New(pair.Quote, total)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Symbol:\t%s\n", state.Symbol)
	fmt.Fprintf(tw, "Active Orders:\t%d\n", len(active))
	fmt.Fprintf(tw, "Closed Orders:\t%d\n", len(closed))
	fmt.Fprintf(tw, "Net Gains:\t%s %s\n", netGains, pair.Quote)
	tw.Flush()

	if !c.showOrders {
		return nil
	}

	fmt.Println("Buys:")
	for _, id := range sortedOrderIDs(active) {
		fmt.Printf("  %s: %s\n", id, active[id])
	}
	fmt.Println("Sells:")
	for _, id := range sortedOrderIDs(closed) {
		p := closed[id]
		fmt.Printf("  %s: %s -> %s\n", id, p.Buy, p.Sell)
	}
	return nil
}

func sortedOrderIDs[T *exchange.Order | *gobs.OrderPair](m map[exchange.OrderID]T) []exchange.OrderID {
	ids := make([]exchange.OrderID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
