// Copyright (c) 2025 BVK Chaitanya

package exchange

import (
	"fmt"
	"time"

	"github.com/bvk/gembot/currency"
	"github.com/shopspring/decimal"
)

// Order is a point-in-time snapshot of one exchange limit order. A
// snapshot is immutable once fetched; refreshing an order replaces the
// whole record with a freshly fetched snapshot.
type Order struct {
	OrderID OrderID

	ClientOrderID string

	Symbol string
	Side   string

	Price decimal.Decimal

	OriginalAmount  decimal.Decimal
	ExecutedAmount  decimal.Decimal
	RemainingAmount decimal.Decimal

	CreateTime time.Time

	IsLive      bool
	IsCancelled bool
}

// IsFilled returns true when the order has no remaining amount.
func (o *Order) IsFilled() bool {
	return o.RemainingAmount.IsZero()
}

// FillPercent returns the executed portion as a percentage of the
// original amount.
func (o *Order) FillPercent() decimal.Decimal {
	if o.OriginalAmount.IsZero() {
		return decimal.Zero
	}
	return o.ExecutedAmount.Div(o.OriginalAmount).Mul(decimal.NewFromInt(100)).Round(0)
}

// BuyAmount returns the original order amount typed as the base currency.
func (o *Order) BuyAmount(base currency.Kind) currency.Amount {
	return currency.New(base, o.OriginalAmount)
}

// PriceAmount returns the limit price typed as the quote currency.
func (o *Order) PriceAmount(quote currency.Kind) currency.Amount {
	return currency.New(quote, o.Price)
}

// FilledAmount returns price times the executed amount, typed as the
// quote currency.
func (o *Order) FilledAmount(quote currency.Kind) currency.Amount {
	return currency.New(quote, o.Price.Mul(o.ExecutedAmount))
}

func (o *Order) String() string {
	pair, err := currency.PairBySymbol(o.Symbol)
	if err != nil {
		return fmt.Sprintf("%s %s %s @ %s", o.Side, o.Symbol, o.OriginalAmount, o.Price)
	}
	return fmt.Sprintf("%s %s %s @ %s (%s%% filled for %s)",
		o.Side, o.Symbol, o.BuyAmount(pair.Base), o.PriceAmount(pair.Quote),
		o.FillPercent(), o.FilledAmount(pair.Quote))
}
