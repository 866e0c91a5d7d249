// Copyright (c) 2025 BVK Chaitanya

// Package currency defines fixed-precision monetary amounts bound to a
// currency kind. Arithmetic and comparisons are closed over amounts of the
// same kind; every amount is rounded to its kind's decimal places at
// construction so that values never carry more precision than the exchange
// accepts.
package currency

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind identifies a currency supported by the exchange along with the
// number of decimal places the exchange accepts for it.
type Kind struct {
	Symbol string
	Places int32
}

var (
	USD = Kind{Symbol: "usd", Places: 2}
	BTC = Kind{Symbol: "btc", Places: 6}
	ETH = Kind{Symbol: "eth", Places: 4}
)

var kindMap = map[string]Kind{
	"usd": USD,
	"btc": BTC,
	"eth": ETH,
}

// KindBySymbol returns the currency kind for a lower-case currency symbol.
func KindBySymbol(symbol string) (Kind, error) {
	k, ok := kindMap[symbol]
	if !ok {
		return Kind{}, fmt.Errorf("unsupported currency symbol %q", symbol)
	}
	return k, nil
}

func (k Kind) String() string {
	return k.Symbol
}

// Amount is a quantity of a single currency kind. Amounts are immutable;
// all operations return new values rounded to the kind's precision.
type Amount struct {
	kind  Kind
	value decimal.Decimal
}

// New returns an amount of the given kind, rounded to the kind's decimal
// places.
func New(kind Kind, value decimal.Decimal) Amount {
	return Amount{kind: kind, value: value.Round(kind.Places)}
}

func (a Amount) Kind() Kind {
	return a.kind
}

// Decimal returns the underlying numeric value.
func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

func (a Amount) String() string {
	return a.value.StringFixed(a.kind.Places)
}

func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

func (a Amount) IsNegative() bool {
	return a.value.IsNegative()
}

// Add returns a+b. Both amounts must share the same kind.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.kind != b.kind {
		return Amount{}, fmt.Errorf("cannot add %s amount to %s amount", b.kind, a.kind)
	}
	return New(a.kind, a.value.Add(b.value)), nil
}

// Sub returns a-b. Both amounts must share the same kind.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.kind != b.kind {
		return Amount{}, fmt.Errorf("cannot subtract %s amount from %s amount", b.kind, a.kind)
	}
	return New(a.kind, a.value.Sub(b.value)), nil
}

// MulDecimal scales the amount by a raw numeric value.
func (a Amount) MulDecimal(d decimal.Decimal) Amount {
	return New(a.kind, a.value.Mul(d))
}

// Cmp compares two amounts of the same kind. Returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) (int, error) {
	if a.kind != b.kind {
		return 0, fmt.Errorf("cannot compare %s amount with %s amount", a.kind, b.kind)
	}
	return a.value.Cmp(b.value), nil
}

// CmpDecimal compares the amount against a raw numeric value.
func (a Amount) CmpDecimal(d decimal.Decimal) int {
	return a.value.Cmp(d)
}
