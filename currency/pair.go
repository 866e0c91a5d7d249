// Copyright (c) 2025 BVK Chaitanya

package currency

import "fmt"

// Pair is a trading pair with an explicit base and quote currency kind.
// Pairs are resolved from the symbol table below at configuration load
// time; unknown symbols are a configuration error.
type Pair struct {
	Symbol string

	Base  Kind
	Quote Kind
}

var pairMap = map[string]Pair{
	"ethusd": {Symbol: "ethusd", Base: ETH, Quote: USD},
	"btcusd": {Symbol: "btcusd", Base: BTC, Quote: USD},
	"ethbtc": {Symbol: "ethbtc", Base: ETH, Quote: BTC},
}

// PairBySymbol returns the trading pair for a lower-case symbol like
// "ethusd".
func PairBySymbol(symbol string) (Pair, error) {
	p, ok := pairMap[symbol]
	if !ok {
		return Pair{}, fmt.Errorf("unsupported trading-pair symbol %q", symbol)
	}
	return p, nil
}

func (p Pair) String() string {
	return p.Symbol
}

func (p Pair) Check() error {
	if _, ok := pairMap[p.Symbol]; !ok {
		return fmt.Errorf("unsupported trading-pair symbol %q", p.Symbol)
	}
	return nil
}
