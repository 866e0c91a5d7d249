// Copyright (c) 2025 BVK Chaitanya

package currency

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRounding(t *testing.T) {
	a := New(USD, decimal.RequireFromString("10.005"))
	if s := a.String(); s != "10.01" {
		t.Errorf("usd amount must round to 2 places: got %s", s)
	}
	b := New(ETH, decimal.RequireFromString("0.12345678"))
	if s := b.String(); s != "0.1235" {
		t.Errorf("eth amount must round to 4 places: got %s", s)
	}
	c := New(BTC, decimal.RequireFromString("0.12345678"))
	if s := c.String(); s != "0.123457" {
		t.Errorf("btc amount must round to 6 places: got %s", s)
	}
}

func TestArithmetic(t *testing.T) {
	a := New(USD, decimal.NewFromFloat(1.555))
	b := New(USD, decimal.NewFromFloat(2.005))

	sum, err := a.Add(b)
	if err != nil {
		t.Fatal(err)
	}
	if s := sum.String(); s != "3.57" {
		t.Errorf("1.56 + 2.01 must be 3.57: got %s", s)
	}

	diff, err := b.Sub(a)
	if err != nil {
		t.Fatal(err)
	}
	if s := diff.String(); s != "0.45" {
		t.Errorf("2.01 - 1.56 must be 0.45: got %s", s)
	}

	if _, err := a.Add(New(ETH, decimal.NewFromInt(1))); err == nil {
		t.Errorf("adding eth to usd must fail")
	}
	if _, err := a.Sub(New(BTC, decimal.NewFromInt(1))); err == nil {
		t.Errorf("subtracting btc from usd must fail")
	}
}

func TestComparisons(t *testing.T) {
	a := New(USD, decimal.NewFromInt(10))
	b := New(USD, decimal.NewFromInt(20))

	if c, err := a.Cmp(b); err != nil || c != -1 {
		t.Errorf("10 usd must compare below 20 usd: cmp=%d err=%v", c, err)
	}
	if _, err := a.Cmp(New(ETH, decimal.NewFromInt(10))); err == nil {
		t.Errorf("comparing usd with eth must fail")
	}
	if c := a.CmpDecimal(decimal.NewFromFloat(9.99)); c != 1 {
		t.Errorf("10 usd must compare above raw 9.99: got %d", c)
	}
	if c := a.CmpDecimal(decimal.NewFromInt(10)); c != 0 {
		t.Errorf("10 usd must compare equal to raw 10: got %d", c)
	}
}

func TestPairBySymbol(t *testing.T) {
	p, err := PairBySymbol("ethusd")
	if err != nil {
		t.Fatal(err)
	}
	if p.Base != ETH || p.Quote != USD {
		t.Errorf("ethusd must resolve to base=eth quote=usd: got %v/%v", p.Base, p.Quote)
	}

	if _, err := PairBySymbol("dogeusd"); err == nil {
		t.Errorf("unknown symbol must be rejected")
	}
	if _, err := KindBySymbol("xyz"); err == nil {
		t.Errorf("unknown currency must be rejected")
	}
}
