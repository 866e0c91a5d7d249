// Copyright (c) 2025 BVK Chaitanya

package trader

import (
	"fmt"
	"time"

	"github.com/bvk/gembot/currency"
	"github.com/shopspring/decimal"
)

// Config carries all engine parameters. It is validated once at startup,
// before the first tick; the engine holds no other process-wide state.
type Config struct {
	// Pair is the trading pair, resolved and validated from the symbol at
	// configuration load time.
	Pair currency.Pair

	// MinOrderValue and MaxOrderValue bound the quote-currency notional of
	// each new buy order. Equal values degenerate to a constant order size,
	// which is valid.
	MinOrderValue decimal.Decimal
	MaxOrderValue decimal.Decimal

	// GainRatio and LossRatio are the maturity thresholds relative to a buy
	// order's own limit price. GainRatio is positive, LossRatio negative.
	GainRatio decimal.Decimal
	LossRatio decimal.Decimal

	// OverpayRatio prices limit orders slightly past the observed price so
	// they fill promptly, trading a small guaranteed cost for execution
	// speed.
	OverpayRatio decimal.Decimal

	MaxActiveOrders int

	// MaxNetGains and MaxNetLoss stop the bot once cumulative realized
	// profit moves past either bound. MaxNetLoss is negative.
	MaxNetGains decimal.Decimal
	MaxNetLoss  decimal.Decimal

	PollInterval time.Duration
}

func (c *Config) Check() error {
	if err := c.Pair.Check(); err != nil {
		return err
	}
	if c.MinOrderValue.Sign() <= 0 {
		return fmt.Errorf("min order value must be positive")
	}
	if c.MaxOrderValue.LessThan(c.MinOrderValue) {
		return fmt.Errorf("max order value cannot be below min order value")
	}
	if c.GainRatio.Sign() <= 0 {
		return fmt.Errorf("gain ratio must be positive")
	}
	if c.LossRatio.Sign() >= 0 {
		return fmt.Errorf("loss ratio must be negative")
	}
	if c.OverpayRatio.Sign() < 0 || c.OverpayRatio.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("overpay ratio must be in [0, 1)")
	}
	if c.MaxActiveOrders <= 0 {
		return fmt.Errorf("max active orders must be positive")
	}
	if c.MaxNetGains.Sign() <= 0 {
		return fmt.Errorf("net gains stop must be positive")
	}
	if c.MaxNetLoss.Sign() >= 0 {
		return fmt.Errorf("net loss stop must be negative")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}
