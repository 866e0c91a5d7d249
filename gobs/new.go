// Copyright (c) 2025 BVK Chaitanya

package gobs

import (
	"fmt"
)

func NewByTypename(typename string) (any, error) {
	var v any
	switch typename {
	case "ActiveOrders":
		v = new(ActiveOrders)
	case "ClosedOrders":
		v = new(ClosedOrders)
	case "OrderLogEntry":
		v = new(OrderLogEntry)
	case "PricePoint":
		v = new(PricePoint)
	case "TraderState":
		v = new(TraderState)
	case "NonceState":
		v = new(NonceState)
	default:
		return nil, fmt.Errorf("unsupported type name %q", typename)
	}
	return v, nil
}
