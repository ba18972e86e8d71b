// Package common holds the order and trade types shared by every core
// component (book, trigger engine, iceberg manager, ingest pipeline) and
// by the ambient sinks (log, metrics, net).
package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderKind is the tagged variant discriminator for Order. Active books
// only ever hold the LIMIT projection of an order; the full tagged value
// lives in the stop and iceberg-hidden stores.
type OrderKind int

const (
	Limit OrderKind = iota
	Market
	StopLimit
	StopMarket
	Iceberg
)

func (k OrderKind) String() string {
	switch k {
	case Limit:
		return "LIMIT"
	case Market:
		return "MARKET"
	case StopLimit:
		return "STOP_LIMIT"
	case StopMarket:
		return "STOP_MARKET"
	case Iceberg:
		return "ICEBERG"
	default:
		return "UNKNOWN"
	}
}

// IsStop reports whether the kind belongs to the stop family.
func (k OrderKind) IsStop() bool {
	return k == StopLimit || k == StopMarket
}

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Order is immutable after creation except for Quantity while resting,
// mirroring spec.md §3. UserID 0 denotes an interactive/user-submitted
// order for reporting purposes.
type Order struct {
	ID            int64
	Seq           int64
	UserID        int64
	Kind          OrderKind
	Side          Side
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	TriggerPrice  decimal.Decimal
	TotalQuantity decimal.Decimal
	DisplayQty    decimal.Decimal
	Timestamp     time.Time
	Owner         string
}

// Clone returns a shallow copy; Order carries no pointer fields besides
// the time.Time/decimal.Decimal value types, so a plain copy suffices.
func (o Order) Clone() Order {
	return o
}

func (o Order) String() string {
	return fmt.Sprintf(
		"Order{id=%d seq=%d user=%d kind=%s side=%s price=%s qty=%s trigger=%s}",
		o.ID, o.Seq, o.UserID, o.Kind, o.Side, o.Price, o.Quantity, o.TriggerPrice,
	)
}
