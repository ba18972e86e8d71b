package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade records a single fill between a taker (the order that caused the
// match) and a maker (the resting order it hit). The Taker/Maker pair
// mirrors the teacher's Party/CounterParty shape.
type Trade struct {
	Taker     Order
	Maker     Order
	Timestamp time.Time
	MatchQty  decimal.Decimal
	Price     decimal.Decimal
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade{taker=%d maker=%d qty=%s price=%s}",
		t.Taker.ID, t.Maker.ID, t.MatchQty, t.Price,
	)
}
