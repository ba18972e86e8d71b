package book

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dorufloare/matchbook/internal/bookerr"
	"github.com/dorufloare/matchbook/internal/common"
)

// triggerEngine owns the stop-order cascade. It lives as a second file
// in the book package rather than an importable package of its own:
// spec.md requires the cascade to run inside the same lock acquisition
// as the match that set it off, with no re-entrancy, and that is only
// expressible here as plain calls into Book's unexported fields rather
// than through a second mutex. Grounded in
// original_source/src/stop_orders.cpp's ascending/descending scan and
// collar check.
type triggerEngine struct {
	book *Book
}

func newTriggerEngine(b *Book) *triggerEngine {
	return &triggerEngine{book: b}
}

// checkTriggers re-scans the stop books from their best armed level,
// re-matching each triggered order and feeding its own last-traded
// price back into the next scan, until nothing more is armed. This is
// the work-list form of the cascade spec.md §9 calls for in place of
// recursion: each step can arm further stops, so the loop re-reads the
// best level fresh every time rather than snapshotting a list up
// front. fuel bounds the number of cascade steps against a
// pathological ladder of stops.
func (t *triggerEngine) checkTriggers(lastPrice decimal.Decimal) error {
	start := time.Now()
	defer func() { t.book.met.ObserveStopTriggerCheck(time.Since(start).Seconds()) }()

	fuel := t.book.cfg.MaxTriggersPerMatch

	for {
		armed := t.popArmed(lastPrice)
		if armed == nil {
			return nil
		}
		if fuel <= 0 {
			// Put the popped order back at the head of its trigger level
			// so the abort leaves the stop books as they were.
			tree := t.book.stopBids
			if armed.Side == common.Sell {
				tree = t.book.stopAsks
			}
			lvl := levelAt(tree, armed.TriggerPrice)
			lvl.orders = append([]*common.Order{armed}, lvl.orders...)
			return bookerr.ErrFuelExhausted
		}
		fuel--

		t.book.met.IncStopOrdersTriggered()

		working, rejected := t.transform(*armed, lastPrice)
		if rejected {
			t.book.met.IncStopOrdersRejected()
			continue
		}

		newPrice, traded, err := t.book.reMatchFromTrigger(working)
		if err != nil {
			return err
		}
		if traded {
			lastPrice = newPrice
		}
	}
}

// popArmed removes and returns the best stop order armed at lastPrice,
// preferring the ask-side (sell) stop book over the bid-side one when
// both happen to be armed in the same step. Returns nil if neither
// book has an armed front order.
func (t *triggerEngine) popArmed(lastPrice decimal.Decimal) *common.Order {
	if lvl, ok := t.book.stopAsks.Min(); ok {
		if o := lvl.front(); o != nil && o.TriggerPrice.LessThanOrEqual(lastPrice) {
			lvl.popFront()
			dropIfEmpty(t.book.stopAsks, lvl)
			return o
		}
	}
	if lvl, ok := t.book.stopBids.Min(); ok {
		if o := lvl.front(); o != nil && o.TriggerPrice.GreaterThanOrEqual(lastPrice) {
			lvl.popFront()
			dropIfEmpty(t.book.stopBids, lvl)
			return o
		}
	}
	return nil
}

// transform turns a triggered stop order into the LIMIT or MARKET
// order it re-enters the book as. A triggered STOP_LIMIT is subject to
// the price collar; a triggered STOP_MARKET never is.
func (t *triggerEngine) transform(order common.Order, lastPrice decimal.Decimal) (common.Order, bool) {
	if order.Kind == common.StopMarket {
		order.Kind = common.Market
		return order, false
	}

	order.Kind = common.Limit
	cfg := t.book.cfg
	if order.Side == common.Sell {
		ceiling := lastPrice.Mul(cfg.SellCollarMultiplier)
		if order.Price.GreaterThan(ceiling) {
			return common.Order{}, true
		}
	} else {
		floor := lastPrice.Mul(cfg.BuyCollarMultiplier)
		if order.Price.LessThan(floor) {
			return common.Order{}, true
		}
	}
	return order, false
}
