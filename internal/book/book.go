// Package book implements the single-instrument continuous limit order
// book: price-time-priority matching, the stop-order trigger cascade,
// and iceberg slice management, all under one coarse lock so none of
// the three ever need to re-enter each other through a second mutex.
// Grounded in the teacher's internal/engine/orderbook.go (btree-backed
// price levels, Match sweep) and original_source/src/order_book.cpp
// (the price-time sweep and resting/rejection rules it implements).
package book

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dorufloare/matchbook/internal/bookerr"
	"github.com/dorufloare/matchbook/internal/common"
	"github.com/dorufloare/matchbook/internal/config"
	"github.com/dorufloare/matchbook/internal/logsink"
	"github.com/dorufloare/matchbook/internal/metrics"
)

// Book holds one instrument's full state: the active bid/ask books, the
// parked stop books, and the iceberg hidden-remainder index. A single
// mutex serializes every mutation, including the trigger cascade and
// iceberg republishing that a match can set off — none of those take a
// second lock, they just run as unexported helpers while Match already
// holds mu.
type Book struct {
	mu sync.Mutex

	asks *levels // ascending: best ask = lowest price
	bids *levels // descending: best bid = highest price

	stopAsks *levels // ascending by trigger price (sell stops)
	stopBids *levels // descending by trigger price (buy stops)

	iceberg *icebergManager
	trigger *triggerEngine

	lastTradedPrice atomic.Value // decimal.Decimal

	cfg config.Config
	log *logsink.Sink
	met *metrics.Sink

	onTrade func(common.Trade)
}

// New builds an empty Book seeded with cfg.InitialLastTradedPrice.
func New(cfg config.Config, log *logsink.Sink, met *metrics.Sink) *Book {
	b := &Book{
		asks:     newAscendingLevels(),
		bids:     newDescendingLevels(),
		stopAsks: newAscendingLevels(),
		stopBids: newDescendingLevels(),
		iceberg:  newIcebergManager(),
		cfg:      cfg,
		log:      log,
		met:      met,
	}
	b.lastTradedPrice.Store(cfg.InitialLastTradedPrice)
	b.trigger = newTriggerEngine(b)
	return b
}

// SetOnTrade installs a hook invoked for every trade Match produces,
// including ones surfaced by a cascaded stop trigger. Used by the
// engine facade to push execution reports out over the wire.
func (b *Book) SetOnTrade(fn func(common.Trade)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTrade = fn
}

// LastTradedPrice is safe to call without holding mu — it's the one
// piece of book state readers may want without blocking a match in
// progress.
func (b *Book) LastTradedPrice() decimal.Decimal {
	return b.lastTradedPrice.Load().(decimal.Decimal)
}

// Match submits order to the book: stop kinds are parked in the stop
// books, ICEBERG derives a working display-sized slice, everything
// else is matched as-is. A non-nil error means the trigger cascade
// exhausted its fuel budget (spec.md §7); the order's own effect has
// already been fully applied before that can happen.
func (b *Book) Match(order common.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	defer func() { b.met.ObserveOrderBookMatch(time.Since(start).Seconds()) }()

	if b.log != nil {
		b.log.LogOrder(order)
	}

	if order.Kind.IsStop() {
		b.insertStop(order)
		return nil
	}

	working := order
	if order.Kind == common.Iceberg {
		working.Kind = common.Limit
		working.Quantity = order.DisplayQty
	}

	trades, remaining := b.sweep(working)

	if order.Kind == common.Iceberg {
		traded := order.DisplayQty.Sub(remaining)
		next := b.iceberg.publish(order, traded, remaining)
		// A slice that filled completely on entry chains the next one,
		// which sweeps the opposite book in turn before anything rests.
		for next != nil && !remaining.IsPositive() {
			more, left := b.sweep(*next)
			trades = append(trades, more...)
			remaining = left
			if left.IsPositive() {
				next.Quantity = left
			} else {
				next = b.iceberg.onSliceExhausted(next.ID)
			}
		}
		if next != nil {
			appendResting(b.sideTree(next.Side), next.Price, next)
			if b.log != nil {
				b.log.LogRestingOrder(*next)
			}
			b.met.IncOrdersResting()
		}
	} else {
		b.rest(working, remaining)
	}

	if len(trades) == 0 {
		return nil
	}
	lastPrice := b.recordTrades(trades)
	return b.trigger.checkTriggers(lastPrice)
}

// CancelOrder is a best-effort, linear-scan removal of a resting order
// (active, stop-parked, or the hidden remainder behind an iceberg
// slice) — grounded in the teacher's net.CancelOrder wire message.
// There is no index from order ID to price level, matching spec.md's
// narrow scope: cancellation is a convenience, not a priority path.
func (b *Book) CancelOrder(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, tree := range []*levels{b.asks, b.bids} {
		if cancelFromTree(tree, id) {
			delete(b.iceberg.hidden, id)
			return nil
		}
	}
	for _, tree := range []*levels{b.stopAsks, b.stopBids} {
		if cancelFromTree(tree, id) {
			return nil
		}
	}
	return bookerr.ErrOrderNotFound
}

func (b *Book) sideTree(side common.Side) *levels {
	if side == common.Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) insertStop(order common.Order) {
	tree := b.stopBids
	if order.Side == common.Sell {
		tree = b.stopAsks
	}
	o := order
	appendResting(tree, order.TriggerPrice, &o)
}

// sweep consumes the opposite book FIFO, price level by price level,
// until working is filled or no further level crosses. It never rests
// anything itself — that's the caller's job, since what "resting the
// residue" means differs between LIMIT, MARKET and ICEBERG.
func (b *Book) sweep(working common.Order) ([]common.Trade, decimal.Decimal) {
	remaining := working.Quantity
	opposite := b.asks
	if working.Side == common.Sell {
		opposite = b.bids
	}
	isMarket := working.Kind == common.Market

	var trades []common.Trade
	for remaining.IsPositive() {
		lvl, ok := opposite.Min()
		if !ok {
			break
		}
		if !isMarket {
			if working.Side == common.Buy && lvl.price.GreaterThan(working.Price) {
				break
			}
			if working.Side == common.Sell && lvl.price.LessThan(working.Price) {
				break
			}
		}

		for remaining.IsPositive() && !lvl.empty() {
			maker := lvl.front()
			tradeQty := decimal.Min(remaining, maker.Quantity)

			trades = append(trades, common.Trade{
				Taker:     working,
				Maker:     *maker,
				Timestamp: time.Now(),
				MatchQty:  tradeQty,
				Price:     lvl.price,
			})

			remaining = remaining.Sub(tradeQty)
			maker.Quantity = maker.Quantity.Sub(tradeQty)

			if maker.Quantity.IsZero() {
				lvl.popFront()
				if next := b.iceberg.onSliceExhausted(maker.ID); next != nil {
					appendResting(opposite, lvl.price, next)
					if b.log != nil {
						b.log.LogRestingOrder(*next)
					}
					b.met.IncIcebergOrdersRefilled()
				}
			}
		}
		dropIfEmpty(opposite, lvl)
	}
	return trades, remaining
}

// rest applies the post-match resting rule for everything except
// ICEBERG, which publish handles on its own: MARKET (and a triggered
// STOP_MARKET, which becomes MARKET) discards any unfilled residue;
// everything else rests the leftover quantity at its own price.
func (b *Book) rest(working common.Order, remaining decimal.Decimal) {
	if working.Kind == common.Market {
		return
	}
	if !remaining.IsPositive() {
		return
	}
	resting := working
	resting.Quantity = remaining
	appendResting(b.sideTree(resting.Side), resting.Price, &resting)
	if b.log != nil {
		b.log.LogRestingOrder(resting)
	}
	b.met.IncOrdersResting()
}

// recordTrades applies every trade's effect on shared book state
// (last-traded price, logs, metrics, the external trade hook) and
// returns the price of the last trade, which is what the trigger
// cascade re-scans against.
func (b *Book) recordTrades(trades []common.Trade) decimal.Decimal {
	last := trades[len(trades)-1].Price
	b.lastTradedPrice.Store(last)
	b.met.IncOrdersMatched()

	for _, t := range trades {
		if b.log != nil {
			b.log.LogMatch(t)
		}
		b.met.AddVolumeTradedCents(t.MatchQty.Mul(decimal.NewFromInt(100)).IntPart())
		if b.onTrade != nil {
			b.onTrade(t)
		}
	}
	return last
}

// reMatchFromTrigger re-injects a triggered (already collar-checked
// and kind-transformed) order. It assumes mu is already held — it is
// only ever called from triggerEngine.checkTriggers, itself only ever
// called from Match while still holding the lock that got it there.
func (b *Book) reMatchFromTrigger(working common.Order) (decimal.Decimal, bool, error) {
	trades, remaining := b.sweep(working)
	b.rest(working, remaining)
	if len(trades) == 0 {
		return decimal.Decimal{}, false, nil
	}
	return b.recordTrades(trades), true, nil
}

func cancelFromTree(tree *levels, id int64) bool {
	var hit *priceLevel
	tree.Scan(func(lvl *priceLevel) bool {
		for i, o := range lvl.orders {
			if o.ID == id {
				lvl.orders = append(lvl.orders[:i], lvl.orders[i+1:]...)
				hit = lvl
				return false
			}
		}
		return true
	})
	if hit == nil {
		return false
	}
	dropIfEmpty(tree, hit)
	return true
}
