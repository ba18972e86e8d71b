package book

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"github.com/dorufloare/matchbook/internal/common"
)

// priceLevel is a FIFO queue of resting orders at one price, consumed
// head-first and resliced in place — directly grounded in the teacher's
// engine.PriceLevel{priceLevel float64; orders []*Order}.
type priceLevel struct {
	price  decimal.Decimal
	orders []*common.Order
}

// levels is an ordered price -> FIFO-queue index. Ask/stop-ask books
// order ascending (best = lowest); bid/stop-bid books order descending
// (best = lowest under a reversed Less, i.e. highest price) — the same
// trick the teacher's two btree.NewBTreeG calls use.
type levels = btree.BTreeG[*priceLevel]

func newAscendingLevels() *levels {
	return btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price.LessThan(b.price)
	})
}

func newDescendingLevels() *levels {
	return btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price.GreaterThan(b.price)
	})
}

// front returns the resting order at the head of the queue, or nil.
func (p *priceLevel) front() *common.Order {
	if len(p.orders) == 0 {
		return nil
	}
	return p.orders[0]
}

// popFront drops the head of the queue once it has been fully consumed.
func (p *priceLevel) popFront() {
	if len(p.orders) > 0 {
		p.orders = p.orders[1:]
	}
}

func (p *priceLevel) empty() bool {
	return len(p.orders) == 0
}

// levelAt fetches (or lazily creates) the price level for price in a
// levels tree.
func levelAt(tree *levels, price decimal.Decimal) *priceLevel {
	probe := &priceLevel{price: price}
	if lvl, ok := tree.Get(probe); ok {
		return lvl
	}
	lvl := &priceLevel{price: price}
	tree.Set(lvl)
	return lvl
}

// appendResting appends order to the tail of its price level, creating
// the level if necessary. This is the same append-to-tail operation used
// both for a fresh resting LIMIT and for an iceberg refill slice (which
// deliberately loses cross-slice time priority, per spec.md §9).
func appendResting(tree *levels, price decimal.Decimal, order *common.Order) {
	lvl := levelAt(tree, price)
	lvl.orders = append(lvl.orders, order)
}

// dropIfEmpty removes lvl from tree if its queue is empty, mirroring the
// teacher's "if queue.empty() { oppositeBook.erase(it) }".
func dropIfEmpty(tree *levels, lvl *priceLevel) {
	if lvl.empty() {
		tree.Delete(lvl)
	}
}
