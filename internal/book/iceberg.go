package book

import (
	"github.com/shopspring/decimal"

	"github.com/dorufloare/matchbook/internal/common"
)

// hiddenIceberg is the remainder of an iceberg order not currently
// reflected in a price level — only the iceberg's order ID, which is
// reused across every slice it publishes, so a resting slice can be
// traced back to its hidden remainder without a second index.
type hiddenIceberg struct {
	side       common.Side
	price      decimal.Decimal
	remaining  decimal.Decimal
	displayQty decimal.Decimal
	total      decimal.Decimal
	userID     int64
	owner      string
}

// icebergManager tracks every iceberg's hidden remainder, keyed by the
// order ID its currently-visible slice carries. Grounded in
// original_source/src/iceberg_orders.cpp's icebergHidden map, keyed
// the same way (same id reused across refills).
type icebergManager struct {
	hidden map[int64]*hiddenIceberg
}

func newIcebergManager() *icebergManager {
	return &icebergManager{hidden: make(map[int64]*hiddenIceberg)}
}

// publish handles a freshly submitted ICEBERG order once its working
// slice (quantity = DisplayQty) has already been swept against the
// opposite book. traded is how much of that slice filled on entry;
// remaining is what's left of it. It returns the next visible slice —
// either the partially-filled original slice, or (if the slice filled
// completely on entry) the next slice chained in from the hidden
// total, the same way a slice exhausted mid-sweep chains the next one
// via onSliceExhausted; Book.Match sweeps such a chained slice before
// resting it. Returns nil if the whole order is spent and nothing is
// left to publish.
func (m *icebergManager) publish(order common.Order, traded, remaining decimal.Decimal) *common.Order {
	total := order.TotalQuantity.Sub(traded)

	if remaining.IsPositive() {
		if hidden := total.Sub(remaining); hidden.IsPositive() {
			m.hidden[order.ID] = &hiddenIceberg{
				side:       order.Side,
				price:      order.Price,
				remaining:  hidden,
				displayQty: order.DisplayQty,
				total:      order.TotalQuantity,
				userID:     order.UserID,
				owner:      order.Owner,
			}
		}
		visible := order
		visible.Kind = common.Limit
		visible.Quantity = remaining
		return &visible
	}

	if !total.IsPositive() {
		return nil
	}
	return m.nextSlice(order.ID, order.Side, order.Price, order.DisplayQty, total, order.TotalQuantity, order.UserID, order.Owner)
}

// onSliceExhausted is called by Book.sweep when a resting maker's
// quantity hits zero. If id has a hidden remainder behind it, the next
// slice is published (at the tail of the same price level, per
// spec.md §9 — refills do not preserve cross-slice time priority);
// otherwise the order was not an iceberg slice and nil is returned.
func (m *icebergManager) onSliceExhausted(id int64) *common.Order {
	h, ok := m.hidden[id]
	if !ok {
		return nil
	}
	delete(m.hidden, id)
	if !h.remaining.IsPositive() {
		return nil
	}
	return m.nextSlice(id, h.side, h.price, h.displayQty, h.remaining, h.total, h.userID, h.owner)
}

func (m *icebergManager) nextSlice(id int64, side common.Side, price, displayQty, available, total decimal.Decimal, userID int64, owner string) *common.Order {
	qty := decimal.Min(displayQty, available)
	if hidden := available.Sub(qty); hidden.IsPositive() {
		m.hidden[id] = &hiddenIceberg{
			side:       side,
			price:      price,
			remaining:  hidden,
			displayQty: displayQty,
			total:      total,
			userID:     userID,
			owner:      owner,
		}
	}
	return &common.Order{
		ID:            id,
		UserID:        userID,
		Kind:          common.Limit,
		Side:          side,
		Price:         price,
		Quantity:      qty,
		TotalQuantity: total,
		DisplayQty:    displayQty,
		Owner:         owner,
	}
}
