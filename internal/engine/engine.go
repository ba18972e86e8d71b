// Package engine is the facade wiring the book, the ingest pipeline,
// and the log/metrics sinks into the single entry point a transport
// (internal/net, internal/cli, internal/generator) submits orders
// through. Grounded in the teacher's internal/engine/engine.go (the
// Engine type as the thing a transport calls into) generalized from
// its per-asset book map down to the single instrument spec.md scopes
// this system to.
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dorufloare/matchbook/internal/book"
	"github.com/dorufloare/matchbook/internal/bookerr"
	"github.com/dorufloare/matchbook/internal/common"
	"github.com/dorufloare/matchbook/internal/config"
	"github.com/dorufloare/matchbook/internal/ingest"
	"github.com/dorufloare/matchbook/internal/logsink"
	"github.com/dorufloare/matchbook/internal/metrics"
)

// Engine is the single-instrument matching service: it owns the book,
// assigns each incoming order its ID and arrival sequence number, and
// serializes matching through the ingest pipeline.
type Engine struct {
	book *book.Book
	pipe *ingest.Pipeline
	log  *logsink.Sink
	met  *metrics.Sink

	nextID  atomic.Int64
	nextSeq atomic.Int64
}

// New wires a Book and an ingest Pipeline together; call Start before
// Submit will accept anything.
func New(cfg config.Config, log *logsink.Sink, met *metrics.Sink) (*Engine, error) {
	b := book.New(cfg, log, met)
	e := &Engine{book: b, log: log, met: met}

	pipe, err := ingest.New(cfg.WorkerCount, e.book.Match, met)
	if err != nil {
		return nil, err
	}
	e.pipe = pipe
	return e, nil
}

// Start launches the ingest pipeline's dispatcher.
func (e *Engine) Start(ctx context.Context) {
	e.pipe.Start(ctx)
}

// Shutdown stops accepting new orders and waits for the match in flight
// to finish; orders still queued may be dropped (see ingest.Pipeline).
func (e *Engine) Shutdown() error {
	return e.pipe.Shutdown()
}

// OnTrade installs a hook invoked for every trade the book produces.
func (e *Engine) OnTrade(fn func(common.Trade)) {
	e.book.SetOnTrade(fn)
}

// LastTradedPrice is read-through to the book.
func (e *Engine) LastTradedPrice() decimal.Decimal {
	return e.book.LastTradedPrice()
}

// CancelOrder is read-through to the book's best-effort cancel.
func (e *Engine) CancelOrder(id int64) error {
	return e.book.CancelOrder(id)
}

// Submit validates order structurally (spec.md §6 — rejection here
// never touches the book or the ingest queue), stamps it with a fresh
// ID, arrival sequence number and timestamp, and hands it to the
// pipeline. The returned ID lets the caller correlate a later
// execution report or cancellation.
func (e *Engine) Submit(order common.Order) (int64, error) {
	if err := validate(order); err != nil {
		return 0, err
	}

	order.ID = e.nextID.Add(1)
	order.Seq = e.nextSeq.Add(1)
	order.Timestamp = time.Now()

	if err := e.pipe.Submit(order); err != nil {
		return order.ID, err
	}
	return order.ID, nil
}

// validate applies the structural checks spec.md §6 requires before an
// order is even queued: positive quantity, a positive limit price
// where the kind needs one, a positive trigger price for stop kinds,
// and a sane display/total relationship for icebergs.
func validate(o common.Order) error {
	if !o.Quantity.IsPositive() {
		return bookerr.ErrStructurallyInvalid
	}
	switch o.Kind {
	case common.Limit:
		if !o.Price.IsPositive() {
			return bookerr.ErrStructurallyInvalid
		}
	case common.Market:
		// no price to validate
	case common.StopLimit:
		if !o.Price.IsPositive() || !o.TriggerPrice.IsPositive() {
			return bookerr.ErrStructurallyInvalid
		}
	case common.StopMarket:
		if !o.TriggerPrice.IsPositive() {
			return bookerr.ErrStructurallyInvalid
		}
	case common.Iceberg:
		if !o.Price.IsPositive() || !o.DisplayQty.IsPositive() || !o.TotalQuantity.IsPositive() {
			return bookerr.ErrStructurallyInvalid
		}
		if o.DisplayQty.GreaterThanOrEqual(o.TotalQuantity) {
			return bookerr.ErrStructurallyInvalid
		}
	default:
		return bookerr.ErrStructurallyInvalid
	}
	return nil
}
