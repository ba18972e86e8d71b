package ingest

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/dorufloare/matchbook/internal/bookerr"
	"github.com/dorufloare/matchbook/internal/common"
	"github.com/dorufloare/matchbook/internal/metrics"
)

// MatchFunc is the single-order operation the pipeline serializes
// calls to — ordinarily Book.Match via the engine facade.
type MatchFunc func(common.Order) error

// Pipeline is the Ingest/Dispatch half of spec.md §4.4: Submit pushes
// onto an unbounded FIFO, a single dispatcher goroutine pops and hands
// each order to an ants worker pool, but — unlike a typical worker
// pool — waits for that one task to finish before popping the next.
// That wait is not an oversight: it is what gives the pipeline its
// strict, no-reordering guarantee across a single instrument's orders,
// while still running each match on a pool goroutine (and so under
// the pool's panic recovery) rather than the dispatcher's own stack.
type Pipeline struct {
	q    *queue
	pool *ants.Pool
	t    *tomb.Tomb
	fn   MatchFunc
	met  *metrics.Sink
}

// New builds a Pipeline with workerCount ants workers backing the
// dispatcher. fn is invoked once per dequeued order, from a pool
// goroutine, never concurrently with itself.
func New(workerCount int, fn MatchFunc, met *metrics.Sink) (*Pipeline, error) {
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		q:    newQueue(),
		pool: pool,
		fn:   fn,
		met:  met,
	}, nil
}

// Start launches the dispatcher goroutine under a tomb supervised by
// ctx; cancel ctx (or call Shutdown) to stop it.
func (p *Pipeline) Start(ctx context.Context) {
	t, _ := tomb.WithContext(ctx)
	p.t = t
	t.Go(p.dispatch)
}

// Submit enqueues order for matching. It never blocks on the match
// itself — only on acquiring the queue's own short-held mutex.
func (p *Pipeline) Submit(order common.Order) error {
	if p.t == nil || !p.t.Alive() {
		return bookerr.ErrPipelineStopped
	}
	p.met.IncOrdersSubmitted()
	p.q.push(order)
	return nil
}

// Shutdown stops accepting new orders, waits for the match already in
// flight to finish, and waits for the dispatcher and pool to exit.
// Orders still waiting in the queue at that point may be dropped
// without being matched.
func (p *Pipeline) Shutdown() error {
	p.q.close()
	if p.t != nil {
		p.t.Kill(nil)
	}
	err := p.t.Wait()
	p.pool.Release()
	return err
}

func (p *Pipeline) dispatch() error {
	for {
		order, ok := p.q.pop()
		if !ok {
			return nil
		}

		start := time.Now()
		done := make(chan struct{})
		submitErr := p.pool.Submit(func() {
			defer close(done)
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Int64("order_id", order.ID).Msg("ingest: worker panic recovered")
				}
			}()
			if err := p.fn(order); err != nil {
				log.Error().Err(err).Int64("order_id", order.ID).Msg("ingest: match failed")
			}
		})
		if submitErr != nil {
			log.Error().Err(submitErr).Msg("ingest: pool submit failed")
			continue
		}

		select {
		case <-done:
			p.met.ObserveOrderProcessing(time.Since(start).Seconds())
		case <-p.t.Dying():
			// The task is already handed to the pool and will run
			// regardless; wait for it so Shutdown's pool.Release never
			// races a still-in-flight match, per spec.md's
			// drain-to-completion shutdown guarantee.
			<-done
			return nil
		}
	}
}
