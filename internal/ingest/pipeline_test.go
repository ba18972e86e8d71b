package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorufloare/matchbook/internal/bookerr"
	"github.com/dorufloare/matchbook/internal/common"
)

func TestPipeline_DispatchesInFIFOOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []int64

	p, err := New(4, func(o common.Order) error {
		time.Sleep(time.Millisecond) // exaggerate any reordering race
		mu.Lock()
		seen = append(seen, o.ID)
		mu.Unlock()
		return nil
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	for i := int64(1); i <= 20; i++ {
		require.NoError(t, p.Submit(common.Order{ID: i}))
	}

	// Shutdown only waits for the match in flight, so let the queue
	// empty before stopping the pipeline.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 20
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, p.Shutdown())
	cancel()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 20)
	for i, id := range seen {
		assert.Equal(t, int64(i+1), id, "orders must be matched strictly in submission order")
	}
}

func TestPipeline_SubmitAfterShutdownFails(t *testing.T) {
	p, err := New(2, func(common.Order) error { return nil }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	require.NoError(t, p.Shutdown())

	err = p.Submit(common.Order{ID: 1})
	assert.ErrorIs(t, err, bookerr.ErrPipelineStopped)
}

func TestPipeline_SubmitBeforeStartFails(t *testing.T) {
	p, err := New(2, func(common.Order) error { return nil }, nil)
	require.NoError(t, err)

	err = p.Submit(common.Order{ID: 1})
	assert.ErrorIs(t, err, bookerr.ErrPipelineStopped)
}

func TestPipeline_WorkerPanicIsRecovered(t *testing.T) {
	var processed int
	var mu sync.Mutex

	p, err := New(2, func(o common.Order) error {
		mu.Lock()
		processed++
		mu.Unlock()
		if o.ID == 1 {
			panic("boom")
		}
		return nil
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	require.NoError(t, p.Submit(common.Order{ID: 1}))
	require.NoError(t, p.Submit(common.Order{ID: 2}))

	// Shutdown only waits for the match in flight, so let both orders
	// reach the worker before stopping the pipeline.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return processed == 2
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, p.Shutdown())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, processed, "a panicking order must not stop the dispatcher from reaching the next one")
}
