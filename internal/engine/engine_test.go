package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorufloare/matchbook/internal/bookerr"
	"github.com/dorufloare/matchbook/internal/common"
	"github.com/dorufloare/matchbook/internal/config"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(config.New(), nil, nil)
	require.NoError(t, err)
	e.Start(context.Background())
	t.Cleanup(func() { _ = e.Shutdown() })
	return e
}

func TestEngine_SubmitStampsIDAndSequence(t *testing.T) {
	e := newTestEngine(t)

	id1, err := e.Submit(common.Order{Kind: common.Limit, Side: common.Buy, Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1)})
	require.NoError(t, err)
	id2, err := e.Submit(common.Order{Kind: common.Limit, Side: common.Buy, Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1)})
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.Greater(t, id2, id1)
}

func TestEngine_SubmitRejectsStructurallyInvalidOrders(t *testing.T) {
	e := newTestEngine(t)

	cases := []common.Order{
		{Kind: common.Limit, Quantity: decimal.NewFromInt(1)},                                      // missing price
		{Kind: common.Limit, Price: decimal.NewFromInt(100)},                                        // zero quantity
		{Kind: common.StopLimit, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(100)},    // missing trigger
		{Kind: common.StopMarket, Quantity: decimal.NewFromInt(1)},                                  // missing trigger
		{Kind: common.Iceberg, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(100), DisplayQty: decimal.NewFromInt(10), TotalQuantity: decimal.NewFromInt(5)},  // display > total
		{Kind: common.Iceberg, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(100), DisplayQty: decimal.NewFromInt(10), TotalQuantity: decimal.NewFromInt(10)}, // display == total, never shows anything hidden
		{Kind: common.OrderKind(99), Quantity: decimal.NewFromInt(1)},                               // unknown kind
	}

	for _, o := range cases {
		_, err := e.Submit(o)
		assert.ErrorIs(t, err, bookerr.ErrStructurallyInvalid, "order %+v should have been rejected", o)
	}
}

func TestEngine_SubmitAcceptsEveryValidKind(t *testing.T) {
	e := newTestEngine(t)

	valid := []common.Order{
		{Kind: common.Limit, Side: common.Buy, Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1)},
		{Kind: common.Market, Side: common.Buy, Quantity: decimal.NewFromInt(1)},
		{Kind: common.StopLimit, Side: common.Sell, Price: decimal.NewFromInt(90), Quantity: decimal.NewFromInt(1), TriggerPrice: decimal.NewFromInt(95)},
		{Kind: common.StopMarket, Side: common.Sell, Quantity: decimal.NewFromInt(1), TriggerPrice: decimal.NewFromInt(95)},
		{Kind: common.Iceberg, Side: common.Buy, Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(50), DisplayQty: decimal.NewFromInt(10), TotalQuantity: decimal.NewFromInt(50)},
	}

	for _, o := range valid {
		_, err := e.Submit(o)
		assert.NoError(t, err, "order %+v should have been accepted", o)
	}
}

func TestEngine_TradesFlowThroughToOnTrade(t *testing.T) {
	e := newTestEngine(t)

	trades := make(chan common.Trade, 4)
	e.OnTrade(func(tr common.Trade) { trades <- tr })

	_, err := e.Submit(common.Order{Kind: common.Limit, Side: common.Sell, Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(10)})
	require.NoError(t, err)
	_, err = e.Submit(common.Order{Kind: common.Limit, Side: common.Buy, Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(10)})
	require.NoError(t, err)

	// Submit only enqueues; the match itself runs asynchronously on the
	// pipeline's dispatcher, so the trade must be awaited rather than
	// polled immediately.
	select {
	case tr := <-trades:
		assert.True(t, tr.MatchQty.Equal(decimal.NewFromInt(10)))
	case <-time.After(time.Second):
		t.Fatal("expected a trade within one second of submitting a crossing order")
	}
}

func TestEngine_CancelOrder_NotFound(t *testing.T) {
	e := newTestEngine(t)
	err := e.CancelOrder(999)
	assert.ErrorIs(t, err, bookerr.ErrOrderNotFound)
}
