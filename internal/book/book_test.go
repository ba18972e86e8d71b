package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorufloare/matchbook/internal/bookerr"
	"github.com/dorufloare/matchbook/internal/common"
	"github.com/dorufloare/matchbook/internal/config"
)

func newTestBook(opts ...config.Option) *Book {
	return New(config.New(opts...), nil, nil)
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func limitOrder(id int64, side common.Side, price, qty string) common.Order {
	return common.Order{ID: id, Seq: id, Side: side, Kind: common.Limit, Price: d(price), Quantity: d(qty)}
}

type snapshotLevel struct {
	price decimal.Decimal
	qtys  []decimal.Decimal
}

func snapshot(tree *levels) []snapshotLevel {
	var out []snapshotLevel
	tree.Scan(func(lvl *priceLevel) bool {
		var qtys []decimal.Decimal
		for _, o := range lvl.orders {
			qtys = append(qtys, o.Quantity)
		}
		out = append(out, snapshotLevel{price: lvl.price, qtys: qtys})
		return true
	})
	return out
}

func collectTrades(b *Book) *[]common.Trade {
	trades := &[]common.Trade{}
	b.SetOnTrade(func(t common.Trade) {
		*trades = append(*trades, t)
	})
	return trades
}

func TestMatch_RestingLimits_PriceOrdering(t *testing.T) {
	b := newTestBook()

	require.NoError(t, b.Match(limitOrder(1, common.Buy, "99.00", "100")))
	require.NoError(t, b.Match(limitOrder(2, common.Buy, "99.00", "90")))
	require.NoError(t, b.Match(limitOrder(3, common.Buy, "98.00", "50")))
	require.NoError(t, b.Match(limitOrder(4, common.Sell, "101.00", "20")))
	require.NoError(t, b.Match(limitOrder(5, common.Sell, "100.00", "10")))

	assert.Equal(t, []snapshotLevel{
		{price: d("99.00"), qtys: []decimal.Decimal{d("100"), d("90")}},
		{price: d("98.00"), qtys: []decimal.Decimal{d("50")}},
	}, snapshot(b.bids), "bids must be ordered best (highest) price first")

	assert.Equal(t, []snapshotLevel{
		{price: d("100.00"), qtys: []decimal.Decimal{d("10")}},
		{price: d("101.00"), qtys: []decimal.Decimal{d("20")}},
	}, snapshot(b.asks), "asks must be ordered best (lowest) price first")
}

func TestMatch_FIFOWithinLevel(t *testing.T) {
	b := newTestBook()
	trades := collectTrades(b)

	require.NoError(t, b.Match(limitOrder(1, common.Buy, "100.00", "10")))
	require.NoError(t, b.Match(limitOrder(2, common.Buy, "100.00", "10")))
	require.NoError(t, b.Match(limitOrder(3, common.Sell, "100.00", "15")))

	require.Len(t, *trades, 2)
	assert.Equal(t, int64(1), (*trades)[0].Maker.ID, "the earlier-arrived resting order fills first")
	assert.Equal(t, d("10"), (*trades)[0].MatchQty)
	assert.Equal(t, int64(2), (*trades)[1].Maker.ID)
	assert.Equal(t, d("5"), (*trades)[1].MatchQty)
}

func TestMatch_MultiLevelSweep(t *testing.T) {
	b := newTestBook()

	require.NoError(t, b.Match(limitOrder(1, common.Sell, "100.00", "10")))
	require.NoError(t, b.Match(limitOrder(2, common.Sell, "101.00", "20")))
	require.NoError(t, b.Match(limitOrder(3, common.Buy, "101.00", "25")))

	assert.Equal(t, []snapshotLevel{
		{price: d("101.00"), qtys: []decimal.Decimal{d("5")}},
	}, snapshot(b.asks), "the 100.00 level is fully consumed and removed, 101.00 is partially filled")
}

func TestMatch_MarketOrderDiscardsResidue(t *testing.T) {
	b := newTestBook()

	require.NoError(t, b.Match(limitOrder(1, common.Sell, "100.00", "5")))
	require.NoError(t, b.Match(common.Order{ID: 2, Side: common.Buy, Kind: common.Market, Quantity: d("20")}))

	assert.Empty(t, snapshot(b.asks), "the resting ask is consumed")
	assert.Empty(t, snapshot(b.bids), "an unfilled MARKET order never rests")
}

func TestMatch_LimitPriceNeverCrosses(t *testing.T) {
	b := newTestBook()

	require.NoError(t, b.Match(limitOrder(1, common.Sell, "100.00", "10")))
	require.NoError(t, b.Match(limitOrder(2, common.Buy, "99.00", "10")))

	assert.Equal(t, []snapshotLevel{{price: d("100.00"), qtys: []decimal.Decimal{d("10")}}}, snapshot(b.asks))
	assert.Equal(t, []snapshotLevel{{price: d("99.00"), qtys: []decimal.Decimal{d("10")}}}, snapshot(b.bids))
}

func TestMatch_StopMarketTriggersOnLastPrice(t *testing.T) {
	b := newTestBook()
	trades := collectTrades(b)

	require.NoError(t, b.Match(limitOrder(1, common.Sell, "100.00", "50")))
	require.NoError(t, b.Match(common.Order{
		ID: 2, Side: common.Sell, Kind: common.StopMarket, Quantity: d("10"), TriggerPrice: d("99.00"),
	}))
	assert.Empty(t, *trades, "the stop order is parked, not matched, until triggered")

	// A resting bid the stop-market can land on once it's released.
	require.NoError(t, b.Match(limitOrder(3, common.Buy, "99.00", "20")))

	// Fully fills the resting 100.00 ask, moving last price to 100.00 —
	// past the stop's 99.00 trigger.
	require.NoError(t, b.Match(limitOrder(4, common.Buy, "100.00", "50")))

	found := false
	for _, tr := range *trades {
		if tr.Taker.ID == 2 {
			found = true
			assert.Equal(t, d("99.00"), tr.Price, "a triggered STOP_MARKET matches at the resting maker's price")
		}
	}
	assert.True(t, found, "the parked stop order must have been re-matched once last price hit its trigger")
}

func TestMatch_StopLimitCollarRejection(t *testing.T) {
	b := newTestBook(config.WithInitialLastTradedPrice(d("100")))

	require.NoError(t, b.Match(limitOrder(1, common.Sell, "100.00", "10")))
	require.NoError(t, b.Match(limitOrder(2, common.Buy, "100.00", "10")))
	assert.Equal(t, d("100.00"), b.LastTradedPrice())

	// A triggered SELL limit priced far above the sell collar (last * 1.05)
	// must be rejected rather than resting or trading.
	require.NoError(t, b.Match(common.Order{
		ID: 3, Side: common.Sell, Kind: common.StopLimit, Quantity: d("10"),
		TriggerPrice: d("100.00"), Price: d("200.00"),
	}))

	// Produces another trade at 100.00, re-arming the check that pops
	// and rejects order 3.
	require.NoError(t, b.Match(limitOrder(4, common.Sell, "100.00", "5")))
	require.NoError(t, b.Match(limitOrder(5, common.Buy, "100.00", "5")))

	assert.Empty(t, snapshot(b.asks), "the collar-rejected order never reaches the book")
}

func TestMatch_IcebergRestsDisplaySliceAndRefills(t *testing.T) {
	b := newTestBook()
	trades := collectTrades(b)

	require.NoError(t, b.Match(common.Order{
		ID: 1, Side: common.Buy, Kind: common.Iceberg, Price: d("100.00"),
		TotalQuantity: d("250"), DisplayQty: d("100"),
	}))
	assert.Equal(t, []snapshotLevel{{price: d("100.00"), qtys: []decimal.Decimal{d("100")}}}, snapshot(b.bids))

	// A 150-share sell sweep exhausts the first slice (100) and part of a
	// refilled second slice (50 of 100), continuing within the same sweep.
	require.NoError(t, b.Match(limitOrder(2, common.Sell, "100.00", "150")))

	assert.Equal(t, []snapshotLevel{{price: d("100.00"), qtys: []decimal.Decimal{d("50")}}}, snapshot(b.bids),
		"the refilled slice keeps resting with what the sweep didn't consume")

	var total decimal.Decimal
	for _, tr := range *trades {
		if tr.Maker.ID == 1 {
			total = total.Add(tr.MatchQty)
		}
	}
	assert.Equal(t, d("150"), total)
}

func TestMatch_IcebergRetiresWhenTotalExhausted(t *testing.T) {
	b := newTestBook()

	require.NoError(t, b.Match(common.Order{
		ID: 1, Side: common.Buy, Kind: common.Iceberg, Price: d("100.00"),
		TotalQuantity: d("100"), DisplayQty: d("100"),
	}))
	require.NoError(t, b.Match(limitOrder(2, common.Sell, "100.00", "100")))

	assert.Empty(t, snapshot(b.bids), "once total_quantity is exhausted nothing more is published")
}

func TestMatch_FuelExhaustionIsReturnedAsError(t *testing.T) {
	b := newTestBook(config.WithMaxTriggersPerMatch(1))

	// Two parked SELL stop-markets, both armed the instant last price
	// hits 101.00. Neither has a bid to match against once triggered
	// (MARKET never rests), so each cascade step produces no further
	// trade and the fuel budget is spent purely on re-arming checks.
	require.NoError(t, b.Match(common.Order{
		ID: 1, Side: common.Sell, Kind: common.StopMarket, Quantity: d("1"), TriggerPrice: d("101.00"),
	}))
	require.NoError(t, b.Match(common.Order{
		ID: 2, Side: common.Sell, Kind: common.StopMarket, Quantity: d("1"), TriggerPrice: d("101.00"),
	}))

	require.NoError(t, b.Match(limitOrder(3, common.Sell, "101.00", "1")))
	err := b.Match(limitOrder(4, common.Buy, "101.00", "1"))
	assert.ErrorIs(t, err, bookerr.ErrFuelExhausted)
}

func TestCancelOrder(t *testing.T) {
	b := newTestBook()

	require.NoError(t, b.Match(limitOrder(1, common.Buy, "99.00", "10")))
	require.NoError(t, b.CancelOrder(1))
	assert.Empty(t, snapshot(b.bids))

	assert.ErrorIs(t, b.CancelOrder(1), bookerr.ErrOrderNotFound)
}
