// Package generator is the background synthetic order flow of
// original_source/src/background_generator.cpp: a goroutine that
// submits random orders on a fixed tick so the book has something to
// chew on without a human or a test driving it. Ported faithfully,
// plus ICEBERG (absent from the original, which predates that order
// kind) at a low weight alongside the original four.
package generator

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dorufloare/matchbook/internal/common"
)

// LastPricer exposes whatever Book.LastTradedPrice exposes — just
// enough for the generator to pick realistic stop trigger prices.
type LastPricer interface {
	LastTradedPrice() decimal.Decimal
}

// Submitter is the engine facade's Submit method.
type Submitter func(common.Order) (int64, error)

// Generator produces one random order per tick and submits it.
type Generator struct {
	submit   Submitter
	prices   LastPricer
	interval time.Duration
	userBase int
}

func New(submit Submitter, prices LastPricer, interval time.Duration) *Generator {
	return &Generator{submit: submit, prices: prices, interval: interval, userBase: 1001}
}

// Run submits one random order every interval until ctx is done.
func (g *Generator) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = g.submit(g.randomOrder())
		}
	}
}

func (g *Generator) randomOrder() common.Order {
	o := common.Order{
		UserID: int64(g.userBase + rand.IntN(8999)),
		Side:   common.Side(rand.IntN(2)),
		Owner:  "generator",
	}

	roll := rand.IntN(20)
	switch {
	case roll < 8:
		o.Kind = common.Limit
	case roll < 12:
		o.Kind = common.Market
	case roll < 15:
		o.Kind = common.StopLimit
	case roll < 18:
		o.Kind = common.StopMarket
	default:
		o.Kind = common.Iceberg
	}

	o.Quantity = randomDecimal(1, 10)

	switch o.Kind {
	case common.StopLimit, common.StopMarket:
		last := g.currentPrice()
		if o.Side == common.Sell {
			o.TriggerPrice = last.Mul(randomDecimal(0.85, 0.95))
			if o.Kind == common.StopLimit {
				o.Price = o.TriggerPrice.Mul(randomDecimal(0.95, 1.04))
			}
		} else {
			o.TriggerPrice = last.Mul(randomDecimal(1.05, 1.15))
			if o.Kind == common.StopLimit {
				o.Price = o.TriggerPrice.Mul(randomDecimal(1.01, 1.05))
			}
		}
	case common.Iceberg:
		o.Price = randomDecimal(70, 120)
		o.DisplayQty = randomDecimal(1, 3)
		o.TotalQuantity = o.DisplayQty.Mul(decimal.NewFromInt(int64(2 + rand.IntN(5))))
		o.Quantity = o.TotalQuantity
	default:
		o.Price = randomDecimal(70, 120)
	}

	return o
}

func (g *Generator) currentPrice() decimal.Decimal {
	if g.prices == nil {
		return decimal.NewFromInt(95)
	}
	if p := g.prices.LastTradedPrice(); p.IsPositive() {
		return p
	}
	return decimal.NewFromInt(95)
}

func randomDecimal(lo, hi float64) decimal.Decimal {
	v := lo + rand.Float64()*(hi-lo)
	return decimal.NewFromFloat(v).Round(2)
}
