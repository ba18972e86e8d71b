// Package config holds the engine's small set of knobs: worker count,
// collar multipliers, the initial last-traded price, and the trigger
// cascade's fuel budget. Iceberg display/total limits are not
// configurable here; engine validation applies a fixed display < total
// rule. Built with functional options, matching the
// teacher's plain-constructor-parameter style rather than reaching for a
// config-file library no pack repo actually wires into its own go.mod.
package config

import (
	"runtime"

	"github.com/shopspring/decimal"
)

// Config is the engine's tunable behavior. Zero value is never valid;
// always construct via New.
type Config struct {
	// WorkerCount sizes the ants pool behind the ingest pipeline.
	// Default: max(4, GOMAXPROCS).
	WorkerCount int

	// SellCollarMultiplier bounds a triggered STOP_LIMIT SELL: reject
	// if limit > lastPrice * SellCollarMultiplier. Default 1.05.
	SellCollarMultiplier decimal.Decimal

	// BuyCollarMultiplier bounds a triggered STOP_LIMIT BUY: reject if
	// limit < lastPrice * BuyCollarMultiplier. Default 0.95.
	BuyCollarMultiplier decimal.Decimal

	// InitialLastTradedPrice seeds Book.LastTradedPrice before any
	// trade has occurred. Default 100.00.
	InitialLastTradedPrice decimal.Decimal

	// MaxTriggersPerMatch bounds the trigger cascade's work-list per
	// spec.md §4.2. Default 10,000.
	MaxTriggersPerMatch int
}

// Option mutates a Config under construction.
type Option func(*Config)

func WithWorkerCount(n int) Option {
	return func(c *Config) { c.WorkerCount = n }
}

func WithCollar(sell, buy decimal.Decimal) Option {
	return func(c *Config) {
		c.SellCollarMultiplier = sell
		c.BuyCollarMultiplier = buy
	}
}

func WithInitialLastTradedPrice(p decimal.Decimal) Option {
	return func(c *Config) { c.InitialLastTradedPrice = p }
}

func WithMaxTriggersPerMatch(n int) Option {
	return func(c *Config) { c.MaxTriggersPerMatch = n }
}

// New builds a Config with spec.md defaults, then applies opts.
func New(opts ...Option) Config {
	c := Config{
		WorkerCount:            defaultWorkerCount(),
		SellCollarMultiplier:   decimal.NewFromFloat(1.05),
		BuyCollarMultiplier:    decimal.NewFromFloat(0.95),
		InitialLastTradedPrice: decimal.NewFromInt(100),
		MaxTriggersPerMatch:    10000,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func defaultWorkerCount() int {
	if n := runtime.GOMAXPROCS(0); n > 4 {
		return n
	}
	return 4
}
