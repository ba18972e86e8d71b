// Package logsink is the Core→Log sink of spec.md §6: two append-only
// CSV streams (orders, trades). Grounded in original_source/src/logger.cpp
// (two std::ofstream members, one mutex) and the teacher's use of
// rs/zerolog for its own operational logging.
package logsink

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dorufloare/matchbook/internal/common"
)

const (
	orderStatusSubmitted = "SUBMITTED"
	orderStatusResting   = "RESTING"
)

// Sink appends to orders.csv and trades.csv. A Sink with nil writers is
// valid and simply drops everything — used by components that want the
// interface without the disk I/O (e.g. unit tests).
type Sink struct {
	mu sync.Mutex

	ordersFile  *os.File
	ordersCSV   *csv.Writer
	tradesFile  *os.File
	tradesCSV   *csv.Writer
}

// Open creates (or truncates) ordersPath and tradesPath and writes their
// CSV headers. Per spec.md §7, a sink that cannot open its files logs
// once to stderr and matching proceeds with a no-op sink.
func Open(ordersPath, tradesPath string) *Sink {
	s := &Sink{}

	of, err := os.Create(ordersPath)
	if err != nil {
		log.Error().Err(err).Str("path", ordersPath).Msg("logsink: unable to open orders log, disabling order logging")
	} else {
		s.ordersFile = of
		s.ordersCSV = csv.NewWriter(of)
		_ = s.ordersCSV.Write([]string{
			"timestamp", "id", "user_id", "kind", "side", "price", "quantity", "trigger_price", "status",
		})
		s.ordersCSV.Flush()
	}

	tf, err := os.Create(tradesPath)
	if err != nil {
		log.Error().Err(err).Str("path", tradesPath).Msg("logsink: unable to open trades log, disabling trade logging")
	} else {
		s.tradesFile = tf
		s.tradesCSV = csv.NewWriter(tf)
		_ = s.tradesCSV.Write([]string{
			"timestamp", "incoming_id", "resting_id", "match_price", "match_quantity", "incoming_side", "resting_side",
		})
		s.tradesCSV.Flush()
	}

	return s
}

// Close flushes and closes both underlying files, if open.
func (s *Sink) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ordersCSV != nil {
		s.ordersCSV.Flush()
		_ = s.ordersFile.Close()
	}
	if s.tradesCSV != nil {
		s.tradesCSV.Flush()
		_ = s.tradesFile.Close()
	}
}

// LogOrder records a freshly submitted order before it is matched.
func (s *Sink) LogOrder(o common.Order) {
	s.writeOrder(o, orderStatusSubmitted)
}

// LogRestingOrder records an order (or iceberg slice) that came to rest.
func (s *Sink) LogRestingOrder(o common.Order) {
	s.writeOrder(o, orderStatusResting)
}

func (s *Sink) writeOrder(o common.Order, status string) {
	if s == nil || s.ordersCSV == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.ordersCSV.Write([]string{
		formatTimestamp(time.Now()),
		fmt.Sprintf("%d", o.ID),
		fmt.Sprintf("%d", o.UserID),
		o.Kind.String(),
		o.Side.String(),
		o.Price.StringFixed(2),
		o.Quantity.StringFixed(2),
		o.TriggerPrice.StringFixed(2),
		status,
	})
	if err != nil {
		log.Error().Err(err).Msg("logsink: write order row")
		return
	}
	s.ordersCSV.Flush()
}

// LogMatch records one trade between an incoming (taker) and a resting
// (maker) order.
func (s *Sink) LogMatch(t common.Trade) {
	if s == nil || s.tradesCSV == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.tradesCSV.Write([]string{
		formatTimestamp(t.Timestamp),
		fmt.Sprintf("%d", t.Taker.ID),
		fmt.Sprintf("%d", t.Maker.ID),
		t.Price.StringFixed(2),
		t.MatchQty.StringFixed(2),
		t.Taker.Side.String(),
		t.Maker.Side.String(),
	})
	if err != nil {
		log.Error().Err(err).Msg("logsink: write trade row")
		return
	}
	s.tradesCSV.Flush()
}

func formatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
