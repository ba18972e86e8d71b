// Package cli is the interactive order-entry front end: it parses a
// line of user input into a common.Order the same way
// original_source/src/ui.cpp's command loop does (one line, one
// order/cancel command). Serializing the result onto the wire is left to
// cmd/matchbookctl, the way the teacher's cmd/client/client.go talks to
// the exchange over TCP.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dorufloare/matchbook/internal/common"
)

var ErrUnknownCommand = errors.New("cli: unknown command")

// Command is one parsed line of interactive input: either a new order
// or a cancellation, matching original_source/src/ui.cpp's two
// supported actions.
type Command struct {
	Cancel  bool
	OrderID int64
	Order   common.Order
}

// ParseLine parses one of:
//
//	order <side> <kind> <price> <qty> [trigger] [total] [display] <owner>
//	cancel <order_id>
//
// side: buy|sell. kind: limit|market|stop_limit|stop_market|iceberg.
func ParseLine(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrUnknownCommand
	}

	switch strings.ToLower(fields[0]) {
	case "cancel":
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("cli: cancel requires an order id")
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Command{}, fmt.Errorf("cli: invalid order id: %w", err)
		}
		return Command{Cancel: true, OrderID: id}, nil

	case "order":
		return parseOrder(fields[1:])

	default:
		return Command{}, ErrUnknownCommand
	}
}

func parseOrder(fields []string) (Command, error) {
	if len(fields) < 4 {
		return Command{}, fmt.Errorf("cli: order requires at least side, kind, price, qty")
	}

	side, err := parseSide(fields[0])
	if err != nil {
		return Command{}, err
	}
	kind, err := parseKind(fields[1])
	if err != nil {
		return Command{}, err
	}
	price, err := parseDecimal(fields[2])
	if err != nil {
		return Command{}, err
	}
	qty, err := parseDecimal(fields[3])
	if err != nil {
		return Command{}, err
	}

	order := common.Order{Side: side, Kind: kind, Price: price, Quantity: qty}
	rest := fields[4:]

	switch kind {
	case common.StopLimit, common.StopMarket:
		if len(rest) < 1 {
			return Command{}, fmt.Errorf("cli: %s requires a trigger price", kind)
		}
		trigger, err := parseDecimal(rest[0])
		if err != nil {
			return Command{}, err
		}
		order.TriggerPrice = trigger
		rest = rest[1:]
	case common.Iceberg:
		if len(rest) < 2 {
			return Command{}, fmt.Errorf("cli: iceberg requires total and display quantity")
		}
		total, err := parseDecimal(rest[0])
		if err != nil {
			return Command{}, err
		}
		display, err := parseDecimal(rest[1])
		if err != nil {
			return Command{}, err
		}
		order.TotalQuantity = total
		order.DisplayQty = display
		rest = rest[2:]
	}

	if len(rest) < 1 {
		return Command{}, fmt.Errorf("cli: order requires an owner name")
	}
	order.Owner = rest[0]

	return Command{Order: order}, nil
}

func parseSide(s string) (common.Side, error) {
	switch strings.ToLower(s) {
	case "buy":
		return common.Buy, nil
	case "sell":
		return common.Sell, nil
	default:
		return 0, fmt.Errorf("cli: invalid side %q", s)
	}
}

func parseKind(s string) (common.OrderKind, error) {
	switch strings.ToLower(s) {
	case "limit":
		return common.Limit, nil
	case "market":
		return common.Market, nil
	case "stop_limit":
		return common.StopLimit, nil
	case "stop_market":
		return common.StopMarket, nil
	case "iceberg":
		return common.Iceberg, nil
	default:
		return 0, fmt.Errorf("cli: invalid order kind %q", s)
	}
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("cli: invalid number %q: %w", s, err)
	}
	return d, nil
}

// Reader wraps a bufio.Scanner so the interactive REPL (in
// cmd/matchbookctl) can pull one parsed Command at a time and not
// worry about blank lines or EOF handling itself.
type Reader struct {
	scanner *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next non-blank line's Command, or io.EOF once the
// underlying reader is exhausted.
func (r *Reader) Next() (Command, error) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}
		return ParseLine(line)
	}
	if err := r.scanner.Err(); err != nil {
		return Command{}, err
	}
	return Command{}, io.EOF
}
