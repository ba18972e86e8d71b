// Package net is the wire transport: a small fixed-header binary
// protocol generalized from the teacher's internal/net/messages.go to
// carry all five order kinds (and their trigger/iceberg fields) at
// fixed-point cent precision instead of raw float64 bits, which is
// what spec.md's decimal-exact matching requires on the wire too.
package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dorufloare/matchbook/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short for specified owner length")
)

type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	LogBook
)

type ReportMessageType uint8

const (
	ExecutionReport ReportMessageType = iota
	ErrorReport
)

// Message format constants. Prices and quantities travel as integer
// cents (value * 100) so the wire never reintroduces the float64
// rounding decimal.Decimal exists to avoid.
const (
	BaseMessageHeaderLen = 2
	// kind(1) + side(1) + price(8) + qty(8) + trigger(8) + total(8) + display(8) + ownerLen(1)
	NewOrderMessageHeaderLen = 1 + 1 + 8 + 8 + 8 + 8 + 8 + 1
	// orderID(8)
	CancelOrderMessageHeaderLen = 8
)

type Message interface {
	GetType() MessageType
}

type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType { return m.TypeOf }

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case LogBook:
		return BaseMessage{TypeOf: LogBook}, nil
	default:
		return nil, ErrInvalidMessageType
	}
}

type NewOrderMessage struct {
	BaseMessage
	Kind          common.OrderKind
	Side          common.Side
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	TriggerPrice  decimal.Decimal
	TotalQuantity decimal.Decimal
	DisplayQty    decimal.Decimal
	Owner         string
}

// Order converts the wire message into a common.Order; ID/Seq/Timestamp
// are left zero for the engine facade to assign.
func (m NewOrderMessage) Order() common.Order {
	return common.Order{
		Kind:          m.Kind,
		Side:          m.Side,
		Price:         m.Price,
		Quantity:      m.Quantity,
		TriggerPrice:  m.TriggerPrice,
		TotalQuantity: m.TotalQuantity,
		DisplayQty:    m.DisplayQty,
		Owner:         m.Owner,
	}
}

func centsToDecimal(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

func decimalToCents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < NewOrderMessageHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}

	m.Kind = common.OrderKind(msg[0])
	m.Side = common.Side(msg[1])
	m.Price = centsToDecimal(int64(binary.BigEndian.Uint64(msg[2:10])))
	m.Quantity = centsToDecimal(int64(binary.BigEndian.Uint64(msg[10:18])))
	m.TriggerPrice = centsToDecimal(int64(binary.BigEndian.Uint64(msg[18:26])))
	m.TotalQuantity = centsToDecimal(int64(binary.BigEndian.Uint64(msg[26:34])))
	m.DisplayQty = centsToDecimal(int64(binary.BigEndian.Uint64(msg[34:42])))
	ownerLen := int(msg[42])

	if len(msg) < NewOrderMessageHeaderLen+ownerLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.Owner = string(msg[NewOrderMessageHeaderLen : NewOrderMessageHeaderLen+ownerLen])
	return m, nil
}

// EncodeNewOrder serializes a new-order request onto the wire; used by
// cmd/matchbookctl to send parsed CLI orders to the server.
func EncodeNewOrder(kind common.OrderKind, side common.Side, price, quantity, triggerPrice, totalQuantity, displayQty decimal.Decimal, owner string) []byte {
	ownerBytes := []byte(owner)
	buf := make([]byte, BaseMessageHeaderLen+NewOrderMessageHeaderLen+len(ownerBytes))

	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	buf[2] = byte(kind)
	buf[3] = byte(side)
	binary.BigEndian.PutUint64(buf[4:12], uint64(decimalToCents(price)))
	binary.BigEndian.PutUint64(buf[12:20], uint64(decimalToCents(quantity)))
	binary.BigEndian.PutUint64(buf[20:28], uint64(decimalToCents(triggerPrice)))
	binary.BigEndian.PutUint64(buf[28:36], uint64(decimalToCents(totalQuantity)))
	binary.BigEndian.PutUint64(buf[36:44], uint64(decimalToCents(displayQty)))
	buf[44] = byte(len(ownerBytes))
	copy(buf[45:], ownerBytes)
	return buf
}

type CancelOrderMessage struct {
	BaseMessage
	OrderID int64
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < CancelOrderMessageHeaderLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	return CancelOrderMessage{
		BaseMessage: BaseMessage{TypeOf: CancelOrder},
		OrderID:     int64(binary.BigEndian.Uint64(msg[0:8])),
	}, nil
}

// EncodeCancelOrder serializes a cancel-order request.
func EncodeCancelOrder(orderID int64) []byte {
	buf := make([]byte, BaseMessageHeaderLen+CancelOrderMessageHeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	binary.BigEndian.PutUint64(buf[2:10], uint64(orderID))
	return buf
}

// Report is an execution or error report sent back to a connected
// client. Fixed header mirrors the teacher's Report wire shape.
type Report struct {
	MessageType  ReportMessageType
	Side         common.Side
	Timestamp    int64
	TakerID      int64
	MakerID      int64
	PriceCents   int64
	QtyCents     int64
	Counterparty string
	Err          string
}

const reportFixedHeaderLen = 1 + 1 + 8 + 8 + 8 + 8 + 8 + 2 + 4

// Serialize converts the report to wire bytes.
func (r Report) Serialize() []byte {
	counterparty := []byte(r.Counterparty)
	errStr := []byte(r.Err)
	buf := make([]byte, reportFixedHeaderLen+len(counterparty)+len(errStr))

	buf[0] = byte(r.MessageType)
	buf[1] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[2:10], uint64(r.Timestamp))
	binary.BigEndian.PutUint64(buf[10:18], uint64(r.TakerID))
	binary.BigEndian.PutUint64(buf[18:26], uint64(r.MakerID))
	binary.BigEndian.PutUint64(buf[26:34], uint64(r.PriceCents))
	binary.BigEndian.PutUint64(buf[34:42], uint64(r.QtyCents))
	binary.BigEndian.PutUint16(buf[42:44], uint16(len(counterparty)))
	binary.BigEndian.PutUint32(buf[44:48], uint32(len(errStr)))
	copy(buf[reportFixedHeaderLen:], counterparty)
	copy(buf[reportFixedHeaderLen+len(counterparty):], errStr)
	return buf
}

// DeserializeReport parses a Report back out of wire bytes — used by
// the CLI client to print incoming execution reports.
func DeserializeReport(buf []byte) (Report, error) {
	if len(buf) < reportFixedHeaderLen {
		return Report{}, ErrMessageTooShort
	}
	r := Report{
		MessageType: ReportMessageType(buf[0]),
		Side:        common.Side(buf[1]),
		Timestamp:   int64(binary.BigEndian.Uint64(buf[2:10])),
		TakerID:     int64(binary.BigEndian.Uint64(buf[10:18])),
		MakerID:     int64(binary.BigEndian.Uint64(buf[18:26])),
		PriceCents:  int64(binary.BigEndian.Uint64(buf[26:34])),
		QtyCents:    int64(binary.BigEndian.Uint64(buf[34:42])),
	}
	cpLen := int(binary.BigEndian.Uint16(buf[42:44]))
	errLen := int(binary.BigEndian.Uint32(buf[44:48]))
	rest := buf[reportFixedHeaderLen:]
	if len(rest) < cpLen+errLen {
		return Report{}, ErrMessageTooShort
	}
	r.Counterparty = string(rest[:cpLen])
	r.Err = string(rest[cpLen : cpLen+errLen])
	return r, nil
}

func tradeReports(trade common.Trade) (Report, Report) {
	taker := Report{
		MessageType:  ExecutionReport,
		Side:         trade.Taker.Side,
		Timestamp:    trade.Timestamp.UnixNano(),
		TakerID:      trade.Taker.ID,
		MakerID:      trade.Maker.ID,
		PriceCents:   decimalToCents(trade.Price),
		QtyCents:     decimalToCents(trade.MatchQty),
		Counterparty: trade.Maker.Owner,
	}
	maker := taker
	maker.Side = trade.Maker.Side
	maker.Counterparty = trade.Taker.Owner
	return taker, maker
}

func errorReport(err error) Report {
	return Report{
		MessageType: ErrorReport,
		Timestamp:   time.Now().UnixNano(),
		Err:         fmt.Sprintf("%v", err),
	}
}
