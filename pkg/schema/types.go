package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConnectivityStatus reflects whether the transport considers itself usable.
type ConnectivityStatus int

const (
	Disconnected ConnectivityStatus = iota
	Connected
)

func (s ConnectivityStatus) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Side defines the side of an order or trade.
type Side int

const (
	SideUnknown Side = iota
	SideBid
	SideAsk
)

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	default:
		return "unknown"
	}
}

// TimeInForce defines how long an order stays working.
type TimeInForce int

const (
	TifGTC TimeInForce = iota
	TifFOK
	TifIOC
)

func (t TimeInForce) String() string {
	switch t {
	case TifGTC:
		return "GTC"
	case TifFOK:
		return "FOK"
	case TifIOC:
		return "IOC"
	default:
		return "unknown"
	}
}

// OrderStatus defines the normalized order lifecycle state.
type OrderStatus int

const (
	OrderStatusWorking OrderStatus = iota
	OrderStatusCancelled
	OrderStatusRejected
	OrderStatusOther
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusWorking:
		return "working"
	case OrderStatusCancelled:
		return "cancelled"
	case OrderStatusRejected:
		return "rejected"
	default:
		return "other"
	}
}

// Timestamped pairs a value with the instant the local process considered it
// valid (response-arrival time, not exchange time).
type Timestamped[T any] struct {
	Data T
	Time time.Time
}

func NewTimestamped[T any](data T, t time.Time) Timestamped[T] {
	return Timestamped[T]{Data: data, Time: t}
}

// MarketSide represents a single order book level.
type MarketSide struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// MarketBook represents an order book snapshot.
type MarketBook struct {
	Bids      []MarketSide `json:"bids"` // best first
	Asks      []MarketSide `json:"asks"` // best first
	Timestamp time.Time    `json:"timestamp"`
}

// GatewayMarketTrade is a normalized public trade print. Initial is true only
// for trades observed before any poll cursor had been set, i.e. the history
// backfill on the first poll of a session.
type GatewayMarketTrade struct {
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Timestamp time.Time       `json:"timestamp"`
	Initial   bool            `json:"initial"`
	Side      Side            `json:"side"`
}

// Order is an outbound new-order instruction.
type Order struct {
	ClientOrderID string          `json:"clientOrderId"`
	Side          Side            `json:"side"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	TimeInForce   TimeInForce     `json:"timeInForce"`
}

// CancelOrder asks to pull a previously sent order. ExchangeID must be the
// id learned from the venue; not every venue cancels by client id.
type CancelOrder struct {
	ClientOrderID string `json:"clientOrderId"`
	ExchangeID    string `json:"exchangeId"`
	Side          Side   `json:"side"`
}

// ReplaceOrder swaps a working order for a new price/quantity.
type ReplaceOrder struct {
	Order
	OrigClientOrderID string `json:"origClientOrderId"`
	ExchangeID        string `json:"exchangeId"`
}

// OrderStatusReport is an incremental order update. Each report may carry
// only a subset of fields; zero quantities and empty strings mean "not
// reported this time" and consumers merge by id.
type OrderStatusReport struct {
	ExchangeID     string          `json:"exchangeId,omitempty"`
	ClientOrderID  string          `json:"clientOrderId,omitempty"`
	OrderStatus    OrderStatus     `json:"orderStatus"`
	RejectMessage  string          `json:"rejectMessage,omitempty"`
	CancelRejected bool            `json:"cancelRejected,omitempty"`
	LastPrice      decimal.Decimal `json:"lastPrice,omitempty"`
	LastQuantity   decimal.Decimal `json:"lastQuantity,omitempty"`
	AveragePrice   decimal.Decimal `json:"averagePrice,omitempty"`
	LeavesQuantity decimal.Decimal `json:"leavesQuantity,omitempty"`
	CumQuantity    decimal.Decimal `json:"cumQuantity,omitempty"`
	Quantity       decimal.Decimal `json:"quantity,omitempty"`
	Time           time.Time       `json:"time"`
}

// ActionReport acknowledges that an order action was accepted for
// transmission, stamped with the local submission time.
type ActionReport struct {
	SentTime time.Time `json:"sentTime"`
}

// CurrencyPosition is a normalized per-currency balance. Held is the part of
// Amount locked by working orders (total minus available).
type CurrencyPosition struct {
	Currency Currency        `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	Held     decimal.Decimal `json:"held"`
	Time     time.Time       `json:"time"`
}
