package bitfinex

import (
	"fmt"

	"github.com/kingsmao/bitfinex-gateway/pkg/schema"
)

// Raw Bitfinex v1 wire types. Numeric prices and sizes arrive as strings.

type marketTrade struct {
	TID       int64  `json:"tid"`
	Timestamp int64  `json:"timestamp"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	Exchange  string `json:"exchange"`
	Type      string `json:"type"`
}

type marketLevel struct {
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp"`
}

type orderBook struct {
	Bids []marketLevel `json:"bids"`
	Asks []marketLevel `json:"asks"`
}

type newOrderRequest struct {
	Symbol   string `json:"symbol"`
	Amount   string `json:"amount"`
	Price    string `json:"price"`
	Exchange string `json:"exchange"` // always "bitfinex"
	Side     string `json:"side"`
	// Type carries the encoded time-in-force: "limit" or "fill-or-kill".
	// "exchange "-prefixed types are wallet orders, bare types are margin.
	Type     string `json:"type"`
	IsHidden bool   `json:"is_hidden,omitempty"`
}

type newOrderResponse struct {
	Message string `json:"message"`
	OrderID int64  `json:"order_id"`
}

type cancelOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

type cancelOrderResponse struct {
	Message string `json:"message"`
}

type orderStatusRequest struct {
	OrderID int64 `json:"order_id"`
}

type myTradesRequest struct {
	Symbol    string `json:"symbol"`
	Timestamp int64  `json:"timestamp"`
}

type myTrade struct {
	Message   string `json:"message"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Exchange  string `json:"exchange"`
	Type      string `json:"type"`
	FeeAmount string `json:"fee_amount"`
	TID       int64  `json:"tid"`
	OrderID   int64  `json:"order_id"`
}

type orderStatusResponse struct {
	Message         string `json:"message"`
	Symbol          string `json:"symbol"`
	Exchange        string `json:"exchange"`
	AvgExecutionPx  string `json:"avg_execution_price"`
	Side            string `json:"side"`
	Type            string `json:"type"`
	Timestamp       string `json:"timestamp"`
	IsLive          bool   `json:"is_live"`
	IsCancelled     bool   `json:"is_cancelled"`
	IsHidden        bool   `json:"is_hidden"`
	WasForced       bool   `json:"was_forced"`
	ExecutedAmount  string `json:"executed_amount"`
	RemainingAmount string `json:"remaining_amount"`
	OriginalAmount  string `json:"original_amount"`
}

type balanceEntry struct {
	Type      string `json:"type"` // "trading", "deposit" or "exchange"
	Currency  string `json:"currency"`
	Amount    string `json:"amount"`
	Available string `json:"available"`
}

// decodeSide maps the venue's trade direction to a normalized side. Total:
// anything unrecognized decodes to SideUnknown rather than failing.
func decodeSide(side string) schema.Side {
	switch side {
	case "buy":
		return schema.SideBid
	case "sell":
		return schema.SideAsk
	default:
		return schema.SideUnknown
	}
}

// encodeSide is the inverse of decodeSide for Bid and Ask.
func encodeSide(side schema.Side) string {
	switch side {
	case schema.SideBid:
		return "buy"
	case schema.SideAsk:
		return "sell"
	default:
		return ""
	}
}

// encodeTimeInForce maps time-in-force onto the venue's order type field.
// The venue has no native FOK flag beyond the dedicated order type.
func encodeTimeInForce(tif schema.TimeInForce) (string, error) {
	switch tif {
	case schema.TifFOK:
		return "fill-or-kill", nil
	case schema.TifGTC:
		return "limit", nil
	default:
		return "", fmt.Errorf("unsupported tif %v", tif)
	}
}
