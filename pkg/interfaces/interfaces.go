// Package interfaces defines the gateway contracts consumed by the trading
// engine. Implementations emit normalized schema values through events and
// never block the caller on network round-trips.
package interfaces

import (
	"github.com/kingsmao/bitfinex-gateway/pkg/events"
	"github.com/kingsmao/bitfinex-gateway/pkg/schema"
)

// MarketDataGateway delivers public market state for one instrument.
type MarketDataGateway interface {
	// ConnectChanged fires when the underlying transport readiness changes.
	ConnectChanged() *events.Evt[schema.ConnectivityStatus]

	// MarketData fires one full book snapshot per successful poll.
	MarketData() *events.Evt[schema.MarketBook]

	// MarketTrade fires once per observed public trade.
	MarketTrade() *events.Evt[schema.GatewayMarketTrade]
}

// OrderEntryGateway submits order flow and reports lifecycle updates.
// Send/Cancel/Replace return immediately with a local ack; outcomes arrive
// asynchronously on OrderUpdate.
type OrderEntryGateway interface {
	ConnectChanged() *events.Evt[schema.ConnectivityStatus]
	OrderUpdate() *events.Evt[schema.OrderStatusReport]

	SendOrder(order schema.Order) schema.ActionReport
	CancelOrder(cancel schema.CancelOrder) schema.ActionReport
	ReplaceOrder(replace schema.ReplaceOrder) schema.ActionReport

	// GenerateClientOrderID mints a fresh client-side order id.
	GenerateClientOrderID() string

	// CancelsByClientOrderID reports whether the venue can cancel by client
	// id alone. When false, cancels require a learned exchange id.
	CancelsByClientOrderID() bool
}

// PositionGateway reports account balances per currency.
type PositionGateway interface {
	PositionUpdate() *events.Evt[schema.CurrencyPosition]
}

// ExchangeDetails is the static descriptor of a venue.
type ExchangeDetails interface {
	Name() string
	MakeFee() float64
	TakeFee() float64
	HasSelfTradePrevention() bool
	SupportedCurrencyPairs() []schema.CurrencyPair
}

// CombinedGateway bundles the sub-gateways into one logical exchange
// connection.
type CombinedGateway struct {
	MarketData MarketDataGateway
	OrderEntry OrderEntryGateway
	Position   PositionGateway
	Details    ExchangeDetails
}

func NewCombinedGateway(md MarketDataGateway, oe OrderEntryGateway, pg PositionGateway, details ExchangeDetails) *CombinedGateway {
	return &CombinedGateway{
		MarketData: md,
		OrderEntry: oe,
		Position:   pg,
		Details:    details,
	}
}
