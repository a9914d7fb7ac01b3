// Package nullgw provides a no-op order entry gateway. The composition root
// swaps it in when order flow is routed away from a venue, so market data
// and position tracking keep running while nothing is ever sent.
package nullgw

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kingsmao/bitfinex-gateway/pkg/clock"
	"github.com/kingsmao/bitfinex-gateway/pkg/events"
	"github.com/kingsmao/bitfinex-gateway/pkg/schema"
)

const reportDelay = 10 * time.Millisecond

// OrderGateway accepts every action and fabricates the matching lifecycle
// report shortly after, without touching any network.
type OrderGateway struct {
	tp clock.TimeProvider

	connectChanged *events.Evt[schema.ConnectivityStatus]
	orderUpdate    *events.Evt[schema.OrderStatusReport]
}

func New(tp clock.TimeProvider) *OrderGateway {
	g := &OrderGateway{
		tp:             tp,
		connectChanged: events.New[schema.ConnectivityStatus](),
		orderUpdate:    events.New[schema.OrderStatusReport](),
	}
	tp.SetTimeout(func() {
		g.connectChanged.Trigger(schema.Connected)
	}, reportDelay)
	return g
}

func (g *OrderGateway) ConnectChanged() *events.Evt[schema.ConnectivityStatus] {
	return g.connectChanged
}

func (g *OrderGateway) OrderUpdate() *events.Evt[schema.OrderStatusReport] {
	return g.orderUpdate
}

func (g *OrderGateway) GenerateClientOrderID() string { return uuid.NewString() }

func (g *OrderGateway) CancelsByClientOrderID() bool { return true }

// SendOrder fabricates the full lifecycle: a Working report, then a synthetic
// complete fill at the order's own price.
func (g *OrderGateway) SendOrder(order schema.Order) schema.ActionReport {
	sent := g.tp.Now()
	exchangeID := uuid.NewString()
	g.tp.SetTimeout(func() {
		g.orderUpdate.Trigger(schema.OrderStatusReport{
			OrderStatus:   schema.OrderStatusWorking,
			ClientOrderID: order.ClientOrderID,
			ExchangeID:    exchangeID,
			Time:          g.tp.Now(),
		})
	}, reportDelay)
	g.tp.SetTimeout(func() {
		g.orderUpdate.Trigger(schema.OrderStatusReport{
			OrderStatus:    schema.OrderStatusOther,
			ClientOrderID:  order.ClientOrderID,
			ExchangeID:     exchangeID,
			LastPrice:      order.Price,
			LastQuantity:   order.Quantity,
			AveragePrice:   order.Price,
			CumQuantity:    order.Quantity,
			LeavesQuantity: decimal.Zero,
			Quantity:       order.Quantity,
			Time:           g.tp.Now(),
		})
	}, 2*reportDelay)
	return schema.ActionReport{SentTime: sent}
}

func (g *OrderGateway) CancelOrder(cancel schema.CancelOrder) schema.ActionReport {
	sent := g.tp.Now()
	g.tp.SetTimeout(func() {
		g.orderUpdate.Trigger(schema.OrderStatusReport{
			OrderStatus:   schema.OrderStatusCancelled,
			ClientOrderID: cancel.ClientOrderID,
			ExchangeID:    cancel.ExchangeID,
			Time:          g.tp.Now(),
		})
	}, reportDelay)
	return schema.ActionReport{SentTime: sent}
}

func (g *OrderGateway) ReplaceOrder(replace schema.ReplaceOrder) schema.ActionReport {
	g.CancelOrder(schema.CancelOrder{
		ClientOrderID: replace.OrigClientOrderID,
		ExchangeID:    replace.ExchangeID,
		Side:          replace.Side,
	})
	return g.SendOrder(replace.Order)
}
