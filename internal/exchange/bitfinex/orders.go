package bitfinex

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/kingsmao/bitfinex-gateway/internal/config"
	"github.com/kingsmao/bitfinex-gateway/pkg/clock"
	"github.com/kingsmao/bitfinex-gateway/pkg/events"
	"github.com/kingsmao/bitfinex-gateway/pkg/logger"
	"github.com/kingsmao/bitfinex-gateway/pkg/schema"
)

// order prices and amounts are sent with at most 8 decimal places
const amountPrecision = 8

// OrderEntryGateway submits and cancels orders over the signed transport and
// reconciles fills by polling own-trade history, then looking up each filled
// order's status. Replace is emulated as cancel-then-send: the venue has no
// atomic cancel-replace, so there is a window with no working order.
type OrderEntryGateway struct {
	log    *logrus.Entry
	http   *HTTP
	symbol *SymbolProvider
	tp     clock.TimeProvider

	connectChanged *events.Evt[schema.ConnectivityStatus]
	orderUpdate    *events.Evt[schema.OrderStatusReport]

	mu        sync.Mutex
	monitored map[int64]struct{} // exchange order ids with possible activity
	since     int64              // reconciliation cursor, unix seconds
}

// NewOrderEntryGateway wires the gateway and starts the reconciliation loop.
// Unlike the market data loops there is no immediate poll: there is nothing
// to reconcile before the first order is sent.
func NewOrderEntryGateway(tp clock.TimeProvider, http *HTTP, symbol *SymbolProvider, polling config.PollingConfig) *OrderEntryGateway {
	g := &OrderEntryGateway{
		log:            logger.GetLogger().WithComponent("bitfinex.orderentry"),
		http:           http,
		symbol:         symbol,
		tp:             tp,
		connectChanged: events.New[schema.ConnectivityStatus](),
		orderUpdate:    events.New[schema.OrderStatusReport](),
		monitored:      make(map[int64]struct{}),
		since:          tp.Now().Unix(),
	}

	events.Pipe(http.ConnectChanged(), g.connectChanged)
	tp.SetInterval(g.downloadOrderStatuses, polling.OrderStatusInterval.Std())

	return g
}

func (g *OrderEntryGateway) ConnectChanged() *events.Evt[schema.ConnectivityStatus] {
	return g.connectChanged
}

func (g *OrderEntryGateway) OrderUpdate() *events.Evt[schema.OrderStatusReport] {
	return g.orderUpdate
}

// GenerateClientOrderID mints a fresh client order id.
func (g *OrderEntryGateway) GenerateClientOrderID() string {
	return uuid.NewString()
}

// CancelsByClientOrderID is false: the venue's cancel endpoint only accepts
// its own order id, so cancels need a previously learned exchange id.
func (g *OrderEntryGateway) CancelsByClientOrderID() bool {
	return false
}

// SendOrder acks synchronously and posts the new-order request in the
// background.
func (g *OrderEntryGateway) SendOrder(order schema.Order) schema.ActionReport {
	sent := g.tp.Now()
	go g.doSend(order)
	return schema.ActionReport{SentTime: sent}
}

// CancelOrder acks synchronously and posts the cancel in the background,
// keyed by exchange id.
func (g *OrderEntryGateway) CancelOrder(cancel schema.CancelOrder) schema.ActionReport {
	sent := g.tp.Now()
	go g.doCancel(cancel)
	return schema.ActionReport{SentTime: sent}
}

// ReplaceOrder emulates cancel-replace: cancel the original exchange id,
// then send the replacement, in that order. Not atomic; between the two
// calls nothing for this logical order rests on the book.
func (g *OrderEntryGateway) ReplaceOrder(replace schema.ReplaceOrder) schema.ActionReport {
	sent := g.tp.Now()
	go func() {
		g.doCancel(schema.CancelOrder{
			ClientOrderID: replace.OrigClientOrderID,
			ExchangeID:    replace.ExchangeID,
			Side:          replace.Side,
		})
		g.doSend(replace.Order)
	}()
	return schema.ActionReport{SentTime: sent}
}

func (g *OrderEntryGateway) convertToOrderRequest(order schema.Order) (newOrderRequest, error) {
	tif, err := encodeTimeInForce(order.TimeInForce)
	if err != nil {
		return newOrderRequest{}, err
	}
	return newOrderRequest{
		Symbol:   g.symbol.Symbol,
		Amount:   order.Quantity.Round(amountPrecision).String(),
		Price:    order.Price.Round(amountPrecision).String(),
		Exchange: "bitfinex",
		Side:     encodeSide(order.Side),
		Type:     tif,
	}, nil
}

// doSend posts the order and reports the outcome. A response carrying a
// message field is a venue rejection; otherwise the returned exchange id is
// monitored and a Working report links the client id to it.
func (g *OrderEntryGateway) doSend(order schema.Order) {
	req, err := g.convertToOrderRequest(order)
	if err != nil {
		// Unsupported time-in-force is a configuration error. Surface it as
		// a rejection so the engine does not wait on a phantom order.
		g.log.WithError(err).WithField("clientOrderId", order.ClientOrderID).Error("cannot encode order")
		g.orderUpdate.Trigger(schema.OrderStatusReport{
			OrderStatus:   schema.OrderStatusRejected,
			ClientOrderID: order.ClientOrderID,
			RejectMessage: err.Error(),
			Time:          g.tp.Now(),
		})
		return
	}

	resp, err := Post[newOrderResponse](g.http, "order/new", req)
	if err != nil {
		return
	}

	if resp.Data.Message != "" {
		g.orderUpdate.Trigger(schema.OrderStatusReport{
			OrderStatus:   schema.OrderStatusRejected,
			ClientOrderID: order.ClientOrderID,
			RejectMessage: resp.Data.Message,
			Time:          resp.Time,
		})
		return
	}

	g.mu.Lock()
	g.monitored[resp.Data.OrderID] = struct{}{}
	g.mu.Unlock()

	g.orderUpdate.Trigger(schema.OrderStatusReport{
		OrderStatus:   schema.OrderStatusWorking,
		ClientOrderID: order.ClientOrderID,
		ExchangeID:    strconv.FormatInt(resp.Data.OrderID, 10),
		Time:          resp.Time,
	})
}

// doCancel posts the cancel and reports the outcome. A rejected cancel
// leaves the id monitored.
func (g *OrderEntryGateway) doCancel(cancel schema.CancelOrder) {
	exchangeID, err := strconv.ParseInt(cancel.ExchangeID, 10, 64)
	if err != nil {
		g.log.WithField("exchangeId", cancel.ExchangeID).WithError(err).Error("cancel without usable exchange id")
		g.orderUpdate.Trigger(schema.OrderStatusReport{
			OrderStatus:    schema.OrderStatusRejected,
			CancelRejected: true,
			ClientOrderID:  cancel.ClientOrderID,
			RejectMessage:  "malformed exchange order id",
			Time:           g.tp.Now(),
		})
		return
	}

	resp, err := Post[cancelOrderResponse](g.http, "order/cancel", cancelOrderRequest{OrderID: exchangeID})
	if err != nil {
		return
	}

	if resp.Data.Message != "" {
		g.orderUpdate.Trigger(schema.OrderStatusReport{
			OrderStatus:    schema.OrderStatusRejected,
			CancelRejected: true,
			ClientOrderID:  cancel.ClientOrderID,
			RejectMessage:  resp.Data.Message,
			Time:           resp.Time,
		})
		return
	}

	g.mu.Lock()
	delete(g.monitored, exchangeID)
	g.mu.Unlock()

	g.orderUpdate.Trigger(schema.OrderStatusReport{
		OrderStatus:   schema.OrderStatusCancelled,
		ClientOrderID: cancel.ClientOrderID,
		ExchangeID:    cancel.ExchangeID,
		Time:          resp.Time,
	})
}

// downloadOrderStatuses reconciles fills: poll own trades since the cursor,
// then look up the status of each order that traded. The cursor advances as
// soon as the window is dispatched, not when the poll resolves; a failed
// poll therefore leaves a window that is never re-requested. That mirrors
// the at-most-once-per-window contract of the other loops.
func (g *OrderEntryGateway) downloadOrderStatuses() {
	g.mu.Lock()
	since := g.since
	g.since = g.tp.Now().Unix()
	g.mu.Unlock()

	trades, err := Post[[]myTrade](g.http, "mytrades", myTradesRequest{
		Symbol:    g.symbol.Symbol,
		Timestamp: since,
	})
	if err != nil {
		g.log.WithError(err).Warn("mytrades poll failed")
		return
	}

	// One status lookup per fill, in parallel; each emits its own report.
	for _, t := range trades.Data {
		go g.reconcileFill(t)
	}
}

func (g *OrderEntryGateway) reconcileFill(t myTrade) {
	status, err := Post[orderStatusResponse](g.http, "order/status", orderStatusRequest{OrderID: t.OrderID})
	if err != nil {
		g.log.WithField("orderId", t.OrderID).WithError(err).Warn("order status lookup failed")
		return
	}

	g.orderUpdate.Trigger(schema.OrderStatusReport{
		ExchangeID:     strconv.FormatInt(t.OrderID, 10),
		OrderStatus:    deriveOrderStatus(status.Data),
		LastPrice:      parseDecimal(t.Price),
		LastQuantity:   parseDecimal(t.Amount),
		AveragePrice:   parseDecimal(status.Data.AvgExecutionPx),
		LeavesQuantity: parseDecimal(status.Data.RemainingAmount),
		CumQuantity:    parseDecimal(status.Data.ExecutedAmount),
		Quantity:       parseDecimal(status.Data.OriginalAmount),
		Time:           status.Time,
	})
}

// deriveOrderStatus normalizes the venue's status flags: cancelled wins,
// then live means still working, everything else (filled, unknown terminal
// states) is Other.
func deriveOrderStatus(r orderStatusResponse) schema.OrderStatus {
	if r.IsCancelled {
		return schema.OrderStatusCancelled
	}
	if r.IsLive {
		return schema.OrderStatusWorking
	}
	return schema.OrderStatusOther
}

// monitoredIDs snapshots the monitored exchange order ids.
func (g *OrderEntryGateway) monitoredIDs() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int64, 0, len(g.monitored))
	for id := range g.monitored {
		out = append(out, id)
	}
	return out
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
