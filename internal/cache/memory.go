// Package cache keeps a last-value view of the gateway's event streams so
// callers can read current state without holding their own subscriptions.
package cache

import (
	"sync"

	"github.com/kingsmao/bitfinex-gateway/pkg/interfaces"
	"github.com/kingsmao/bitfinex-gateway/pkg/schema"
)

const tradeHistory = 64

// MemoryCache is a threadsafe in-memory store fed by gateway events. Order
// reports are merged per order: later partial reports only overwrite the
// fields they carry.
type MemoryCache struct {
	mu sync.RWMutex

	connectivity schema.ConnectivityStatus
	book         schema.MarketBook
	hasBook      bool
	trades       []schema.GatewayMarketTrade
	positions    map[schema.Currency]schema.CurrencyPosition
	orders       map[string]schema.OrderStatusReport // by client order id
	byExchangeID map[string]string                   // exchange id -> client id
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		positions:    make(map[schema.Currency]schema.CurrencyPosition),
		orders:       make(map[string]schema.OrderStatusReport),
		byExchangeID: make(map[string]string),
	}
}

// Attach subscribes the cache to every stream of the combined gateway.
func (m *MemoryCache) Attach(gw *interfaces.CombinedGateway) {
	gw.MarketData.ConnectChanged().On(m.setConnectivity)
	gw.MarketData.MarketData().On(m.setBook)
	gw.MarketData.MarketTrade().On(m.appendTrade)
	gw.OrderEntry.OrderUpdate().On(m.mergeOrderReport)
	gw.Position.PositionUpdate().On(m.setPosition)
}

func (m *MemoryCache) setConnectivity(s schema.ConnectivityStatus) {
	m.mu.Lock()
	m.connectivity = s
	m.mu.Unlock()
}

func (m *MemoryCache) setBook(b schema.MarketBook) {
	m.mu.Lock()
	m.book = b
	m.hasBook = true
	m.mu.Unlock()
}

func (m *MemoryCache) appendTrade(t schema.GatewayMarketTrade) {
	m.mu.Lock()
	m.trades = append(m.trades, t)
	if len(m.trades) > tradeHistory {
		m.trades = m.trades[len(m.trades)-tradeHistory:]
	}
	m.mu.Unlock()
}

func (m *MemoryCache) setPosition(p schema.CurrencyPosition) {
	m.mu.Lock()
	m.positions[p.Currency] = p
	m.mu.Unlock()
}

func (m *MemoryCache) mergeOrderReport(r schema.OrderStatusReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clientID := r.ClientOrderID
	if clientID == "" && r.ExchangeID != "" {
		clientID = m.byExchangeID[r.ExchangeID]
	}
	if clientID == "" {
		// Reconciliation can report fills for orders this process never
		// sent; keep them under the exchange id.
		clientID = "x:" + r.ExchangeID
	}
	if r.ExchangeID != "" {
		m.byExchangeID[r.ExchangeID] = clientID
	}

	merged, ok := m.orders[clientID]
	if !ok {
		merged = schema.OrderStatusReport{ClientOrderID: clientID}
	}
	merged.OrderStatus = r.OrderStatus
	merged.Time = r.Time
	if r.ExchangeID != "" {
		merged.ExchangeID = r.ExchangeID
	}
	if r.RejectMessage != "" {
		merged.RejectMessage = r.RejectMessage
		merged.CancelRejected = r.CancelRejected
	}
	if !r.LastPrice.IsZero() {
		merged.LastPrice = r.LastPrice
	}
	if !r.LastQuantity.IsZero() {
		merged.LastQuantity = r.LastQuantity
	}
	if !r.AveragePrice.IsZero() {
		merged.AveragePrice = r.AveragePrice
	}
	if !r.CumQuantity.IsZero() {
		merged.CumQuantity = r.CumQuantity
		merged.LeavesQuantity = r.LeavesQuantity
	}
	if !r.Quantity.IsZero() {
		merged.Quantity = r.Quantity
	}
	m.orders[clientID] = merged
}

// Connectivity returns the last observed transport status.
func (m *MemoryCache) Connectivity() schema.ConnectivityStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connectivity
}

// Book returns the latest book snapshot, if any poll has succeeded yet.
func (m *MemoryCache) Book() (schema.MarketBook, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book, m.hasBook
}

// RecentTrades returns up to n of the most recent trade prints, oldest
// first.
func (m *MemoryCache) RecentTrades(n int) []schema.GatewayMarketTrade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 || n > len(m.trades) {
		n = len(m.trades)
	}
	out := make([]schema.GatewayMarketTrade, n)
	copy(out, m.trades[len(m.trades)-n:])
	return out
}

// Position returns the last reported position for a currency.
func (m *MemoryCache) Position(c schema.Currency) (schema.CurrencyPosition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[c]
	return p, ok
}

// OrderReport returns the merged view of an order by client order id.
func (m *MemoryCache) OrderReport(clientOrderID string) (schema.OrderStatusReport, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.orders[clientOrderID]
	return r, ok
}
