package bitfinex

import (
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/kingsmao/bitfinex-gateway/internal/config"
	"github.com/kingsmao/bitfinex-gateway/pkg/clock"
	"github.com/kingsmao/bitfinex-gateway/pkg/events"
	"github.com/kingsmao/bitfinex-gateway/pkg/logger"
	"github.com/kingsmao/bitfinex-gateway/pkg/schema"
)

const bookDepth = 5

// MarketDataGateway polls the public book and trade endpoints on independent
// timers and emits normalized snapshots and trade prints. A failed poll
// produces no event for that tick; the next tick is the retry.
type MarketDataGateway struct {
	log    *logrus.Entry
	http   *HTTP
	symbol *SymbolProvider
	tp     clock.TimeProvider

	connectChanged *events.Evt[schema.ConnectivityStatus]
	marketData     *events.Evt[schema.MarketBook]
	marketTrade    *events.Evt[schema.GatewayMarketTrade]

	mu       sync.Mutex
	since    int64 // unix seconds
	hasSince bool
}

// NewMarketDataGateway starts both polling loops: one immediate fetch each,
// then the configured intervals.
func NewMarketDataGateway(tp clock.TimeProvider, http *HTTP, symbol *SymbolProvider, polling config.PollingConfig) *MarketDataGateway {
	g := &MarketDataGateway{
		log:            logger.GetLogger().WithComponent("bitfinex.marketdata"),
		http:           http,
		symbol:         symbol,
		tp:             tp,
		connectChanged: events.New[schema.ConnectivityStatus](),
		marketData:     events.New[schema.MarketBook](),
		marketTrade:    events.New[schema.GatewayMarketTrade](),
	}

	events.Pipe(http.ConnectChanged(), g.connectChanged)

	tp.SetInterval(g.downloadMarketData, polling.BookInterval.Std())
	tp.SetInterval(g.downloadMarketTrades, polling.TradesInterval.Std())

	go g.downloadMarketData()
	go g.downloadMarketTrades()

	return g
}

func (g *MarketDataGateway) ConnectChanged() *events.Evt[schema.ConnectivityStatus] {
	return g.connectChanged
}

func (g *MarketDataGateway) MarketData() *events.Evt[schema.MarketBook] {
	return g.marketData
}

func (g *MarketDataGateway) MarketTrade() *events.Evt[schema.GatewayMarketTrade] {
	return g.marketTrade
}

func (g *MarketDataGateway) downloadMarketData() {
	book, err := Get[orderBook](g.http, "book/"+g.symbol.Symbol, map[string]string{
		"limit_bids": strconv.Itoa(bookDepth),
		"limit_asks": strconv.Itoa(bookDepth),
	})
	if err != nil {
		g.log.WithError(err).Warn("book poll failed")
		return
	}

	g.marketData.Trigger(schema.MarketBook{
		Bids:      convertToMarketSides(book.Data.Bids),
		Asks:      convertToMarketSides(book.Data.Asks),
		Timestamp: book.Time,
	})
}

func (g *MarketDataGateway) downloadMarketTrades() {
	g.mu.Lock()
	query := map[string]string{}
	if g.hasSince {
		query["timestamp"] = strconv.FormatInt(g.since, 10)
	}
	g.mu.Unlock()

	trades, err := Get[[]marketTrade](g.http, "trades/"+g.symbol.Symbol, query)
	if err != nil {
		g.log.WithError(err).Warn("trades poll failed")
		return
	}

	g.mu.Lock()
	initial := !g.hasSince
	g.mu.Unlock()

	for _, t := range trades.Data {
		px, err := decimal.NewFromString(t.Price)
		if err != nil {
			g.log.WithField("price", t.Price).WithError(err).Warn("bad trade price")
			continue
		}
		sz, err := decimal.NewFromString(t.Amount)
		if err != nil {
			g.log.WithField("amount", t.Amount).WithError(err).Warn("bad trade amount")
			continue
		}
		g.marketTrade.Trigger(schema.GatewayMarketTrade{
			Price:     px,
			Size:      sz,
			Timestamp: time.Unix(t.Timestamp, 0),
			Initial:   initial,
			Side:      decodeSide(t.Type),
		})
	}

	// The cursor moves after the batch is processed, whatever its size, so
	// the next poll only asks for trades newer than this one.
	g.mu.Lock()
	g.since = g.tp.Now().Unix()
	g.hasSince = true
	g.mu.Unlock()
}

func convertToMarketSides(levels []marketLevel) []schema.MarketSide {
	out := make([]schema.MarketSide, 0, len(levels))
	for _, lv := range levels {
		px, err := decimal.NewFromString(lv.Price)
		if err != nil {
			continue
		}
		sz, err := decimal.NewFromString(lv.Amount)
		if err != nil {
			continue
		}
		out = append(out, schema.MarketSide{Price: px, Size: sz})
	}
	return out
}
