package bitfinex

import (
	"github.com/kingsmao/bitfinex-gateway/internal/config"
	"github.com/kingsmao/bitfinex-gateway/internal/exchange/nullgw"
	"github.com/kingsmao/bitfinex-gateway/pkg/clock"
	"github.com/kingsmao/bitfinex-gateway/pkg/interfaces"
	"github.com/kingsmao/bitfinex-gateway/pkg/logger"
	"github.com/kingsmao/bitfinex-gateway/pkg/schema"
)

// orderDestination is the routing value that enables live order entry here.
const orderDestination = "Bitfinex"

// NewCombinedGateway is the composition root: one transport and one symbol
// mapping shared by the three sub-gateways plus the static details. When
// configuration routes order flow elsewhere, the order entry slot gets a
// no-op gateway and only market data and positions stay live.
func NewCombinedGateway(tp clock.TimeProvider, cfg *config.Config, pair schema.CurrencyPair) (*interfaces.CombinedGateway, error) {
	symbol, err := NewSymbolProvider(pair)
	if err != nil {
		return nil, err
	}

	http := NewHTTP(tp, cfg.Bitfinex, cfg.HTTP)

	var orderEntry interfaces.OrderEntryGateway
	if cfg.Bitfinex.OrderDestination == orderDestination {
		orderEntry = NewOrderEntryGateway(tp, http, symbol, cfg.Polling)
	} else {
		logger.GetLogger().WithComponent("bitfinex.gateway").
			WithField("destination", cfg.Bitfinex.OrderDestination).
			Info("order flow routed elsewhere, using null order gateway")
		orderEntry = nullgw.New(tp)
	}

	return interfaces.NewCombinedGateway(
		NewMarketDataGateway(tp, http, symbol, cfg.Polling),
		orderEntry,
		NewPositionGateway(tp, http, cfg.Polling),
		NewDetails(),
	), nil
}
