package bitfinex

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/kingsmao/bitfinex-gateway/internal/config"
	"github.com/kingsmao/bitfinex-gateway/pkg/clock"
	"github.com/kingsmao/bitfinex-gateway/pkg/events"
	"github.com/kingsmao/bitfinex-gateway/pkg/logger"
	"github.com/kingsmao/bitfinex-gateway/pkg/schema"
)

// PositionGateway polls account balances and emits one normalized position
// per exchange-wallet currency. Margin and deposit wallets are ignored.
type PositionGateway struct {
	log  *logrus.Entry
	http *HTTP

	positionUpdate *events.Evt[schema.CurrencyPosition]
}

// NewPositionGateway starts the balance polling loop with one immediate
// refresh.
func NewPositionGateway(tp clock.TimeProvider, http *HTTP, polling config.PollingConfig) *PositionGateway {
	g := &PositionGateway{
		log:            logger.GetLogger().WithComponent("bitfinex.position"),
		http:           http,
		positionUpdate: events.New[schema.CurrencyPosition](),
	}

	tp.SetInterval(g.refreshPositions, polling.PositionInterval.Std())
	go g.refreshPositions()

	return g
}

func (g *PositionGateway) PositionUpdate() *events.Evt[schema.CurrencyPosition] {
	return g.positionUpdate
}

func (g *PositionGateway) refreshPositions() {
	balances, err := Post[[]balanceEntry](g.http, "balances", struct{}{})
	if err != nil {
		g.log.WithError(err).Warn("balances poll failed")
		return
	}

	for _, b := range balances.Data {
		if b.Type != "exchange" {
			continue
		}

		currency, err := CurrencyFromCode(b.Currency)
		if err != nil {
			g.log.WithField("currency", b.Currency).WithError(err).Error("balance in unsupported currency")
			continue
		}

		amount, err := decimal.NewFromString(b.Amount)
		if err != nil {
			g.log.WithField("amount", b.Amount).WithError(err).Warn("bad balance amount")
			continue
		}
		available, err := decimal.NewFromString(b.Available)
		if err != nil {
			g.log.WithField("available", b.Available).WithError(err).Warn("bad balance available")
			continue
		}

		g.positionUpdate.Trigger(schema.CurrencyPosition{
			Currency: currency,
			Amount:   amount,
			Held:     amount.Sub(available),
			Time:     balances.Time,
		})
	}
}
