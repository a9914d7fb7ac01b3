package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kingsmao/bitfinex-gateway/internal/cache"
	"github.com/kingsmao/bitfinex-gateway/internal/config"
	"github.com/kingsmao/bitfinex-gateway/internal/exchange/bitfinex"
	"github.com/kingsmao/bitfinex-gateway/pkg/clock"
	"github.com/kingsmao/bitfinex-gateway/pkg/logger"
	"github.com/kingsmao/bitfinex-gateway/pkg/schema"
)

func main() {
	configPath := flag.String("config", "quick_start/config.yaml", "path to config file")
	flag.Parse()

	log := logger.GetLogger().WithComponent("quick_start")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("config load failed")
	}
	logger.SetLevel(cfg.Logging.Level)
	if cfg.Logging.File != "" {
		logger.SetFileOutput(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays)
	}

	pair := schema.NewCurrencyPair(schema.Currency(cfg.Trade.Base), schema.Currency(cfg.Trade.Quote))

	tp := clock.NewReal()
	defer tp.Stop()

	gw, err := bitfinex.NewCombinedGateway(tp, cfg, pair)
	if err != nil {
		log.WithError(err).Fatal("gateway construction failed")
	}

	store := cache.NewMemoryCache()
	store.Attach(gw)

	gw.MarketData.ConnectChanged().On(func(s schema.ConnectivityStatus) {
		log.WithField("status", s.String()).Info("connectivity changed")
	})
	gw.MarketData.MarketData().On(func(b schema.MarketBook) {
		if len(b.Bids) > 0 && len(b.Asks) > 0 {
			log.WithFields(logger.Fields{
				"bid": b.Bids[0].Price.String(),
				"ask": b.Asks[0].Price.String(),
			}).Info("book")
		}
	})
	gw.MarketData.MarketTrade().On(func(t schema.GatewayMarketTrade) {
		log.WithFields(logger.Fields{
			"price":   t.Price.String(),
			"size":    t.Size.String(),
			"side":    t.Side.String(),
			"initial": t.Initial,
		}).Info("trade")
	})
	gw.OrderEntry.OrderUpdate().On(func(r schema.OrderStatusReport) {
		log.WithFields(logger.Fields{
			"clientOrderId": r.ClientOrderID,
			"exchangeId":    r.ExchangeID,
			"status":        r.OrderStatus.String(),
			"reject":        r.RejectMessage,
		}).Info("order update")
	})
	gw.Position.PositionUpdate().On(func(p schema.CurrencyPosition) {
		log.WithFields(logger.Fields{
			"currency": p.Currency.String(),
			"amount":   p.Amount.String(),
			"held":     p.Held.String(),
		}).Info("position")
	})

	log.WithFields(logger.Fields{
		"exchange": gw.Details.Name(),
		"pair":     pair.String(),
	}).Info("gateway running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	if book, ok := store.Book(); ok {
		log.WithField("levels", len(book.Bids)+len(book.Asks)).Info("last cached book on shutdown")
	}
	log.Info("shutting down")
}
