package bitfinex

import "github.com/kingsmao/bitfinex-gateway/pkg/schema"

// Details is the static descriptor of the venue.
type Details struct{}

func NewDetails() Details { return Details{} }

func (Details) Name() string { return "Bitfinex" }

func (Details) MakeFee() float64 { return 0.001 }

func (Details) TakeFee() float64 { return 0.002 }

func (Details) HasSelfTradePrevention() bool { return false }

func (Details) SupportedCurrencyPairs() []schema.CurrencyPair {
	return []schema.CurrencyPair{
		schema.NewCurrencyPair(schema.BTC, schema.USD),
	}
}
