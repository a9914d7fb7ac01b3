package bitfinex

import (
	"fmt"

	"github.com/kingsmao/bitfinex-gateway/pkg/schema"
)

// CurrencyFromCode maps the venue's lowercase currency code to a normalized
// currency. Unsupported codes are a configuration error, not a soft miss.
func CurrencyFromCode(code string) (schema.Currency, error) {
	switch code {
	case "usd":
		return schema.USD, nil
	case "btc":
		return schema.BTC, nil
	case "ltc":
		return schema.LTC, nil
	default:
		return "", fmt.Errorf("unsupported currency code %q", code)
	}
}

// CodeFromCurrency is the inverse of CurrencyFromCode.
func CodeFromCurrency(c schema.Currency) (string, error) {
	switch c {
	case schema.USD:
		return "usd", nil
	case schema.BTC:
		return "btc", nil
	case schema.LTC:
		return "ltc", nil
	default:
		return "", fmt.Errorf("unsupported currency %q", c)
	}
}

// SymbolProvider holds the venue symbol for one instrument: the base and
// quote codes concatenated, e.g. "btcusd".
type SymbolProvider struct {
	Symbol string
}

func NewSymbolProvider(pair schema.CurrencyPair) (*SymbolProvider, error) {
	base, err := CodeFromCurrency(pair.Base)
	if err != nil {
		return nil, err
	}
	quote, err := CodeFromCurrency(pair.Quote)
	if err != nil {
		return nil, err
	}
	return &SymbolProvider{Symbol: base + quote}, nil
}
