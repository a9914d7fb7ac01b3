package schema

// Currency identifies a supported currency.
type Currency string

const (
	USD Currency = "USD"
	BTC Currency = "BTC"
	LTC Currency = "LTC"
)

func (c Currency) String() string { return string(c) }

// CurrencyPair is a base/quote instrument, e.g. BTC/USD.
type CurrencyPair struct {
	Base  Currency `json:"base"`
	Quote Currency `json:"quote"`
}

func NewCurrencyPair(base, quote Currency) CurrencyPair {
	return CurrencyPair{Base: base, Quote: quote}
}

func (p CurrencyPair) String() string {
	return string(p.Base) + "/" + string(p.Quote)
}
