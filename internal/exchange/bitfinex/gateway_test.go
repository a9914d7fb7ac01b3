package bitfinex

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kingsmao/bitfinex-gateway/internal/config"
	"github.com/kingsmao/bitfinex-gateway/internal/exchange/nullgw"
	"github.com/kingsmao/bitfinex-gateway/pkg/clock"
	"github.com/kingsmao/bitfinex-gateway/pkg/schema"
)

func testConfig(t *testing.T, orderDestination string) *config.Config {
	t.Helper()
	// Quiet backend for the polling loops the composition root starts.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	return &config.Config{
		Bitfinex: config.BitfinexConfig{
			HTTPURL:          srv.URL,
			APIKey:           testAPIKey,
			APISecret:        testAPISecret,
			OrderDestination: orderDestination,
		},
		HTTP: config.HTTPConfig{
			Timeout:           config.Duration(2 * time.Second),
			RequestsPerSecond: 1000,
			Burst:             1000,
		},
		Polling: testPollingConfig(),
	}
}

func TestCombinedGatewayRoutesOrderFlow(t *testing.T) {
	tp := clock.NewFake(testStart)
	pair := schema.NewCurrencyPair(schema.BTC, schema.USD)

	gw, err := NewCombinedGateway(tp, testConfig(t, "Bitfinex"), pair)
	if err != nil {
		t.Fatalf("NewCombinedGateway failed: %v", err)
	}
	if _, ok := gw.OrderEntry.(*OrderEntryGateway); !ok {
		t.Errorf("expected live order entry gateway, got %T", gw.OrderEntry)
	}

	gw, err = NewCombinedGateway(tp, testConfig(t, "None"), pair)
	if err != nil {
		t.Fatalf("NewCombinedGateway failed: %v", err)
	}
	if _, ok := gw.OrderEntry.(*nullgw.OrderGateway); !ok {
		t.Errorf("expected null order entry gateway, got %T", gw.OrderEntry)
	}
	if gw.MarketData == nil || gw.Position == nil {
		t.Error("market data and positions must stay live when execution is disabled")
	}
}

func TestCombinedGatewayRejectsUnsupportedPair(t *testing.T) {
	tp := clock.NewFake(testStart)
	pair := schema.NewCurrencyPair(schema.Currency("EUR"), schema.USD)

	if _, err := NewCombinedGateway(tp, testConfig(t, "None"), pair); err == nil {
		t.Fatal("expected startup failure for unsupported pair")
	}
}

func TestDetails(t *testing.T) {
	d := NewDetails()
	if d.Name() != "Bitfinex" {
		t.Errorf("unexpected name %q", d.Name())
	}
	if d.MakeFee() != 0.001 || d.TakeFee() != 0.002 {
		t.Errorf("unexpected fees %v/%v", d.MakeFee(), d.TakeFee())
	}
	if d.HasSelfTradePrevention() {
		t.Error("venue has no self-trade prevention")
	}
	pairs := d.SupportedCurrencyPairs()
	if len(pairs) != 1 || pairs[0].Base != schema.BTC || pairs[0].Quote != schema.USD {
		t.Errorf("unexpected supported pairs %v", pairs)
	}
}
