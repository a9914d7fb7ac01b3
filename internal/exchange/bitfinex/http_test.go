package bitfinex

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/kingsmao/bitfinex-gateway/internal/config"
	"github.com/kingsmao/bitfinex-gateway/pkg/clock"
	"github.com/kingsmao/bitfinex-gateway/pkg/schema"
)

const (
	testAPIKey    = "test-key"
	testAPISecret = "test-secret"
)

var testStart = time.Unix(1700000000, 0)

func newTestTransport(t *testing.T, handler http.Handler) (*HTTP, *clock.Fake, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tp := clock.NewFake(testStart)
	h := NewHTTP(tp, config.BitfinexConfig{
		HTTPURL:   srv.URL,
		APIKey:    testAPIKey,
		APISecret: testAPISecret,
	}, config.HTTPConfig{
		Timeout:           config.Duration(2 * time.Second),
		RequestsPerSecond: 1000,
		Burst:             1000,
	})
	return h, tp, srv
}

// decodePayload reads the signed payload header of an authenticated request
// back into a map.
func decodePayload(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	msg := map[string]any{}
	raw, err := base64.StdEncoding.DecodeString(r.Header.Get(headerPayload))
	if err != nil {
		t.Errorf("payload header is not base64: %v", err)
		return msg
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Errorf("payload is not JSON: %v", err)
	}
	return msg
}

func TestPostSignsPayload(t *testing.T) {
	var (
		mu      sync.Mutex
		payload string
		sig     string
		apiKey  string
		msg     map[string]any
		bodyLen int
	)
	h, _, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		payload = r.Header.Get(headerPayload)
		sig = r.Header.Get(headerSignature)
		apiKey = r.Header.Get(headerAPIKey)
		msg = decodePayload(t, r)
		bodyLen = int(r.ContentLength)
		mu.Unlock()
		w.Write([]byte(`{"order_id":123}`))
	}))

	resp, err := Post[newOrderResponse](h, "order/new", newOrderRequest{
		Symbol: "btcusd", Amount: "0.1", Price: "100", Exchange: "bitfinex", Side: "buy", Type: "limit",
	})
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if resp.Data.OrderID != 123 {
		t.Errorf("expected order id 123, got %d", resp.Data.OrderID)
	}

	mu.Lock()
	defer mu.Unlock()

	if apiKey != testAPIKey {
		t.Errorf("expected api key header %q, got %q", testAPIKey, apiKey)
	}
	if bodyLen > 0 {
		t.Errorf("expected empty request body, got %d bytes", bodyLen)
	}

	mac := hmac.New(sha512.New384, []byte(testAPISecret))
	mac.Write([]byte(payload))
	if want := hex.EncodeToString(mac.Sum(nil)); sig != want {
		t.Errorf("signature mismatch: got %q want %q", sig, want)
	}

	if msg["request"] != "/v1/order/new" {
		t.Errorf("expected request field /v1/order/new, got %v", msg["request"])
	}
	if _, ok := msg["nonce"].(string); !ok {
		t.Errorf("expected string nonce, got %v", msg["nonce"])
	}
	if msg["symbol"] != "btcusd" {
		t.Errorf("expected symbol btcusd in payload, got %v", msg["symbol"])
	}
}

func TestNonceStrictlyIncreasing(t *testing.T) {
	var (
		mu     sync.Mutex
		nonces []int64
	)
	h, _, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		msg := decodePayload(t, r)
		nonceStr, _ := msg["nonce"].(string)
		n, err := strconv.ParseInt(nonceStr, 10, 64)
		if err != nil {
			t.Errorf("non-numeric nonce: %v", msg["nonce"])
		}
		mu.Lock()
		nonces = append(nonces, n)
		mu.Unlock()
		w.Write([]byte(`{}`))
	}))

	// Sequential calls must produce strictly increasing nonces.
	for i := 0; i < 5; i++ {
		if _, err := Post[cancelOrderResponse](h, "order/cancel", cancelOrderRequest{OrderID: int64(i)}); err != nil {
			t.Fatalf("post %d failed: %v", i, err)
		}
	}

	mu.Lock()
	seq := append([]int64(nil), nonces...)
	nonces = nonces[:0]
	mu.Unlock()

	if len(seq) != 5 {
		t.Fatalf("expected 5 requests, got %d", len(seq))
	}
	for i := 1; i < len(seq); i++ {
		if seq[i] <= seq[i-1] {
			t.Errorf("nonce not strictly increasing: %d after %d", seq[i], seq[i-1])
		}
	}
	if seq[0] < testStart.UnixMilli() {
		t.Errorf("nonce %d below wall-clock seed %d", seq[0], testStart.UnixMilli())
	}

	// Interleaved callers must never share a nonce.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Post[cancelOrderResponse](h, "order/cancel", cancelOrderRequest{OrderID: 1})
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(nonces) != 20 {
		t.Fatalf("expected 20 concurrent requests, got %d", len(nonces))
	}
	sorted := append([]int64(nil), nonces...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			t.Errorf("nonce %d reused", sorted[i])
		}
	}
}

func TestRateLimiterPreservesNonceOrder(t *testing.T) {
	var (
		mu     sync.Mutex
		nonces []int64
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		msg := decodePayload(t, r)
		nonceStr, _ := msg["nonce"].(string)
		n, _ := strconv.ParseInt(nonceStr, 10, 64)
		mu.Lock()
		nonces = append(nonces, n)
		mu.Unlock()
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	// Burst 1 paces the callers apart; the token grant must order nonce
	// allocation so the server never sees a nonce smaller than one it has
	// already accepted.
	h := NewHTTP(clock.NewFake(testStart), config.BitfinexConfig{
		HTTPURL:   srv.URL,
		APIKey:    testAPIKey,
		APISecret: testAPISecret,
	}, config.HTTPConfig{
		Timeout:           config.Duration(2 * time.Second),
		RequestsPerSecond: 500,
		Burst:             1,
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Post[cancelOrderResponse](h, "order/cancel", cancelOrderRequest{OrderID: 1})
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(nonces) != 20 {
		t.Fatalf("expected 20 requests, got %d", len(nonces))
	}
	for i := 1; i < len(nonces); i++ {
		if nonces[i] <= nonces[i-1] {
			t.Errorf("nonce %d arrived after %d", nonces[i], nonces[i-1])
		}
	}
}

func TestSignatureDependsOnBody(t *testing.T) {
	var (
		mu   sync.Mutex
		sigs []string
	)
	h, _, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		sigs = append(sigs, r.Header.Get(headerSignature))
		mu.Unlock()
		w.Write([]byte(`{}`))
	}))

	_, _ = Post[cancelOrderResponse](h, "order/cancel", cancelOrderRequest{OrderID: 1})
	_, _ = Post[cancelOrderResponse](h, "order/cancel", cancelOrderRequest{OrderID: 2})

	mu.Lock()
	defer mu.Unlock()
	if len(sigs) != 2 || sigs[0] == sigs[1] {
		t.Errorf("expected two distinct signatures, got %v", sigs)
	}
}

func TestGetPassesQueryAndStampsTime(t *testing.T) {
	h, tp, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("timestamp"); got != "1000" {
			t.Errorf("expected timestamp query 1000, got %q", got)
		}
		w.Write([]byte(`[{"tid":1,"timestamp":1000,"price":"100.5","amount":"0.2","type":"buy"}]`))
	}))

	resp, err := Get[[]marketTrade](h, "trades/btcusd", map[string]string{"timestamp": "1000"})
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Price != "100.5" {
		t.Fatalf("unexpected trades: %+v", resp.Data)
	}
	if !resp.Time.Equal(tp.Now()) {
		t.Errorf("expected arrival timestamp %v, got %v", tp.Now(), resp.Time)
	}
}

func TestUnparseableBodyFails(t *testing.T) {
	h, _, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway timeout</html>"))
	}))

	if _, err := Get[[]marketTrade](h, "trades/btcusd", nil); err == nil {
		t.Fatal("expected error for unparseable body")
	}
	if _, err := Post[cancelOrderResponse](h, "order/cancel", cancelOrderRequest{OrderID: 1}); err == nil {
		t.Fatal("expected error for unparseable body")
	}
}

func TestConnectedSignalAfterStartup(t *testing.T) {
	h, tp, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	var got []schema.ConnectivityStatus
	h.ConnectChanged().On(func(s schema.ConnectivityStatus) { got = append(got, s) })

	tp.Advance(connectSignalDelay * 2)

	if len(got) != 1 || got[0] != schema.Connected {
		t.Fatalf("expected one Connected signal, got %v", got)
	}
}
