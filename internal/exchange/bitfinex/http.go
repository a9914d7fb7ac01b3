package bitfinex

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/kingsmao/bitfinex-gateway/internal/config"
	"github.com/kingsmao/bitfinex-gateway/pkg/clock"
	"github.com/kingsmao/bitfinex-gateway/pkg/events"
	"github.com/kingsmao/bitfinex-gateway/pkg/logger"
	"github.com/kingsmao/bitfinex-gateway/pkg/schema"
)

const (
	headerAPIKey    = "X-BFX-APIKEY"
	headerPayload   = "X-BFX-PAYLOAD"
	headerSignature = "X-BFX-SIGNATURE"

	// v1 endpoints sign over the full versioned path.
	requestPrefix = "/v1/"

	connectSignalDelay = 10 * time.Millisecond
)

// HTTP is the shared Bitfinex v1 transport. It owns the API credentials and
// the anti-replay nonce; every authenticated call from any sub-gateway goes
// through it. The transport never retries: failures surface to the caller
// and the next scheduled poll is the retry.
type HTTP struct {
	log     *logrus.Entry
	http    *resty.Client
	limiter *rate.Limiter
	tp      clock.TimeProvider

	apiKey string
	secret string

	mu    sync.Mutex
	nonce int64

	connectChanged *events.Evt[schema.ConnectivityStatus]
}

// NewHTTP builds the transport. The nonce is seeded from the wall clock in
// milliseconds so process restarts resume above every previously used value.
// A one-shot Connected signal fires shortly after construction: plain HTTP
// has no handshake, only local readiness.
func NewHTTP(tp clock.TimeProvider, cfg config.BitfinexConfig, httpCfg config.HTTPConfig) *HTTP {
	client := resty.New().
		SetBaseURL(cfg.HTTPURL).
		SetTimeout(httpCfg.Timeout.Std())

	h := &HTTP{
		log:            logger.GetLogger().WithComponent("bitfinex.http"),
		http:           client,
		limiter:        rate.NewLimiter(rate.Limit(httpCfg.RequestsPerSecond), httpCfg.Burst),
		tp:             tp,
		apiKey:         cfg.APIKey,
		secret:         cfg.APISecret,
		nonce:          tp.Now().UnixMilli(),
		connectChanged: events.New[schema.ConnectivityStatus](),
	}
	h.log.WithField("nonce", h.nonce).Info("transport starting")

	tp.SetTimeout(func() {
		h.connectChanged.Trigger(schema.Connected)
	}, connectSignalDelay)

	return h
}

// ConnectChanged is the transport readiness stream, fanned out verbatim to
// every sub-gateway.
func (h *HTTP) ConnectChanged() *events.Evt[schema.ConnectivityStatus] {
	return h.connectChanged
}

// nextNonce returns the current counter and increments it. Strictly
// increasing across any interleaving of callers; never reused, even when the
// request it was minted for fails.
func (h *HTTP) nextNonce() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.nonce
	h.nonce++
	return n
}

// sign computes the hex-encoded HMAC-SHA384 of payload with the API secret.
func (h *HTTP) sign(payload string) string {
	mac := hmac.New(sha512.New384, []byte(h.secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Get issues an unauthenticated GET and decodes the JSON body into T. The
// result is stamped with the response-arrival time.
func Get[T any](h *HTTP, path string, query map[string]string) (schema.Timestamped[T], error) {
	var zero schema.Timestamped[T]

	if err := h.limiter.Wait(context.Background()); err != nil {
		return zero, err
	}

	r, err := h.http.R().SetQueryParams(query).Get(path)
	if err != nil {
		h.log.WithError(err).WithField("path", path).Error("get failed")
		return zero, err
	}
	return decodeBody[T](h, path, r)
}

// Post issues an authenticated POST. The request body is extended with the
// canonical path and a fresh nonce, JSON-encoded, base64ed, and signed; the
// signed payload travels in headers and no HTTP body is sent. The payload IS
// the transmitted content.
func Post[T any](h *HTTP, path string, body any) (schema.Timestamped[T], error) {
	var zero schema.Timestamped[T]

	msg := map[string]any{}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("encode request %s: %w", path, err)
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return zero, fmt.Errorf("encode request %s: %w", path, err)
		}
	}
	msg["request"] = requestPrefix + path

	// Wait for the rate limiter before allocating the nonce: the token grant
	// orders concurrent callers, so a smaller nonce cannot be overtaken on
	// the wire by a larger one minted later. The venue rejects out-of-order
	// nonces as "nonce too small".
	if err := h.limiter.Wait(context.Background()); err != nil {
		return zero, err
	}
	msg["nonce"] = strconv.FormatInt(h.nextNonce(), 10)

	raw, err := json.Marshal(msg)
	if err != nil {
		return zero, fmt.Errorf("encode request %s: %w", path, err)
	}
	payload := base64.StdEncoding.EncodeToString(raw)

	r, err := h.http.R().
		SetHeader(headerAPIKey, h.apiKey).
		SetHeader(headerPayload, payload).
		SetHeader(headerSignature, h.sign(payload)).
		Post(path)
	if err != nil {
		h.log.WithError(err).WithField("path", path).Error("post failed")
		return zero, err
	}
	return decodeBody[T](h, path, r)
}

// decodeBody parses the raw body regardless of HTTP status: the venue
// reports rejections as JSON bodies with a message field on error statuses,
// and callers translate those themselves.
func decodeBody[T any](h *HTTP, path string, r *resty.Response) (schema.Timestamped[T], error) {
	var zero schema.Timestamped[T]

	t := h.tp.Now()
	var data T
	if err := json.Unmarshal(r.Body(), &data); err != nil {
		h.log.WithFields(logger.Fields{
			"url":  r.Request.URL,
			"body": string(r.Body()),
		}).WithError(err).Error("unparseable response body")
		return zero, fmt.Errorf("decode response %s: %w", path, err)
	}
	return schema.NewTimestamped(data, t), nil
}
