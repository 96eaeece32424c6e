// Package transport builds the HTTP client used to call remote APIs from
// controller actions: pooled connections, an optional DNS cache and
// transparent decompression of response bodies.
//
// Tuning knobs can be overridden through the environment:
//
//   - HTTP_TRANSPORT_MAX_IDLE_CONNS (default 100)
//   - HTTP_TRANSPORT_IDLE_CONN_TIMEOUT (default 90s)
//   - HTTP_TRANSPORT_TLS_HANDSHAKE_TIMEOUT (default 10s)
//   - HTTP_TRANSPORT_DIAL_TIMEOUT (default 30s)
//   - HTTP_TRANSPORT_DIAL_KEEPALIVE (default 30s)
package transport

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/Aurel1407/Shu-no-sub002/envutil"
)

const (
	defaultIdleConnTimeout       = 90 * time.Second
	defaultMaxIdleConns          = 100
	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultDialTimeout           = 30 * time.Second
	defaultKeepAlive             = 30 * time.Second
)

// Option tweaks the transport built by New.
type Option func(*config)

type config struct {
	disablePooling bool
	dnsCache       bool
	insecureTLS    bool
}

// DisableConnectionPooling turns off keep-alives.
func DisableConnectionPooling(c *config) {
	c.disablePooling = true
}

// EnableDNSCache resolves hosts through a shared caching resolver.
func EnableDNSCache(c *config) {
	c.dnsCache = true
}

// InsecureTLS skips certificate verification. Tests only.
func InsecureTLS(c *config) {
	c.insecureTLS = true
}

// New returns an http.Transport with defaults modeled on net/http's, tuned by
// environment variables. Reuse the returned value to benefit from pooling.
func New(opts ...Option) *http.Transport {
	cfg := &config{}

	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	dialTimeout := envutil.Duration("HTTP_TRANSPORT_DIAL_TIMEOUT").ValueOrElse(defaultDialTimeout)
	keepAlive := envutil.Duration("HTTP_TRANSPORT_DIAL_KEEPALIVE").ValueOrElse(defaultKeepAlive)

	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: keepAlive,
	}

	trans := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          envutil.Int("HTTP_TRANSPORT_MAX_IDLE_CONNS").ValueOrElse(defaultMaxIdleConns),
		IdleConnTimeout:       envutil.Duration("HTTP_TRANSPORT_IDLE_CONN_TIMEOUT").ValueOrElse(defaultIdleConnTimeout),
		TLSHandshakeTimeout:   envutil.Duration("HTTP_TRANSPORT_TLS_HANDSHAKE_TIMEOUT").ValueOrElse(defaultTLSHandshakeTimeout),
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}

	if cfg.disablePooling {
		trans.DisableKeepAlives = true
	}

	if cfg.dnsCache {
		trans.DialContext = cachedDialContext(dialer)
	}

	if cfg.insecureTLS {
		trans.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec
		}
	}

	return trans
}

// NewClient wraps New in an http.Client that decompresses response bodies.
// A zero timeout leaves requests bounded only by their context.
func NewClient(timeout time.Duration, opts ...Option) *http.Client {
	return &http.Client{
		Transport: NewDecompressor(New(opts...)),
		Timeout:   timeout,
	}
}
