package transport

import (
	"context"
	"net"

	"github.com/rs/dnscache"
)

var resolver = &dnscache.Resolver{} //nolint:gochecknoglobals

// cachedDialContext dials the first reachable address returned by the
// caching resolver.
func cachedDialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ips, err := resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}

		var conn net.Conn

		for _, ip := range ips {
			conn, err = dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
		}

		return nil, err
	}
}

// RefreshDNSCache drops unused entries and re-resolves the others. Call it
// periodically from long-running processes.
func RefreshDNSCache() {
	resolver.Refresh(true)
}
