package archive

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
)

const dnsCacheRefreshInterval = 5 * time.Minute

// NewHTTPClient returns an HTTP client suitable for pulling large hourly
// archives: cached DNS resolution, pooled connections and an overall
// per-request timeout covering the full body read.
func NewHTTPClient(timeout time.Duration) *http.Client {
	resolver := &dnscache.Resolver{}
	go func() {
		t := time.NewTicker(dnsCacheRefreshInterval)
		defer t.Stop()
		for range t.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			for _, ip := range ips {
				var conn net.Conn
				conn, err = dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if err == nil {
					return conn, nil
				}
			}
			return nil, err
		},
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}
