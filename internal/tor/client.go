// Package tor provides connectivity to the Tor network for darknet
// discovery. It assumes a SOCKS5 proxy, either an external daemon or the
// embedded one managed by this package.
package tor

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/proxy"
)

// checkTimeout bounds the SOCKS5 connectivity probe. The probe never
// builds a circuit, so it should answer quickly or not at all.
const checkTimeout = 2 * time.Second

// SOCKS5 protocol constants used by the connectivity probe.
const (
	socks5Version    = 0x05
	socks5AuthNone   = 0x00
	socks5AuthReject = 0xFF
)

// Client provides darknet connectivity through a Tor SOCKS5 proxy.
//
// Connectivity is verified once and cached: a discovery run probes the
// proxy before its darknet branch and every later caller reuses that
// answer. Restart the process to re-probe.
type Client struct {
	// proxyAddress is the Tor SOCKS5 proxy address in "host:port" format.
	proxyAddress string

	// dialer is the SOCKS5 dialer for Tor connections.
	dialer proxy.Dialer

	// timeout is the default timeout for HTTP clients created by this client.
	timeout time.Duration

	// checkOnce guards the cached connectivity probe.
	checkOnce sync.Once
	available bool
}

// NewClient creates a Tor client for the given proxy address.
//
// The address format is validated here; whether a proxy actually answers
// there is checked lazily by Available.
func NewClient(proxyAddress string, timeout time.Duration) (*Client, error) {
	if !validProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// Tor's SOCKS port does not require auth by default.
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	return &Client{
		proxyAddress: proxyAddress,
		dialer:       dialer,
		timeout:      timeout,
	}, nil
}

// validProxyAddress checks "host:port" shape without resolving anything.
func validProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// Available reports whether the proxy answers a SOCKS5 handshake. The
// probe runs once per Client; subsequent calls return the cached result.
//
// A plain TCP dial is not enough: anything could be listening on the
// port. The probe performs the SOCKS5 version negotiation and only
// accepts a proxy that speaks SOCKS5 without authentication, which is how
// a Tor SOCKS port behaves.
func (c *Client) Available(ctx context.Context) bool {
	c.checkOnce.Do(func() {
		c.available = c.probe(ctx)
	})
	return c.available
}

func (c *Client) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		return false
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkTimeout)); err != nil {
		return false
	}

	// Version negotiation: offer no-auth only.
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return false
	}
	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return false
	}
	return resp[0] == socks5Version && resp[1] == socks5AuthNone && resp[1] != socks5AuthReject
}

// ProxyAddress returns the configured SOCKS5 proxy address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// HTTPClient creates an HTTP client that routes all requests through the
// Tor proxy. Hand it to a fetch client to get a darknet fetcher.
//
// TLS verification is disabled: hidden services use self-signed
// certificates, and the .onion address itself authenticates the service.
// Compression is disabled to avoid compression side channels on an
// anonymity-sensitive path.
func (c *Client) HTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: func(_ context.Context, network, addr string) (net.Conn, error) {
			return c.dialer.Dial(network, addr)
		},
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // Required for .onion services
		},
		// Each connection consumes a Tor circuit, so keep the pool small.
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// Onion reports whether host (optionally with port) names a hidden service.
func Onion(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.HasSuffix(strings.ToLower(host), ".onion")
}
