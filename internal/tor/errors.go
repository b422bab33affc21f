package tor

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the proxy address format is
	// invalid. Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrProxyUnavailable is returned when the configured proxy address
	// cannot be reached or does not behave like a Tor SOCKS5 proxy.
	ErrProxyUnavailable = errors.New("tor proxy unavailable")

	// ErrEmbeddedNotRunning is returned when a client is requested from an
	// embedded daemon that has not been started.
	ErrEmbeddedNotRunning = errors.New("embedded tor daemon is not running")
)
