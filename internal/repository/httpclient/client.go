package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/NordCoder/Killfeed/internal/obs"
)

type Config struct {
	Timeout   time.Duration
	Component string
}

// New builds a client with a hard per-request timeout and traced transport.
func New(cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: obs.HTTPTransport(transport, cfg.Component),
	}
}
