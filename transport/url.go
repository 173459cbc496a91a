package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
)

// defaultPorts mirrors §6's scheme table.
var defaultPorts = map[string]string{
	"mqtt":  "1883",
	"tcp":   "1883",
	"mqtts": "8883",
	"tls":   "8883",
	"ws":    "80",
	"wss":   "443",
}

// Config bundles the options every Dialer needs; DialerFor picks the right
// implementation from a parsed URL's scheme, grounded on the teacher's
// Client.dial switch over scheme.
type Config struct {
	TLS    *tls.Config
	WSPath string
}

// DialerFor returns the Dialer for u.Scheme, defaulting unknown schemes to
// plain TCP the same way the teacher's dial falls through to net.Dialer.
func DialerFor(u *url.URL, cfg Config) Dialer {
	switch u.Scheme {
	case "mqtts", "tls":
		return TLSDialer{Config: cfg.TLS}
	case "ws":
		return WSDialer{TLS: cfg.TLS, Path: cfg.WSPath}
	case "wss":
		return WSSDialer{TLS: cfg.TLS, Path: cfg.WSPath}
	case "mqtt", "tcp", "":
		return TCPDialer{}
	default:
		return TCPDialer{}
	}
}

// HostPort returns host:port for u, filling in the scheme's default port
// when u carries none.
func HostPort(u *url.URL) (string, error) {
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("transport: URL %q has no host", u.String())
	}
	port := u.Port()
	if port == "" {
		port = defaultPorts[u.Scheme]
		if port == "" {
			port = defaultPorts["tcp"]
		}
	}
	return net.JoinHostPort(host, port), nil
}
