package transport

import (
	"context"
	"crypto/tls"
	"net"
	"time"
)

// TLSDialer dials TCP then performs a TLS client handshake, grounded on
// the teacher's Client.dial "mqtts"/"tls" branch (tls.DialWithDialer).
type TLSDialer struct {
	Config  *tls.Config
	Timeout time.Duration
}

func (d TLSDialer) Dial(ctx context.Context, addr string) (Stream, error) {
	dialer := &net.Dialer{Timeout: d.Timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, d.Config)
	if err != nil {
		return nil, err
	}
	return &tcpStream{Conn: conn}, nil
}
