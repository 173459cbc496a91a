package transport

import (
	"context"
	"net"
	"time"
)

// tcpStream wraps a plain net.Conn. net.Conn already satisfies Read/Write/
// Close/SetDeadline, but it blocks rather than returning ErrWouldBlock, so
// the network loop drives it through short read/write deadlines instead of
// true non-blocking sockets — the same compromise the teacher's conn.go
// makes by talking to net.Conn directly.
type tcpStream struct {
	net.Conn
}

func (s *tcpStream) RemoteAddr() string {
	if ra := s.Conn.RemoteAddr(); ra != nil {
		return ra.String()
	}
	return ""
}

// TCPDialer dials plain TCP connections.
type TCPDialer struct {
	// Timeout bounds the TCP handshake itself, independent of the
	// engine's connect-timeout which also covers the CONNECT/CONNACK
	// round trip.
	Timeout time.Duration
}

func (d TCPDialer) Dial(ctx context.Context, addr string) (Stream, error) {
	dialer := &net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &tcpStream{Conn: conn}, nil
}
