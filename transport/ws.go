package transport

import (
	"context"
	"crypto/tls"
	"net/url"

	"golang.org/x/net/websocket"
)

// wsStream adapts a websocket.Conn to Stream. golang.org/x/net/websocket's
// Conn already implements net.Conn (Read/Write/Close/SetDeadline); RemoteAddr
// needs the same nil-Request guard the teacher's conn.serve applies, since a
// client-dialed websocket.Conn carries no inbound *http.Request.
type wsStream struct {
	*websocket.Conn
}

func (s *wsStream) RemoteAddr() string {
	if req := s.Conn.Request(); req != nil {
		return req.RemoteAddr
	}
	if ra := s.Conn.Conn.RemoteAddr(); ra != nil {
		return ra.String()
	}
	return ""
}

// WSDialer dials WebSocket (ws) or WebSocket-over-TLS (wss), negotiating
// the "mqtt" subprotocol and binary frames the way the teacher's
// Client.dial does for its "ws"/"wss" schemes.
type WSDialer struct {
	TLS  *tls.Config
	Path string // default "/mqtt"
}

func (d WSDialer) Dial(ctx context.Context, addr string) (Stream, error) {
	return d.dial(ctx, addr, "ws", "http")
}

// WSSDialer is the TLS variant; kept distinct so url.go's scheme table can
// select a dialer without branching inside Dial.
type WSSDialer struct {
	TLS  *tls.Config
	Path string
}

func (d WSSDialer) Dial(ctx context.Context, addr string) (Stream, error) {
	return WSDialer{TLS: d.TLS, Path: d.Path}.dial(ctx, addr, "wss", "https")
}

func (d WSDialer) dial(ctx context.Context, addr, scheme, originScheme string) (Stream, error) {
	path := d.Path
	if path == "" {
		path = "/mqtt"
	}
	loc := &url.URL{Scheme: scheme, Host: addr, Path: path}
	origin := &url.URL{Scheme: originScheme, Host: addr}

	cfg, err := websocket.NewConfig(loc.String(), origin.String())
	if err != nil {
		return nil, err
	}
	cfg.Protocol = []string{"mqtt"}
	if scheme == "wss" {
		cfg.TlsConfig = d.TLS
	}
	conn, err := websocket.DialConfig(cfg)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return &wsStream{Conn: conn}, nil
}
