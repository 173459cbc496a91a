package mockbroker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"

	"github.com/driftwave/mqttclient/internal/mockbroker/topic"
	"github.com/driftwave/mqttclient/packet"
)

// conn represents the server side of one MQTT connection, adapted from
// the teacher's net/http-flavored conn type.
type conn struct {
	server *Server

	cancelCtx context.CancelFunc
	rwc       net.Conn

	remoteAddr string
	tlsState   *tls.ConnectionState

	curState atomic.Uint64 // packed (unix time<<8|uint8(ConnState))

	inFlight        *inFlight
	ID              string
	version         byte
	subscribeTopics *topic.MemoryTrie
	willTopic       string
	willPayload     []byte
	PacketID        uint16
	mu              sync.Mutex
}

func (c *conn) setState(nc net.Conn, state ConnState, runHook bool) {
	srv := c.server
	switch state {
	case StateNew:
		srv.trackConn(c, true)
	case StateHijacked, StateClosed:
		srv.trackConn(c, false)
	}
	packedState := uint64(time.Now().Unix()<<8) | uint64(state)
	c.curState.Store(packedState)
	if !runHook {
		return
	}
	if hook := srv.ConnState; hook != nil {
		hook(nc, state)
	}
}

func (c *conn) Write(b []byte) (int, error) {
	if c.rwc == nil {
		return 0, fmt.Errorf("mockbroker: connection is nil or closed")
	}
	return c.rwc.Write(b)
}

func (c *conn) getState() (state ConnState, unixSec int64) {
	packedState := c.curState.Load()
	return ConnState(packedState & 0xFF), int64(packedState >> 8)
}

func (c *conn) close() { _ = c.rwc.Close() }

func (c *conn) serve(ctx context.Context) {
	if ws, ok := c.rwc.(*websocket.Conn); ok {
		if req := ws.Request(); req != nil {
			c.remoteAddr = req.RemoteAddr
		}
	} else if ra := c.rwc.RemoteAddr(); ra != nil {
		c.remoteAddr = ra.String()
	}

	log.Printf("mockbroker: conn connected remote=%s", c.remoteAddr)

	defer func() {
		if err := recover(); err != nil && err != ErrAbortHandler {
			buf := make([]byte, stackBufSize)
			buf = buf[:runtime.Stack(buf, false)]
			log.Printf("mockbroker: panic serving %v: %v\n%s", c.remoteAddr, err, buf)
		}
		log.Printf("mockbroker: conn disconnected clientId=%s remote=%s", c.ID, c.remoteAddr)

		c.server.memorySubscribed.Unsubscribe(c)
		c.close()
		c.setState(c.rwc, StateClosed, true)
		if c.willTopic == "" || c.willPayload == nil {
			return
		}
		_ = c.server.memorySubscribed.Publish(&packet.Message{TopicName: c.willTopic, Content: c.willPayload}, nil)
	}()

	if tlsConn, ok := c.rwc.(*tls.Conn); ok {
		tlsTO := 10 * time.Second
		dl := time.Now().Add(tlsTO)
		_ = c.rwc.SetReadDeadline(dl)
		_ = c.rwc.SetWriteDeadline(dl)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			log.Printf("mockbroker: TLS handshake error from %s: %v", c.rwc.RemoteAddr(), err)
			return
		}
		_ = c.rwc.SetReadDeadline(time.Time{})
		_ = c.rwc.SetWriteDeadline(time.Time{})
		c.tlsState = new(tls.ConnectionState)
		*c.tlsState = tlsConn.ConnectionState()
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancelCtx = cancel
	defer cancel()

	for {
		rw, err := c.readRequest()
		if err != nil {
			log.Printf("mockbroker: readRequest err=%v", err)
			return
		}
		serverHandler{c.server}.ServeMQTT(rw, rw.packet)
		c.setState(c.rwc, StateIdle, true)
	}
}

func (c *conn) readRequest() (*response, error) {
	w := &response{conn: c}
	var err error
	w.packet, err = packet.Unpack(c.version, c.rwc)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("mockbroker: readRequest version=%d: %w", c.version, err)
	}
	return w, err
}

type defaultHandler struct{}

func (defaultHandler) ServeMQTT(w ResponseWriter, req packet.Packet) {
	var spkt packet.Packet
	c := w.(*response).conn
	switch rpkt := req.(type) {
	case *packet.RESERVED:
		return
	case *packet.CONNECT:
		connack := &packet.CONNACK{FixedHeader: &packet.FixedHeader{Version: rpkt.Version, Kind: connack}}

		if !c.server.Auth.authenticate(rpkt.Username, rpkt.Password) {
			if rpkt.Version == packet.VERSION500 {
				connack.ConnectReturnCode = packet.ErrMalformedUsernameOrPassword
			} else {
				connack.ConnectReturnCode = packet.ErrBadUsernameOrPassword
			}
		}
		c.ID, c.version, c.willTopic, c.willPayload = rpkt.ClientID, rpkt.Version, rpkt.WillTopic, rpkt.WillPayload
		if connack.ConnectReturnCode.Code == 0 {
			log.Printf("mockbroker: auth ok clientId=%s username=%s remote=%s", c.ID, rpkt.Username, c.remoteAddr)
		} else {
			log.Printf("mockbroker: auth failed clientId=%s username=%s remote=%s reason=%v", c.ID, rpkt.Username, c.remoteAddr, connack.ConnectReturnCode)
		}
		spkt = connack

	case *packet.PUBLISH:
		switch rpkt.QoS {
		case 0:
			_ = c.server.memorySubscribed.Publish(rpkt.Message, rpkt.Props)
			return
		case 1:
			_ = c.server.memorySubscribed.Publish(rpkt.Message, rpkt.Props)
			spkt = &packet.PUBACK{FixedHeader: &packet.FixedHeader{Version: c.version, Kind: puback}, PacketID: rpkt.PacketID}
		case 2:
			c.inFlight.put(rpkt)
			spkt = &packet.PUBREC{FixedHeader: &packet.FixedHeader{Version: c.version, Kind: pubrec}, PacketID: rpkt.PacketID}
		}

	case *packet.PUBACK:
		return
	case *packet.PUBREC:
		spkt = &packet.PUBREL{FixedHeader: &packet.FixedHeader{Version: c.version, Kind: pubrel, QoS: 1}, PacketID: rpkt.PacketID}
	case *packet.PUBREL:
		pub, ok := c.inFlight.get(rpkt.PacketID)
		if !ok {
			spkt = &packet.PUBCOMP{FixedHeader: &packet.FixedHeader{Version: c.version, Kind: pubcomp}, PacketID: rpkt.PacketID}
			break
		}
		c.inFlight.remove(rpkt.PacketID)
		if err := c.server.memorySubscribed.Publish(pub.Message, pub.Props); err != nil {
			log.Printf("mockbroker: publish err=%v", err)
		}
		spkt = &packet.PUBCOMP{FixedHeader: &packet.FixedHeader{Version: c.version, Kind: pubcomp}, PacketID: rpkt.PacketID, ReasonCode: packet.ReasonCode{Code: 0}}
	case *packet.PUBCOMP:
		return

	case *packet.SUBSCRIBE:
		var reasons []packet.ReasonCode
		for _, sub := range rpkt.Subscriptions {
			if err := c.subscribeTopics.Subscribe(sub.TopicFilter); err != nil {
				log.Printf("mockbroker: subscribe err=%v", err)
				reasons = append(reasons, packet.ErrTopicNameInvalid)
				continue
			}
			reasons = append(reasons, packet.ReasonCode{Code: sub.MaximumQoS})
		}
		c.server.memorySubscribed.Subscribe(c)
		spkt = &packet.SUBACK{FixedHeader: &packet.FixedHeader{Version: c.version, Kind: suback}, PacketID: rpkt.PacketID, ReasonCode: reasons}

	case *packet.UNSUBSCRIBE:
		for _, sub := range rpkt.Subscriptions {
			c.subscribeTopics.Unsubscribe(sub.TopicFilter)
		}
		c.server.memorySubscribed.Unsubscribe(c)
		spkt = &packet.UNSUBACK{FixedHeader: &packet.FixedHeader{Version: c.version, Kind: unsuback, QoS: 1}, PacketID: rpkt.PacketID}

	case *packet.PINGREQ:
		spkt = &packet.PINGRESP{FixedHeader: &packet.FixedHeader{Version: c.version, Kind: pingresp}}

	case *packet.DISCONNECT:
		c.willTopic, c.willPayload = "", nil
		panic(ErrAbortHandler)

	case *packet.AUTH:
		return
	default:
		panic(fmt.Sprintf("mockbroker: unknown packet type: %T", rpkt))
	}
	if err := w.OnSend(spkt); err != nil {
		log.Printf("mockbroker: onSend err=%v", err)
	}
}
