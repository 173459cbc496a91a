package engine

import (
	"fmt"
	"time"

	"github.com/driftwave/mqttclient/packet"
	"github.com/driftwave/mqttclient/session"
)

// BuildConnect constructs the CONNECT packet for this engine's identity,
// grounded on client.go's Connect. Will and credentials are left to the
// caller to attach — the engine only owns session/keepalive framing.
func (e *Engine) BuildConnect(cleanStart bool, username, password string) *packet.CONNECT {
	e.setState(Connecting)
	return &packet.CONNECT{
		FixedHeader: e.fixedHeader(kindConnect),
		ClientID:    e.ClientID,
		CleanStart:  cleanStart,
		KeepAlive:   uint16(e.KeepAlive / time.Second),
		Username:    username,
		Password:    password,
	}
}

// HandleConnack applies §4.E's post-CONNACK branching: on success with
// sessionPresent=false the tables and store are wiped (no state to
// resume); on sessionPresent=true every outbound entry is resent in
// allocation order with dup=1, exactly as the teacher's client.go replays
// nothing today but conn.go's in-flight bookkeeping assumes on the broker
// side. Returns the packets to resend, or an error if the broker refused
// the connection.
func (e *Engine) HandleConnack(ack *packet.CONNACK) ([]packet.Packet, error) {
	e.touchRead()
	if ack.ConnectReturnCode.Code != 0 {
		e.setState(Disconnected)
		return nil, fmt.Errorf("%w: %s", ErrConnectionRefused, ack.ConnectReturnCode.Error())
	}

	if ack.SessionPresent == 0 || !e.Persistent {
		e.Tables.Reset()
		e.clearStore()
		e.setState(Connected)
		return nil, nil
	}

	var resend []packet.Packet
	for _, out := range e.Tables.OutboundInOrder() {
		out.Dup = true
		resend = append(resend, e.redeliverPublish(out))
	}
	e.setState(Connected)
	return resend, nil
}

// redeliverPublish rebuilds the wire packet for a resumed outbound entry.
// A PUBREC already received before the disconnect means only PUBREL needs
// resending, per §4.E's "PUBREL is resent, not the original PUBLISH".
func (e *Engine) redeliverPublish(out *session.Outbound) packet.Packet {
	if out.Phase == session.AwaitingPubcomp {
		return &packet.PUBREL{
			FixedHeader: &packet.FixedHeader{Version: e.Version, Kind: kindPubrel, QoS: 1},
			PacketID:    out.PacketID,
		}
	}
	return &packet.PUBLISH{
		FixedHeader: &packet.FixedHeader{Version: e.Version, Kind: kindPublish, Dup: 1, QoS: out.QoS, Retain: boolToBit(out.Retain)},
		PacketID:    out.PacketID,
		Message:     &packet.Message{TopicName: out.Topic, Content: out.Payload},
		Props:       out.Props,
	}
}

// BuildDisconnect transitions to Disconnecting and returns the DISCONNECT
// packet to write before closing the transport, grounded on client.go's
// Disconnect.
func (e *Engine) BuildDisconnect() *packet.DISCONNECT {
	e.setState(Disconnecting)
	return &packet.DISCONNECT{FixedHeader: e.fixedHeader(kindDisconnect)}
}

// OnTransportLost moves the engine to Reconnecting (persistent session) or
// Disconnected (clean session), per §4.E. In-flight outbound/inbound
// tables survive a transport loss for a persistent session; they are
// cleared otherwise.
func (e *Engine) OnTransportLost() {
	if e.Persistent {
		e.setState(Reconnecting)
		return
	}
	e.Tables.Reset()
	e.setState(Disconnected)
}

// clearStore drops every durable record for this client id, the store-side
// half of a clean-session reset (§4.E: "the engine clears the session
// tables and the store before processing any further operation"). A
// missing key or a Store that returns a partial list is not fatal here —
// whatever is left behind is orphaned state, not state this connection
// will ever read back.
func (e *Engine) clearStore() {
	if e.Store == nil {
		return
	}
	keys, err := e.Store.Keys(e.ClientID)
	if err != nil {
		return
	}
	for _, k := range keys {
		e.Store.Remove(k)
	}
}

func boolToBit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
