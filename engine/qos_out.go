package engine

import (
	"fmt"

	"github.com/driftwave/mqttclient/packet"
	"github.com/driftwave/mqttclient/session"
	"github.com/driftwave/mqttclient/store"
)

// PublishRequest is what the client handle submits for a Publish() call;
// the engine turns it into either a wire PUBLISH (room available) or a
// pending-queue entry (Receive-Maximum has no room). The connection state
// is not checked.
type PublishRequest struct {
	Topic   string
	Payload []byte
	QoS     uint8
	Retain  bool
	Props   *packet.PublishProperties
	Token   uint64
}

// SubmitPublish is §4.E's outbound entry point. For QoS 0 it always
// returns a packet to write immediately — QoS 0 has no in-flight entry
// and no flow control, per §3. For QoS>0 it allocates a packet id and
// records an Outbound entry, unless Receive-Maximum has no room, in which
// case the request is queued and nil is returned.
func (e *Engine) SubmitPublish(req PublishRequest) (packet.Packet, error) {
	if req.QoS == 0 {
		return &packet.PUBLISH{
			FixedHeader: &packet.FixedHeader{Version: e.Version, Kind: kindPublish, Retain: boolToBit(req.Retain)},
			Message:     &packet.Message{TopicName: req.Topic, Content: req.Payload},
			Props:       req.Props,
		}, nil
	}

	if e.Tables.OutboundCount() >= e.ReceiveMax {
		out := &session.Outbound{QoS: req.QoS, Topic: req.Topic, Payload: req.Payload, Retain: req.Retain, Props: req.Props, Token: req.Token}
		e.Tables.Enqueue(&session.Pending{Out: out, Token: req.Token})
		return nil, nil
	}
	return e.allocateAndPublish(req)
}

func (e *Engine) allocateAndPublish(req PublishRequest) (packet.Packet, error) {
	id := e.Tables.NextPacketID()
	out := &session.Outbound{
		PacketID: id,
		QoS:      req.QoS,
		Topic:    req.Topic,
		Payload:  req.Payload,
		Retain:   req.Retain,
		Props:    req.Props,
		Phase:    session.AwaitingPuback,
		Token:    req.Token,
	}
	if req.QoS == 2 {
		out.Phase = session.AwaitingPubrec
	}
	if e.Store != nil {
		data, err := session.EncodeOutbound(out)
		if err != nil {
			return nil, err
		}
		if err := e.Store.Put(store.Key{ClientID: e.ClientID, Dir: store.Outbound, PacketID: id}, data); err != nil {
			return nil, err
		}
	}
	e.Tables.PutOutbound(out)
	e.touchWrite()
	return &packet.PUBLISH{
		FixedHeader: &packet.FixedHeader{Version: e.Version, Kind: kindPublish, QoS: req.QoS, Retain: boolToBit(req.Retain)},
		PacketID:    id,
		Message:     &packet.Message{TopicName: req.Topic, Content: req.Payload},
		Props:       req.Props,
	}, nil
}

// DrainPending pops one queued publish into an in-flight entry if the
// flow-control window has room, per §4.D. Call this after every terminal
// ack frees a slot.
func (e *Engine) DrainPending() (packet.Packet, bool, error) {
	p, ok := e.Tables.DequeueIfRoom(e.ReceiveMax)
	if !ok {
		return nil, false, nil
	}
	pkt, err := e.allocateAndPublish(PublishRequest{
		Topic: p.Out.Topic, Payload: p.Out.Payload, QoS: p.Out.QoS,
		Retain: p.Out.Retain, Props: p.Out.Props, Token: p.Token,
	})
	return pkt, true, err
}

// HandlePuback completes a QoS 1 outbound entry, §4.E.
func (e *Engine) HandlePuback(ack *packet.PUBACK) (token uint64, ok bool) {
	out, found := e.Tables.GetOutbound(ack.PacketID)
	if !found || out.Phase != session.AwaitingPuback {
		return 0, false
	}
	e.Tables.RemoveOutbound(ack.PacketID)
	e.removeStored(ack.PacketID)
	return out.Token, true
}

// HandlePubrec advances a QoS 2 outbound entry to AwaitingPubcomp and
// returns the PUBREL to send, per §4.E's outbound QoS 2 handshake.
func (e *Engine) HandlePubrec(rec *packet.PUBREC) (*packet.PUBREL, bool) {
	out, found := e.Tables.GetOutbound(rec.PacketID)
	if !found || out.Phase != session.AwaitingPubrec {
		return nil, false
	}
	out.Phase = session.AwaitingPubcomp
	if e.Store != nil {
		if data, err := session.EncodeOutbound(out); err == nil {
			_ = e.Store.Put(store.Key{ClientID: e.ClientID, Dir: store.Outbound, PacketID: out.PacketID}, data)
		}
	}
	return &packet.PUBREL{
		FixedHeader: &packet.FixedHeader{Version: e.Version, Kind: kindPubrel, QoS: 1},
		PacketID:    rec.PacketID,
	}, true
}

// HandlePubcomp completes a QoS 2 outbound entry, §4.E. An unmatched packet
// id is ignorable (a late or duplicate ack); a matched entry still
// AwaitingPubrec means the PUBCOMP arrived before its PUBREC, which §4.E
// calls out as a protocol error the connection must not paper over.
func (e *Engine) HandlePubcomp(comp *packet.PUBCOMP) (token uint64, ok bool, err error) {
	out, found := e.Tables.GetOutbound(comp.PacketID)
	if !found {
		return 0, false, nil
	}
	if out.Phase != session.AwaitingPubcomp {
		return 0, false, fmt.Errorf("%w: pubcomp for packet id %d before pubrec", ErrProtocolError, comp.PacketID)
	}
	e.Tables.RemoveOutbound(comp.PacketID)
	e.removeStored(comp.PacketID)
	return out.Token, true, nil
}

func (e *Engine) removeStored(id uint16) {
	if e.Store != nil {
		_ = e.Store.Remove(store.Key{ClientID: e.ClientID, Dir: store.Outbound, PacketID: id})
	}
}
