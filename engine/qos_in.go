package engine

import (
	"github.com/driftwave/mqttclient/packet"
	"github.com/driftwave/mqttclient/session"
	"github.com/driftwave/mqttclient/store"
)

// InboundResult is what HandlePublish/HandlePubrel hand back to the
// caller: the ack packet to write, or nil if the callback refused the
// message and the engine is withholding the ack so the broker redelivers
// it (§4.E, §7's "the engine never drops an unacknowledged inbound entry
// silently"). Delivery itself already happened inside the call, via
// Callbacks.OnMessage, so there is nothing left for the caller to do with
// a refused message but leave it unacked.
type InboundResult struct {
	Ack packet.Packet
}

// HandlePublish is §4.E's inbound entry point, grounded on conn.go's
// PUBLISH case in defaultHandler.ServeMQTT: QoS 0 delivers immediately
// with no ack, QoS 1 delivers immediately and acks with PUBACK only if
// Callbacks.OnMessage accepts it, QoS 2 records the packet id and acks
// with PUBREC but withholds delivery until the matching PUBREL — this is
// what makes QoS 2 exactly-once rather than at-least-once. A refused QoS 1
// message is not acked at all, so the broker redelivers it on its own
// retry schedule.
func (e *Engine) HandlePublish(pub *packet.PUBLISH) (InboundResult, error) {
	e.touchRead()
	switch pub.QoS {
	case 0:
		e.Callbacks.OnMessage(pub.Message, 0, pub.Retain != 0)
		return InboundResult{}, nil

	case 1:
		if e.Callbacks.OnMessage(pub.Message, 1, pub.Retain != 0) == Refused {
			return InboundResult{}, nil
		}
		return InboundResult{
			Ack: &packet.PUBACK{
				FixedHeader: e.fixedHeader(kindPuback),
				PacketID:    pub.PacketID,
			},
		}, nil

	case 2:
		ack := &packet.PUBREC{
			FixedHeader: e.fixedHeader(kindPubrec),
			PacketID:    pub.PacketID,
		}
		// A duplicate of a packet id already AwaitingPubrel is not
		// re-recorded or re-delivered — only the PUBREC is resent, per
		// §3's "idempotent on redelivery" invariant for QoS 2. The
		// message is only ever handed to the callback once, from
		// HandlePubrel, after the broker confirms with PUBREL.
		if _, exists := e.Tables.GetInbound(pub.PacketID); exists {
			return InboundResult{Ack: ack}, nil
		}
		in := &session.Inbound{
			PacketID: pub.PacketID,
			Topic:    pub.Message.TopicName,
			Payload:  pub.Message.Content,
			Props:    pub.Props,
			Phase:    session.AwaitingPubrel,
		}
		if e.Store != nil {
			data, err := session.EncodeInbound(in)
			if err != nil {
				return InboundResult{}, err
			}
			if err := e.Store.Put(store.Key{ClientID: e.ClientID, Dir: store.Inbound, PacketID: pub.PacketID}, data); err != nil {
				return InboundResult{}, err
			}
		}
		e.Tables.PutInbound(in)
		return InboundResult{Ack: ack}, nil

	default:
		return InboundResult{}, ErrProtocolError
	}
}

// HandlePubrel completes a QoS 2 inbound entry: the message is delivered
// to Callbacks.OnMessage and the entry is dropped only if the callback
// accepts it — a refusal leaves the entry in place so a redelivered
// PUBREL gets another chance, per §4.E's "drop the entry only after the
// callback accepts". A PUBREL for an unknown packet id still gets a
// PUBCOMP (§4.E: "the receiver has no record to lose, but the sender is
// still owed its terminal ack") with no delivery.
func (e *Engine) HandlePubrel(rel *packet.PUBREL) (InboundResult, error) {
	comp := &packet.PUBCOMP{
		FixedHeader: e.fixedHeader(kindPubcomp),
		PacketID:    rel.PacketID,
	}
	in, found := e.Tables.GetInbound(rel.PacketID)
	if !found {
		return InboundResult{Ack: comp}, nil
	}
	msg := &packet.Message{TopicName: in.Topic, Content: in.Payload}
	if e.Callbacks.OnMessage(msg, 2, false) == Refused {
		return InboundResult{}, nil
	}
	e.Tables.RemoveInbound(rel.PacketID)
	if e.Store != nil {
		_ = e.Store.Remove(store.Key{ClientID: e.ClientID, Dir: store.Inbound, PacketID: rel.PacketID})
	}
	return InboundResult{Ack: comp}, nil
}
