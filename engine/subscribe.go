package engine

import "github.com/driftwave/mqttclient/packet"

// SubscribeResult is the outcome handed to the client handle once a
// SUBACK/UNSUBACK arrives: which token completed and what reason codes
// the broker returned per subscription, §4.E/§4.G.
type SubscribeResult struct {
	Token   uint64
	Reasons []packet.ReasonCode
}

// BuildSubscribe allocates a packet id from the same allocator as
// publishes (§4.D) and records it as awaiting a SUBACK.
func (e *Engine) BuildSubscribe(subs []packet.Subscription, token uint64) *packet.SUBSCRIBE {
	id := e.Tables.NextPacketID()
	e.Tables.PutAck(id, token)
	e.touchWrite()
	return &packet.SUBSCRIBE{
		FixedHeader:   &packet.FixedHeader{Version: e.Version, Kind: kindSubscribe, QoS: 1},
		PacketID:      id,
		Subscriptions: subs,
	}
}

// BuildUnsubscribe mirrors BuildSubscribe for UNSUBSCRIBE/UNSUBACK.
func (e *Engine) BuildUnsubscribe(subs []packet.Subscription, token uint64) *packet.UNSUBSCRIBE {
	id := e.Tables.NextPacketID()
	e.Tables.PutAck(id, token)
	e.touchWrite()
	return &packet.UNSUBSCRIBE{
		FixedHeader:   &packet.FixedHeader{Version: e.Version, Kind: kindUnsubscribe, QoS: 1},
		PacketID:      id,
		Subscriptions: subs,
	}
}

// HandleSuback resolves the token a BuildSubscribe call is waiting on.
func (e *Engine) HandleSuback(ack *packet.SUBACK) (SubscribeResult, bool) {
	e.touchRead()
	token, ok := e.Tables.TakeAck(ack.PacketID)
	if !ok {
		return SubscribeResult{}, false
	}
	return SubscribeResult{Token: token, Reasons: ack.ReasonCode}, true
}

// HandleUnsuback resolves the token a BuildUnsubscribe call is waiting on.
func (e *Engine) HandleUnsuback(ack *packet.UNSUBACK) (SubscribeResult, bool) {
	e.touchRead()
	token, ok := e.Tables.TakeAck(ack.PacketID)
	if !ok {
		return SubscribeResult{}, false
	}
	return SubscribeResult{Token: token}, true
}
