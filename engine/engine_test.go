package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwave/mqttclient/packet"
	"github.com/driftwave/mqttclient/session"
)

// recordingCallbacks is a hand-rolled Callbacks stub — a gomock-based
// double lives in ioloop's tests, which also need to satisfy the larger
// Hooks interface; engine's own tests only touch the four Callbacks
// methods, so a plain struct is simpler here than generating a mock.
// refuse, when set, makes OnMessage return Refused instead of recording
// and accepting delivery, so tests can exercise the withheld-ack path.
type recordingCallbacks struct {
	states    []State
	delivered []*packet.Message
	refuse    bool
}

func (r *recordingCallbacks) OnMessage(msg *packet.Message, qos uint8, retained bool) ArrivalDecision {
	if r.refuse {
		return Refused
	}
	r.delivered = append(r.delivered, msg)
	return Accepted
}
func (r *recordingCallbacks) OnComplete(uint64, any)          {}
func (r *recordingCallbacks) OnFailure(uint64, error, string) {}
func (r *recordingCallbacks) OnStateChange(from, to State)    { r.states = append(r.states, to) }

func newTestEngine(t *testing.T, receiveMax int) (*Engine, *recordingCallbacks) {
	t.Helper()
	cb := &recordingCallbacks{}
	e := New("test-client", packet.VERSION311, session.NewTables(), nil, false, receiveMax, 0, cb)
	return e, cb
}

func TestSubmitPublishQoS0AlwaysReturnsAPacketImmediately(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	pkt, err := e.SubmitPublish(PublishRequest{Topic: "a", Payload: []byte("x"), QoS: 0})
	require.NoError(t, err)
	pub, ok := pkt.(*packet.PUBLISH)
	require.True(t, ok)
	assert.Equal(t, uint16(0), pub.PacketID, "QoS 0 never allocates a packet id")
	assert.Equal(t, 0, e.Tables.OutboundCount())
}

func TestSubmitPublishQoS1QueuesBehindReceiveMaximum(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	pkt, err := e.SubmitPublish(PublishRequest{Topic: "a", QoS: 1, Token: 1})
	require.NoError(t, err)
	require.NotNil(t, pkt, "first publish has room under ReceiveMax=1")
	assert.Equal(t, 1, e.Tables.OutboundCount())

	queued, err := e.SubmitPublish(PublishRequest{Topic: "b", QoS: 1, Token: 2})
	require.NoError(t, err)
	assert.Nil(t, queued, "second publish has no room and is queued instead")
	assert.Equal(t, 1, e.Tables.PendingLen())
}

func TestPubackThenDrainPendingLetsTheQueuedPublishThrough(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	first, err := e.SubmitPublish(PublishRequest{Topic: "a", QoS: 1, Token: 1})
	require.NoError(t, err)
	id := first.(*packet.PUBLISH).PacketID

	_, err = e.SubmitPublish(PublishRequest{Topic: "b", QoS: 1, Token: 2})
	require.NoError(t, err)

	token, ok := e.HandlePuback(&packet.PUBACK{PacketID: id})
	require.True(t, ok)
	assert.Equal(t, uint64(1), token)
	assert.Equal(t, 0, e.Tables.OutboundCount())

	pkt, drained, err := e.DrainPending()
	require.NoError(t, err)
	require.True(t, drained)
	require.NotNil(t, pkt)
	assert.Equal(t, 0, e.Tables.PendingLen())
	assert.Equal(t, 1, e.Tables.OutboundCount())
}

func TestQoS2OutboundHandshakeGoesThroughPubrecPubrel(t *testing.T) {
	e, _ := newTestEngine(t, 10)
	pkt, err := e.SubmitPublish(PublishRequest{Topic: "a", QoS: 2, Token: 42})
	require.NoError(t, err)
	id := pkt.(*packet.PUBLISH).PacketID

	pubrel, ok := e.HandlePubrec(&packet.PUBREC{PacketID: id})
	require.True(t, ok)
	assert.Equal(t, id, pubrel.PacketID)

	token, ok, err := e.HandlePubcomp(&packet.PUBCOMP{PacketID: id})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(42), token)
	assert.Equal(t, 0, e.Tables.OutboundCount())
}

func TestHandlePubcompBeforePubrecIsAProtocolError(t *testing.T) {
	e, _ := newTestEngine(t, 10)
	pkt, err := e.SubmitPublish(PublishRequest{Topic: "a", QoS: 2, Token: 1})
	require.NoError(t, err)
	id := pkt.(*packet.PUBLISH).PacketID

	_, ok, err := e.HandlePubcomp(&packet.PUBCOMP{PacketID: id})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocolError)
	assert.False(t, ok)
	assert.Equal(t, 1, e.Tables.OutboundCount(), "the entry is left in place, not torn down by the engine itself")
}

func TestHandlePubcompForUnknownPacketIDIsIgnorable(t *testing.T) {
	e, _ := newTestEngine(t, 10)
	_, ok, err := e.HandlePubcomp(&packet.PUBCOMP{PacketID: 999})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHandlePublishQoS2WithholdsDeliveryUntilPubrel(t *testing.T) {
	e, cb := newTestEngine(t, 10)
	pub := &packet.PUBLISH{
		FixedHeader: &packet.FixedHeader{QoS: 2},
		PacketID:    7,
		Message:     &packet.Message{TopicName: "t", Content: []byte("hi")},
	}
	res, err := e.HandlePublish(pub)
	require.NoError(t, err)
	assert.Empty(t, cb.delivered, "QoS 2 delivery is withheld until PUBREL")
	assert.NotNil(t, res.Ack)

	relRes, err := e.HandlePubrel(&packet.PUBREL{PacketID: 7})
	require.NoError(t, err)
	require.NotNil(t, relRes.Ack)
	require.Len(t, cb.delivered, 1)
	assert.Equal(t, "hi", string(cb.delivered[0].Content))
}

func TestHandlePublishQoS2DuplicateOnlyResendsPubrec(t *testing.T) {
	e, cb := newTestEngine(t, 10)
	pub := &packet.PUBLISH{
		FixedHeader: &packet.FixedHeader{QoS: 2},
		PacketID:    7,
		Message:     &packet.Message{TopicName: "t", Content: []byte("hi")},
	}
	_, err := e.HandlePublish(pub)
	require.NoError(t, err)

	res, err := e.HandlePublish(pub)
	require.NoError(t, err)
	assert.Empty(t, cb.delivered, "a duplicate QoS 2 publish is never redelivered")
	assert.NotNil(t, res.Ack, "but the PUBREC is always resent")
}

func TestHandlePubrelForUnknownPacketIDStillAcksWithoutDelivery(t *testing.T) {
	e, cb := newTestEngine(t, 10)
	res, err := e.HandlePubrel(&packet.PUBREL{PacketID: 999})
	require.NoError(t, err)
	assert.NotNil(t, res.Ack)
	assert.Empty(t, cb.delivered)
}

func TestHandlePublishQoS1RefusalWithholdsPuback(t *testing.T) {
	e, cb := newTestEngine(t, 10)
	cb.refuse = true
	pub := &packet.PUBLISH{
		FixedHeader: &packet.FixedHeader{QoS: 1},
		PacketID:    3,
		Message:     &packet.Message{TopicName: "t", Content: []byte("hi")},
	}
	res, err := e.HandlePublish(pub)
	require.NoError(t, err)
	assert.Nil(t, res.Ack, "a refused QoS 1 publish is left unacked so the broker redelivers it")
}

func TestHandlePubrelRefusalWithholdsPubcompAndKeepsEntry(t *testing.T) {
	e, cb := newTestEngine(t, 10)
	pub := &packet.PUBLISH{
		FixedHeader: &packet.FixedHeader{QoS: 2},
		PacketID:    7,
		Message:     &packet.Message{TopicName: "t", Content: []byte("hi")},
	}
	_, err := e.HandlePublish(pub)
	require.NoError(t, err)

	cb.refuse = true
	res, err := e.HandlePubrel(&packet.PUBREL{PacketID: 7})
	require.NoError(t, err)
	assert.Nil(t, res.Ack, "a refused PUBREL is left unacked")
	_, found := e.Tables.GetInbound(7)
	assert.True(t, found, "the inbound entry survives a refusal so a redelivered PUBREL gets another chance")
}

func TestHandleConnackSuccessWithNoSessionResetsTables(t *testing.T) {
	e, cb := newTestEngine(t, 10)
	e.Tables.PutOutbound(&session.Outbound{PacketID: 1})

	resend, err := e.HandleConnack(&packet.CONNACK{SessionPresent: 0})
	require.NoError(t, err)
	assert.Nil(t, resend)
	assert.Equal(t, 0, e.Tables.OutboundCount())
	assert.Equal(t, Connected, e.State())
	assert.Contains(t, cb.states, Connected)
}

func TestHandleConnackRefusalReturnsConnectionRefusedError(t *testing.T) {
	e, _ := newTestEngine(t, 10)
	_, err := e.HandleConnack(&packet.CONNACK{ConnectReturnCode: packet.ReasonCode{Code: 5}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionRefused)
	assert.Equal(t, Disconnected, e.State())
}

func TestHandleConnackResumedSessionResendsOutboundInAllocationOrder(t *testing.T) {
	e := New("c", packet.VERSION311, session.NewTables(), nil, true, 10, 0, &recordingCallbacks{})
	e.Tables.PutOutbound(&session.Outbound{PacketID: 1, QoS: 1, Topic: "a", Phase: session.AwaitingPuback})
	e.Tables.PutOutbound(&session.Outbound{PacketID: 2, QoS: 2, Topic: "b", Phase: session.AwaitingPubcomp})

	resend, err := e.HandleConnack(&packet.CONNACK{SessionPresent: 1})
	require.NoError(t, err)
	require.Len(t, resend, 2)

	pub, ok := resend[0].(*packet.PUBLISH)
	require.True(t, ok, "AwaitingPuback entries resend the full PUBLISH")
	assert.Equal(t, uint16(1), pub.PacketID)
	assert.Equal(t, uint8(1), pub.Dup)

	rel, ok := resend[1].(*packet.PUBREL)
	require.True(t, ok, "AwaitingPubcomp entries resend only PUBREL, not the original PUBLISH")
	assert.Equal(t, uint16(2), rel.PacketID)
}

func TestBuildSubscribeAndHandleSubackResolvesTheSameToken(t *testing.T) {
	e, _ := newTestEngine(t, 10)
	sub := e.BuildSubscribe([]packet.Subscription{{TopicFilter: "a/b", MaximumQoS: 1}}, 55)

	res, ok := e.HandleSuback(&packet.SUBACK{PacketID: sub.PacketID, ReasonCode: []packet.ReasonCode{{Code: 1}}})
	require.True(t, ok)
	assert.Equal(t, uint64(55), res.Token)
	assert.Equal(t, uint8(1), res.Reasons[0].Code)
}

func TestOnTransportLostResetsCleanSessionButPreservesPersistent(t *testing.T) {
	clean, _ := newTestEngine(t, 10)
	clean.Tables.PutOutbound(&session.Outbound{PacketID: 1})
	clean.OnTransportLost()
	assert.Equal(t, Disconnected, clean.State())
	assert.Equal(t, 0, clean.Tables.OutboundCount())

	persistent := New("c", packet.VERSION311, session.NewTables(), nil, true, 10, 0, &recordingCallbacks{})
	persistent.Tables.PutOutbound(&session.Outbound{PacketID: 1})
	persistent.OnTransportLost()
	assert.Equal(t, Reconnecting, persistent.State())
	assert.Equal(t, 1, persistent.Tables.OutboundCount(), "a persistent session keeps its in-flight state across a transport loss")
}
