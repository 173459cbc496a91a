package engine

import "github.com/driftwave/mqttclient/packet"

// ArrivalDecision is what the user's inbound-message callback returns,
// driving §4.E's inbound QoS state machines: "if the callback returns
// accepted, write PUBACK; otherwise hold the message".
type ArrivalDecision int

const (
	Accepted ArrivalDecision = iota
	Refused
)

// Callbacks is everything the engine calls back into user/client-handle
// code for. The engine never holds a callback closure that itself closes
// over the client handle (§9's "cyclic callback references" note) — the
// client handle registers these once and the engine only ever calls
// through this interface.
type Callbacks interface {
	// OnMessage delivers an inbound publish. A QoS 2 packet id is accepted
	// at most once (§3 invariant); a message that was refused is offered
	// again when the broker redelivers it. Called at least once per QoS 1/0
	// publish.
	OnMessage(msg *packet.Message, qos uint8, retained bool) ArrivalDecision

	// OnComplete fires onSuccess(token, result) per §4.G.
	OnComplete(token uint64, result any)

	// OnFailure fires onFailure(token, err, reason) per §4.G.
	OnFailure(token uint64, err error, reason string)

	// OnStateChange notifies the client handle of a lifecycle
	// transition, e.g. to flip IsConnected() and unblock
	// waitForCompletion callers on Disconnected.
	OnStateChange(from, to State)
}
