// Package engine implements the four interacting state machines of §4.E:
// connection lifecycle, outbound QoS handling, inbound QoS handling, and
// keepalive. It is grounded on the teacher's defaultHandler.ServeMQTT
// (conn.go), generalized from one-shot broker-side request handling into
// persistent per-client client-side state, and on paho.mqtt.golang's
// status enum for the lifecycle states themselves.
package engine

import "sync/atomic"

// State is the connection lifecycle state machine's current state, §4.E.
type State uint32

const (
	Disconnected State = iota
	Connecting
	AwaitingConnack
	Connected
	Disconnecting
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case AwaitingConnack:
		return "awaiting_connack"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// stateBox is an atomic holder for State, mirroring the teacher's curState
// atomic.Uint64 packing in conn.go — here the value itself is small enough
// that no timestamp packing is needed, but the atomic-holder idiom carries
// over directly.
type stateBox struct {
	v atomic.Uint32
}

func (b *stateBox) Load() State      { return State(b.v.Load()) }
func (b *stateBox) Store(s State)    { b.v.Store(uint32(s)) }
func (b *stateBox) CAS(old, new State) bool {
	return b.v.CompareAndSwap(uint32(old), uint32(new))
}
