// Package session holds the per-connection tables of §3 and §4.D: the
// outbound and inbound in-flight tables, the pending queue, and the
// packet-id allocator, generalized from the teacher's single-purpose
// InFight (which only tracked inbound QoS 2).
package session

import (
	"github.com/driftwave/mqttclient/packet"
)

// OutboundPhase is where an outbound QoS>0 publish sits in its handshake.
type OutboundPhase int

const (
	AwaitingPuback OutboundPhase = iota
	AwaitingPubrec
	AwaitingPubcomp
)

// Outbound is one in-flight outbound publish, §3's "Outbound in-flight
// entry".
type Outbound struct {
	PacketID  uint16
	QoS       uint8
	Topic     string
	Payload   []byte
	Retain    bool
	Props     *packet.PublishProperties
	Phase     OutboundPhase
	FirstSent int64 // unix nanos, for diagnostics only
	Dup       bool

	// Token links this entry back to the public client handle's
	// completion bookkeeping without the session package importing it.
	Token uint64
}

// InboundPhase tracks a QoS 2 inbound publish between PUBLISH and PUBREL.
type InboundPhase int

const (
	AwaitingPubrel InboundPhase = iota
	Released
)

// Inbound is one in-flight inbound QoS 2 publish, §3's "Inbound in-flight
// entry".
type Inbound struct {
	PacketID uint16
	Topic    string
	Payload  []byte
	Props    *packet.PublishProperties
	Phase    InboundPhase
}
