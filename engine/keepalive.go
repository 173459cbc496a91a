package engine

import (
	"time"

	"github.com/driftwave/mqttclient/packet"
)

// Tick is called periodically by the network loop (ioloop) and implements
// §4.E's keepalive state machine: a PINGREQ is due once KeepAlive has
// elapsed since the last outbound write with nothing else sent meanwhile,
// and the connection is considered dead if a PINGRESP hasn't arrived
// within one more KeepAlive interval — matching the broker-side keepalive
// contract MQTT places on clients, applied here from the client's
// perspective against the broker.
func (e *Engine) Tick(now time.Time) (ping *packet.PINGREQ, timedOut bool) {
	if e.KeepAlive <= 0 || e.State() != Connected {
		return nil, false
	}

	if e.pingOutstanding {
		if now.Sub(e.lastOutboundWrite) > e.KeepAlive {
			return nil, true
		}
		return nil, false
	}

	if now.Sub(e.lastOutboundWrite) >= e.KeepAlive {
		e.pingOutstanding = true
		e.touchWrite()
		return &packet.PINGREQ{FixedHeader: e.fixedHeader(kindPingreq)}, false
	}
	return nil, false
}

// HandlePingresp clears the outstanding-ping flag, per §4.E.
func (e *Engine) HandlePingresp(*packet.PINGRESP) {
	e.touchRead()
	e.pingOutstanding = false
}
