package engine

import (
	"sync"
	"time"

	"github.com/driftwave/mqttclient/packet"
	"github.com/driftwave/mqttclient/session"
	"github.com/driftwave/mqttclient/store"
)

// Engine is the per-client protocol engine of §2's component D+E: it owns
// the session tables and the persistent store, and drives the four state
// machines of §4.E in response to packets handed to it by the network loop
// and operations submitted by the public client handle.
//
// Engine never touches a net.Conn or transport.Stream directly. Handle*
// methods return the packet(s) that must be written, if any; the caller
// (ioloop) is responsible for framing them onto the wire. This mirrors the
// teacher's defaultHandler.ServeMQTT (conn.go), which also computes a
// response packet and leaves the actual write to its caller, generalized
// from one-shot request/response into a long-lived session.
type Engine struct {
	ClientID   string
	Version    byte
	Persistent bool // false: clean session / clean start

	Tables *session.Tables
	Store  store.Store

	ReceiveMax int // flow-control ceiling on outbound in-flight count, §4.D
	KeepAlive  time.Duration

	Callbacks Callbacks

	mu    sync.Mutex
	state stateBox

	lastOutboundWrite time.Time
	lastInboundRead   time.Time
	pingOutstanding   bool
}

// New constructs an Engine bound to one client identity and session store.
// receiveMax of 0 means "no flow-control limit beyond 65535".
func New(clientID string, version byte, tables *session.Tables, st store.Store, persistent bool, receiveMax int, keepAlive time.Duration, cb Callbacks) *Engine {
	if receiveMax <= 0 {
		receiveMax = 65535
	}
	return &Engine{
		ClientID:   clientID,
		Version:    version,
		Persistent: persistent,
		Tables:     tables,
		Store:      st,
		ReceiveMax: receiveMax,
		KeepAlive:  keepAlive,
		Callbacks:  cb,
	}
}

func (e *Engine) State() State { return e.state.Load() }

func (e *Engine) setState(s State) {
	old := e.state.Load()
	if old == s {
		return
	}
	e.state.Store(s)
	if e.Callbacks != nil {
		e.Callbacks.OnStateChange(old, s)
	}
}

func (e *Engine) fixedHeader(kind byte) *packet.FixedHeader {
	return &packet.FixedHeader{Version: e.Version, Kind: kind}
}

func (e *Engine) touchWrite() { e.lastOutboundWrite = time.Now() }
func (e *Engine) touchRead()  { e.lastInboundRead = time.Now() }
