package session

import (
	"sort"
	"sync"
)

// Tables is the full set of per-client state named in §3: the outbound and
// inbound in-flight tables, the packet-id allocator, and the pending queue.
// One Tables belongs to exactly one client and is mutated only by the
// network loop goroutine that owns that client (§5) — the mutex exists
// purely so WaitForCompletion-style reads from user goroutines (via
// PendingTokens) don't race the loop.
//
// Grounded on the teacher's InFight (infight.go), generalized from "a map
// keyed by packet id, inbound QoS 2 only" into both directions plus the
// allocator and pending queue §4.D requires.
type Tables struct {
	mu sync.Mutex

	outbound map[uint16]*Outbound
	inbound  map[uint16]*Inbound
	lastID   uint16

	pending []*Pending

	// acks tracks packet ids allocated for SUBSCRIBE/UNSUBSCRIBE, which
	// ride the same allocator as publishes (§4.D) but complete in one
	// round trip and never enter the outbound table.
	acks map[uint16]uint64
}

// Pending is a queued operation waiting for a flow-control slot or for the
// connection to come up, §3's "Pending queue".
type Pending struct {
	Out   *Outbound
	Token uint64
}

func NewTables() *Tables {
	return &Tables{
		outbound: make(map[uint16]*Outbound),
		inbound:  make(map[uint16]*Inbound),
		acks:     make(map[uint16]uint64),
	}
}

// PutAck records a packet id as awaiting a SUBACK/UNSUBACK, associated
// with the token its completion should resolve.
func (t *Tables) PutAck(id uint16, token uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.acks[id] = token
}

// TakeAck resolves and removes a pending SUBACK/UNSUBACK token.
func (t *Tables) TakeAck(id uint16) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	token, ok := t.acks[id]
	if ok {
		delete(t.acks, id)
	}
	return token, ok
}

// PutOutbound records a new in-flight outbound entry. It is a protocol
// error for the caller to reuse a packet id already present — §3's
// invariant that at most one outbound entry exists per packet-id.
func (t *Tables) PutOutbound(e *Outbound) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outbound[e.PacketID] = e
}

func (t *Tables) GetOutbound(id uint16) (*Outbound, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.outbound[id]
	return e, ok
}

// RemoveOutbound drops the terminal entry, per §3: "destroyed on the
// terminal ack".
func (t *Tables) RemoveOutbound(id uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.outbound, id)
}

// OutboundInOrder returns every outbound entry sorted by packet id, which
// for this allocator (forward scan, never reused while live) is also
// allocation order — the ordering §4.E's reconnect resend and §8 test 5
// require.
func (t *Tables) OutboundInOrder() []*Outbound {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Outbound, 0, len(t.outbound))
	for _, e := range t.outbound {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PacketID < out[j].PacketID })
	return out
}

func (t *Tables) OutboundCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.outbound)
}

func (t *Tables) PutInbound(e *Inbound) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inbound[e.PacketID] = e
}

func (t *Tables) GetInbound(id uint16) (*Inbound, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.inbound[id]
	return e, ok
}

func (t *Tables) RemoveInbound(id uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inbound, id)
}

// NextPacketID allocates the next free id per §4.D: scan forward from the
// last allocated value modulo 65535, skipping ids live in either table.
// Zero is never returned; ids run [1, 65535].
func (t *Tables) NextPacketID() uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i < 65535; i++ {
		t.lastID++
		if t.lastID == 0 {
			t.lastID = 1
		}
		if _, out := t.outbound[t.lastID]; out {
			continue
		}
		if _, in := t.inbound[t.lastID]; in {
			continue
		}
		if _, ack := t.acks[t.lastID]; ack {
			continue
		}
		return t.lastID
	}
	panic("session: no free packet id")
}

// Enqueue appends an operation to the pending queue, §3: "submitted while
// the connection is not established (or while flow control denies new
// sends)".
func (t *Tables) Enqueue(p *Pending) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, p)
}

// DequeueIfRoom pops the head of the pending queue iff the outbound table
// has room under max (Receive-Maximum or a static limit per §4.D). Returns
// nil, false when nothing should be dequeued right now.
func (t *Tables) DequeueIfRoom(max int) (*Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 || len(t.outbound) >= max {
		return nil, false
	}
	p := t.pending[0]
	t.pending = t.pending[1:]
	return p, true
}

func (t *Tables) PendingLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Reset clears both in-flight tables, used on a clean-session connect
// (§4.E: "On success with sessionPresent=false, the engine clears the
// session tables and the store").
func (t *Tables) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outbound = make(map[uint16]*Outbound)
	t.inbound = make(map[uint16]*Inbound)
	t.acks = make(map[uint16]uint64)
	t.pending = nil
	t.lastID = 0
}
