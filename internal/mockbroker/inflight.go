package mockbroker

import (
	"sync"

	"github.com/driftwave/mqttclient/packet"
)

// inFlight holds QoS 2 PUBLISH packets between PUBREC and PUBREL on the
// broker side, the same role the teacher's root InFight played before
// that concern moved to the client-side session package.
type inFlight struct {
	mu   sync.RWMutex
	maps map[uint16]*packet.PUBLISH
}

func newInFlight() *inFlight {
	return &inFlight{maps: make(map[uint16]*packet.PUBLISH)}
}

func (i *inFlight) get(id uint16) (*packet.PUBLISH, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	pkt, ok := i.maps[id]
	return pkt, ok
}

func (i *inFlight) put(pkt *packet.PUBLISH) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.maps[pkt.PacketID] = pkt
}

func (i *inFlight) remove(id uint16) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.maps, id)
}
