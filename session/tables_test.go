package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPacketIDSkipsLiveEntriesAcrossAllThreeTables(t *testing.T) {
	tables := NewTables()

	first := tables.NextPacketID()
	require.Equal(t, uint16(1), first)
	tables.PutOutbound(&Outbound{PacketID: first})

	second := tables.NextPacketID()
	require.Equal(t, uint16(2), second)
	tables.PutInbound(&Inbound{PacketID: second})

	third := tables.NextPacketID()
	require.Equal(t, uint16(3), third)
	tables.PutAck(third, 99)

	fourth := tables.NextPacketID()
	assert.Equal(t, uint16(4), fourth, "must skip ids live in outbound, inbound, and acks tables alike")
}

func TestNextPacketIDNeverReturnsZero(t *testing.T) {
	tables := NewTables()
	tables.lastID = 65535 // force the wraparound path
	id := tables.NextPacketID()
	assert.Equal(t, uint16(1), id)
}

func TestNextPacketIDWrapsAfterExhaustingLowIDs(t *testing.T) {
	tables := NewTables()
	// occupy every id except 5
	for i := 1; i < 65536; i++ {
		if i == 5 {
			continue
		}
		tables.PutOutbound(&Outbound{PacketID: uint16(i)})
	}
	id := tables.NextPacketID()
	assert.Equal(t, uint16(5), id)
}

func TestDequeueIfRoomRespectsReceiveMaximum(t *testing.T) {
	tables := NewTables()
	tables.Enqueue(&Pending{Out: &Outbound{Topic: "a"}, Token: 1})
	tables.Enqueue(&Pending{Out: &Outbound{Topic: "b"}, Token: 2})

	tables.PutOutbound(&Outbound{PacketID: 1})
	_, ok := tables.DequeueIfRoom(1)
	assert.False(t, ok, "no room: outbound already at max")

	tables.RemoveOutbound(1)
	p, ok := tables.DequeueIfRoom(1)
	require.True(t, ok)
	assert.Equal(t, "a", p.Out.Topic, "dequeue is FIFO")
	assert.Equal(t, 1, tables.PendingLen())
}

func TestResetClearsEveryTable(t *testing.T) {
	tables := NewTables()
	tables.PutOutbound(&Outbound{PacketID: 1})
	tables.PutInbound(&Inbound{PacketID: 2})
	tables.PutAck(3, 7)
	tables.Enqueue(&Pending{Out: &Outbound{}, Token: 1})

	tables.Reset()

	assert.Equal(t, 0, tables.OutboundCount())
	assert.Equal(t, 0, tables.PendingLen())
	_, ok := tables.GetInbound(2)
	assert.False(t, ok)
	_, ok = tables.TakeAck(3)
	assert.False(t, ok)
	// allocator restarts from 1 after a reset
	assert.Equal(t, uint16(1), tables.NextPacketID())
}

func TestOutboundInOrderIsSortedByPacketID(t *testing.T) {
	tables := NewTables()
	tables.PutOutbound(&Outbound{PacketID: 5})
	tables.PutOutbound(&Outbound{PacketID: 1})
	tables.PutOutbound(&Outbound{PacketID: 3})

	out := tables.OutboundInOrder()
	require.Len(t, out, 3)
	assert.Equal(t, []uint16{1, 3, 5}, []uint16{out[0].PacketID, out[1].PacketID, out[2].PacketID})
}
