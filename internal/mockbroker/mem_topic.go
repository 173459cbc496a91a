package mockbroker

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/driftwave/mqttclient/packet"
)

// MemorySubscribed tracks, per topic name, which connections are
// currently subscribed to it.
type MemorySubscribed struct {
	maps map[string]*TopicSubscribed
	mu   sync.RWMutex
	s    *Server
}

func NewMemorySubscribed(s *Server) *MemorySubscribed {
	m := &MemorySubscribed{maps: make(map[string]*TopicSubscribed), s: s}
	go m.cleanEmptyTopics()
	return m
}

func (m *MemorySubscribed) Subscribe(c *conn) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ts := range m.maps {
		ts.Subscribe(c)
	}
}

func (m *MemorySubscribed) Unsubscribe(c *conn) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ts := range m.maps {
		ts.Unsubscribe(c)
	}
}

// Publish fans a message out to every connection subscribed to its
// topic, building the subscriber list lazily the first time a topic is
// published to.
func (m *MemorySubscribed) Publish(message *packet.Message, props *packet.PublishProperties) error {
	m.mu.RLock()
	sub, ok := m.maps[message.TopicName]
	m.mu.RUnlock()
	if !ok {
		sub = newTopicSubscribed(message.TopicName)
		m.s.mu.RLock()
		for c := range m.s.activeConn {
			sub.Subscribe(c)
		}
		m.s.mu.RUnlock()
		m.mu.Lock()
		m.maps[message.TopicName] = sub
		m.mu.Unlock()
	}
	return sub.Exchange(message, props)
}

func (m *MemorySubscribed) cleanEmptyTopics() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		m.mu.RLock()
		var empty []string
		for key, sub := range m.maps {
			if sub.Len() == 0 {
				empty = append(empty, key)
			}
		}
		m.mu.RUnlock()

		m.mu.Lock()
		for _, key := range empty {
			delete(m.maps, key)
		}
		m.mu.Unlock()
	}
}

// TopicSubscribed is the subscriber set for one topic name.
type TopicSubscribed struct {
	TopicName  string
	activeConn map[*conn]struct{}
	mux        sync.RWMutex
}

func newTopicSubscribed(topicName string) *TopicSubscribed {
	return &TopicSubscribed{TopicName: topicName, activeConn: make(map[*conn]struct{})}
}

func (s *TopicSubscribed) Subscribe(c *conn) {
	if _, ok := c.subscribeTopics.Find(s.TopicName); !ok {
		return
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.activeConn[c] = struct{}{}
}

func (s *TopicSubscribed) Len() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return len(s.activeConn)
}

func (s *TopicSubscribed) Unsubscribe(c *conn) int {
	s.mux.Lock()
	defer s.mux.Unlock()
	delete(s.activeConn, c)
	return len(s.activeConn)
}

func (s *TopicSubscribed) Exchange(message *packet.Message, props *packet.PublishProperties) error {
	s.mux.RLock()
	defer s.mux.RUnlock()
	group, _ := errgroup.WithContext(context.Background())
	for c := range s.activeConn {
		c := c
		resp := &response{conn: c}
		group.Go(func() error {
			pub := &packet.PUBLISH{FixedHeader: &packet.FixedHeader{Version: c.version, Kind: publish, Dup: 0, QoS: 1, Retain: 0}, Message: message, Props: props}
			log.Printf("mockbroker: publish topic=%s qos=%d retain=%d", message.TopicName, pub.QoS, pub.Retain)
			if pub.QoS > 0 {
				pub.PacketID = c.PacketID + 1
				c.PacketID = pub.PacketID
			}
			return resp.OnSend(pub)
		})
	}
	return group.Wait()
}
