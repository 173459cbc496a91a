package mqttclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwave/mqttclient/internal/mockbroker"
)

// startMockBroker binds a free loopback port and serves the mock broker on
// it until ctx is canceled, grounded on the teacher's own integration_test.go
// which stood up its broker the same way: bind a real socket, point a real
// client at it, assert end to end.
func startMockBroker(t *testing.T, ctx context.Context, auth mockbroker.Auth) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := mockbroker.NewServer(ctx, auth)
	go func() { _ = srv.Serve(ln) }()
	return ln.Addr().String()
}

func TestClientPublishSubscribeRoundTripAgainstMockBroker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr := startMockBroker(t, ctx, nil)

	received := make(chan string, 1)
	c, err := New(
		WithURL("mqtt://"+addr),
		WithClientID("integration-sub"),
	)
	require.NoError(t, err)
	c.OnMessage(func(topic string, payload []byte, qos uint8, retained bool) bool {
		received <- string(payload)
		return true
	})

	require.NoError(t, c.WaitForCompletion(c.Connect(ctx), 5*time.Second))
	require.NoError(t, c.WaitForCompletion(c.Subscribe("bench/+", 1), 5*time.Second))

	pub, err := New(WithURL("mqtt://"+addr), WithClientID("integration-pub"))
	require.NoError(t, err)
	require.NoError(t, pub.WaitForCompletion(pub.Connect(ctx), 5*time.Second))
	require.NoError(t, pub.WaitForCompletion(pub.Publish("bench/topic", []byte("hello"), 1, false), 5*time.Second))

	select {
	case payload := <-received:
		assert.Equal(t, "hello", payload)
	case <-time.After(5 * time.Second):
		t.Fatal("message was never delivered")
	}

	assert.NoError(t, c.Destroy(2*time.Second))
	assert.NoError(t, pub.Destroy(2*time.Second))
}

func TestClientConnectFailsWithBadCredentials(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr := startMockBroker(t, ctx, mockbroker.Auth{"alice": "correct-horse"})

	c, err := New(
		WithURL("mqtt://"+addr),
		WithClientID("integration-badauth"),
		WithCredentials("alice", "wrong"),
	)
	require.NoError(t, err)
	defer c.Destroy(2 * time.Second)

	err = c.WaitForCompletion(c.Connect(ctx), 5*time.Second)
	assert.Error(t, err, "a wrong password must be refused, not silently accepted")
}
