package ioloop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/driftwave/mqttclient/engine"
	"github.com/driftwave/mqttclient/packet"
	"github.com/driftwave/mqttclient/session"
)

type noopCallbacks struct{}

func (noopCallbacks) OnMessage(*packet.Message, uint8, bool) engine.ArrivalDecision {
	return engine.Accepted
}
func (noopCallbacks) OnComplete(uint64, any)           {}
func (noopCallbacks) OnFailure(uint64, error, string)  {}
func (noopCallbacks) OnStateChange(from, to engine.State) {}

type noopHooks struct{}

func (noopHooks) BuildConnect(*engine.Engine) *packet.CONNECT { return &packet.CONNECT{} }
func (noopHooks) OnPublishToken(uint64)                       {}
func (noopHooks) OnSubscribeResult(engine.SubscribeResult)    {}

func newTestLoop(dialer *MockDialer) *Loop {
	eng := engine.New("c", packet.VERSION311, session.NewTables(), nil, false, 10, 0, noopCallbacks{})
	return New(eng, dialer, "broker:1883", noopHooks{}, nil, time.Millisecond, 5*time.Millisecond, 20*time.Millisecond)
}

// TestRunRetriesWithBackoffUntilContextCanceled exercises Run's reconnect
// loop against a dialer that always fails, the same role the teacher's
// ConnectAndSubscribe retry loop plays against a down broker — except here
// the failure is driven by a mock instead of actually refusing a socket.
func TestRunRetriesWithBackoffUntilContextCanceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dialer := NewMockDialer(ctrl)
	dialer.EXPECT().
		Dial(gomock.Any(), "broker:1883").
		Return(nil, errors.New("connection refused")).
		MinTimes(2)

	loop := newTestLoop(dialer)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestRemoteAddrIsEmptyBeforeAnySuccessfulDial guards the zero-value case:
// a Loop that has never completed a dial reports no remote address rather
// than panicking on a nil stream.
func TestRemoteAddrIsEmptyBeforeAnySuccessfulDial(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	loop := newTestLoop(NewMockDialer(ctrl))
	assert.Equal(t, "", loop.RemoteAddr())
}
