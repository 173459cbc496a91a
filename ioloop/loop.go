// Package ioloop is the network loop of §2's component F: one goroutine
// group per client multiplexing the transport.Stream read side, a write
// queue, and the keepalive ticker, fanning out via golang.org/x/sync/errgroup
// exactly as the teacher's client.go connectAndSubscribe does — generalized
// from a single connect-subscribe-serve sequence into a reconnecting loop
// driven by the protocol engine instead of direct conn.rwc writes.
package ioloop

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/driftwave/mqttclient/engine"
	"github.com/driftwave/mqttclient/packet"
	"github.com/driftwave/mqttclient/transport"
)

// Hooks lets the public client handle observe lifecycle events the loop
// can't resolve on its own (completions, the CONNECT payload itself, which
// carries credentials the loop doesn't own). Inbound message delivery is
// not one of these — the engine calls Callbacks.OnMessage directly, since
// the ack/redeliver decision has to be made before the loop can know
// whether to write anything back to the broker.
type Hooks interface {
	// BuildConnect returns the CONNECT packet to send right after dial.
	BuildConnect(eng *engine.Engine) *packet.CONNECT
	// OnPublishToken resolves a Publish() token once its ack lands.
	OnPublishToken(token uint64)
	// OnSubscribeResult resolves a Subscribe/Unsubscribe token.
	OnSubscribeResult(res engine.SubscribeResult)
}

// Loop owns one client's reconnect cycle.
type Loop struct {
	Engine  *engine.Engine
	Dialer  transport.Dialer
	Addr    string
	Hooks   Hooks
	Log     *zap.Logger
	Backoff backoff

	ConnectTimeout time.Duration

	mu     sync.Mutex
	stream transport.Stream
	outCh  chan packet.Packet
}

// New constructs a Loop. backoffMin/backoffMax follow spec.md §4.E's bounds;
// connectTimeout bounds the time a single CONNECT→CONNACK round trip may
// take before the dial attempt is abandoned and backoff applies.
func New(eng *engine.Engine, dialer transport.Dialer, addr string, hooks Hooks, log *zap.Logger, backoffMin, backoffMax, connectTimeout time.Duration) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		Engine:         eng,
		Dialer:         dialer,
		Addr:           addr,
		Hooks:          hooks,
		Log:            log,
		Backoff:        backoff{Min: backoffMin, Max: backoffMax},
		ConnectTimeout: connectTimeout,
		outCh:          make(chan packet.Packet, 64),
	}
}

// Run drives the reconnect loop until ctx is canceled, mirroring the
// teacher's ConnectAndSubscribe outer retry loop but with exponential
// backoff in place of a fixed 3-second timer.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := l.runOnce(ctx); err != nil {
			l.Log.Warn("mqtt connection cycle ended", zap.Error(err), zap.String("client_id", l.Engine.ClientID))
		}
		l.Engine.OnTransportLost()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.Backoff.Next()):
		}
	}
}

func (l *Loop) runOnce(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, l.ConnectTimeout)
	defer cancel()

	stream, err := l.Dialer.Dial(connectCtx, l.Addr)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.stream = stream
	l.mu.Unlock()
	defer stream.Close()

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error { return l.readPump(gctx, stream) })
	group.Go(func() error { return l.writePump(gctx, stream) })
	group.Go(func() error { return l.keepalivePump(gctx) })
	group.Go(func() error {
		connect := l.Hooks.BuildConnect(l.Engine)
		return l.send(gctx, connect)
	})
	group.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-connectCtx.Done():
		}
		if ctx.Err() == nil && l.Engine.State() != engine.Connected {
			_ = stream.Close()
			return engine.ErrTimeout
		}
		return nil
	})

	return group.Wait()
}

// RemoteAddr reports the current transport's peer address, or "" when not
// connected.
func (l *Loop) RemoteAddr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stream == nil {
		return ""
	}
	return l.stream.RemoteAddr()
}

// Submit enqueues a packet for the write pump. While the channel is full
// it blocks until room frees up or ctx is done, returning ctx.Err() in the
// latter case.
func (l *Loop) Submit(ctx context.Context, pkt packet.Packet) error {
	select {
	case l.outCh <- pkt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) send(ctx context.Context, pkt packet.Packet) error {
	return l.Submit(ctx, pkt)
}

func (l *Loop) writePump(ctx context.Context, stream transport.Stream) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pkt := <-l.outCh:
			if err := pkt.Pack(stream); err != nil {
				return transport.Closed(err)
			}
		}
	}
}

func (l *Loop) keepalivePump(ctx context.Context) error {
	if l.Engine.KeepAlive <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(l.Engine.KeepAlive / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			ping, timedOut := l.Engine.Tick(now)
			if timedOut {
				return engine.ErrTimeout
			}
			if ping != nil {
				if err := l.Submit(ctx, ping); err != nil {
					return err
				}
			}
		}
	}
}

func (l *Loop) readPump(ctx context.Context, stream transport.Stream) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		pkt, err := packet.Unpack(l.Engine.Version, stream)
		if err != nil {
			return err
		}
		if err := l.dispatch(ctx, pkt); err != nil {
			return err
		}
	}
}
