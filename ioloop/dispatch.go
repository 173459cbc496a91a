package ioloop

import (
	"context"
	"fmt"

	"github.com/driftwave/mqttclient/engine"
	"github.com/driftwave/mqttclient/packet"
)

// dispatch routes one decoded inbound packet to the engine and forwards
// whatever it produces — an ack to write, a resolved token — to the write
// pump or the client handle's hooks; inbound messages reach the client
// through the engine's own Callbacks.OnMessage. Grounded on
// client.go's ServeMessage switch, generalized from a single-select read
// into a dispatch over every packet kind the engine understands.
func (l *Loop) dispatch(ctx context.Context, pkt packet.Packet) error {
	switch p := pkt.(type) {
	case *packet.CONNACK:
		resend, err := l.Engine.HandleConnack(p)
		if err != nil {
			return err
		}
		l.Backoff.Reset()
		for _, r := range resend {
			if err := l.Submit(ctx, r); err != nil {
				return err
			}
		}
		return nil

	case *packet.PUBLISH:
		res, err := l.Engine.HandlePublish(p)
		if err != nil {
			return err
		}
		if res.Ack != nil {
			if err := l.Submit(ctx, res.Ack); err != nil {
				return err
			}
		}
		return nil

	case *packet.PUBACK:
		if token, ok := l.Engine.HandlePuback(p); ok {
			l.Hooks.OnPublishToken(token)
			l.drainPending(ctx)
		}
		return nil

	case *packet.PUBREC:
		rel, ok := l.Engine.HandlePubrec(p)
		if !ok {
			return nil
		}
		return l.Submit(ctx, rel)

	case *packet.PUBREL:
		res, err := l.Engine.HandlePubrel(p)
		if err != nil {
			return err
		}
		if res.Ack != nil {
			if err := l.Submit(ctx, res.Ack); err != nil {
				return err
			}
		}
		return nil

	case *packet.PUBCOMP:
		token, ok, err := l.Engine.HandlePubcomp(p)
		if err != nil {
			return err
		}
		if ok {
			l.Hooks.OnPublishToken(token)
			l.drainPending(ctx)
		}
		return nil

	case *packet.SUBACK:
		if res, ok := l.Engine.HandleSuback(p); ok {
			l.Hooks.OnSubscribeResult(res)
		}
		return nil

	case *packet.UNSUBACK:
		if res, ok := l.Engine.HandleUnsuback(p); ok {
			l.Hooks.OnSubscribeResult(res)
		}
		return nil

	case *packet.PINGRESP:
		l.Engine.HandlePingresp(p)
		return nil

	case *packet.DISCONNECT:
		return fmt.Errorf("%w: server closed the connection", engine.ErrDisconnected)

	default:
		return nil
	}
}

func (l *Loop) drainPending(ctx context.Context) {
	for {
		pkt, ok, err := l.Engine.DrainPending()
		if err != nil || !ok {
			return
		}
		if err := l.Submit(ctx, pkt); err != nil {
			return
		}
	}
}
