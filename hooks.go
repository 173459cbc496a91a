package mqttclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/driftwave/mqttclient/engine"
	"github.com/driftwave/mqttclient/packet"
)

// hooks bridges the engine's Callbacks interface and the network loop's
// Hooks interface back into one Client, kept as a separate unexported
// type so its method set never collides with Client's own public API
// (Client.OnMessage is a setter; hooks.OnMessage is the engine callback
// it ends up calling into).
type hooks struct{ c *Client }

func (h hooks) BuildConnect(_ *engine.Engine) *packet.CONNECT {
	return h.c.buildConnect()
}

func (h hooks) OnPublishToken(token uint64) {
	h.c.tokens.resolve(token, nil, nil)
}

func (h hooks) OnSubscribeResult(res engine.SubscribeResult) {
	for _, rc := range res.Reasons {
		if rc.Code >= 0x80 {
			h.c.tokens.resolve(res.Token, res.Reasons, fmt.Errorf("subscription refused: %w", rc))
			return
		}
	}
	h.c.tokens.resolve(res.Token, res.Reasons, nil)
}

func (h hooks) OnMessage(msg *packet.Message, qos uint8, retained bool) engine.ArrivalDecision {
	if h.c.deliver(msg, qos, retained) {
		return engine.Accepted
	}
	return engine.Refused
}

func (h hooks) OnComplete(token uint64, result any) {
	h.c.tokens.resolve(token, result, nil)
}

func (h hooks) OnFailure(token uint64, err error, reason string) {
	h.c.tokens.resolve(token, nil, fmt.Errorf("%s: %w", reason, err))
}

func (h hooks) OnStateChange(from, to engine.State) {
	h.c.log.Info("state change", zap.String("client_id", h.c.opts.ClientID), zap.Stringer("from", from), zap.Stringer("to", to))

	connected := to == engine.Connected
	if connected {
		h.c.metrics.ActiveConnections.Set(1)
	} else if to == engine.Disconnected {
		h.c.metrics.ActiveConnections.Set(0)
		h.c.metrics.ReconnectCount.Inc()
	}

	h.c.mu.Lock()
	token := h.c.connectToken
	if connected {
		h.c.connectToken = nil
	}
	h.c.mu.Unlock()
	if token != nil && connected {
		token.complete(nil, nil)
	}
}

func (h hooks) dispatch(fn func()) {
	if h.c.pool != nil {
		if err := h.c.pool.Submit(fn); err == nil {
			return
		}
	}
	fn()
}
