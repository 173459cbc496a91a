package mqttclient

import (
	"errors"
	"fmt"

	"github.com/driftwave/mqttclient/engine"
)

// ErrInvalidArgument is returned by New when an Options value fails
// validation: go-playground/validator's struct-tag checks (URL, client-id
// length, protocol version) or the manual checks (retry-interval bounds,
// keepalive range, a Store for a persistent session), or when the URL
// cannot be parsed into a dialer, §7.
var ErrInvalidArgument = errors.New("mqttclient: invalid argument")

// ErrNotConnected is returned by operations that require an active
// connection (Publish, Subscribe, Unsubscribe, Disconnect) when no network
// loop is running: before Connect, or once the loop has stopped (after
// Disconnect, Destroy, or cancellation of Connect's ctx).
var ErrNotConnected = errors.New("mqttclient: not connected")

// ErrClientDestroyed is returned by Connect after Destroy, and is the error
// of every token still pending when Destroy runs. Other operations after
// Destroy fail with ErrNotConnected.
var ErrClientDestroyed = errors.New("mqttclient: client destroyed")

// Re-exported engine error kinds so callers inspecting a Token's Error()
// don't need to import the internal engine package directly.
var (
	ErrProtocolError    = engine.ErrProtocolError
	ErrConnectionRefused = engine.ErrConnectionRefused
	ErrDisconnected     = engine.ErrDisconnected
	ErrTimeout          = engine.ErrTimeout
)

func invalidArgument(field string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInvalidArgument, field, err)
}
