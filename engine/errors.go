package engine

import "errors"

// Error kinds surfaced to callers or callbacks, per §7.
var (
	ErrProtocolError    = errors.New("engine: protocol error")
	ErrMalformedPacket  = errors.New("engine: malformed packet")
	ErrTransportError   = errors.New("engine: transport error")
	ErrConnectionRefused = errors.New("engine: connection refused")
	ErrDisconnected     = errors.New("engine: disconnected")
	ErrTooManyInFlight  = errors.New("engine: too many in-flight messages")
	ErrPacketTooLarge   = errors.New("engine: packet too large")
	ErrPersistenceError = errors.New("engine: persistence error")
	ErrTimeout          = errors.New("engine: timeout")
	ErrOperationCanceled = errors.New("engine: operation canceled")
	ErrInvalidArgument  = errors.New("engine: invalid argument")
)
