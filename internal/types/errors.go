package types

import "errors"

// Error taxonomy from spec.md §7. Callers use errors.Is against these
// sentinels; collaborator-specific detail is wrapped with %w.
var (
	// ErrValidation: malformed submission, rejected at pipeline entry.
	ErrValidation = errors.New("validation error")
	// ErrNotFound: cancel for an unknown or already-filled order id.
	ErrNotFound = errors.New("not found")
	// ErrTransport: a market-data sink failed to deliver an event.
	ErrTransport = errors.New("transport error")
	// ErrPersistence: a trade/candle write failed; matching proceeds regardless.
	ErrPersistence = errors.New("persistence error")
	// ErrProtocol: unparseable input or an unknown command.
	ErrProtocol = errors.New("protocol error")
)
