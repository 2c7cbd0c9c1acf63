package esb

import "errors"

// Error taxonomy for the engine's public control surface. Every synchronous
// failure is one of these, returned directly rather than panicking; see
// §7 of the design for the propagation policy (asynchronous TX failure is
// reported through the event handler instead, never from WritePayload).
var (
	ErrNotInitialized  = errors.New("esb: engine not initialized")
	ErrBusy            = errors.New("esb: engine not idle")
	ErrInvalidArgument = errors.New("esb: invalid argument")
	ErrTooLarge        = errors.New("esb: payload too large")
	ErrQueueFull       = errors.New("esb: queue full")
	ErrQueueEmpty      = errors.New("esb: queue empty")
	ErrNoDevice        = errors.New("esb: no device")
)
