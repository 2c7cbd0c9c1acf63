package esb

// EventID identifies which application-visible event occurred.
type EventID uint8

const (
	EventTXSuccess EventID = iota
	EventTXFailed
	EventRXReceived
)

func (e EventID) String() string {
	switch e {
	case EventTXSuccess:
		return "TX_SUCCESS"
	case EventTXFailed:
		return "TX_FAILED"
	case EventRXReceived:
		return "RX_RECEIVED"
	default:
		return "unknown"
	}
}

// Event is delivered to the registered EventHandler. TxAttempts is only
// meaningful on EventTXSuccess and EventTXFailed.
type Event struct {
	ID         EventID
	TxAttempts uint32
}

// EventHandler receives engine events. It is invoked from DispatchEvents,
// never directly from the radio callback, so it never runs nested inside
// the radio's DISABLED handling.
type EventHandler func(Event)

// raise queues ev for delivery on the next DispatchEvents call. Must be
// called with e.mu held; it is always called from within a radio-callback
// stack frame, mirroring the real hardware setting a pending bit from the
// higher-priority radio IRQ for the lower-priority event IRQ to drain
// later.
func (e *Engine) raise(id EventID) {
	e.pending = append(e.pending, Event{ID: id, TxAttempts: e.lastTxAttempts})
}

// DispatchEvents drains any events queued by the most recent radio
// callback and invokes the configured EventHandler for each, in the order
// raised. It is the Go analogue of the design's separate, lower-priority
// "engine-event" interrupt: collapsing the two hardware interrupt levels
// into one synchronous call is safe because Go's scheduler has no
// preemptive priority to preserve, and the happens-before relationship
// between a state transition and its event (§5) is maintained either way.
// Callers (simradio, or a real interrupt-controller binding) decide when to
// invoke it — immediately after the radio callback returns, or deferred
// onto another goroutine.
func (e *Engine) DispatchEvents() {
	e.mu.Lock()
	events := e.pending
	e.pending = nil
	handler := e.cfg.EventHandler
	e.mu.Unlock()

	if handler == nil {
		return
	}
	for _, ev := range events {
		handler(ev)
	}
}
