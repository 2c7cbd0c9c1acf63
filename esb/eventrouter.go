package esb

import "periph.io/x/conn/v3/physic"

// RoutingEvent identifies a peripheral event that can be published onto the
// routing fabric.
type RoutingEvent uint8

const (
	EventRadioReady RoutingEvent = iota
	EventRadioAddress
	EventTimerCompare0
	EventTimerCompare1
)

// RoutingTask identifies a peripheral task a routing channel can trigger.
type RoutingTask uint8

const (
	TaskTimerStart RoutingTask = iota
	TaskTimerShutdown
	TaskRadioDisable
	TaskRadioTXEN
)

// RoutingChannel is an allocated channel handle on the event-routing
// fabric (PPI/DPPI).
type RoutingChannel uint32

// EventRouter models the peripheral-to-peripheral event routing fabric:
// allocate a channel, bind it to one (source event, destination task) pair,
// then enable or disable a bitmask of channels. Binding happens once, at
// Init; thereafter the engine only toggles channels on and off as it moves
// between states, never re-binds them.
type EventRouter interface {
	AllocateChannel() (RoutingChannel, error)
	Bind(ch RoutingChannel, source RoutingEvent, dest RoutingTask) error
	Enable(mask uint32)
	Disable(mask uint32)
}

// Timer is the 1 MHz, 16-bit hardware timer used to bound the ACK wait and
// to re-arm the next retransmit, per the external interfaces in §6 of the
// design. Its two compare events are published onto the EventRouter fabric
// (see Engine.Init) rather than handled by a CPU interrupt.
type Timer interface {
	SetCompare(channel int, value physic.Duration)
	Clear()
	Start()
	Shutdown()
	// CompareElapsed reports whether the given compare channel has already
	// fired. The retransmit retry path uses this to cover the race where
	// CC1 elapses in the brief window between re-arming the timer and
	// re-enabling its routing channel, in which case the engine must kick
	// TXEN itself rather than rely on the routed event.
	CompareElapsed(channel int) bool
}
