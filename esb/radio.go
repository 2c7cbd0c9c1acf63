package esb

// RadioShorts is a bitmask of the compiled-in hardware short-cuts the radio
// peripheral supports: event-to-task wiring internal to the peripheral
// itself, distinct from the cross-peripheral EventRouter fabric.
type RadioShorts uint32

const (
	ShortReadyStart RadioShorts = 1 << iota
	ShortEndDisable
	ShortAddressRSSIStart
	ShortDisabledRSSIStop
	ShortDisabledRXEN
	ShortDisabledTXEN
)

// ShortsCommon is always present regardless of turnaround direction: the
// radio starts transmitting/receiving the instant it is ready, disables
// itself at the end of every packet, and samples RSSI across the packet
// body.
const ShortsCommon = ShortReadyStart | ShortEndDisable | ShortAddressRSSIStart | ShortDisabledRSSIStop

// RadioParams configures the radio's framing, CRC and data rate. It is
// programmed once at Init and again whenever a setter changes it while the
// engine is Idle.
type RadioParams struct {
	Protocol      Protocol
	CRC           CRCMode
	Bitrate       Bitrate
	AddressLength uint8
}

// Radio is the abstraction the engine drives. Its concrete, register-level
// implementation (radio peripheral programming, DPPI/PPI allocation, the
// interrupt controller) is an external collaborator out of scope for this
// module — only this interface is specified; see SPEC_FULL.md §11.1 and
// simRadio in simradio_test.go for a software reference implementation
// used by tests.
type Radio interface {
	// Configure programs the radio's protocol-wide parameters: bitrate,
	// CRC, address width and framing variant.
	Configure(p RadioParams) error
	// SetAddresses programs the converted base/prefix register values (see
	// ConvertBaseAddress/ConvertPrefixes).
	SetAddresses(base0, base1, prefix0, prefix1 uint32)
	// SetChannel programs the RF channel, 0..100.
	SetChannel(channel uint8) error
	// SetTxPower programs the power amplifier level.
	SetTxPower(power TxPower)
	// SetPayloadLength reprograms the fixed on-air payload length for ESB
	// (non-DPL) framing; ESB-DPL implementations may ignore it.
	SetPayloadLength(length uint8)
	// SetShorts programs the radio's compiled-in short-cuts.
	SetShorts(shorts RadioShorts)
	// SetBuffer points PACKETPTR at buf without starting a transaction.
	SetBuffer(buf []byte)
	// ArmTX selects the destination pipe, loads the channel/frequency, and
	// starts ramping up to transmit the buffer last set with SetBuffer.
	ArmTX(pipe uint8)
	// ArmRX selects the enabled receive pipes, loads the channel/frequency,
	// and starts ramping up to receive into the buffer last set with
	// SetBuffer.
	ArmRX(rxPipesMask uint8)
	// Disable forces the radio to DISABLED, regardless of its current
	// state, and blocks until the transition completes.
	Disable()
	// CRCOK reports whether the most recently completed reception passed
	// its CRC check. It is only meaningful immediately after a DISABLED
	// callback in a state that expects a reception; with no reception
	// having occurred (e.g. an ACK-wait timeout with no address match) it
	// reads false, folding "no EVENTS_END" and "bad CRC" into one signal,
	// since neither outcome should be treated as a successful exchange.
	CRCOK() bool
	// MatchedPipe returns the pipe number the most recent reception
	// matched.
	MatchedPipe() uint8
	// RXCRC returns the CRC value computed over the most recently received
	// packet, used for duplicate detection.
	RXCRC() uint16
	// RSSI returns the sampled received signal strength of the most recent
	// reception.
	RSSI() int8
	// OnDisabled installs the single callback invoked every time the radio
	// reaches DISABLED. Re-installing replaces the previous callback; the
	// engine installs exactly one, at Init, and dispatches internally by
	// state (see state.go), rather than swapping callbacks per transition.
	OnDisabled(fn func())
}
