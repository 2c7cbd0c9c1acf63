package esb

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
)

// engineState is the tagged state variant driving dispatch inside the
// radio's DISABLED callback. Using the state itself as the dispatch key —
// rather than a separately mutated function pointer, as the driver this is
// adapted from does — eliminates a class of bugs where state and handler
// drift out of sync (see SPEC_FULL.md's design notes).
type engineState uint8

const (
	StateIdle engineState = iota
	StatePTXTX
	StatePTXTXAck
	StatePTXRXAck
	StatePRX
	StatePRXSendAck
)

func (s engineState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePTXTX:
		return "PTX_TX"
	case StatePTXTXAck:
		return "PTX_TX_ACK"
	case StatePTXRXAck:
		return "PTX_RX_ACK"
	case StatePRX:
		return "PRX"
	case StatePRXSendAck:
		return "PRX_SEND_ACK"
	default:
		return "unknown"
	}
}

// Engine is the ESB protocol engine: a singleton bound to one radio
// peripheral. It is created by Init and destroyed by Disable, which also
// clears the FIFOs and pipe info.
type Engine struct {
	mu sync.Mutex

	initialized bool
	state       engineState

	cfg  Config
	addr AddressConfig

	radio  Radio
	timer  Timer
	router EventRouter

	chReady, chAddr, chCC0, chCC1 RoutingChannel
	chMaskAll, chMaskCC1          uint32

	txPool txPool
	rxFifo rxFIFO

	pipeInfo [MaxPipes]pipeInfo
	pids     [MaxPipes]uint8

	retransmitsRemaining uint16
	lastTxAttempts       uint32
	waitForAckTimeout    physic.Duration

	currentPayload *Payload

	txBuf [MaxPayloadLength + 2]byte
	rxBuf [MaxPayloadLength + 2]byte

	pending []Event
}

// New creates an Engine bound to the given radio, timer and event-routing
// collaborators. It does not touch hardware; call Init to do that.
func New(radio Radio, timer Timer, router EventRouter) *Engine {
	return &Engine{radio: radio, timer: timer, router: router}
}

// Init validates cfg, programs the radio, initializes the FIFOs, the
// timer and the event-routing fabric, and installs the radio callback.
// A misconfigured radio (invalid bitrate/protocol/mode, or a retransmit
// delay below the hardware minimum) makes Init return an error without
// leaving the engine initialized. Calling Init on an already-initialized
// engine first disables it, matching the original driver's double-init
// guard.
func (e *Engine) Init(cfg Config, addr AddressConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		e.disableLocked()
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}
	if addr.AddressLength < 3 || addr.AddressLength > 5 {
		return fmt.Errorf("%w: address_length must be 3..5", ErrInvalidArgument)
	}

	e.cfg = cfg
	e.addr = addr
	e.pending = nil
	e.pipeInfo = [MaxPipes]pipeInfo{}
	e.pids = [MaxPipes]uint8{}
	e.waitForAckTimeout = cfg.Bitrate.waitForAckTimeout()

	if err := e.radio.Configure(RadioParams{
		Protocol:      cfg.Protocol,
		CRC:           cfg.CRC,
		Bitrate:       cfg.Bitrate,
		AddressLength: addr.AddressLength,
	}); err != nil {
		return err
	}
	e.radio.SetTxPower(cfg.TxPower)
	if err := e.radio.SetChannel(addr.RFChannel); err != nil {
		return err
	}
	e.programAddresses()
	if cfg.Protocol == ProtocolESB {
		e.radio.SetPayloadLength(cfg.PayloadLength)
	}

	e.txPool.reset()
	e.rxFifo.reset()

	var err error
	if e.chReady, err = e.router.AllocateChannel(); err != nil {
		return err
	}
	if e.chAddr, err = e.router.AllocateChannel(); err != nil {
		return err
	}
	if e.chCC0, err = e.router.AllocateChannel(); err != nil {
		return err
	}
	if e.chCC1, err = e.router.AllocateChannel(); err != nil {
		return err
	}
	if err := e.router.Bind(e.chReady, EventRadioReady, TaskTimerStart); err != nil {
		return err
	}
	if err := e.router.Bind(e.chAddr, EventRadioAddress, TaskTimerShutdown); err != nil {
		return err
	}
	if err := e.router.Bind(e.chCC0, EventTimerCompare0, TaskRadioDisable); err != nil {
		return err
	}
	if err := e.router.Bind(e.chCC1, EventTimerCompare1, TaskRadioTXEN); err != nil {
		return err
	}
	e.chMaskAll = 1<<uint(e.chReady) | 1<<uint(e.chAddr) | 1<<uint(e.chCC0) | 1<<uint(e.chCC1)
	e.chMaskCC1 = 1 << uint(e.chCC1)

	e.radio.OnDisabled(e.handleDisabled)

	e.state = StateIdle
	e.initialized = true
	logInfo("esb: engine initialized, mode=" + modeString(cfg.Mode) + " protocol=" + cfg.Protocol.String())
	return nil
}

func modeString(m Mode) string {
	if m == ModePRX {
		return "PRX"
	}
	return "PTX"
}

func (e *Engine) programAddresses() {
	base0 := ConvertBaseAddress(e.addr.BaseAddr0)
	base1 := ConvertBaseAddress(e.addr.BaseAddr1)
	var p0, p1 [4]byte
	copy(p0[:], e.addr.Prefixes[0:4])
	copy(p1[:], e.addr.Prefixes[4:8])
	prefix0 := ConvertPrefixes(p0)
	prefix1 := ConvertPrefixes(p1)
	e.radio.SetAddresses(base0, base1, prefix0, prefix1)

	if e.cfg.EnableErrata143 && errata143Affected(e.addr) {
		if a, ok := e.radio.(interface{ ApplyErrata143() }); ok {
			a.ApplyErrata143()
			logWarn("esb: errata 143 workaround engaged")
		}
	}
}

// Disable stops the radio, disables event routing, and clears all engine
// state, including the FIFOs and pipe info.
func (e *Engine) Disable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disableLocked()
}

func (e *Engine) disableLocked() {
	if e.initialized {
		logDebug("esb: engine disabled")
	}
	e.router.Disable(e.chMaskAll)
	e.radio.Disable()
	e.radio.OnDisabled(nil)

	e.state = StateIdle
	e.initialized = false

	e.txPool.reset()
	e.rxFifo.reset()
	e.pipeInfo = [MaxPipes]pipeInfo{}
	e.pids = [MaxPipes]uint8{}
	e.pending = nil
}

// Suspend detaches event routing while remaining initialized. The engine
// must be Idle.
func (e *Engine) Suspend() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	e.router.Disable(e.chMaskAll)
	return nil
}

// IsIdle reports whether the engine is in state Idle.
func (e *Engine) IsIdle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StateIdle
}

// WritePayload enqueues a payload for transmission (PTX) or as an ACK
// payload candidate (PRX). In PTX mode with TxModeAuto and the engine
// Idle, it also starts a transmission before returning.
func (e *Engine) WritePayload(p Payload) error {
	e.mu.Lock()

	if !e.initialized {
		e.mu.Unlock()
		return ErrNotInitialized
	}
	if p.Length == 0 {
		e.mu.Unlock()
		return ErrInvalidArgument
	}
	if p.Length > MaxPayloadLength ||
		(e.cfg.Protocol == ProtocolESB && p.Length > e.cfg.PayloadLength) {
		e.mu.Unlock()
		return ErrTooLarge
	}
	if p.Pipe >= MaxPipes {
		e.mu.Unlock()
		return ErrInvalidArgument
	}
	if e.txPool.full() {
		e.mu.Unlock()
		return ErrQueueFull
	}

	e.pids[p.Pipe] = (e.pids[p.Pipe] + 1) % (pidMax + 1)
	p.PID = e.pids[p.Pipe]

	var shouldStart bool
	if e.cfg.Mode == ModePTX {
		e.txPool.pushBack(p)
		shouldStart = e.cfg.TxMode == TxModeAuto && e.state == StateIdle
	} else {
		if !e.txPool.ackEnqueue(p.Pipe, p) {
			e.mu.Unlock()
			return ErrQueueFull
		}
	}
	e.mu.Unlock()

	if shouldStart {
		e.mu.Lock()
		e.startTXTransaction()
		e.mu.Unlock()
	}
	return nil
}

// ReadRXPayload pops the oldest received payload into out.
func (e *Engine) ReadRXPayload(out *Payload) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	if !e.rxFifo.popFront(out) {
		return ErrQueueEmpty
	}
	return nil
}

// StartTX begins a transmission immediately; the engine must be Idle and
// the TX FIFO non-empty.
func (e *Engine) StartTX() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	if e.txPool.empty() {
		return ErrQueueEmpty
	}
	e.startTXTransaction()
	return nil
}

// StartRX enters PRX; the engine must be Idle.
func (e *Engine) StartRX() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	e.enterPRX()
	return nil
}

// StopRX leaves PRX, forcing the radio disabled and waiting for the
// transition to settle.
func (e *Engine) StopRX() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePRX && e.state != StatePRXSendAck {
		return ErrInvalidArgument
	}
	e.radio.SetShorts(0)
	e.radio.OnDisabled(nil)
	e.radio.Disable()
	e.radio.OnDisabled(e.handleDisabled)
	e.state = StateIdle
	return nil
}

// FlushTX clears the TX FIFO (and, in PRX mode, the ACK-payload registry).
func (e *Engine) FlushTX() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	e.txPool.reset()
	return nil
}

// PopTX discards the front entry of the TX FIFO without transmitting it.
func (e *Engine) PopTX() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	if e.txPool.empty() {
		return ErrQueueEmpty
	}
	e.txPool.popFront()
	return nil
}

// FlushRX clears the RX FIFO and resets per-pipe duplicate-detection state.
func (e *Engine) FlushRX() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	e.rxFifo.reset()
	e.pipeInfo = [MaxPipes]pipeInfo{}
	return nil
}

// ReusePID decrements pipe's PID counter by one (mod 4) so the next
// enqueue reuses the last PID, for manual retransmission of application
// data the caller has already transmitted once outside the engine's own
// retransmit logic.
func (e *Engine) ReusePID(pipe uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	if pipe >= MaxPipes {
		return ErrInvalidArgument
	}
	e.pids[pipe] = (e.pids[pipe] + pidMax) % (pidMax + 1)
	return nil
}

// RFChannel returns the configured RF channel; it has no state guard, as
// the underlying register is not touched to read it back.
func (e *Engine) RFChannel() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addr.RFChannel
}

// --- Setters, all requiring Idle to avoid racing the radio callback ---

func (e *Engine) SetRFChannel(channel uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	if channel > 100 {
		return ErrInvalidArgument
	}
	if err := e.radio.SetChannel(channel); err != nil {
		return err
	}
	e.addr.RFChannel = channel
	return nil
}

func (e *Engine) SetTxPower(power TxPower) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	e.cfg.TxPower = power
	e.radio.SetTxPower(power)
	return nil
}

func (e *Engine) SetBitrate(b Bitrate) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	switch b {
	case Bitrate1Mbps, Bitrate2Mbps, Bitrate250Kbps, Bitrate1MbpsBLE, Bitrate2MbpsBLE:
	default:
		return ErrInvalidArgument
	}
	e.cfg.Bitrate = b
	e.waitForAckTimeout = b.waitForAckTimeout()
	return e.radio.Configure(RadioParams{
		Protocol:      e.cfg.Protocol,
		CRC:           e.cfg.CRC,
		Bitrate:       b,
		AddressLength: e.addr.AddressLength,
	})
}

func (e *Engine) SetRetransmitDelay(delay physic.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	if delay < MinRetransmitDelay {
		return ErrInvalidArgument
	}
	e.cfg.RetransmitDelay = delay
	return nil
}

func (e *Engine) SetRetransmitCount(count uint16) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	e.cfg.RetransmitCount = count
	return nil
}

func (e *Engine) SetAddressLength(length uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	if length < 3 || length > 5 {
		return ErrInvalidArgument
	}
	e.addr.AddressLength = length
	return e.radio.Configure(RadioParams{
		Protocol:      e.cfg.Protocol,
		CRC:           e.cfg.CRC,
		Bitrate:       e.cfg.Bitrate,
		AddressLength: length,
	})
}

func (e *Engine) SetBaseAddress0(addr [4]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	e.addr.BaseAddr0 = addr
	e.programAddresses()
	return nil
}

func (e *Engine) SetBaseAddress1(addr [4]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	e.addr.BaseAddr1 = addr
	e.programAddresses()
	return nil
}

func (e *Engine) SetPrefixes(prefixes []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	if len(prefixes) == 0 || len(prefixes) > MaxPipes {
		return ErrInvalidArgument
	}
	copy(e.addr.Prefixes[:], prefixes)
	e.addr.RxPipesEnabled = byte(1<<uint(len(prefixes)) - 1)
	e.programAddresses()
	return nil
}

// UpdatePrefix updates a single pipe's address prefix, leaving the others
// and RxPipesEnabled untouched — distinct from SetPrefixes, which replaces
// the whole table.
func (e *Engine) UpdatePrefix(pipe, prefix uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	if pipe >= MaxPipes {
		return ErrInvalidArgument
	}
	e.addr.Prefixes[pipe] = prefix
	e.programAddresses()
	return nil
}

// EnablePipes sets which pipes are enabled for reception directly from a
// bitmask.
func (e *Engine) EnablePipes(mask uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return ErrBusy
	}
	e.addr.RxPipesEnabled = mask
	return nil
}
