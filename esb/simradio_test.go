package esb

import "periph.io/x/conn/v3/physic"

// simRadio is a software fake of the Radio abstraction, in the spirit of
// the teacher's mockSPIConn/mockPin: no real hardware, just enough state
// to let a test script decide the outcome of each simulated transaction
// (CRC pass/fail, which pipe matched, what RSSI was sampled) and to record
// what was armed so a test can assert on it afterwards.
type simRadio struct {
	shorts  RadioShorts
	buf     []byte
	plLen   uint8
	channel uint8
	rxMask  uint8
	power   TxPower

	crcOK       bool
	matchedPipe uint8
	rxCRC       uint16
	rssi        int8

	armed    []armEvent
	disabled func()

	errata143Applied bool
	configureErr     error
	channelErr       error
}

type armEvent struct {
	TX   bool
	Pipe uint8
	Mask uint8
	Data []byte
}

func (r *simRadio) Configure(RadioParams) error { return r.configureErr }
func (r *simRadio) SetAddresses(base0, base1, prefix0, prefix1 uint32) {}
func (r *simRadio) SetChannel(ch uint8) error {
	r.channel = ch
	return r.channelErr
}
func (r *simRadio) SetTxPower(p TxPower)      { r.power = p }
func (r *simRadio) SetPayloadLength(l uint8)  { r.plLen = l }
func (r *simRadio) SetShorts(s RadioShorts)   { r.shorts = s }
func (r *simRadio) SetBuffer(buf []byte)      { r.buf = buf }

func (r *simRadio) ArmTX(pipe uint8) {
	data := make([]byte, len(r.buf))
	copy(data, r.buf)
	r.armed = append(r.armed, armEvent{TX: true, Pipe: pipe, Data: data})
}

func (r *simRadio) ArmRX(mask uint8) {
	r.rxMask = mask
	r.armed = append(r.armed, armEvent{TX: false, Mask: mask})
}

func (r *simRadio) Disable() {}

func (r *simRadio) CRCOK() bool        { return r.crcOK }
func (r *simRadio) MatchedPipe() uint8 { return r.matchedPipe }
func (r *simRadio) RXCRC() uint16      { return r.rxCRC }
func (r *simRadio) RSSI() int8         { return r.rssi }

func (r *simRadio) OnDisabled(fn func()) { r.disabled = fn }

func (r *simRadio) ApplyErrata143() { r.errata143Applied = true }

// lastArmedTX returns the bytes most recently handed to ArmTX.
func (r *simRadio) lastArmedTX() []byte {
	for i := len(r.armed) - 1; i >= 0; i-- {
		if r.armed[i].TX {
			return r.armed[i].Data
		}
	}
	return nil
}

// txCount reports how many times ArmTX has been invoked.
func (r *simRadio) txCount() int {
	n := 0
	for _, a := range r.armed {
		if a.TX {
			n++
		}
	}
	return n
}

// simTimer is a no-op Timer fake; the engine's retransmit/ack-timeout
// sequencing is driven directly by the test calling Engine.handleDisabled
// at the points a real CC0/CC1 compare event would fire, so the timer
// itself has nothing to simulate beyond recording that it was programmed.
type simTimer struct {
	compare  [2]physic.Duration
	started  bool
	shutdown bool
}

func (t *simTimer) SetCompare(ch int, v physic.Duration) { t.compare[ch] = v }
func (t *simTimer) Clear()                               {}
func (t *simTimer) Start()                               { t.started = true }
func (t *simTimer) Shutdown()                            { t.shutdown = true }

// CompareElapsed always reports true: the test drives the engine
// synchronously, one handleDisabled call at a time, so a retransmit's
// re-arm is always "already due" by the time the engine asks — there is no
// wall clock for it to race against.
func (t *simTimer) CompareElapsed(int) bool { return true }

// simRouter is a no-op EventRouter fake that hands out incrementing
// channel handles and records binds/enables for assertions, mirroring the
// style of the teacher's hand-rolled fakes over a richer mocking library.
type simRouter struct {
	next  RoutingChannel
	binds []struct {
		ch     RoutingChannel
		source RoutingEvent
		dest   RoutingTask
	}
	enabled uint32
}

func (r *simRouter) AllocateChannel() (RoutingChannel, error) {
	ch := r.next
	r.next++
	return ch, nil
}

func (r *simRouter) Bind(ch RoutingChannel, source RoutingEvent, dest RoutingTask) error {
	r.binds = append(r.binds, struct {
		ch     RoutingChannel
		source RoutingEvent
		dest   RoutingTask
	}{ch, source, dest})
	return nil
}

func (r *simRouter) Enable(mask uint32)  { r.enabled |= mask }
func (r *simRouter) Disable(mask uint32) { r.enabled &^= mask }

// newTestEngine builds an Engine wired to fresh fakes and initializes it
// with cfg/addr, failing the test immediately on error.
func newTestEngine(cfg Config, addr AddressConfig) (*Engine, *simRadio) {
	radio := &simRadio{}
	e := New(radio, &simTimer{}, &simRouter{})
	if err := e.Init(cfg, addr); err != nil {
		panic(err)
	}
	return e, radio
}

// deliver copies data into dst's receive buffer and simulates the radio
// event routing that would drive dst's state machine on actual reception:
// set the fake's status registers and invoke the callback exactly as a
// radio DISABLED interrupt would. If dst is still sending the ack for its
// previous reception, that ack's own DISABLED is delivered first, since
// the radio only listens again once the ack has gone out.
func deliver(dst *Engine, dstRadio *simRadio, data []byte, pipe uint8, rxCRC uint16, crcOK bool, rssi int8) {
	if dst.state == StatePRXSendAck {
		dst.handleDisabled()
	}
	n := copy(dst.rxBuf[:], data)
	for i := n; i < len(dst.rxBuf); i++ {
		dst.rxBuf[i] = 0
	}
	dstRadio.crcOK = crcOK
	dstRadio.matchedPipe = pipe
	dstRadio.rxCRC = rxCRC
	dstRadio.rssi = rssi
	dst.handleDisabled()
}
