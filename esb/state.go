package esb

import "periph.io/x/conn/v3/physic"

// pipeDigit renders a pipe number (0..7) as a single ASCII digit, avoiding
// strconv/fmt in a path that can run on the no-alloc TinyGo build.
func pipeDigit(pipe uint8) string {
	if pipe > 9 {
		pipe = 9
	}
	return string([]byte{'0' + pipe})
}

// handleDisabled is installed once, at Init, as the radio's single DISABLED
// callback. It dispatches on the engine's current state rather than
// swapping a function pointer per transition, the way the driver this is
// adapted from reassigns on_radio_disabled at every state change.
func (e *Engine) handleDisabled() {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StatePTXTX:
		e.onDisabledTXNoAck()
	case StatePTXTXAck:
		e.onDisabledTX()
	case StatePTXRXAck:
		e.onDisabledTXWaitForAck()
	case StatePRX:
		e.onDisabledRX()
	case StatePRXSendAck:
		e.onDisabledRXAck()
	}
}

// startTXTransaction loads the head of the TX FIFO into the transmit
// buffer and arms the radio. Called with e.mu held, either directly from
// WritePayload/StartTX or re-entrantly from a DISABLED handler moving on
// to the next queued payload.
func (e *Engine) startTXTransaction() {
	e.lastTxAttempts = 1
	p := e.txPool.peekFront()
	e.currentPayload = p

	switch e.cfg.Protocol {
	case ProtocolESB:
		e.radio.SetPayloadLength(p.Length)
		EncodeESB(e.txBuf[:], p, p.Length)
		e.retransmitsRemaining = e.cfg.RetransmitCount
		e.radio.SetShorts(ShortsCommon | ShortDisabledRXEN)
		e.state = StatePTXTXAck

	case ProtocolESBDPL:
		ack := !p.NoAck || !e.cfg.SelectiveAutoAck
		EncodeESBDPL(e.txBuf[:], p)
		if ack {
			e.retransmitsRemaining = e.cfg.RetransmitCount
			e.radio.SetShorts(ShortsCommon | ShortDisabledRXEN)
			e.state = StatePTXTXAck
		} else {
			e.radio.SetShorts(ShortsCommon)
			e.state = StatePTXTX
		}
	}

	e.radio.SetBuffer(e.txBuf[:])
	e.radio.ArmTX(p.Pipe)
}

// onDisabledTXNoAck runs when a no-ack ESB-DPL transmission completes: the
// payload is consumed unconditionally and the next one, if any, starts
// immediately.
func (e *Engine) onDisabledTXNoAck() {
	e.raise(EventTXSuccess)
	e.txPool.popFront()

	if e.txPool.empty() {
		e.state = StateIdle
	} else {
		e.startTXTransaction()
	}
}

// onDisabledTX runs when the outbound packet itself finishes transmitting
// in a transaction that expects an ack; it arms the ack-wait window and
// the retransmit timer, then lets the radio's own RXEN shortcut (already
// programmed in startTXTransaction) carry it into listening mode with no
// further CPU intervention.
func (e *Engine) onDisabledTX() {
	e.radio.SetShorts(ShortsCommon)

	e.timer.SetCompare(0, e.waitForAckTimeout)
	e.timer.SetCompare(1, e.cfg.RetransmitDelay-130*physic.MicroSecond)
	e.timer.Clear()
	e.timer.Start()
	e.router.Enable(e.chMaskAll)
	e.router.Disable(e.chMaskCC1)

	if e.cfg.Protocol == ProtocolESB {
		e.radio.SetPayloadLength(0)
	}
	e.radio.SetBuffer(e.rxBuf[:])

	e.state = StatePTXRXAck
}

// onDisabledTXWaitForAck runs when the ack-wait window closes, either
// because an ack arrived (CRCOK) or the timeout elapsed first. On success
// it delivers the result and any carried ack payload, then either starts
// the next queued transmission or goes idle. On failure it either retries
// or, once retransmits are exhausted, reports failure and goes idle.
func (e *Engine) onDisabledTXWaitForAck() {
	e.router.Disable(e.chMaskAll)

	if e.radio.CRCOK() {
		e.timer.Shutdown()

		e.lastTxAttempts = uint32(e.cfg.RetransmitCount) - uint32(e.retransmitsRemaining) + 1
		e.raise(EventTXSuccess)
		e.txPool.popFront()

		if e.cfg.Protocol != ProtocolESB && e.rxBuf[0] > 0 {
			var ack Payload
			if DecodeESBDPL(e.rxBuf[:], &ack) {
				if slot := e.rxFifo.pushBack(); slot != nil {
					*slot = ack
					slot.Pipe = e.currentPayload.Pipe
					slot.RSSI = e.radio.RSSI()
					e.raise(EventRXReceived)
				}
			}
		}

		if e.txPool.empty() || e.cfg.TxMode == TxModeManual {
			e.state = StateIdle
		} else {
			e.startTXTransaction()
		}
		return
	}

	if e.retransmitsRemaining == 0 {
		e.timer.Shutdown()
		e.lastTxAttempts = uint32(e.cfg.RetransmitCount) + 1
		e.raise(EventTXFailed)
		e.state = StateIdle
		logWarn("esb: retransmits exhausted, pipe " + pipeDigit(e.currentPayload.Pipe))
		return
	}

	e.retransmitsRemaining--
	p := e.currentPayload
	e.radio.SetShorts(ShortsCommon | ShortDisabledRXEN)
	if e.cfg.Protocol == ProtocolESB {
		e.radio.SetPayloadLength(p.Length)
	}
	e.radio.SetBuffer(e.txBuf[:])
	e.state = StatePTXTXAck

	e.timer.Start()
	e.router.Enable(e.chMaskCC1)
	if e.timer.CompareElapsed(1) {
		e.radio.ArmTX(p.Pipe)
	}
}

// clearEventsRestartRX drops whatever was just received (bad CRC, a full
// RX FIFO, or a packet that does not warrant an ack) and
// forces the radio back into listening mode without involving the
// application.
func (e *Engine) clearEventsRestartRX() {
	e.radio.SetShorts(ShortsCommon)
	e.radio.SetPayloadLength(e.cfg.PayloadLength)
	e.radio.SetBuffer(e.rxBuf[:])
	e.radio.Disable()
	e.radio.SetShorts(ShortsCommon | ShortDisabledTXEN)
	e.radio.ArmRX(e.addr.RxPipesEnabled)
}

// onDisabledRXDPL prepares the ack-payload queued for pipe, if any, to
// ride out on the ack this engine is about to send, advancing the
// per-pipe ack-payload registry when the previous head has just been
// delivered (acked by this same peer, not merely retransmitted to us).
func (e *Engine) onDisabledRXDPL(pipe uint8, retransmit bool, pinfo *pipeInfo) {
	var current *Payload

	if !e.txPool.empty() {
		current = e.txPool.ackHeadPayload(pipe)
		if current != nil && pinfo.ackPayload && !retransmit {
			e.txPool.ackPop(pipe)
			current = e.txPool.ackHeadPayload(pipe)
			e.raise(EventTXSuccess)
		}
	}

	if current != nil {
		pinfo.ackPayload = true
		e.radio.SetPayloadLength(current.Length)
		e.txBuf[0] = current.Length
		copy(e.txBuf[2:2+int(current.Length)], current.Data[:current.Length])
	} else {
		pinfo.ackPayload = false
		e.radio.SetPayloadLength(0)
		e.txBuf[0] = 0
	}
	e.txBuf[1] = e.rxBuf[1]
}

// onDisabledRX runs on every packet reception while listening. A bad CRC
// or a full RX FIFO restarts listening with no further action. Otherwise
// it decides, per pipe, whether this is a fresh packet or a retransmit of
// one already delivered (by comparing stored CRC and PID), arms an ack if
// one is warranted, and pushes fresh data to the RX FIFO.
func (e *Engine) onDisabledRX() {
	if !e.radio.CRCOK() {
		e.clearEventsRestartRX()
		return
	}
	if e.rxFifo.full() {
		e.clearEventsRestartRX()
		return
	}

	pipe := e.radio.MatchedPipe()
	pinfo := &e.pipeInfo[pipe]

	rxCRC := e.radio.RXCRC()
	rxPID := e.rxBuf[1] >> 1

	retransmit := false
	sendRXEvent := true
	if rxCRC == pinfo.crc && rxPID == pinfo.pid {
		retransmit = true
		sendRXEvent = false
		logDebug("esb: duplicate suppressed, pipe " + pipeDigit(pipe))
	}
	pinfo.pid = rxPID
	pinfo.crc = rxCRC

	if !e.cfg.SelectiveAutoAck || e.rxBuf[1]&0x01 == 1 {
		e.radio.SetShorts(ShortsCommon | ShortDisabledRXEN)

		switch e.cfg.Protocol {
		case ProtocolESBDPL:
			e.onDisabledRXDPL(pipe, retransmit, pinfo)
		case ProtocolESB:
			e.radio.SetPayloadLength(0)
			e.txBuf[0] = e.rxBuf[0]
			e.txBuf[1] = 0
		}

		e.state = StatePRXSendAck
		e.radio.SetBuffer(e.txBuf[:])
		e.radio.ArmTX(pipe)
	} else {
		e.clearEventsRestartRX()
	}

	if !sendRXEvent {
		return
	}

	var p Payload
	ok := true
	if e.cfg.Protocol == ProtocolESBDPL {
		ok = DecodeESBDPL(e.rxBuf[:], &p)
	} else {
		p.Length = e.cfg.PayloadLength
		copy(p.Data[:p.Length], e.rxBuf[2:2+int(p.Length)])
	}
	if !ok {
		return
	}
	p.Pipe = pipe
	p.RSSI = e.radio.RSSI()
	p.PID = pinfo.pid
	p.NoAck = e.rxBuf[1]&0x01 == 0

	if slot := e.rxFifo.pushBack(); slot != nil {
		*slot = p
		e.raise(EventRXReceived)
	}
}

// onDisabledRXAck runs once this engine's own ack has finished
// transmitting. It reprograms the shortcut so that the next packet this
// pipe receives automatically carries straight into sending its own ack,
// with no CPU intervention on the turnaround.
func (e *Engine) onDisabledRXAck() {
	e.radio.SetShorts(ShortsCommon | ShortDisabledTXEN)
	e.radio.SetPayloadLength(e.cfg.PayloadLength)
	e.radio.SetBuffer(e.rxBuf[:])
	e.state = StatePRX
}

// enterPRX arms the radio to listen on the enabled pipes; used by StartRX.
func (e *Engine) enterPRX() {
	e.radio.SetShorts(ShortsCommon | ShortDisabledTXEN)
	e.radio.SetPayloadLength(e.cfg.PayloadLength)
	e.radio.SetBuffer(e.rxBuf[:])
	e.radio.ArmRX(e.addr.RxPipesEnabled)
	e.state = StatePRX
}
