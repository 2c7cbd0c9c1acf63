package esb

// txPool is the fixed backing store shared by the TX FIFO (PTX role) and
// the ACK-payload registry (PRX role). Exactly one of the two usage
// patterns is active for a given engine instance: PTX enqueues/dequeues
// through the plain ring (front/back/count), PRX threads entries through
// the per-pipe linked list (next[], ackHead[]) drawn from the same slots
// array, mirroring a single backing array referenced by both `tx_fifo` and
// `ack_pl_wrap` in the driver this is adapted from.
type txPool struct {
	slots [TXFIFOSize]Payload
	inUse [TXFIFOSize]bool
	next  [TXFIFOSize]int // ack-registry singly linked list; -1 terminates.

	front, back, count int

	ackHead [MaxPipes]int // per-pipe head index into slots; -1 if empty.
}

func newTXPool() *txPool {
	p := &txPool{}
	p.reset()
	return p
}

func (p *txPool) reset() {
	p.front, p.back, p.count = 0, 0, 0
	for i := range p.inUse {
		p.inUse[i] = false
		p.next[i] = -1
	}
	for i := range p.ackHead {
		p.ackHead[i] = -1
	}
}

func (p *txPool) full() bool  { return p.count >= TXFIFOSize }
func (p *txPool) empty() bool { return p.count == 0 }

// --- PTX ring: push-back, peek-front, pop-front, clear ---

// pushBack copies pl into the back slot and returns a pointer to the stored
// copy so the caller can stamp fields (PID) after enqueuing.
func (p *txPool) pushBack(pl Payload) *Payload {
	slot := &p.slots[p.back]
	*slot = pl
	p.back = (p.back + 1) % TXFIFOSize
	p.count++
	return slot
}

func (p *txPool) peekFront() *Payload {
	if p.empty() {
		return nil
	}
	return &p.slots[p.front]
}

func (p *txPool) popFront() {
	if p.empty() {
		return
	}
	p.front = (p.front + 1) % TXFIFOSize
	p.count--
}

// --- PRX ack-payload registry ---

func (p *txPool) findFreeSlot() int {
	for i, used := range p.inUse {
		if !used {
			return i
		}
	}
	return -1
}

// ackEnqueue stores pl in a free slot and appends it to pipe's ACK list. It
// reports whether a free slot was available.
func (p *txPool) ackEnqueue(pipe uint8, pl Payload) bool {
	idx := p.findFreeSlot()
	if idx < 0 {
		return false
	}
	p.slots[idx] = pl
	p.inUse[idx] = true
	p.next[idx] = -1

	if p.ackHead[pipe] < 0 {
		p.ackHead[pipe] = idx
	} else {
		cur := p.ackHead[pipe]
		for p.next[cur] >= 0 {
			cur = p.next[cur]
		}
		p.next[cur] = idx
	}
	p.count++
	return true
}

// ackHeadPayload returns the pipe's head ACK payload, or nil if the list is
// empty.
func (p *txPool) ackHeadPayload(pipe uint8) *Payload {
	idx := p.ackHead[pipe]
	if idx < 0 {
		return nil
	}
	return &p.slots[idx]
}

// ackPop unlinks and frees the pipe's head entry, once it has been
// delivered.
func (p *txPool) ackPop(pipe uint8) {
	idx := p.ackHead[pipe]
	if idx < 0 {
		return
	}
	p.inUse[idx] = false
	p.ackHead[pipe] = p.next[idx]
	p.next[idx] = -1
	if p.count > 0 {
		p.count--
	}
}

// rxFIFO is the bounded ring of received payloads, pushed only from the
// radio callback and popped only from application context.
type rxFIFO struct {
	slots [RXFIFOSize]Payload
	front, back, count int
}

func (f *rxFIFO) reset() { f.front, f.back, f.count = 0, 0, 0 }

func (f *rxFIFO) full() bool  { return f.count >= RXFIFOSize }
func (f *rxFIFO) empty() bool { return f.count == 0 }

// pushBack returns a pointer to the next free slot for the caller to fill,
// or nil if the FIFO is full.
func (f *rxFIFO) pushBack() *Payload {
	if f.full() {
		return nil
	}
	slot := &f.slots[f.back]
	f.back = (f.back + 1) % RXFIFOSize
	f.count++
	return slot
}

// popFront copies the front entry into out and advances the ring. It
// reports whether an entry was available.
func (f *rxFIFO) popFront(out *Payload) bool {
	if f.empty() {
		return false
	}
	*out = f.slots[f.front]
	f.front = (f.front + 1) % RXFIFOSize
	f.count--
	return true
}
