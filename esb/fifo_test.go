package esb

import "testing"

func TestTXPoolRingBounds(t *testing.T) {
	p := newTXPool()
	for i := 0; i < TXFIFOSize; i++ {
		p.pushBack(Payload{Pipe: uint8(i % MaxPipes), Length: 1})
	}
	if !p.full() {
		t.Fatal("expected pool full after TXFIFOSize pushes")
	}

	// Invariant 6: the ring never overwrites; callers must check full()
	// before pushBack. peekFront/popFront should still see exactly
	// TXFIFOSize entries, oldest first.
	for i := 0; i < TXFIFOSize; i++ {
		front := p.peekFront()
		if front == nil {
			t.Fatalf("peekFront nil at iteration %d", i)
		}
		if front.Pipe != uint8(i%MaxPipes) {
			t.Errorf("iteration %d: front.Pipe = %d, want %d", i, front.Pipe, i%MaxPipes)
		}
		p.popFront()
	}
	if !p.empty() {
		t.Error("expected pool empty after popping every entry")
	}
}

func TestAckRegistryFIFOPerPipe(t *testing.T) {
	p := newTXPool()
	if !p.ackEnqueue(1, Payload{Length: 1, Data: [MaxPayloadLength]byte{1}}) {
		t.Fatal("ackEnqueue failed unexpectedly")
	}
	if !p.ackEnqueue(1, Payload{Length: 1, Data: [MaxPayloadLength]byte{2}}) {
		t.Fatal("ackEnqueue failed unexpectedly")
	}
	if !p.ackEnqueue(2, Payload{Length: 1, Data: [MaxPayloadLength]byte{9}}) {
		t.Fatal("ackEnqueue failed unexpectedly")
	}

	head := p.ackHeadPayload(1)
	if head == nil || head.Data[0] != 1 {
		t.Fatalf("pipe 1 head = %+v, want Data[0]=1", head)
	}
	p.ackPop(1)
	head = p.ackHeadPayload(1)
	if head == nil || head.Data[0] != 2 {
		t.Fatalf("pipe 1 head after pop = %+v, want Data[0]=2", head)
	}

	other := p.ackHeadPayload(2)
	if other == nil || other.Data[0] != 9 {
		t.Fatalf("pipe 2 head = %+v, want Data[0]=9, unaffected by pipe 1's list", other)
	}

	p.ackPop(1)
	if p.ackHeadPayload(1) != nil {
		t.Error("pipe 1 list should be empty after popping both entries")
	}
}

func TestAckRegistryCountMatchesInUseSlots(t *testing.T) {
	p := newTXPool()
	p.ackEnqueue(0, Payload{Length: 1})
	p.ackEnqueue(0, Payload{Length: 1})
	p.ackEnqueue(3, Payload{Length: 1})
	if p.count != 3 {
		t.Errorf("count = %d, want 3", p.count)
	}
	inUse := 0
	for _, u := range p.inUse {
		if u {
			inUse++
		}
	}
	if inUse != p.count {
		t.Errorf("in-use slots = %d, count = %d, want equal", inUse, p.count)
	}

	p.ackPop(0)
	if p.count != 2 {
		t.Errorf("count after pop = %d, want 2", p.count)
	}
}

func TestAckRegistryExhaustsSharedBackingStore(t *testing.T) {
	p := newTXPool()
	for i := 0; i < TXFIFOSize; i++ {
		if !p.ackEnqueue(0, Payload{Length: 1}) {
			t.Fatalf("ackEnqueue failed at slot %d, want all %d to succeed", i, TXFIFOSize)
		}
	}
	if p.ackEnqueue(0, Payload{Length: 1}) {
		t.Error("ackEnqueue succeeded beyond the shared backing store's capacity")
	}
}

func TestRXFIFORing(t *testing.T) {
	var f rxFIFO
	f.reset()
	for i := 0; i < RXFIFOSize; i++ {
		slot := f.pushBack()
		if slot == nil {
			t.Fatalf("pushBack %d returned nil before full", i)
		}
		slot.Pipe = uint8(i)
	}
	if !f.full() {
		t.Fatal("expected RX FIFO full")
	}
	if f.pushBack() != nil {
		t.Error("pushBack on a full FIFO should return nil")
	}

	for i := 0; i < RXFIFOSize; i++ {
		var out Payload
		if !f.popFront(&out) {
			t.Fatalf("popFront %d failed unexpectedly", i)
		}
		if out.Pipe != uint8(i) {
			t.Errorf("popFront %d: Pipe = %d, want %d (FIFO order)", i, out.Pipe, i)
		}
	}
	var out Payload
	if f.popFront(&out) {
		t.Error("popFront on an empty FIFO should report false")
	}
}
