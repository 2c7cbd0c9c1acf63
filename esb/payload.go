package esb

// MaxPayloadLength is the compile-time payload size ceiling, matching the
// largest value Nordic's own ESB Kconfig allows (CONFIG_ESB_MAX_PAYLOAD_LENGTH,
// capped at 252 bytes to leave room for the 2-byte on-air header).
const MaxPayloadLength = 252

// MaxPipes is the number of logical pipes the address table supports.
const MaxPipes = 8

// TXFIFOSize and RXFIFOSize are the ring-buffer capacities for the transmit
// and receive queues.
const (
	TXFIFOSize = 8
	RXFIFOSize = 8
)

// pidMax is the largest value a packet ID can hold before it wraps.
const pidMax = 3

// Payload is one ESB datagram: the data exchanged between the application
// and the link layer in both directions.
type Payload struct {
	Pipe   uint8
	Length uint8
	PID    uint8
	RSSI   int8
	NoAck  bool
	Data   [MaxPayloadLength]byte
}

// Bytes returns the payload's data truncated to its logical length.
func (p *Payload) Bytes() []byte {
	return p.Data[:p.Length]
}

// SetBytes copies b into the payload and sets Length accordingly. The
// caller is responsible for ensuring len(b) <= MaxPayloadLength.
func (p *Payload) SetBytes(b []byte) {
	p.Length = uint8(len(b))
	copy(p.Data[:p.Length], b)
}

// pipeInfo tracks, per receive pipe, enough state to recognize a
// retransmission of a packet already delivered to the application.
type pipeInfo struct {
	crc        uint16
	pid        uint8
	ackPayload bool
}
