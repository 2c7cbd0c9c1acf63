package esb

// This file implements the on-air packet codec described in §4.1: encoding
// an application Payload into the TX buffer handed to the radio, and
// decoding a received buffer back into a Payload. Two variants exist, fixed
// length ESB and dynamic-length ESB-DPL; bit-exact compatibility with the
// legacy nRF24-compatible transceiver family is required, so the byte
// layout below is not adjustable.

// DPLLengthFieldBits returns the width of the ESB-DPL on-air length field:
// 6 bits when MaxPayloadLength is 32 or less, 8 bits otherwise.
func DPLLengthFieldBits() uint8 {
	if MaxPayloadLength <= 32 {
		return 6
	}
	return 8
}

// EncodeESB serializes p into buf using the fixed-length ESB layout:
// byte 0 carries the PID in the S0 field, byte 1 is the (always zero) S1
// field, and the payload follows padded/truncated to fixedLen. It returns
// the number of bytes written.
func EncodeESB(buf []byte, p *Payload, fixedLen uint8) int {
	buf[0] = p.PID
	buf[1] = 0
	n := copy(buf[2:2+int(fixedLen)], p.Data[:p.Length])
	for i := n; i < int(fixedLen); i++ {
		buf[2+i] = 0
	}
	return 2 + int(fixedLen)
}

// DecodeESB parses a fixed-length ESB on-air buffer into out. The length is
// always the configured fixed length; there is no length field on air.
func DecodeESB(buf []byte, fixedLen uint8, out *Payload) {
	out.Length = fixedLen
	copy(out.Data[:fixedLen], buf[2:2+int(fixedLen)])
}

// EncodeESBDPL serializes p into buf using the dynamic-length ESB-DPL
// layout: byte 0 is the length field, byte 1 packs {pid:2, noack:1} into
// the S1 field, and the payload follows. It returns the number of bytes
// written.
func EncodeESBDPL(buf []byte, p *Payload) int {
	buf[0] = p.Length
	buf[1] = p.PID << 1
	if !p.NoAck {
		buf[1] |= 0x01
	}
	copy(buf[2:2+int(p.Length)], p.Data[:p.Length])
	return 2 + int(p.Length)
}

// DecodeESBDPL parses a dynamic-length ESB-DPL on-air buffer into out. It
// returns false (and leaves out untouched) if the on-air length byte
// exceeds MaxPayloadLength, which the caller must treat as a dropped
// packet rather than a parse error.
func DecodeESBDPL(buf []byte, out *Payload) bool {
	length := buf[0]
	if length > MaxPayloadLength {
		return false
	}
	out.Length = length
	out.PID = buf[1] >> 1
	out.NoAck = buf[1]&0x01 == 0
	copy(out.Data[:length], buf[2:2+int(length)])
	return true
}
