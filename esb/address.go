package esb

import "periph.io/x/conn/v3/physic"

// AddressConfig is the ESB address table: a shared base address for pipe 0,
// a shared base address for pipes 1-7, and one prefix byte per pipe.
type AddressConfig struct {
	BaseAddr0      [4]byte
	BaseAddr1      [4]byte
	Prefixes       [MaxPipes]byte
	AddressLength  uint8 // 3..5
	RxPipesEnabled uint8 // bitmask over 8 pipes
	RFChannel      uint8 // 0..100
}

// DefaultAddressConfig mirrors the nRF24Lxx factory defaults the original
// driver's static esb_addr initializer ships.
func DefaultAddressConfig() AddressConfig {
	return AddressConfig{
		BaseAddr0:      [4]byte{0xE7, 0xE7, 0xE7, 0xE7},
		BaseAddr1:      [4]byte{0xC2, 0xC2, 0xC2, 0xC2},
		Prefixes:       [MaxPipes]byte{0xE7, 0xC2, 0xC3, 0xC4, 0xC5, 0xC6, 0xC7, 0xC8},
		AddressLength:  5,
		RxPipesEnabled: 0xFF,
		RFChannel:      2,
	}
}

// Frequency returns the RF channel expressed as a center frequency, 1 MHz
// above 2400 MHz per channel number.
func (a AddressConfig) Frequency() physic.Frequency {
	return 2400*physic.MegaHertz + physic.Frequency(a.RFChannel)*physic.MegaHertz
}

// bitReverseByte reverses the bit order within a single byte.
func bitReverseByte(v byte) byte {
	v = (v&0xF0)>>4 | (v&0x0F)<<4
	v = (v&0xCC)>>2 | (v&0x33)<<2
	v = (v&0xAA)>>1 | (v&0x55)<<1
	return v
}

// bytewiseBitSwap bit-reverses each byte of addr independently and packs the
// result into a little-endian uint32 with addr[0] in the low byte.
func bytewiseBitSwap(addr [4]byte) uint32 {
	var out uint32
	for i, b := range addr {
		out |= uint32(bitReverseByte(b)) << (8 * uint(i))
	}
	return out
}

// reverseBytes32 swaps the byte order of a 32-bit word.
func reverseBytes32(v uint32) uint32 {
	return (v&0x000000FF)<<24 | (v&0x0000FF00)<<8 | (v&0x00FF0000)>>8 | (v&0xFF000000)>>24
}

// ConvertBaseAddress converts a 4-byte, big-endian (MSB-first) ESB base
// address into the little-endian, LSB-first register value the nRF-style
// radio peripheral expects, because the peripheral transmits least
// significant bit first while the ESB/nRF24 address convention is
// most-significant-bit-first.
func ConvertBaseAddress(addr [4]byte) uint32 {
	return reverseBytes32(bytewiseBitSwap(addr))
}

// ConvertPrefixes packs four one-byte pipe prefixes into a single register
// value, bit-reversing each byte the same way ConvertBaseAddress does.
func ConvertPrefixes(p [4]byte) uint32 {
	return bytewiseBitSwap(p)
}
