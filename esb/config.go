package esb

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// Protocol selects between fixed-length ESB framing and dynamic-payload
// ESB-DPL framing.
type Protocol uint8

const (
	ProtocolESB Protocol = iota
	ProtocolESBDPL
)

func (p Protocol) String() string {
	if p == ProtocolESBDPL {
		return "ESB-DPL"
	}
	return "ESB"
}

// Mode selects the engine's role: primary transmitter (PTX) or primary
// receiver (PRX).
type Mode uint8

const (
	ModePTX Mode = iota
	ModePRX
)

// Bitrate is the on-air data rate. It doubles as the key for the
// bitrate-specific ACK wait timeout (§4.3 of the design).
type Bitrate uint8

const (
	Bitrate1Mbps Bitrate = iota
	Bitrate2Mbps
	Bitrate250Kbps
	Bitrate1MbpsBLE
	Bitrate2MbpsBLE
)

func (b Bitrate) String() string {
	switch b {
	case Bitrate1Mbps:
		return "1Mbps"
	case Bitrate2Mbps:
		return "2Mbps"
	case Bitrate250Kbps:
		return "250kbps"
	case Bitrate1MbpsBLE:
		return "1Mbps-BLE"
	case Bitrate2MbpsBLE:
		return "2Mbps-BLE"
	default:
		return "unknown"
	}
}

// waitForAckTimeout returns the smallest reliable window in which an ACK
// preamble must be detected before the hardware abandons the attempt.
func (b Bitrate) waitForAckTimeout() physic.Duration {
	switch b {
	case Bitrate2Mbps, Bitrate2MbpsBLE:
		return 160 * physic.MicroSecond
	default:
		return 300 * physic.MicroSecond
	}
}

// CRCMode selects the on-air CRC width.
type CRCMode uint8

const (
	CRCOff CRCMode = iota
	CRC8Bit
	CRC16Bit
)

// CRCParams returns the polynomial, initial value and bit length the radio's
// CRC engine is programmed with for mode.
func CRCParams(mode CRCMode) (poly, init uint32, length uint8) {
	switch mode {
	case CRC16Bit:
		return 0x11021, 0xFFFF, 16
	case CRC8Bit:
		return 0x107, 0xFF, 8
	default:
		return 0, 0, 0
	}
}

// TxPower is the radio's power amplifier setting.
type TxPower uint8

const (
	TxPowerNeg20dBm TxPower = iota
	TxPowerNeg16dBm
	TxPowerNeg12dBm
	TxPowerNeg8dBm
	TxPowerNeg4dBm
	TxPowerNeg0dBm
	TxPowerPos3dBm
	TxPowerPos4dBm
)

// TxMode selects whether enqueuing a payload on an idle PTX engine kicks off
// a transmission automatically (Auto) or waits for an explicit StartTX
// (Manual).
type TxMode uint8

const (
	TxModeAuto TxMode = iota
	TxModeManual
)

// MinRetransmitDelay is the hardware's documented floor for the retransmit
// delay; init and SetRetransmitDelay both reject anything smaller.
const MinRetransmitDelay = 435 * physic.MicroSecond

// defaultPayloadLength is used when Config.PayloadLength is left zero for
// ESB (fixed-length) mode.
const defaultPayloadLength = 32

// defaultRetransmitDelay and defaultRetransmitCount mirror the values the
// reference driver's Kconfig ships as defaults.
const (
	defaultRetransmitDelay = 600 * physic.MicroSecond
	defaultRetransmitCount = 3
)

// Config is the engine's static configuration, validated and applied in one
// pass by Init, matching the flat, defaulted-then-validated shape the
// hardware driver this module is adapted from uses for its own device
// configuration.
type Config struct {
	Protocol         Protocol
	Mode             Mode
	Bitrate          Bitrate
	CRC              CRCMode
	TxPower          TxPower
	PayloadLength    uint8 // ESB (fixed-length) mode only; ignored for ESB-DPL.
	RetransmitDelay  physic.Duration
	RetransmitCount  uint16
	TxMode           TxMode
	SelectiveAutoAck bool
	EventHandler     EventHandler

	// EnableErrata143 gates the undocumented register poke that restores
	// receiver sensitivity when the high bytes of base address 0 and base
	// address 1 collide in the pattern the silicon's published errata
	// describes. See errata.go and DESIGN.md.
	EnableErrata143 bool
}

func (c *Config) setDefaults() {
	if c.RetransmitDelay == 0 {
		c.RetransmitDelay = defaultRetransmitDelay
	}
	if c.RetransmitCount == 0 {
		c.RetransmitCount = defaultRetransmitCount
	}
	if c.Protocol == ProtocolESB && c.PayloadLength == 0 {
		c.PayloadLength = defaultPayloadLength
	}
}

func (c *Config) validate() error {
	if c.Protocol != ProtocolESB && c.Protocol != ProtocolESBDPL {
		return fmt.Errorf("%w: unknown protocol %d", ErrInvalidArgument, c.Protocol)
	}
	if c.Mode != ModePTX && c.Mode != ModePRX {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidArgument, c.Mode)
	}
	switch c.Bitrate {
	case Bitrate1Mbps, Bitrate2Mbps, Bitrate250Kbps, Bitrate1MbpsBLE, Bitrate2MbpsBLE:
	default:
		return fmt.Errorf("%w: unknown bitrate %d", ErrInvalidArgument, c.Bitrate)
	}
	switch c.CRC {
	case CRCOff, CRC8Bit, CRC16Bit:
	default:
		return fmt.Errorf("%w: unknown crc mode %d", ErrInvalidArgument, c.CRC)
	}
	if c.Protocol == ProtocolESB && (c.PayloadLength == 0 || c.PayloadLength > MaxPayloadLength) {
		return fmt.Errorf("%w: payload_length out of range", ErrInvalidArgument)
	}
	if c.RetransmitDelay < MinRetransmitDelay {
		return fmt.Errorf("%w: retransmit_delay below hardware minimum of %s", ErrInvalidArgument, MinRetransmitDelay)
	}
	return nil
}
