package esb

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/physic"
)

func TestConfigDefaults(t *testing.T) {
	c := Config{Protocol: ProtocolESB}
	c.setDefaults()
	if c.RetransmitDelay != defaultRetransmitDelay {
		t.Errorf("RetransmitDelay default = %v, want %v", c.RetransmitDelay, defaultRetransmitDelay)
	}
	if c.RetransmitCount != defaultRetransmitCount {
		t.Errorf("RetransmitCount default = %d, want %d", c.RetransmitCount, defaultRetransmitCount)
	}
	if c.PayloadLength != defaultPayloadLength {
		t.Errorf("PayloadLength default = %d, want %d", c.PayloadLength, defaultPayloadLength)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Protocol: ProtocolESBDPL, Mode: ModePTX, Bitrate: Bitrate2Mbps, CRC: CRC16Bit}
	valid.setDefaults()
	if err := valid.validate(); err != nil {
		t.Fatalf("expected valid config to pass, got %v", err)
	}

	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"bad protocol", func(c *Config) { c.Protocol = 99 }},
		{"bad mode", func(c *Config) { c.Mode = 99 }},
		{"bad bitrate", func(c *Config) { c.Bitrate = 99 }},
		{"bad crc", func(c *Config) { c.CRC = 99 }},
		{"retransmit delay too low", func(c *Config) { c.RetransmitDelay = 100 * physic.MicroSecond }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mod(&c)
			if err := c.validate(); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("validate() = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestConfigValidateESBPayloadLengthRange(t *testing.T) {
	c := Config{Protocol: ProtocolESB, Mode: ModePTX, Bitrate: Bitrate1Mbps, CRC: CRCOff, PayloadLength: 0}
	c.setDefaults()
	c.PayloadLength = 0 // force back out of range after defaulting, simulating an explicit bad override
	if err := c.validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("validate() with zero payload length = %v, want ErrInvalidArgument", err)
	}

	c.PayloadLength = MaxPayloadLength + 1
	if err := c.validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("validate() with oversized payload length = %v, want ErrInvalidArgument", err)
	}
}

func TestBitrateWaitForAckTimeout(t *testing.T) {
	cases := map[Bitrate]physic.Duration{
		Bitrate2Mbps:    160 * physic.MicroSecond,
		Bitrate2MbpsBLE: 160 * physic.MicroSecond,
		Bitrate1Mbps:    300 * physic.MicroSecond,
		Bitrate250Kbps:  300 * physic.MicroSecond,
		Bitrate1MbpsBLE: 300 * physic.MicroSecond,
	}
	for b, want := range cases {
		if got := b.waitForAckTimeout(); got != want {
			t.Errorf("%s.waitForAckTimeout() = %v, want %v", b, got, want)
		}
	}
}

func TestCRCParams(t *testing.T) {
	if poly, init, length := CRCParams(CRC16Bit); poly != 0x11021 || init != 0xFFFF || length != 16 {
		t.Errorf("CRCParams(CRC16Bit) = (0x%x, 0x%x, %d)", poly, init, length)
	}
	if poly, init, length := CRCParams(CRC8Bit); poly != 0x107 || init != 0xFF || length != 8 {
		t.Errorf("CRCParams(CRC8Bit) = (0x%x, 0x%x, %d)", poly, init, length)
	}
	if poly, init, length := CRCParams(CRCOff); poly != 0 || init != 0 || length != 0 {
		t.Errorf("CRCParams(CRCOff) = (0x%x, 0x%x, %d)", poly, init, length)
	}
}
