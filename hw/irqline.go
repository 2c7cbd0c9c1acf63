//go:build !tinygo

// Package hw provides periph.io-backed glue for driving the esb package
// from real hardware during bring-up, before a board's radio-to-interrupt-
// controller wiring (DPPI/PPI) is available to drive esb.EventRouter
// directly.
package hw

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/nrfesb/esbengine/esb"
)

// IRQLine is a GPIO line standing in for a radio's DISABLED/READY
// interrupt output. A bring-up harness routes it from a radio IRQ test
// point to a host GPIO so an esb.Engine's OnDisabled callback can be
// driven from a real falling edge instead of only from a software fake.
// It is not part of normal operation: esb.Engine is built against the
// esb.Radio interface and never imports this package.
type IRQLine struct {
	pin  gpio.PinIO
	stop chan struct{}
}

// OpenIRQLine initializes the periph.io host stack and opens the named
// GPIO pin (e.g. "GPIO17") as an interrupt input.
func OpenIRQLine(pinName string) (*IRQLine, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("hw: periph.io host init: %w", err)
	}
	p := gpioreg.ByName(pinName)
	if p == nil {
		// No GPIO by that name means there is no test point wired up to read
		// the radio's IRQ line from, the same "nothing answered" condition
		// esb.ErrNoDevice names for the engine's own Radio collaborator.
		return nil, fmt.Errorf("hw: no such GPIO pin %q: %w", pinName, esb.ErrNoDevice)
	}
	return &IRQLine{pin: p}, nil
}

// Watch arms the line for a falling edge (nRF52 IRQ outputs are
// active-low) and invokes handler on every edge detected thereafter, in
// its own goroutine, until Close is called. handler is expected to be
// whatever a real Radio implementation installed via OnDisabled; IRQLine
// only supplies the edge, not event demultiplexing.
func (l *IRQLine) Watch(handler func()) error {
	if err := l.pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return fmt.Errorf("hw: arm %s for falling edge: %w", l.pin.Name(), err)
	}

	l.stop = make(chan struct{})
	go func() {
		for {
			if l.pin.WaitForEdge(-1) {
				select {
				case <-l.stop:
					return
				default:
					handler()
				}
			} else {
				select {
				case <-l.stop:
					return
				default:
				}
			}
		}
	}()
	return nil
}

// Close stops watching the line and disables edge detection.
func (l *IRQLine) Close() error {
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
	return l.pin.In(gpio.PullUp, gpio.NoEdge)
}
