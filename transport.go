package bme280

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Transport exchanges single bytes with the sensor.
//
// Begin and End frame a transaction: chip-select is driven low by Begin and
// high by End. Exchange clocks one byte out and returns the byte clocked in
// at the same time.
type Transport interface {
	Begin() error
	Exchange(out byte) (byte, error)
	End() error
}

// txer is the part of spi.Conn the bus uses.
type txer interface {
	Tx(w, r []byte) error
}

// chipSelect is the part of gpio.PinOut the bus uses.
type chipSelect interface {
	Out(l gpio.Level) error
}

// SPIBus is a Transport over a periph SPI port with a GPIO driven
// chip-select line.
//
// The port is connected with spi.NoCS so that chip-select stays asserted
// across all the bytes of a register transaction.
type SPIBus struct {
	name    string
	c       txer
	cs      chipSelect
	timeout time.Duration
}

// NewSPIBus connects to p in SPI mode 3 and parks cs high.
//
// A zero timeout waits forever for every byte, which means a stalled bus
// hangs the caller.
func NewSPIBus(p spi.Port, cs gpio.PinOut, f physic.Frequency, timeout time.Duration) (*SPIBus, error) {
	c, err := p.Connect(f, spi.Mode3|spi.NoCS, 8)
	if err != nil {
		return nil, errors.Wrap(err, "bme280: connecting to spi port")
	}
	b := newSPIBus(c, cs, timeout)
	b.name = fmt.Sprintf("%s/%s", c, cs)
	if err := cs.Out(gpio.High); err != nil {
		return nil, errors.Wrap(err, "bme280: releasing chip select")
	}
	return b, nil
}

func newSPIBus(c txer, cs chipSelect, timeout time.Duration) *SPIBus {
	return &SPIBus{name: "spi", c: c, cs: cs, timeout: timeout}
}

func (b *SPIBus) String() string {
	return b.name
}

// Begin asserts chip-select.
func (b *SPIBus) Begin() error {
	return errors.Wrap(b.cs.Out(gpio.Low), "bme280: asserting chip select")
}

// End releases chip-select.
func (b *SPIBus) End() error {
	return errors.Wrap(b.cs.Out(gpio.High), "bme280: releasing chip select")
}

// Exchange sends out and returns the byte received in the same clock cycles.
//
// When the bus timeout expires the underlying Tx is abandoned, not
// cancelled: the goroutine running it stays blocked until the driver
// returns.
func (b *SPIBus) Exchange(out byte) (byte, error) {
	if b.timeout <= 0 {
		return b.tx(out)
	}
	type result struct {
		in  byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		in, err := b.tx(out)
		done <- result{in, err}
	}()
	t := time.NewTimer(b.timeout)
	defer t.Stop()
	select {
	case r := <-done:
		return r.in, r.err
	case <-t.C:
		return 0, errors.Wrapf(ErrBusTimeout, "sending %#02x after %s", out, b.timeout)
	}
}

func (b *SPIBus) tx(out byte) (byte, error) {
	w := [1]byte{out}
	r := [1]byte{}
	if err := b.c.Tx(w[:], r[:]); err != nil {
		return 0, errors.Wrapf(err, "bme280: sending %#02x", out)
	}
	return r[0], nil
}
