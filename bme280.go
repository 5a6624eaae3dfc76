// Package bme280 drives a Bosch BME280 temperature, humidity and pressure
// sensor over 4-wire SPI.
//
// The sensor is used in forced mode with every channel at ×1 oversampling:
// Init triggers a single conversion after which the sensor goes back to
// sleep, so Init must be called again before each sample.
//
// Datasheet:
// https://www.bosch-sensortec.com/media/boschsensortec/downloads/datasheets/bst-bme280-ds002.pdf
package bme280

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	// ctrl_hum: humidity oversampling ×1.
	ctrlHumOSx1 = 0x01
	// ctrl_meas: temperature ×1 (bits 7:5), pressure ×1 (bits 4:2), forced
	// mode (bits 1:0).
	ctrlMeasForced = 0x25
)

// ConversionTime is the datasheet maximum measurement time with ×1
// oversampling on all three channels, rounded up.
const ConversionTime = 10 * time.Millisecond

// Opts holds the bus configuration.
type Opts struct {
	// Frequency is the SPI clock. 2 MHz is Fosc/4 on a microcontroller with an
	// 8 MHz oscillator.
	Frequency physic.Frequency
	// BusTimeout bounds every byte exchange. Zero waits forever.
	BusTimeout time.Duration
	// Retries is the number of times a register transaction that timed out
	// is started again.
	Retries int
}

// DefaultOpts is the recommended configuration.
var DefaultOpts = Opts{
	Frequency:  2 * physic.MegaHertz,
	BusTimeout: 100 * time.Millisecond,
	Retries:    2,
}

// Reading is one compensated sample.
type Reading struct {
	Time time.Time
	// Temperature in °C.
	Temperature float64
	// Humidity in %RH.
	Humidity float64
	// Pressure in kPa.
	Pressure float64
}

// Dev is a handle to a BME280.
type Dev struct {
	name string

	mu          sync.Mutex
	regs        registers
	initialized bool
}

// NewSPI returns a Dev on an SPI port, using cs as the chip-select line.
//
// opts may be nil, in which case DefaultOpts is used.
func NewSPI(p spi.Port, cs gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	b, err := NewSPIBus(p, cs, opts.Frequency, opts.BusTimeout)
	if err != nil {
		return nil, err
	}
	return New(b, opts)
}

// New returns a Dev on an arbitrary Transport. It checks the chip ID but
// does not start a conversion.
func New(t Transport, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{
		name: fmt.Sprintf("BME280{%s}", t),
		regs: registers{t: t, retries: opts.Retries},
	}
	id, err := d.regs.read8(regChipID)
	if err != nil {
		return nil, errors.Wrap(err, "bme280")
	}
	if id != chipID {
		return nil, errors.Wrapf(ErrChipID, "got %#02x, want %#02x", id, chipID)
	}
	return d, nil
}

func (d *Dev) String() string {
	return d.name
}

// Init sets ×1 oversampling on all channels and starts one forced mode
// conversion.
//
// The result is available after ConversionTime; no status polling is done.
func (d *Dev) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.init()
}

func (d *Dev) init() error {
	// ctrl_hum only takes effect after a write to ctrl_meas.
	if err := d.regs.write(regCtrlHum, ctrlHumOSx1); err != nil {
		return errors.Wrap(err, "bme280: init")
	}
	if err := d.regs.write(regCtrlMeas, ctrlMeasForced); err != nil {
		return errors.Wrap(err, "bme280: init")
	}
	d.initialized = true
	return nil
}

// Reset soft-resets the sensor. Init must be called again afterwards.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = false
	return errors.Wrap(d.regs.write(regReset, resetWord), "bme280: reset")
}

// ReadTemperature returns the last converted temperature in °C together
// with the fine temperature that ReadHumidity and ReadPressure need.
func (d *Dev) ReadTemperature() (float64, FineTemperature, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, fine, err := d.readTemperature()
	return float64(t) / 100, fine, err
}

func (d *Dev) readTemperature() (int32, FineTemperature, error) {
	if !d.initialized {
		return 0, FineTemperature{}, ErrNotInitialized
	}
	cal, err := d.regs.readTempCalibration()
	if err != nil {
		return 0, FineTemperature{}, errors.Wrap(err, "bme280")
	}
	raw, err := d.regs.read20(regTemp)
	if err != nil {
		return 0, FineTemperature{}, errors.Wrap(err, "bme280: temperature")
	}
	t, fine := cal.compensate(raw)
	return t, fine, nil
}

// ReadHumidity returns the last converted relative humidity in %RH.
func (d *Dev) ReadHumidity(fine FineTemperature) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.readHumidity(fine)
	return float64(h) / 1024, err
}

func (d *Dev) readHumidity(fine FineTemperature) (uint32, error) {
	if !d.initialized {
		return 0, ErrNotInitialized
	}
	if !fine.Valid() {
		return 0, ErrNoFineTemperature
	}
	cal, err := d.regs.readHumCalibration()
	if err != nil {
		return 0, errors.Wrap(err, "bme280")
	}
	raw, err := d.regs.read16BE(regHum)
	if err != nil {
		return 0, errors.Wrap(err, "bme280: humidity")
	}
	return cal.compensate(int32(raw), fine)
}

// ReadPressure returns the last converted pressure in kPa, that is the
// compensated pascal count divided by 1000. The result keeps the fractional
// part; it is not truncated to whole kPa.
func (d *Dev) ReadPressure(fine FineTemperature) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.readPressure(fine)
	return float64(p) / 1000, err
}

func (d *Dev) readPressure(fine FineTemperature) (uint32, error) {
	if !d.initialized {
		return 0, ErrNotInitialized
	}
	if !fine.Valid() {
		return 0, ErrNoFineTemperature
	}
	cal, err := d.regs.readPressCalibration()
	if err != nil {
		return 0, errors.Wrap(err, "bme280")
	}
	raw, err := d.regs.read20(regPress)
	if err != nil {
		return 0, errors.Wrap(err, "bme280: pressure")
	}
	return cal.compensate(raw, fine)
}

// Sample triggers a conversion, waits for it and reads all three channels.
func (d *Dev) Sample() (Reading, error) {
	s, err := d.sample()
	if err != nil {
		return Reading{}, err
	}
	return Reading{
		Time:        s.at,
		Temperature: float64(s.t) / 100,
		Humidity:    float64(s.h) / 1024,
		Pressure:    float64(s.p) / 1000,
	}, nil
}

// Sense implements physic.SenseEnv.
func (d *Dev) Sense(e *physic.Env) error {
	s, err := d.sample()
	if err != nil {
		return err
	}
	// Convert CentiCelsius to Kelvin.
	e.Temperature = physic.Temperature(s.t)*10*physic.MilliCelsius + physic.ZeroCelsius
	e.Pressure = physic.Pressure(s.p) * physic.Pascal
	// Convert base 1024 to base 1000.
	e.Humidity = physic.RelativeHumidity(s.h) * 10000 / 1024 * physic.MicroRH
	return nil
}

// sample holds one cycle in the sensor's fixed point units.
type sample struct {
	at time.Time
	t  int32  // 0.01 °C
	h  uint32 // Q22.10 %RH
	p  uint32 // Pa
}

func (d *Dev) sample() (s sample, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err = d.init(); err != nil {
		return s, err
	}
	time.Sleep(ConversionTime)

	var fine FineTemperature
	if s.t, fine, err = d.readTemperature(); err != nil {
		return s, err
	}
	if s.h, err = d.readHumidity(fine); err != nil {
		return s, err
	}
	if s.p, err = d.readPressure(fine); err != nil {
		return s, err
	}
	s.at = time.Now()
	return s, nil
}

// Halt is a no-op: in forced mode the sensor returns to sleep by itself
// after each conversion.
func (d *Dev) Halt() error {
	return nil
}
