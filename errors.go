package bme280

import "github.com/pkg/errors"

var (
	// ErrBusTimeout is returned when a single byte exchange does not
	// complete within Opts.BusTimeout.
	ErrBusTimeout = errors.New("bme280: bus timeout")

	// ErrNotInitialized is returned by the read operations until Init has
	// triggered at least one conversion.
	ErrNotInitialized = errors.New("bme280: not initialized")

	// ErrNoFineTemperature is returned when humidity or pressure is
	// compensated without the fine temperature of a prior temperature read.
	ErrNoFineTemperature = errors.New("bme280: fine temperature not available")

	// ErrChipID is returned when the device at the other end of the bus
	// does not identify as a BME280.
	ErrChipID = errors.New("bme280: unexpected chip ID")
)
