package bme280

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// Bit 7 of the first byte of a transaction selects the direction.
	cmdRead  = 0x80
	cmdWrite = 0x00

	chipID    = 0x60
	resetWord = 0xB6

	regChipID   = 0xD0
	regReset    = 0xE0
	regCtrlHum  = 0xF2
	regCtrlMeas = 0xF4
	regPress    = 0xF7 // MSB, LSB, XLSB
	regTemp     = 0xFA // MSB, LSB, XLSB
	regHum      = 0xFD // MSB, LSB

	// Calibration block.
	regT1 = 0x88
	regT2 = 0x8A
	regT3 = 0x8C
	regP1 = 0x8E
	regP2 = 0x90
	regP3 = 0x92
	regP4 = 0x94
	regP5 = 0x96
	regP6 = 0x98
	regP7 = 0x9A
	regP8 = 0x9C
	regP9 = 0x9E
	regH1 = 0xA1
	regH2 = 0xE1
	regH3 = 0xE3
	regH4 = 0xE4
	regH5 = 0xE5
	regH6 = 0xE7
)

// registers implements the register level protocol on top of a Transport.
// It is not safe for concurrent use.
type registers struct {
	t       Transport
	retries int
}

// transact runs fn inside a chip-select frame. Frames that fail with a bus
// timeout are retried from the start.
func (r *registers) transact(fn func() error) error {
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			log.Debugf("bme280: retrying transaction %d/%d: %v", attempt, r.retries, err)
		}
		if err = r.frame(fn); !errors.Is(err, ErrBusTimeout) {
			return err
		}
	}
	return err
}

func (r *registers) frame(fn func() error) error {
	if err := r.t.Begin(); err != nil {
		return err
	}
	err := fn()
	if endErr := r.t.End(); err == nil {
		err = endErr
	}
	return err
}

// read8 reads a single register.
func (r *registers) read8(addr byte) (uint8, error) {
	var v byte
	err := r.transact(func() error {
		// The first response byte is clocked in while the command goes out
		// and carries nothing.
		if _, err := r.t.Exchange(addr | cmdRead); err != nil {
			return err
		}
		in, err := r.t.Exchange(0)
		v = in
		return err
	})
	return v, errors.Wrapf(err, "reading register %#02x", addr)
}

// read16BE reads addr as the MSB and addr+1 as the LSB.
func (r *registers) read16BE(addr byte) (uint16, error) {
	msb, err := r.read8(addr)
	if err != nil {
		return 0, err
	}
	lsb, err := r.read8(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(msb)<<8 | uint16(lsb), nil
}

// read16LE reads addr as the LSB and addr+1 as the MSB.
func (r *registers) read16LE(addr byte) (uint16, error) {
	v, err := r.read16BE(addr)
	return v>>8 | v<<8, err
}

func (r *registers) read16LESigned(addr byte) (int16, error) {
	v, err := r.read16LE(addr)
	return int16(v), err
}

// read20 reads a 20 bit ADC value stored as MSB, LSB and the top nibble of
// XLSB.
func (r *registers) read20(addr byte) (int32, error) {
	v, err := r.read16BE(addr)
	if err != nil {
		return 0, err
	}
	xlsb, err := r.read8(addr + 2)
	if err != nil {
		return 0, err
	}
	return (int32(v)<<8 | int32(xlsb)) >> 4, nil
}

// write writes a single register.
func (r *registers) write(addr, data byte) error {
	err := r.transact(func() error {
		if _, err := r.t.Exchange(addr&^cmdRead | cmdWrite); err != nil {
			return err
		}
		_, err := r.t.Exchange(data)
		return err
	})
	return errors.Wrapf(err, "writing %#02x to register %#02x", data, addr)
}
