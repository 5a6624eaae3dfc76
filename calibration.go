package bme280

import "github.com/pkg/errors"

type tempCalibration struct {
	t1     uint16
	t2, t3 int16
}

type pressCalibration struct {
	p1                             uint16
	p2, p3, p4, p5, p6, p7, p8, p9 int16
}

type humCalibration struct {
	h1     uint8
	h2     int16
	h3     uint8
	h4, h5 int16
	h6     int8
}

func (r *registers) readTempCalibration() (c tempCalibration, err error) {
	if c.t1, err = r.read16LE(regT1); err != nil {
		return c, errors.Wrap(err, "temperature calibration")
	}
	if c.t2, err = r.read16LESigned(regT2); err != nil {
		return c, errors.Wrap(err, "temperature calibration")
	}
	if c.t3, err = r.read16LESigned(regT3); err != nil {
		return c, errors.Wrap(err, "temperature calibration")
	}
	return c, nil
}

func (r *registers) readPressCalibration() (c pressCalibration, err error) {
	if c.p1, err = r.read16LE(regP1); err != nil {
		return c, errors.Wrap(err, "pressure calibration")
	}
	signed := [...]struct {
		addr byte
		dst  *int16
	}{
		{regP2, &c.p2}, {regP3, &c.p3}, {regP4, &c.p4}, {regP5, &c.p5},
		{regP6, &c.p6}, {regP7, &c.p7}, {regP8, &c.p8}, {regP9, &c.p9},
	}
	for _, s := range signed {
		if *s.dst, err = r.read16LESigned(s.addr); err != nil {
			return c, errors.Wrap(err, "pressure calibration")
		}
	}
	return c, nil
}

// readHumCalibration decodes H1..H6. H4 and H5 are 12 bit signed values
// sharing register 0xE5: H4 takes 0xE4 as bits 11:4 and the low nibble of
// 0xE5, H5 takes 0xE6 as bits 11:4 and the high nibble of 0xE5.
func (r *registers) readHumCalibration() (c humCalibration, err error) {
	if c.h1, err = r.read8(regH1); err != nil {
		return c, errors.Wrap(err, "humidity calibration")
	}
	if c.h2, err = r.read16LESigned(regH2); err != nil {
		return c, errors.Wrap(err, "humidity calibration")
	}
	if c.h3, err = r.read8(regH3); err != nil {
		return c, errors.Wrap(err, "humidity calibration")
	}
	var raw [4]uint8
	for i, addr := range [...]byte{regH4, regH4 + 1, regH5 + 1, regH6} {
		if raw[i], err = r.read8(addr); err != nil {
			return c, errors.Wrap(err, "humidity calibration")
		}
	}
	e4, e5, e6, e7 := raw[0], raw[1], raw[2], raw[3]
	c.h4 = int16(int8(e4))<<4 | int16(e5&0x0F)
	c.h5 = int16(int8(e6))<<4 | int16(e5>>4)
	c.h6 = int8(e7)
	return c, nil
}
