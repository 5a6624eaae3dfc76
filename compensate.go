package bme280

// FineTemperature is the intermediate temperature value, in 1/5120 °C steps
// offset by the sensor's calibration, that humidity and pressure
// compensation depend on.
//
// The zero value is not a valid reading; obtain one from ReadTemperature or
// Sample in the same sampling cycle.
type FineTemperature struct {
	v     int32
	valid bool
}

// Valid reports whether f came from a temperature conversion.
func (f FineTemperature) Valid() bool {
	return f.valid
}

// humidityMax is 100 %RH in Q22.10 shifted left by 12.
const humidityMax = 419430400

// compensate returns the temperature in 0.01 °C and the fine temperature.
// An output of 5123 equals 51.23 °C.
//
// raw has 20 bits of resolution.
func (c *tempCalibration) compensate(raw int32) (int32, FineTemperature) {
	t1 := int32(c.t1)
	var1 := (((raw >> 3) - (t1 << 1)) * int32(c.t2)) >> 11
	var2 := (((((raw >> 4) - t1) * ((raw >> 4) - t1)) >> 12) * int32(c.t3)) >> 14
	fine := var1 + var2
	return (fine*5 + 128) >> 8, FineTemperature{v: fine, valid: true}
}

// compensate returns the humidity in %RH in Q22.10 format (22 integer and
// 10 fractional bits). An output of 47445 represents 47445/1024 = 46.333 %RH.
//
// raw has 16 bits of resolution.
func (c *humCalibration) compensate(raw int32, fine FineTemperature) (uint32, error) {
	if !fine.valid {
		return 0, ErrNoFineTemperature
	}
	h1, h2, h3 := int32(c.h1), int32(c.h2), int32(c.h3)
	h4, h5, h6 := int32(c.h4), int32(c.h5), int32(c.h6)

	x := fine.v - 76800
	x = ((((raw << 14) - (h4 << 20) - (h5 * x)) + 16384) >> 15) *
		(((((((x*h6)>>10)*(((x*h3)>>11)+32768))>>10)+2097152)*h2 + 8192) >> 14)
	x -= ((((x >> 15) * (x >> 15)) >> 7) * h1) >> 4
	if x < 0 {
		x = 0
	}
	if x > humidityMax {
		x = humidityMax
	}
	return uint32(x) >> 12, nil
}

// compensate returns the pressure in Pa. An output of 96386 equals
// 96386 Pa = 963.86 hPa.
//
// raw has 20 bits of resolution. A calibration that zeroes the divisor
// yields 0.
func (c *pressCalibration) compensate(raw int32, fine FineTemperature) (uint32, error) {
	if !fine.valid {
		return 0, ErrNoFineTemperature
	}
	var1 := (fine.v >> 1) - 64000
	var2 := (((var1 >> 2) * (var1 >> 2)) >> 11) * int32(c.p6)
	var2 += (var1 * int32(c.p5)) << 1
	var2 = (var2 >> 2) + (int32(c.p4) << 16)
	var1 = (((int32(c.p3) * (((var1 >> 2) * (var1 >> 2)) >> 13)) >> 3) + ((int32(c.p2) * var1) >> 1)) >> 18
	var1 = ((32768 + var1) * int32(c.p1)) >> 15
	if var1 == 0 {
		return 0, nil
	}
	p := (uint32(1048576-raw) - uint32(var2>>12)) * 3125
	if p < 0x80000000 {
		p = (p << 1) / uint32(var1)
	} else {
		p = (p / uint32(var1)) * 2
	}
	var1 = (int32(c.p9) * int32(((p>>3)*(p>>3))>>13)) >> 12
	var2 = (int32(p>>2) * int32(c.p8)) >> 13
	return uint32(int32(p) + ((var1 + var2 + int32(c.p7)) >> 4)), nil
}
