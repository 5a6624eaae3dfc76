package bme280

import (
	"testing"

	"github.com/pkg/errors"
)

// Calibration and samples from the datasheet worked example, section 8.
var (
	datasheetTemp  = tempCalibration{t1: 27504, t2: 26435, t3: -1000}
	datasheetPress = pressCalibration{
		p1: 36477, p2: -10685, p3: 3024, p4: 2855, p5: 140,
		p6: -7, p7: 15500, p8: -14600, p9: 6000,
	}
	sampleHum = humCalibration{h1: 75, h2: 362, h3: 0, h4: 313, h5: 50, h6: 30}
)

const (
	datasheetRawTemp  = 519888
	datasheetRawPress = 415148
	datasheetFine     = 128422
)

func datasheetFineTemperature() FineTemperature {
	return FineTemperature{v: datasheetFine, valid: true}
}

func TestTempCalibration_compensate(t *testing.T) {
	temp, fine := datasheetTemp.compensate(datasheetRawTemp)
	if !fine.Valid() {
		t.Fatal("fine temperature not valid")
	}
	if fine.v != datasheetFine {
		t.Fatalf("fine = %d, want %d", fine.v, datasheetFine)
	}
	if temp != 2508 {
		t.Fatalf("temperature = %d, want 2508", temp)
	}
}

func TestHumCalibration_compensate(t *testing.T) {
	data := []struct {
		name string
		cal  humCalibration
		raw  int32
		want uint32
	}{
		{"typical", sampleHum, 30000, 56317},
		{"dry", sampleHum, 27000, 39190},
		// Pre-clamp intermediate is 1553367040.
		{"saturated high", humCalibration{h2: 362, h6: 30}, 65535, 102400},
		// Pre-clamp intermediate is -486364973.
		{"saturated low", sampleHum, 0, 0},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			got, err := line.cal.compensate(line.raw, datasheetFineTemperature())
			if err != nil {
				t.Fatal(err)
			}
			if got != line.want {
				t.Fatalf("compensate(%d) = %d, want %d", line.raw, got, line.want)
			}
			if pct := float64(got) / 1024; pct < 0 || pct > 100 {
				t.Fatalf("humidity %f%% out of range", pct)
			}
		})
	}
}

func TestPressCalibration_compensate(t *testing.T) {
	data := []struct {
		name string
		raw  int32
		want uint32
	}{
		// The datasheet's double precision result is 100653.27 Pa; the 32
		// bit integer path is within a few pascal of it.
		{"datasheet", datasheetRawPress, 100656},
		// (1048576-raw)*3125 no longer fits in 31 bits, so the division
		// runs before the doubling.
		{"low raw", 300000, 120601},
		{"lower raw", 200000, 138032},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			got, err := datasheetPress.compensate(line.raw, datasheetFineTemperature())
			if err != nil {
				t.Fatal(err)
			}
			if got != line.want {
				t.Fatalf("compensate(%d) = %d, want %d", line.raw, got, line.want)
			}
		})
	}
}

func TestPressCalibration_zeroDivisor(t *testing.T) {
	cal := datasheetPress
	cal.p1 = 0
	got, err := cal.compensate(datasheetRawPress, datasheetFineTemperature())
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Fatalf("pressure = %d, want 0", got)
	}
}

func TestCompensate_requiresFineTemperature(t *testing.T) {
	if _, err := sampleHum.compensate(30000, FineTemperature{}); !errors.Is(err, ErrNoFineTemperature) {
		t.Fatalf("humidity error = %v", err)
	}
	if _, err := datasheetPress.compensate(datasheetRawPress, FineTemperature{}); !errors.Is(err, ErrNoFineTemperature) {
		t.Fatalf("pressure error = %v", err)
	}
}
