package bme280

import (
	"testing"

	"github.com/pkg/errors"
)

// fakeSensor simulates the SPI register file of a BME280. The first byte of
// each chip-select frame is the command: bit 7 set reads, cleared writes,
// bits 6:0 select the register in the 0x80-0xFF window. Following bytes
// read or write consecutive registers.
type fakeSensor struct {
	mem [256]byte

	selected bool
	started  bool
	write    bool
	addr     byte

	commands []byte
	frames   int
	// timeouts makes the next exchanges fail with ErrBusTimeout.
	timeouts int
}

func newFakeSensor() *fakeSensor {
	f := &fakeSensor{}
	f.mem[regChipID] = chipID
	return f
}

func (f *fakeSensor) String() string {
	return "fake"
}

func (f *fakeSensor) Begin() error {
	if f.selected {
		return errors.New("chip select already asserted")
	}
	f.selected = true
	f.started = false
	return nil
}

func (f *fakeSensor) End() error {
	if !f.selected {
		return errors.New("chip select not asserted")
	}
	f.selected = false
	f.frames++
	return nil
}

func (f *fakeSensor) Exchange(out byte) (byte, error) {
	if !f.selected {
		return 0, errors.New("exchange outside of a frame")
	}
	if f.timeouts > 0 {
		f.timeouts--
		return 0, ErrBusTimeout
	}
	if !f.started {
		f.started = true
		f.write = out&cmdRead == 0
		f.addr = out | 0x80
		f.commands = append(f.commands, out)
		return 0xFF, nil
	}
	addr := f.addr
	f.addr = (f.addr + 1) | 0x80
	if f.write {
		f.mem[addr] = out
		return 0xFF, nil
	}
	return f.mem[addr], nil
}

func (f *fakeSensor) put16LE(addr byte, v uint16) {
	f.mem[addr] = byte(v)
	f.mem[addr+1] = byte(v >> 8)
}

// put20 stores a 20 bit ADC value as MSB, LSB and XLSB[7:4].
func (f *fakeSensor) put20(addr byte, v int32) {
	f.mem[addr] = byte(v >> 12)
	f.mem[addr+1] = byte(v >> 4)
	f.mem[addr+2] = byte(v<<4) & 0xF0
}

func TestRegisters_roundTrip(t *testing.T) {
	f := newFakeSensor()
	r := registers{t: f}

	if err := r.write(0xA0, 0x12); err != nil {
		t.Fatal(err)
	}
	if err := r.write(0xA1, 0x34); err != nil {
		t.Fatal(err)
	}
	if f.mem[0xA0] != 0x12 || f.mem[0xA1] != 0x34 {
		t.Fatalf("mem = %#02x %#02x", f.mem[0xA0], f.mem[0xA1])
	}

	if v, err := r.read8(0xA0); err != nil || v != 0x12 {
		t.Fatalf("read8() = %#02x, %v", v, err)
	}
	if v, err := r.read16BE(0xA0); err != nil || v != 0x1234 {
		t.Fatalf("read16BE() = %#04x, %v", v, err)
	}
	if v, err := r.read16LE(0xA0); err != nil || v != 0x3412 {
		t.Fatalf("read16LE() = %#04x, %v", v, err)
	}

	if err := r.write(0xA2, 0x80); err != nil {
		t.Fatal(err)
	}
	if err := r.write(0xA3, 0xFF); err != nil {
		t.Fatal(err)
	}
	if v, err := r.read16LESigned(0xA2); err != nil || v != -128 {
		t.Fatalf("read16LESigned() = %d, %v", v, err)
	}
	if v, err := r.read16LE(0xA2); err != nil || v != 0xFF80 {
		t.Fatalf("read16LE() = %#04x, %v", v, err)
	}
	if f.selected {
		t.Fatal("chip select left asserted")
	}
}

func TestRegisters_commandBit(t *testing.T) {
	f := newFakeSensor()
	r := registers{t: f}

	if err := r.write(regCtrlHum, 0x01); err != nil {
		t.Fatal(err)
	}
	if _, err := r.read8(regChipID); err != nil {
		t.Fatal(err)
	}
	// A register below 0x80 must still go out with the read bit set.
	if _, err := r.read8(0x50); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x72, 0xD0, 0xD0}
	if len(f.commands) != len(want) {
		t.Fatalf("commands = %#v", f.commands)
	}
	for i := range want {
		if f.commands[i] != want[i] {
			t.Fatalf("command %d = %#02x, want %#02x", i, f.commands[i], want[i])
		}
	}
}

func TestRegisters_framing(t *testing.T) {
	f := newFakeSensor()
	r := registers{t: f}
	if _, err := r.read16BE(0x88); err != nil {
		t.Fatal(err)
	}
	// Two single byte reads, each in its own frame.
	if f.frames != 2 {
		t.Fatalf("frames = %d, want 2", f.frames)
	}
	if err := r.write(regCtrlMeas, 0x25); err != nil {
		t.Fatal(err)
	}
	if f.frames != 3 {
		t.Fatalf("frames = %d, want 3", f.frames)
	}
}

func TestRegisters_read20(t *testing.T) {
	f := newFakeSensor()
	f.put20(regTemp, 519888)
	r := registers{t: f}
	v, err := r.read20(regTemp)
	if err != nil {
		t.Fatal(err)
	}
	if v != 519888 {
		t.Fatalf("read20() = %d", v)
	}
	// The low nibble of XLSB is not part of the sample.
	f.mem[regTemp+2] |= 0x0F
	if v, _ = r.read20(regTemp); v != 519888 {
		t.Fatalf("read20() = %d with XLSB noise", v)
	}
}

func TestRegisters_retry(t *testing.T) {
	data := []struct {
		name     string
		retries  int
		timeouts int
		wantErr  bool
	}{
		{"no timeout", 0, 0, false},
		{"recovers", 2, 2, false},
		{"exhausted", 2, 3, true},
		{"no retries", 0, 1, true},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			f := newFakeSensor()
			f.timeouts = line.timeouts
			r := registers{t: f, retries: line.retries}
			v, err := r.read8(regChipID)
			if line.wantErr {
				if !errors.Is(err, ErrBusTimeout) {
					t.Fatalf("read8() error = %v, want bus timeout", err)
				}
			} else if err != nil || v != chipID {
				t.Fatalf("read8() = %#02x, %v", v, err)
			}
			if f.selected {
				t.Fatal("chip select left asserted")
			}
		})
	}
}
