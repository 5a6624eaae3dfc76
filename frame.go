package bme280

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Report frames are the text lines the sensor board prints on its UART:
//
//	$<temperature °F>$<humidity %RH>$<pressure kPa>$ \n
const frameFormat = "$%3.2f$%3.2f$%3.2f$ \n"

const maxConsecutiveErrors = 10

// CelsiusToFahrenheit converts c from °C to °F.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// FahrenheitToCelsius converts f from °F to °C.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// FrameWriter writes readings as report frames.
type FrameWriter struct {
	w io.Writer
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

func (fw *FrameWriter) WriteReading(r Reading) error {
	_, err := fmt.Fprintf(fw.w, frameFormat, CelsiusToFahrenheit(r.Temperature), r.Humidity, r.Pressure)
	return errors.Wrap(err, "writing frame")
}

// ParseFrame decodes one report frame. The returned reading carries the
// temperature in °C and no timestamp.
func ParseFrame(line string) (Reading, error) {
	line = strings.TrimRight(line, " \r\n")
	fields := strings.Split(line, "$")
	if len(fields) != 5 || fields[0] != "" || fields[4] != "" {
		return Reading{}, errors.Errorf("malformed frame %q", line)
	}
	var v [3]float64
	for i := range v {
		f, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return Reading{}, errors.Wrapf(err, "frame %q field %d", line, i)
		}
		v[i] = f
	}
	return Reading{
		Temperature: FahrenheitToCelsius(v[0]),
		Humidity:    v[1],
		Pressure:    v[2],
	}, nil
}

// FrameReader reads report frames from a serial port.
type FrameReader struct {
	r                 *bufio.Reader
	consecutiveErrors int
}

func NewFrameReader(port io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(port)}
}

// StartReading sends every valid frame to readings until the port is
// closed or too many reads fail in a row. Malformed frames are logged and
// skipped. A final frame cut short of its newline by EOF is still parsed.
func (fr *FrameReader) StartReading(readings chan<- Reading) error {
	for {
		if fr.consecutiveErrors >= maxConsecutiveErrors {
			return errors.Errorf("too many consecutive read errors (%d)", fr.consecutiveErrors)
		}

		line, err := fr.r.ReadString('\n')
		if err == io.EOF {
			// A last frame without its newline is still complete.
			if strings.TrimSpace(line) != "" {
				fr.emit(line, readings)
			}
			return nil
		}
		if err != nil {
			log.Errorf("Error reading from serial: %v", err)
			fr.consecutiveErrors++
			continue
		}
		fr.consecutiveErrors = 0
		fr.emit(line, readings)
	}
}

func (fr *FrameReader) emit(line string, readings chan<- Reading) {
	reading, err := ParseFrame(line)
	if err != nil {
		log.Warnf("Skipping frame: %v", err)
		return
	}
	reading.Time = time.Now()
	readings <- reading
}
