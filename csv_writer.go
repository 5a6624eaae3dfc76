package bme280

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

type CSVWriter struct {
	writer *csv.Writer
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{
		writer: csv.NewWriter(w),
	}
}

// Start writes the header and then every reading received until the
// channel is closed.
func (cw *CSVWriter) Start(readings <-chan Reading) error {
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	for reading := range readings {
		if err := cw.WriteReading(reading); err != nil {
			return err
		}
	}
	return nil
}

func (cw *CSVWriter) WriteHeader() error {
	if err := cw.writer.Write([]string{"timestamp", "temperature", "humidity", "pressure"}); err != nil {
		return errors.Wrap(err, "error writing CSV header")
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

func (cw *CSVWriter) Close() {
	cw.writer.Flush()
}

func (cw *CSVWriter) WriteReading(reading Reading) error {
	if err := cw.writer.Write([]string{
		reading.Time.Format(time.RFC3339),
		strconv.FormatFloat(reading.Temperature, 'f', 2, 64),
		strconv.FormatFloat(reading.Humidity, 'f', 2, 64),
		strconv.FormatFloat(reading.Pressure, 'f', 3, 64),
	}); err != nil {
		return errors.Wrap(err, "error writing CSV")
	}
	cw.writer.Flush()
	return cw.writer.Error()
}
