// Command bme280 samples a BME280 on SPI and prints the readings as CSV.
//
// With -serial it also writes each reading as a report frame to a serial
// port, the way the sensor board reports over its UART.
package main

import (
	"flag"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	bme280 "github.com/jrmcguire/BME280"
)

var (
	spiName    = flag.String("spi", "", "SPI port to use, empty for the first one")
	csName     = flag.String("cs", "GPIO8", "GPIO pin wired to the sensor's CSB")
	frequency  = flag.Int64("hz", int64(bme280.DefaultOpts.Frequency/physic.Hertz), "SPI clock frequency in Hz")
	busTimeout = flag.Duration("bus-timeout", bme280.DefaultOpts.BusTimeout, "per byte bus timeout, 0 to wait forever")
	retries    = flag.Int("retries", bme280.DefaultOpts.Retries, "retries for a timed out register transaction")
	interval   = flag.Duration("interval", 60*time.Second, "time between samples")
	count      = flag.Int("n", 0, "number of samples to take, 0 for no limit")
	serialPort = flag.String("serial", "", "serial port to write report frames to")
	baudRate   = flag.Int("baud", 9600, "serial baud rate")
	debug      = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	port, err := spireg.Open(*spiName)
	if err != nil {
		log.Fatalf("failed to open SPI: %v", err)
	}
	defer port.Close()

	cs := gpioreg.ByName(*csName)
	if cs == nil {
		log.Fatalf("no such pin %q", *csName)
	}

	dev, err := bme280.NewSPI(port, cs, &bme280.Opts{
		Frequency:  physic.Frequency(*frequency) * physic.Hertz,
		BusTimeout: *busTimeout,
		Retries:    *retries,
	})
	if err != nil {
		log.Fatal(err)
	}
	log.Debugf("Opened %s", dev)

	var frames *bme280.FrameWriter
	if *serialPort != "" {
		p, err := serial.Open(*serialPort, &serial.Mode{BaudRate: *baudRate})
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", *serialPort, err)
		}
		defer p.Close()
		frames = bme280.NewFrameWriter(p)
	}

	out := bme280.NewCSVWriter(os.Stdout)
	defer out.Close()
	if err := out.WriteHeader(); err != nil {
		log.Fatal(err)
	}

	for i := 0; *count == 0 || i < *count; i++ {
		if i > 0 {
			time.Sleep(*interval)
		}
		reading, err := dev.Sample()
		if err != nil {
			log.Errorf("Error reading BME280: %v", err)
			continue
		}
		if err := out.WriteReading(reading); err != nil {
			log.Fatal(err)
		}
		if frames != nil {
			if err := frames.WriteReading(reading); err != nil {
				log.Errorf("Error writing frame: %v", err)
			}
		}
	}
}
