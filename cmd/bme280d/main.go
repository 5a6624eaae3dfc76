// Command bme280d polls a BME280, stores the readings in sqlite and serves
// them over websocket, a JSON history endpoint and prometheus metrics.
package main

import (
	"flag"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	bme280 "github.com/jrmcguire/BME280"
)

var (
	listenAddr   = flag.String("listen-address", ":8080", "The address to listen on for HTTP requests.")
	readInterval = flag.Duration("read-int", 60*time.Second, "time interval between sensor reads")
	dbPath       = flag.String("db", "readings.db", "sqlite database file, empty to disable storage")
	spiName      = flag.String("spi", "", "SPI port to use, empty for the first one")
	csName       = flag.String("cs", "GPIO8", "GPIO pin wired to the sensor's CSB")
	busTimeout   = flag.Duration("bus-timeout", bme280.DefaultOpts.BusTimeout, "per byte bus timeout, 0 to wait forever")
	retries      = flag.Int("retries", bme280.DefaultOpts.Retries, "retries for a timed out register transaction")
	debug        = flag.Bool("debug", false, "enable debug logging")
)

func init() {
	formatter := &log.TextFormatter{
		FullTimestamp: true,
	}
	log.SetFormatter(formatter)
}

func main() {
	flag.Parse()
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

	opts := bme280.DefaultOpts
	opts.BusTimeout = *busTimeout
	opts.Retries = *retries
	dev, err := bme280.NewSPI(port, cs, &opts)
	if err != nil {
		log.Fatal(err)
	}

	var recorder *bme280.Recorder
	if *dbPath != "" {
		if recorder, err = bme280.NewRecorder(*dbPath); err != nil {
			log.Fatal(err)
		}
		defer recorder.Close()
	}

	server := bme280.NewServer(dev, recorder, *readInterval)
	go server.Run(make(chan struct{}))

	log.Infof("Starting web server on %s", *listenAddr)
	log.Fatal(http.ListenAndServe(*listenAddr, server.Handler()))
}
