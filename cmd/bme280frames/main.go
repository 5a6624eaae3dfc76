// Command bme280frames reads the report frames a sensor board prints on its
// UART and converts them to CSV.
package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"

	bme280 "github.com/jrmcguire/BME280"
)

var (
	portName = flag.String("port", "", "serial port the board is connected to")
	baudRate = flag.Int("baud", 9600, "serial baud rate")
	list     = flag.Bool("list", false, "list serial ports and exit")
)

func main() {
	flag.Parse()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if *list {
		ports, err := serial.GetPortsList()
		if err != nil {
			log.Fatalf("failed to list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}
	if *portName == "" {
		log.Fatal("-port is required")
	}

	port, err := serial.Open(*portName, &serial.Mode{BaudRate: *baudRate})
	if err != nil {
		log.Fatalf("failed to open serial port %s: %v", *portName, err)
	}
	defer port.Close()
	log.Infof("Connected to %s with baud rate %d", *portName, *baudRate)

	readings := make(chan bme280.Reading)
	errc := make(chan error, 1)
	go func() {
		errc <- bme280.NewFrameReader(port).StartReading(readings)
		close(readings)
	}()

	out := bme280.NewCSVWriter(os.Stdout)
	defer out.Close()
	if err := out.Start(readings); err != nil {
		log.Fatal(err)
	}
	if err := <-errc; err != nil {
		log.Fatal(err)
	}
}
