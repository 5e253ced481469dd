package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"time"

	"dancavallaro.com/sppchat/pkg/ports"
	"dancavallaro.com/sppchat/pkg/serialport"
)

type Logger interface {
	Printf(format string, v ...interface{})
}

// readAndPrint logs every non-empty line until the stream ends or fails.
func readAndPrint(r io.Reader, timeout time.Duration, logger Logger) error {
	lines := serialport.NewLineReader(r, timeout)
	for {
		line, err := lines.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if line != "" {
			logger.Printf("%v", line)
		}
	}
}

func main() {
	device := flag.String("device", "", "serial device to read from (default: discover by description)")
	match := flag.String("match", "serial,spp", "comma-separated description substrings that identify the device")
	baud := flag.Int("baud", serialport.DefaultBaudRate, "baudrate to use")
	flag.Parse()

	if *device == "" {
		found, ok := ports.Locate(ports.ParseMatcher(*match), log.Default())
		if !ok {
			log.Fatal("no matching serial device found, pass -device")
		}
		*device = found
	}

	port, err := serialport.Open(serialport.Config{Device: *device, BaudRate: *baud})
	if err != nil {
		log.Fatal(err)
	}
	defer port.Close()

	if err := readAndPrint(port, port.ReadTimeout(), log.Default()); err != nil {
		log.Panic(err)
	}
}
