package serialport

import (
	"errors"
	"fmt"
	"time"

	"github.com/albenik/go-serial/v2"
)

const (
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 5 * time.Second

	writeTimeout = 5 * time.Second
)

var ErrNoDevice = errors.New("no serial device given")

type Config struct {
	Device      string
	BaudRate    int
	ReadTimeout time.Duration
}

func (cfg Config) withDefaults() Config {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	return cfg
}

// Port is an open serial device. Data bits, parity and stop bits are left
// at the library defaults (8-N-1).
type Port struct {
	*serial.Port
	device      string
	readTimeout time.Duration
}

func Open(cfg Config) (*Port, error) {
	if cfg.Device == "" {
		return nil, ErrNoDevice
	}
	cfg = cfg.withDefaults()

	port, err := serial.Open(
		cfg.Device,
		serial.WithBaudrate(cfg.BaudRate),
		serial.WithReadTimeout(int(cfg.ReadTimeout.Milliseconds())),
		serial.WithWriteTimeout(int(writeTimeout.Milliseconds())),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	return &Port{Port: port, device: cfg.Device, readTimeout: cfg.ReadTimeout}, nil
}

func (p *Port) Device() string {
	return p.device
}

func (p *Port) ReadTimeout() time.Duration {
	return p.readTimeout
}
