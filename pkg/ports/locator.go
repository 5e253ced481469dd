package ports

import (
	"path/filepath"
	"strings"

	"github.com/albenik/go-serial/v2/enumerator"
)

// Descriptor is a serial port as reported by the OS.
type Descriptor struct {
	Device      string
	Description string
}

// Matcher holds the lower-cased description substrings that identify the
// paired device. The OS names Bluetooth serial links differently: Windows
// reports "Standard Serial over Bluetooth link", macOS "/dev/tty.<name>-SPP".
type Matcher []string

var DefaultMatcher = Matcher{"serial", "spp"}

type Logger interface {
	Printf(format string, v ...interface{})
}

func ParseMatcher(list string) Matcher {
	var m Matcher
	for _, s := range strings.Split(list, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			m = append(m, s)
		}
	}
	if len(m) == 0 {
		return DefaultMatcher
	}
	return m
}

func (m Matcher) Matches(description string) bool {
	description = strings.ToLower(description)
	for _, s := range m {
		if strings.Contains(description, s) {
			return true
		}
	}
	return false
}

// Find returns the device of the first port whose description matches.
// The second result is false when nothing matched.
func Find(ports []Descriptor, m Matcher, logger Logger) (string, bool) {
	for _, port := range ports {
		if m.Matches(port.Description) {
			if logger != nil {
				logger.Printf("Found potential device port: %s - %s\n", port.Device, port.Description)
			}
			return port.Device, true
		}
	}
	return "", false
}

func Enumerate() ([]Descriptor, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]Descriptor, 0, len(details))
	for _, d := range details {
		if d.Name == "" {
			continue
		}
		ports = append(ports, describe(d.Name, d.Product))
	}
	return ports, nil
}

// describe falls back to the device's base name for ports without a
// product string, which is the case for non-USB Bluetooth links.
func describe(device, product string) Descriptor {
	if product == "" {
		product = filepath.Base(device)
	}
	return Descriptor{Device: device, Description: product}
}

// Locate enumerates the system's ports and picks the first match. An
// enumeration failure is logged and treated as a miss.
func Locate(m Matcher, logger Logger) (string, bool) {
	ports, err := Enumerate()
	if err != nil {
		if logger != nil {
			logger.Printf("Could not list serial ports: %v\n", err)
		}
		return "", false
	}
	return Find(ports, m, logger)
}
