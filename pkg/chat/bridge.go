package chat

import (
	"io"

	"dancavallaro.com/sppchat/pkg/serialport"
)

var openLink = func(cfg serialport.Config) (io.ReadWriteCloser, error) {
	port, err := serialport.Open(cfg)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// Bridge opens the device and runs the session on it. The port is closed
// however the session ends. Open failures are returned before any prompt
// is shown.
func Bridge(cfg serialport.Config, session Session, logger Logger) error {
	link, err := openLink(cfg)
	if err != nil {
		return err
	}
	defer link.Close()

	if logger != nil {
		logger.Printf("Connected to device on %s\n", cfg.Device)
	}

	session.Link = link
	session.Device = cfg.Device
	if session.ReadTimeout == 0 {
		session.ReadTimeout = cfg.ReadTimeout
	}
	return session.Run()
}
