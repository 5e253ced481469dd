package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"os"

	"dancavallaro.com/sppchat/pkg/chat"
	"dancavallaro.com/sppchat/pkg/heartbeats"
	"dancavallaro.com/sppchat/pkg/ports"
	"dancavallaro.com/sppchat/pkg/serialport"
	"github.com/fatih/color"
)

var (
	device          = flag.String("device", "", "serial device to use (default: discover by description)")
	match           = flag.String("match", "serial,spp", "comma-separated description substrings that identify the device")
	baud            = flag.Int("baud", serialport.DefaultBaudRate, "baudrate to use")
	timeout         = flag.Duration("timeout", serialport.DefaultReadTimeout, "how long to wait for a reply line")
	remoteName      = flag.String("name", chat.DefaultRemoteName, "label printed in front of replies")
	mqttAddress     = flag.String("mqttAddress", "", "Address:port of MQTT broker to publish exchanges to (disabled if empty)")
	mqttUsername    = flag.String("mqttUsername", "<none>", "MQTT username")
	mqttPassword    = flag.String("mqttPassword", "<none>", "MQTT password")
	mqttDebug       = flag.Bool("mqttDebug", false, "log MQTT client debug output")
	useCloudwatch   = flag.Bool("cloudwatch", false, "publish reply metrics to Cloudwatch")
	region          = flag.String("region", "us-east-1", "Cloudwatch region to use")
	metricNamespace = flag.String("metricNamespace", "Sppchat", "Metric namespace to publish in")
	metricDimension = flag.String("metricDimension", "Device", "Dimension name to use for identifying devices")
)

var errorLine = color.New(color.FgRed)

type locateFunc func(m ports.Matcher, logger ports.Logger) (string, bool)

type connectFunc func(cfg serialport.Config, session chat.Session, logger chat.Logger) error

func main() {
	flag.Parse()

	observers, closeAll := telemetry()
	defer closeAll()

	run(os.Stdin, os.Stdout, ports.Locate, chat.Bridge, observers)
}

// run finds the device and chats with it. User-facing diagnostics share
// out with the conversation.
func run(in io.Reader, out io.Writer, locate locateFunc, connect connectFunc, observers []chat.Observer) {
	logger := log.New(out, "", 0)

	port := *device
	if port == "" {
		var ok bool
		port, ok = locate(ports.ParseMatcher(*match), logger)
		if !ok {
			errorLine.Fprintln(out, "Error: Could not find the device's Bluetooth serial port.")
			logger.Println("Please make sure the device is paired and connected.")
			return
		}
	}

	session := chat.Session{
		In:         in,
		Out:        out,
		RemoteName: *remoteName,
		Observers:  observers,
		Logger:     log.New(os.Stderr, "[telemetry] ", 0),
	}
	cfg := serialport.Config{Device: port, BaudRate: *baud, ReadTimeout: *timeout}
	err := connect(cfg, session, logger)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrInput):
		errorLine.Fprintf(out, "Error reading your input: %v\n", err)
	default:
		errorLine.Fprintf(out, "Error communicating with the serial port: %v\n", err)
	}
}

func mqttConfig(logger heartbeats.Logger) heartbeats.MQTTPublisherConfig {
	cfg := heartbeats.MQTTPublisherConfig{
		BrokerAddress: *mqttAddress,
		Username:      *mqttUsername,
		Password:      *mqttPassword,
		Logger:        logger,
	}
	if *mqttDebug {
		cfg.DebugLogger = log.New(os.Stderr, "[mqtt-debug] ", 0)
	}
	return cfg
}

// telemetry builds the exchange observers enabled on the command line. A
// broker that cannot be reached only disables MQTT publishing.
func telemetry() ([]chat.Observer, func()) {
	var observers []chat.Observer
	closeAll := func() {}

	if *mqttAddress != "" {
		logger := log.New(os.Stderr, "[mqtt] ", 0)
		pub, err := heartbeats.NewMQTTPublisher(mqttConfig(logger))
		if err != nil {
			logger.Printf("Could not connect to %s, not publishing exchanges: %v\n", *mqttAddress, err)
		} else {
			observers = append(observers, pub)
			closeAll = func() {
				logger.Println("Shutting down MQTT publisher now...")
				pub.Close()
			}
		}
	}

	if *useCloudwatch {
		logger := log.New(os.Stderr, "[cloudwatch] ", 0)
		cw := heartbeats.NewCloudwatchClientProvider(*region, logger)
		observers = append(observers, heartbeats.NewCloudwatchPublisher(cw, *metricNamespace, *metricDimension, logger))
	}

	return observers, closeAll
}
