package heartbeats

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"path/filepath"
	"regexp"
	"time"

	"dancavallaro.com/sppchat/pkg/chat"
	"github.com/eclipse/paho.mqtt.golang"
)

const (
	heartbeatTopic = "device/%s/heartbeat"
	chatTopic      = "device/%s/chat"
	publishTimeout = 2 * time.Second
	connectTimeout = 3 * time.Second
)

var unsafeTopicChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type Logger interface {
	Println(v ...interface{})
	Printf(format string, v ...interface{})
}

type MQTTPublisherConfig struct {
	Username      string
	Password      string
	BrokerAddress string
	Logger        Logger
	DebugLogger   Logger
}

// mqttClient is the part of mqtt.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher sends each exchange to device/<id>/chat, and an "OK"
// heartbeat to device/<id>/heartbeat whenever the device answered.
type MQTTPublisher struct {
	client mqttClient
}

type transcript struct {
	Device string    `json:"device"`
	Sent   string    `json:"sent"`
	Reply  string    `json:"reply"`
	At     time.Time `json:"at"`
}

// clientOptions keeps the connect timeout short so an unreachable broker
// does not hold up opening the serial port.
func clientOptions(cfg MQTTPublisherConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerAddress)
	opts.SetClientID(generateClientId())
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOrderMatters(false)
	return opts
}

func NewMQTTPublisher(cfg MQTTPublisherConfig) (*MQTTPublisher, error) {
	opts := clientOptions(cfg)

	if cfg.Logger != nil {
		mqtt.ERROR = cfg.Logger
		mqtt.CRITICAL = cfg.Logger
		mqtt.WARN = cfg.Logger
	}
	if cfg.DebugLogger != nil {
		mqtt.DEBUG = cfg.DebugLogger
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	return &MQTTPublisher{client}, nil
}

func (pub *MQTTPublisher) Observe(ex chat.Exchange) error {
	id := TopicID(ex.Device)
	payload, err := json.Marshal(transcript{ex.Device, ex.Sent, ex.Reply, ex.At})
	if err != nil {
		return err
	}
	if err := pub.publish(fmt.Sprintf(chatTopic, id), payload); err != nil {
		return err
	}
	if ex.Reply == "" {
		return nil
	}
	return pub.publish(fmt.Sprintf(heartbeatTopic, id), "OK")
}

func (pub *MQTTPublisher) publish(topic string, payload interface{}) error {
	token := pub.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	return token.Error()
}

func (pub *MQTTPublisher) Close() {
	pub.client.Disconnect(1000)
}

// TopicID turns a device path such as /dev/tty.orangepi-SPP into a single
// MQTT topic level.
func TopicID(device string) string {
	id := unsafeTopicChars.ReplaceAllString(filepath.Base(device), "_")
	if id == "" || id == "." || id == "_" {
		return "unknown"
	}
	return id
}

func generateClientId() string {
	now := time.Now().Unix()
	random := rand.Intn(1000000)
	return fmt.Sprintf("sppchat-%v-%v", now, random)
}
