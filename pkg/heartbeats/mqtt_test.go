package heartbeats

import (
	"errors"
	"testing"
	"time"

	"dancavallaro.com/sppchat/pkg/chat"
	"github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err      error
	timedOut bool
}

func (t fakeToken) Wait() bool                     { return !t.timedOut }
func (t fakeToken) WaitTimeout(time.Duration) bool { return !t.timedOut }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	payload interface{}
}

type fakeClient struct {
	messages     []published
	token        fakeToken
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.messages = append(c.messages, published{topic, payload})
	return c.token
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.disconnected = true
}

var exchangeAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestPublishesTranscriptAndHeartbeat(t *testing.T) {
	client := &fakeClient{}
	pub := &MQTTPublisher{client}

	err := pub.Observe(chat.Exchange{Device: "/dev/tty.orangepi-SPP", Sent: "hello", Reply: "world", At: exchangeAt})

	require.NoError(t, err)
	require.Len(t, client.messages, 2)
	assert.Equal(t, "device/tty.orangepi-SPP/chat", client.messages[0].topic)
	assert.JSONEq(t,
		`{"device":"/dev/tty.orangepi-SPP","sent":"hello","reply":"world","at":"2024-05-01T12:00:00Z"}`,
		string(client.messages[0].payload.([]byte)))
	assert.Equal(t, published{"device/tty.orangepi-SPP/heartbeat", "OK"}, client.messages[1])
}

func TestNoHeartbeatForEmptyReply(t *testing.T) {
	client := &fakeClient{}
	pub := &MQTTPublisher{client}

	require.NoError(t, pub.Observe(chat.Exchange{Device: "COM5", Sent: "hello", At: exchangeAt}))

	require.Len(t, client.messages, 1)
	assert.Equal(t, "device/COM5/chat", client.messages[0].topic)
}

func TestPublishErrors(t *testing.T) {
	fault := errors.New("not connected")
	pub := &MQTTPublisher{&fakeClient{token: fakeToken{err: fault}}}
	assert.ErrorIs(t, pub.Observe(chat.Exchange{Device: "COM5", Reply: "x"}), fault)

	pub = &MQTTPublisher{&fakeClient{token: fakeToken{timedOut: true}}}
	assert.ErrorContains(t, pub.Observe(chat.Exchange{Device: "COM5", Reply: "x"}), "timed out publishing to device/COM5/chat")
}

func TestClose(t *testing.T) {
	client := &fakeClient{}
	(&MQTTPublisher{client}).Close()
	assert.True(t, client.disconnected)
}

func TestTopicID(t *testing.T) {
	assert.Equal(t, "tty.orangepi-SPP", TopicID("/dev/tty.orangepi-SPP"))
	assert.Equal(t, "COM5", TopicID("COM5"))
	assert.Equal(t, "rfcomm_0", TopicID("/dev/rfcomm+0"))
	assert.Equal(t, "unknown", TopicID(""))
}

func TestClientOptions(t *testing.T) {
	opts := clientOptions(MQTTPublisherConfig{
		BrokerAddress: "tcp://localhost:1883",
		Username:      "luna",
		Password:      "secret",
	})

	assert.Equal(t, connectTimeout, opts.ConnectTimeout)
	assert.Less(t, opts.ConnectTimeout, 30*time.Second)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "localhost:1883", opts.Servers[0].Host)
	assert.Equal(t, "luna", opts.Username)
	assert.Equal(t, "secret", opts.Password)
	assert.Contains(t, opts.ClientID, "sppchat-")
}
