package mqttclient

import (
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopics(t *testing.T) {
	topic := CommandTopic("tv_123_abc")
	assert.Equal(t, "tv/tv_123_abc/commands", topic)

	id, ok := DeviceFromTopic(topic)
	require.True(t, ok)
	assert.Equal(t, "tv_123_abc", id)

	_, ok = DeviceFromTopic("tv//commands")
	assert.False(t, ok)
	_, ok = DeviceFromTopic("screens/x/commands")
	assert.False(t, ok)
}

func TestCommandRoundTrip(t *testing.T) {
	host := os.Getenv("TEST_MQTT_HOST")
	if host == "" {
		t.Skip("MQTT broker not available, set TEST_MQTT_HOST")
	}
	port := 1883
	if p, err := strconv.Atoi(os.Getenv("TEST_MQTT_PORT")); err == nil {
		port = p
	}

	sub, err := NewClient(Config{Host: host, Port: port, ClientID: "prontotv-test-sub"})
	require.NoError(t, err)
	defer sub.Close()
	pub, err := NewClient(Config{Host: host, Port: port, ClientID: "prontotv-test-pub"})
	require.NoError(t, err)
	defer pub.Close()

	got := make(chan Command, 1)
	require.NoError(t, sub.SubscribeCommands("test-device", func(c Command) { got <- c }))
	require.NoError(t, pub.SendCommand("test-device", Command{Event: "content-update"}))

	select {
	case c := <-got:
		assert.Equal(t, "content-update", c.Event)
	case <-time.After(5 * time.Second):
		t.Fatal("command not delivered")
	}
}
