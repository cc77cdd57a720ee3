// Package mqttclient wraps the paho client used to mirror TV commands onto
// the broker topic tv/<device_id>/commands.
package mqttclient

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientID string
}

type Client struct {
	client mqtt.Client
}

// Command is the payload published to a TV's command topic.
type Command struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// CommandTopic is the per-device command topic.
func CommandTopic(deviceID string) string {
	return fmt.Sprintf("tv/%s/commands", deviceID)
}

// DeviceFromTopic extracts the device id from a command topic.
func DeviceFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "tv" || parts[2] != "commands" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func NewClient(cfg Config) (*Client, error) {
	broker := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", broker).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", broker).Msg("MQTT connection lost")
	}

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	cli := mqtt.NewClient(opts)
	token := cli.Connect()
	if ok := token.WaitTimeout(10 * time.Second); !ok {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect error: %w", err)
	}

	return &Client{client: cli}, nil
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()
	return token.Error()
}

func (c *Client) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	token := c.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	return token.Error()
}

// SendCommand publishes cmd on the device's command topic.
func (c *Client) SendCommand(deviceID string, cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	if err := c.Publish(CommandTopic(deviceID), 1, false, payload); err != nil {
		return fmt.Errorf("failed to send %s to TV device %s: %w", cmd.Event, deviceID, err)
	}
	return nil
}

// SubscribeCommands delivers every command published for deviceID.
func (c *Client) SubscribeCommands(deviceID string, handler func(Command)) error {
	return c.Subscribe(CommandTopic(deviceID), 1, func(topic string, payload []byte) {
		var cmd Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("ignoring malformed MQTT command")
			return
		}
		handler(cmd)
	})
}

func (c *Client) Close() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}
