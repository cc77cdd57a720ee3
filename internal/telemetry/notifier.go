package telemetry

import (
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/mqttclient"
)

// Publisher mirrors commands to the MQTT broker.
type Publisher interface {
	SendCommand(deviceID string, cmd mqttclient.Command) error
}

// Notifier pushes server-originated commands to TVs over the socket hub and,
// when configured, over MQTT.
type Notifier struct {
	hub *Hub
	pub Publisher
}

func NewNotifier(hub *Hub, pub Publisher) *Notifier {
	return &Notifier{hub: hub, pub: pub}
}

// ContentUpdate asks the given TVs to poll now. With no ids every connected
// client is told.
func (n *Notifier) ContentUpdate(deviceIDs ...string) {
	if n == nil {
		return
	}
	if len(deviceIDs) == 0 {
		if n.hub != nil {
			n.hub.Broadcast(EventContentUpdate, nil)
		}
		return
	}
	for _, id := range deviceIDs {
		n.send(id, EventContentUpdate)
	}
}

// StopPlayback tells one TV to stop rendering and show the waiting screen.
func (n *Notifier) StopPlayback(deviceID string) {
	if n == nil {
		return
	}
	n.send(deviceID, EventStopPlayback)
}

func (n *Notifier) send(deviceID, event string) {
	ref := deviceRef{DeviceID: deviceID}
	if n.hub != nil {
		n.hub.Emit(TVRoom(deviceID), event, ref)
	}
	if n.pub != nil {
		if err := n.pub.SendCommand(deviceID, mqttclient.Command{Event: event, Data: ref}); err != nil {
			log.Warn().Err(err).Str("device_id", deviceID).Str("event", event).Msg("failed to mirror command to MQTT")
		}
	}
}
