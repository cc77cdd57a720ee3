package player

import (
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/mqttclient"
	"github.com/Nixie-Tech-LLC/prontotv/internal/telemetry"
)

// Commands are the push commands a player acts on.
type Commands interface {
	StopPlayback()
	ContentUpdate()
	PlaybackReport()
}

// Dispatch routes one pushed event to cmds. Unknown events are ignored.
func Dispatch(event string, cmds Commands) {
	switch event {
	case telemetry.EventStopPlayback:
		cmds.StopPlayback()
	case telemetry.EventContentUpdate:
		cmds.ContentUpdate()
	case telemetry.EventRequestPlaybackState:
		cmds.PlaybackReport()
	default:
		log.Debug().Str("event", event).Msg("ignoring pushed event")
	}
}

// CommandSubscriber is the slice of the MQTT client the player uses.
type CommandSubscriber interface {
	SubscribeCommands(deviceID string, handler func(mqttclient.Command)) error
}

// SubscribeMQTT routes commands published on the device's topic to cmds.
// The same command may also arrive over the websocket; every command is
// idempotent so double delivery is harmless.
func SubscribeMQTT(sub CommandSubscriber, deviceID string, cmds Commands) error {
	return sub.SubscribeCommands(deviceID, func(cmd mqttclient.Command) {
		log.Info().Str("event", cmd.Event).Str("device_id", deviceID).Msg("MQTT command received")
		Dispatch(cmd.Event, cmds)
	})
}
