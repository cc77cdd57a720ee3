package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/prontotv/internal/config"
	"github.com/Nixie-Tech-LLC/prontotv/internal/mqttclient"
	"github.com/Nixie-Tech-LLC/prontotv/internal/playback"
	"github.com/Nixie-Tech-LLC/prontotv/internal/player"
)

func setupLogging(cfg config.Logging) {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var preview, allowAudio bool
	var name string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the player until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("preview") {
				cfg.Playback.Preview = preview
			}
			if cmd.Flags().Changed("allow-audio") {
				cfg.Playback.AllowAudio = allowAudio
			}
			if cmd.Flags().Changed("name") {
				cfg.Device.Name = name
			}
			setupLogging(cfg.Logging)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(runCtx, cfg)
		},
	}

	cmd.Flags().BoolVar(&preview, "preview", false, "Render like a TV would right now without registering or reporting")
	cmd.Flags().BoolVar(&allowAudio, "allow-audio", false, "Play videos with sound")
	cmd.Flags().StringVar(&name, "name", "", "Name to register the device with")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	deviceID, err := player.LoadOrCreateDeviceID(cfg.Device.IDFile)
	if err != nil {
		return err
	}
	if cfg.Playback.Preview {
		deviceID = "preview_" + uuid.NewString()[:8]
	}
	log.Info().Str("device_id", deviceID).Str("server", cfg.Server.URL).Bool("preview", cfg.Playback.Preview).Msg("starting player")

	client, err := player.NewClient(cfg.Server.URL, cfg.Timeout())
	if err != nil {
		return err
	}

	var reporter playback.Reporter
	var socket *player.Socket
	if cfg.Telemetry.Enabled && !cfg.Playback.Preview {
		socket = player.NewSocket(cfg.SocketURL(), deviceID)
		reporter = socket
	}

	media := player.NewLogMedia(nil)
	ctl := playback.NewController(client, media, reporter, playback.Options{
		DeviceID:          deviceID,
		Name:              cfg.Device.Name,
		Version:           version,
		AllowAudio:        cfg.Playback.AllowAudio,
		Preview:           cfg.Playback.Preview,
		SyncInterval:      cfg.Playback.Sync(),
		IdleSyncInterval:  cfg.Playback.IdleSync(),
		FastCheckInterval: cfg.Playback.FastCheck(),
		HealthInterval:    cfg.Playback.Health(),
		WatchdogInterval:  cfg.Playback.Watchdog(),
		MaxRetries:        cfg.Playback.MaxRetries,
	})
	media.Bind(ctl)
	defer ctl.Close()

	if socket != nil {
		go socket.Run(ctx, ctl)
	}

	if cfg.MQTT.Enabled && !cfg.Playback.Preview {
		mc, err := mqttclient.NewClient(mqttclient.Config{
			Host:     cfg.MQTT.Host,
			Port:     cfg.MQTT.Port,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			ClientID: deviceID,
		})
		if err != nil {
			log.Warn().Err(err).Msg("MQTT unavailable, relying on the websocket and polling")
		} else {
			defer mc.Close()
			if err := player.SubscribeMQTT(mc, deviceID, ctl); err != nil {
				log.Warn().Err(err).Msg("failed to subscribe to MQTT commands")
			}
		}
	}

	ctl.Start(ctx)
	<-ctx.Done()
	log.Info().Msg("player stopped")
	return nil
}
