package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/prontotv/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source := ctx.path
			if !ctx.exists {
				source += " (not found, using defaults)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config: %s\n", source)
			fmt.Fprintln(cmd.OutOrStdout(), renderConfig(cfg))
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var target string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(target)
			var err error
			if path == "" {
				path, err = config.DefaultConfigPath()
			} else {
				path, err = config.ExpandPath(path)
			}
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}

			if !overwrite {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", path)
				}
			}
			if err := config.CreateSample(path); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func renderConfig(cfg *config.Config) string {
	secret := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	itoa := strconv.Itoa
	btoa := strconv.FormatBool

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Setting", "Value"})
	tw.AppendRows([]table.Row{
		{"server.url", cfg.Server.URL},
		{"server.timeout_seconds", itoa(cfg.Server.TimeoutSeconds)},
		{"device.name", cfg.Device.Name},
		{"device.id_file", cfg.Device.IDFile},
		{"playback.sync_interval", itoa(cfg.Playback.SyncInterval)},
		{"playback.idle_sync_interval", itoa(cfg.Playback.IdleSyncInterval)},
		{"playback.fast_check_interval", itoa(cfg.Playback.FastCheckInterval)},
		{"playback.health_interval", itoa(cfg.Playback.HealthInterval)},
		{"playback.watchdog_interval", itoa(cfg.Playback.WatchdogInterval)},
		{"playback.max_retries", itoa(cfg.Playback.MaxRetries)},
		{"playback.allow_audio", btoa(cfg.Playback.AllowAudio)},
		{"playback.preview", btoa(cfg.Playback.Preview)},
		{"telemetry.enabled", btoa(cfg.Telemetry.Enabled)},
		{"telemetry.url", cfg.SocketURL()},
		{"mqtt.enabled", btoa(cfg.MQTT.Enabled)},
		{"mqtt.host", cfg.MQTT.Host},
		{"mqtt.port", itoa(cfg.MQTT.Port)},
		{"mqtt.username", cfg.MQTT.Username},
		{"mqtt.password", secret(cfg.MQTT.Password)},
		{"logging.level", cfg.Logging.Level},
		{"logging.format", cfg.Logging.Format},
	})
	return tw.Render()
}
