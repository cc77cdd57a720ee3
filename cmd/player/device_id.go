package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/prontotv/internal/player"
)

func newDeviceIDCommand(ctx *commandContext) *cobra.Command {
	var create bool

	cmd := &cobra.Command{
		Use:   "device-id",
		Short: "Print this device's id",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var id string
			if create {
				id, err = player.LoadOrCreateDeviceID(cfg.Device.IDFile)
			} else {
				id, err = player.ReadDeviceID(cfg.Device.IDFile)
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("no device id at %s yet (run the player or pass --create)", cfg.Device.IDFile)
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&create, "create", false, "Generate and store an id if none exists")
	return cmd
}
