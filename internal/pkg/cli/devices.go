package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDevicesCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices of the recording backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := app.newBackend(app.backend)
			if err != nil {
				return err
			}
			out, err := backend.ListDevices(cmd.Context())
			if err != nil {
				return fmt.Errorf("list devices with backend %s: %w", backend.Name(), err)
			}
			fmt.Fprintf(app.out, "Backend: %s\n%s\n", backend.Name(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&app.backend, "backend", app.backend, "Recording backend: auto|pw-record|arecord|ffmpeg")
	return cmd
}
