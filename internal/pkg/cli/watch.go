package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWatchCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the submission events of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := app.requireUser(ctx); err != nil {
				return err
			}
			events, err := app.client.Events(ctx)
			if err != nil {
				return err
			}
			for ev := range events {
				line := fmt.Sprintf("%s %s %s", ev.At.Local().Format("15:04:05"), ev.ID, ev.State)
				if ev.TranscriptionID != "" {
					line += " -> " + ev.TranscriptionID
				}
				if ev.Error != "" {
					line += ": " + ev.Error
				}
				fmt.Fprintln(app.out, line)
			}
			return ctx.Err()
		},
	}
}
