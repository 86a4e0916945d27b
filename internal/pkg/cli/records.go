package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/capture"
	"github.com/spf13/cobra"
)

func newListCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List transcriptions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := app.requireUser(cmd.Context()); err != nil {
				return err
			}
			items, err := app.store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(app.out, "No transcriptions yet")
				return nil
			}
			w := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tDURATION\tAPI\tTITLE")
			for _, it := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", it.ID, it.CreatedAt.Local().Format("2006-01-02 15:04"),
					capture.FormatDuration(it.Duration), it.APIUsed, it.Title)
			}
			return w.Flush()
		},
	}
}

func newShowCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.requireUser(cmd.Context()); err != nil {
				return err
			}
			it, err := app.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printRecord(app.out, it)
			return nil
		},
	}
}

func newAddCmd(app *appState) *cobra.Command {
	var title, content, apiTag string
	var duration float64
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store a transcript without audio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := app.requireUser(cmd.Context()); err != nil {
				return err
			}
			var d *float64
			if cmd.Flags().Changed("duration") {
				d = &duration
			}
			it, err := app.store.Create(cmd.Context(), title, content, apiTag, d)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "Created %s\n", it.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&content, "content", "", "Transcript text")
	cmd.Flags().StringVar(&apiTag, "api", "", "Source tag, default manual")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Duration in seconds")
	return cmd
}

func newEditCmd(app *appState) *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title or the transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.requireUser(cmd.Context()); err != nil {
				return err
			}
			var tp, cp *string
			if cmd.Flags().Changed("title") {
				tp = &title
			}
			if cmd.Flags().Changed("content") {
				cp = &content
			}
			if tp == nil && cp == nil {
				return fmt.Errorf("nothing to change, use --title or --content")
			}
			it, err := app.store.Update(cmd.Context(), args[0], tp, cp)
			if err != nil {
				return err
			}
			printRecord(app.out, it)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New transcript text")
	return cmd
}

func newDeleteCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transcription and its audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.requireUser(cmd.Context()); err != nil {
				return err
			}
			if err := app.store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(app.out, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func printRecord(w io.Writer, it *api.Transcription) {
	fmt.Fprintf(w, "%s\n%s\n", it.Title, strings.Repeat("=", len([]rune(it.Title))))
	fmt.Fprintf(w, "ID:       %s\n", it.ID)
	fmt.Fprintf(w, "Created:  %s\n", it.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Duration: %s\n", capture.FormatDuration(it.Duration))
	fmt.Fprintf(w, "API:      %s\n", it.APIUsed)
	if it.AudioURL != "" {
		fmt.Fprintf(w, "Audio:    yes, run 'scribe play %s'\n", it.ID)
	}
	fmt.Fprintf(w, "\n%s\n", it.Content)
}
