package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/airenas/scribe/internal/pkg/capture"
	"github.com/airenas/scribe/internal/pkg/form"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRecordCmd(app *appState) *cobra.Command {
	var title string
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from the microphone and transcribe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := app.requireUser(ctx); err != nil {
				return err
			}
			res, err := app.record(ctx, duration)
			if err != nil {
				return err
			}
			return app.submit(ctx, res, title)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title, a dated one is proposed if empty")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Record duration, e.g. 10s; 0 means stop on Enter")
	cmd.Flags().StringVar(&app.backend, "backend", app.backend, "Recording backend: auto|pw-record|arecord|ffmpeg")
	cmd.Flags().StringVar(&app.input, "input", app.input, "Input device, see 'scribe devices'")
	cmd.Flags().StringVar(&app.inputFormat, "input-format", app.inputFormat, "Input format for ffmpeg backend (pulse|alsa|avfoundation)")
	return cmd
}

func newUploadCmd(app *appState) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Transcribe an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := app.requireUser(ctx); err != nil {
				return err
			}
			res, err := app.loader.Load(ctx, args[0])
			if err != nil {
				return err
			}
			return app.submit(ctx, res, title)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title, a dated one is proposed if empty")
	return cmd
}

func (a *appState) record(ctx context.Context, duration time.Duration) (*capture.Resource, error) {
	backend, err := a.newBackend(a.backend)
	if err != nil {
		return nil, err
	}
	ui := newRecordingUI(a.progressEnabled())
	defer ui.close()
	rec, err := capture.NewRecorder(a.device, backend, capture.Options{Dir: os.TempDir(), SampleRate: 16000, Channels: 1,
		Input: a.input, Format: a.inputFormat, OnTick: ui.tick, Logger: a.log()})
	if err != nil {
		return nil, err
	}
	if err := rec.Start(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			a.log().Warn("can't close recorder", zap.Error(err))
		}
	}()

	if err := a.waitStop(ctx, duration); err != nil {
		return nil, err
	}
	ui.close()
	return rec.Stop()
}

// waitStop waits for the duration or for Enter if the duration is not set.
// A closed input stops the recording too
func (a *appState) waitStop(ctx context.Context, duration time.Duration) error {
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
	fmt.Fprintln(os.Stderr, "Recording... press Enter to stop.")
	if _, err := a.readLine(ctx); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func (a *appState) submit(ctx context.Context, res *capture.Resource, title string) error {
	ui := newSubmitUI(a.progressEnabled(), a.log())
	defer ui.close()
	f, err := form.New(a.store, ui.onChange, a.log())
	if err != nil {
		return err
	}
	f.SetProgress(ui.progress)
	if err := f.SetAudio(res); err != nil {
		return err
	}
	if title != "" {
		if err := f.SetTitle(title); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "Submitting %q (%s)\n", f.Title(), capture.FormatDuration(res.Duration))
	it, err := f.Submit(ctx)
	if err != nil {
		return err
	}
	ui.close()
	printRecord(a.out, it)
	return nil
}
