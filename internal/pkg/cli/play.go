package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/airenas/scribe/internal/pkg/capture"
	"github.com/airenas/scribe/internal/pkg/player"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const volumeStep = 0.1

func newPlayCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "play <id>",
		Short: "Play the audio of a transcription",
		Long: "Play the audio of a transcription.\n" +
			"Keys: space play/pause, h/l or arrows skip 10s, +/- volume, m mute, q quit.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := app.requireUser(ctx); err != nil {
				return err
			}
			it, err := app.store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if it.AudioURL == "" {
				return fmt.Errorf("transcription %s has no audio", it.ID)
			}
			sink, err := player.NewFFPlay(app.client.URL(it.AudioURL), app.client.Token(), app.log())
			if err != nil {
				return err
			}
			var d time.Duration
			if it.Duration != nil {
				d = time.Duration(*it.Duration * float64(time.Second))
			}
			p, err := player.New(sink, d)
			if err != nil {
				return err
			}
			defer p.Close()
			fmt.Fprintf(app.out, "%s\n", it.Title)
			if !app.isTTY() {
				return playToEnd(ctx, p)
			}
			return playInteractive(ctx, p)
		},
	}
}

func playToEnd(ctx context.Context, p *player.Player) error {
	if err := p.Play(); err != nil {
		return err
	}
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !p.State().Playing {
				return nil
			}
		}
	}
}

func playInteractive(ctx context.Context, p *player.Player) error {
	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("can't switch terminal to raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, old)
		fmt.Fprintln(os.Stderr)
	}()

	keys := make(chan byte)
	go func() {
		buf := make([]byte, 3)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				close(keys)
				return
			}
			k := buf[0]
			if n == 3 && buf[0] == 0x1b && buf[1] == '[' {
				k = arrowKey(buf[2])
			}
			keys <- k
		}
	}()

	if err := p.Play(); err != nil {
		return err
	}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		printState(p.State())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			quit, err := handleKey(p, k)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

// handleKey applies one key press to the player, returns true on quit
func handleKey(p *player.Player, k byte) (bool, error) {
	switch k {
	case 'q', 3:
		return true, nil
	case ' ':
		return false, p.Toggle()
	case 'h':
		return false, p.Skip(-player.SkipStep)
	case 'l':
		return false, p.Skip(player.SkipStep)
	case '+', '=':
		return false, p.SetVolume(p.State().Volume + volumeStep)
	case '-':
		return false, p.SetVolume(p.State().Volume - volumeStep)
	case 'm':
		return false, p.ToggleMute()
	}
	return false, nil
}

func arrowKey(b byte) byte {
	switch b {
	case 'C':
		return 'l'
	case 'D':
		return 'h'
	case 'A':
		return '+'
	case 'B':
		return '-'
	}
	return 0
}

func printState(st player.State) {
	fmt.Fprintf(os.Stderr, "\r%s", stateLine(st))
}

func stateLine(st player.State) string {
	icon := "||"
	if st.Playing {
		icon = "> "
	}
	pos := st.Position.Seconds()
	var dur *float64
	if st.Duration > 0 {
		d := st.Duration.Seconds()
		dur = &d
	}
	vol := fmt.Sprintf("vol %3d%%", int(st.Volume*100+0.5))
	if st.Muted {
		vol = "muted   "
	}
	return fmt.Sprintf("%s %s / %s  %s", icon, capture.FormatDuration(&pos), capture.FormatDuration(dur), vol)
}
