package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/capture"
	"github.com/airenas/scribe/internal/pkg/client"
	"github.com/airenas/scribe/internal/pkg/logging"
	"github.com/airenas/scribe/internal/pkg/session"
	"github.com/airenas/scribe/internal/pkg/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Version is set on build
var Version = "DEV"

type appState struct {
	server      string
	tokenFile   string
	backend     string
	input       string
	inputFormat string
	verbose     bool
	jsonLogs    bool
	noProgress  bool

	logger  *zap.Logger
	out     io.Writer
	in      io.Reader
	lines   lineReader
	now     func() time.Time
	client  *client.Client
	session *session.Session
	store   *store.Store
	device  *capture.Device
	loader  *capture.FileLoader

	newBackend func(preferred string) (capture.Backend, error)
	isTTY      func() bool
}

func newAppState() *appState {
	return &appState{
		server:     envOr("SCRIBE_SERVER", "http://localhost:8000"),
		tokenFile:  os.Getenv("SCRIBE_TOKEN_FILE"),
		backend:    envOr("SCRIBE_BACKEND", "auto"),
		input:      os.Getenv("SCRIBE_INPUT"),
		out:        os.Stdout,
		in:         os.Stdin,
		now:        time.Now,
		device:     capture.NewDevice(),
		loader:     capture.NewFileLoader(),
		newBackend: capture.NewBackend,
		isTTY:      func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

// NewRootCmd creates the scribe command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(newAppState())
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scribe",
		Short:         "Record or upload audio and keep the transcripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return app.init()
		},
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.server, "server", app.server, "Relay URL (SCRIBE_SERVER)")
	pf.StringVar(&app.tokenFile, "token-file", app.tokenFile, "Session file (SCRIBE_TOKEN_FILE), default in the user config dir")
	pf.BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	pf.BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	pf.BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")

	cmd.AddCommand(newRegisterCmd(app), newLoginCmd(app), newLogoutCmd(app), newWhoamiCmd(app), newResendCmd(app))
	cmd.AddCommand(newRecoverCmd(app), newPasswordCmd(app))
	cmd.AddCommand(newListCmd(app), newShowCmd(app), newAddCmd(app), newEditCmd(app), newDeleteCmd(app))
	cmd.AddCommand(newRecordCmd(app), newUploadCmd(app), newPlayCmd(app), newDevicesCmd(app), newWatchCmd(app))
	return cmd
}

func (a *appState) init() error {
	logger, err := logging.New(logging.Options{Verbose: a.verbose, JSON: a.jsonLogs})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.logger = logger
	if a.tokenFile == "" {
		if a.tokenFile, err = session.DefaultFile(); err != nil {
			return err
		}
	}
	if a.client, err = client.New(a.server, logger); err != nil {
		return err
	}
	if a.session, err = session.New(a.client, a.tokenFile, logger); err != nil {
		return err
	}
	if a.store, err = store.New(a.client); err != nil {
		return err
	}
	return nil
}

// requireUser gates the commands that need a valid session
func (a *appState) requireUser(ctx context.Context) (*api.User, error) {
	u, err := a.session.Current(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("not signed in, run 'scribe login': %w", api.ErrUnauthenticated)
	}
	return u, nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// Explain returns a user facing hint for the known error kinds
func Explain(err error) string {
	var ve *api.ValidationError
	var te *api.TranscriptionError
	switch {
	case errors.As(err, &ve):
		return fmt.Sprintf("please fill: %v", ve.Fields)
	case errors.As(err, &te):
		return "transcription failed, you may submit again"
	case errors.Is(err, api.ErrUnauthenticated):
		return "sign in with 'scribe login'"
	case errors.Is(err, api.ErrInvalidCredentials):
		return "check the email and password, 'scribe recover <email>' resets the password"
	case errors.Is(err, api.ErrWeakCredential):
		return fmt.Sprintf("use at least %d characters", api.MinPasswordLen)
	case errors.Is(err, api.ErrEmailUnconfirmed):
		return "confirm your email or run 'scribe resend <email>'"
	case errors.Is(err, api.ErrPermissionDenied):
		return "allow access to the microphone and try again"
	case errors.Is(err, api.ErrDeviceUnavailable):
		return "check the input device, 'scribe devices' lists them"
	case errors.Is(err, api.ErrInvalidFileType):
		return "select an audio file"
	}
	return ""
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
