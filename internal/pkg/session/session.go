package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/airenas/scribe/internal/pkg/api"
	"go.uber.org/zap"
)

// Remote is the relay auth API
type Remote interface {
	Register(ctx context.Context, in *api.RegisterRequest) (*api.SessionResponse, error)
	Login(ctx context.Context, email, password string) (*api.SessionResponse, error)
	Logout(ctx context.Context) error
	User(ctx context.Context) (*api.User, error)
	Resend(ctx context.Context, email string) error
	Recover(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, token, password string) (*api.User, error)
	SetToken(token string)
}

// Data is a persisted session
type Data struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   int64     `json:"expires_at,omitempty"`
	User        *api.User `json:"user"`
}

// Session keeps the signed in user of the CLI in a token file.
// Lifecycle: loaded on start, refreshed by Current, removed by SignOut.
type Session struct {
	remote Remote
	file   string
	now    func() time.Time
	logger *zap.Logger

	lock sync.Mutex
	cur  *Data
}

// DefaultFile returns the token file in the user config dir
func DefaultFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("can't resolve config dir: %w", err)
	}
	return filepath.Join(dir, "scribe", "session.json"), nil
}

// New loads the session from the file, a missing or broken file means no session
func New(remote Remote, file string, logger *zap.Logger) (*Session, error) {
	if remote == nil {
		return nil, fmt.Errorf("no remote")
	}
	if file == "" {
		return nil, fmt.Errorf("no session file")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	res := &Session{remote: remote, file: file, now: time.Now, logger: logger}
	cur, err := load(file)
	if err != nil {
		logger.Warn("ignoring session file", zap.String("file", file), zap.Error(err))
	}
	res.set(cur)
	return res, nil
}

// SignUp registers the user. The session is created only if the provider does not require email confirmation
func (s *Session) SignUp(ctx context.Context, email, password, fullName string) (*Data, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, api.NewValidationError(missing(map[string]string{"email": email, "password": password})...)
	}
	if len(password) < api.MinPasswordLen {
		return nil, fmt.Errorf("password must have at least %d symbols: %w", api.MinPasswordLen, api.ErrWeakCredential)
	}
	resp, err := s.remote.Register(ctx, &api.RegisterRequest{Email: email, Password: password, FullName: fullName})
	if err != nil {
		return nil, err
	}
	res := &Data{AccessToken: resp.AccessToken, ExpiresAt: resp.ExpiresAt, User: resp.User}
	if res.AccessToken != "" {
		if err := s.store(res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// SignIn creates the session. On failure the current state is left as is
func (s *Session) SignIn(ctx context.Context, email, password string) (*Data, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, api.NewValidationError(missing(map[string]string{"email": email, "password": password})...)
	}
	resp, err := s.remote.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	res := &Data{AccessToken: resp.AccessToken, ExpiresAt: resp.ExpiresAt, User: resp.User}
	if err := s.store(res); err != nil {
		return nil, err
	}
	return res, nil
}

// SignOut clears the session even if the remote call fails
func (s *Session) SignOut(ctx context.Context) error {
	s.lock.Lock()
	had := s.cur != nil
	s.lock.Unlock()
	if had {
		if err := s.remote.Logout(ctx); err != nil {
			s.logger.Warn("remote sign out failed", zap.Error(err))
		}
	}
	return s.clear()
}

// Current refreshes the session. Returns nil user without error if there is no valid session
func (s *Session) Current(ctx context.Context) (*api.User, error) {
	s.lock.Lock()
	cur := s.cur
	s.lock.Unlock()
	if cur == nil {
		return nil, nil
	}
	if cur.ExpiresAt > 0 && s.now().Unix() >= cur.ExpiresAt {
		s.logger.Info("session expired")
		return nil, s.clear()
	}
	u, err := s.remote.User(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			s.logger.Info("session is not valid anymore")
			return nil, s.clear()
		}
		return nil, fmt.Errorf("can't refresh session: %w", err)
	}
	n := *cur
	n.User = u
	if err := s.store(&n); err != nil {
		return nil, err
	}
	return u, nil
}

// Resend asks for another confirmation email
func (s *Session) Resend(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return api.NewValidationError("email")
	}
	return s.remote.Resend(ctx, email)
}

// Recover asks for the password reset email
func (s *Session) Recover(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return api.NewValidationError("email")
	}
	return s.remote.Recover(ctx, email)
}

// UpdatePassword sets a new password with the recovery token, or with the session if the token is empty.
// A recovery token never replaces the stored session
func (s *Session) UpdatePassword(ctx context.Context, token, password string) (*api.User, error) {
	s.lock.Lock()
	cur := s.cur
	s.lock.Unlock()
	if token == "" && cur == nil {
		return nil, api.ErrUnauthenticated
	}
	if password == "" {
		return nil, api.NewValidationError("password")
	}
	if len(password) < api.MinPasswordLen {
		return nil, fmt.Errorf("password must have at least %d symbols: %w", api.MinPasswordLen, api.ErrWeakCredential)
	}
	u, err := s.remote.UpdatePassword(ctx, token, password)
	if err != nil {
		return nil, err
	}
	if token == "" {
		n := *cur
		n.User = u
		if err := s.store(&n); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// User returns the cached user without calling the relay
func (s *Session) User() *api.User {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.cur == nil {
		return nil
	}
	return s.cur.User
}

func (s *Session) store(d *Data) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := save(s.file, d); err != nil {
		return err
	}
	s.setLocked(d)
	return nil
}

func (s *Session) clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.setLocked(nil)
	if err := os.Remove(s.file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("can't remove session file: %w", err)
	}
	return nil
}

func (s *Session) set(d *Data) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.setLocked(d)
}

func (s *Session) setLocked(d *Data) {
	s.cur = d
	if d == nil {
		s.remote.SetToken("")
		return
	}
	s.remote.SetToken(d.AccessToken)
}

func load(file string) (*Data, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var res Data
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("can't decode: %w", err)
	}
	if res.AccessToken == "" {
		return nil, nil
	}
	return &res, nil
}

func save(file string, d *Data) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return fmt.Errorf("can't create session dir: %w", err)
	}
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(file, b, 0o600); err != nil {
		return fmt.Errorf("can't save session: %w", err)
	}
	return nil
}

func missing(values map[string]string) []string {
	var res []string
	for k, v := range values {
		if v == "" {
			res = append(res, k)
		}
	}
	return res
}
