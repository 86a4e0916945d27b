package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/identity"
	"github.com/airenas/scribe/internal/pkg/persistence"
)

// IdentityProvider is the external identity service
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password, fullName string) (*identity.Session, error)
	SignIn(ctx context.Context, email, password string) (*identity.Session, error)
	SignOut(ctx context.Context, token string) error
	User(ctx context.Context, token string) (*persistence.Identity, error)
	Resend(ctx context.Context, email string) error
	Recover(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, token, password string) (*persistence.Identity, error)
}

// ProfileDB keeps profiles paired with identities
type ProfileDB interface {
	InsertProfile(ctx context.Context, item *persistence.Profile) error
	LoadProfile(ctx context.Context, id string) (*persistence.Profile, error)
}

// Service is the server side session service
type Service struct {
	idp      IdentityProvider
	profiles ProfileDB
	now      func() time.Time
}

// NewService creates auth service
func NewService(idp IdentityProvider, profiles ProfileDB) (*Service, error) {
	if idp == nil {
		return nil, fmt.Errorf("no identity provider")
	}
	if profiles == nil {
		return nil, fmt.Errorf("no profile DB")
	}
	return &Service{idp: idp, profiles: profiles, now: time.Now}, nil
}

// SignUp registers identity and creates its profile
func (s *Service) SignUp(ctx context.Context, email, password, fullName string) (*identity.Session, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	if len(password) < api.MinPasswordLen {
		return nil, weakPassword()
	}
	res, err := s.idp.SignUp(ctx, email, password, strings.TrimSpace(fullName))
	if err != nil {
		return nil, err
	}
	if res.User.FullName == "" {
		res.User.FullName = strings.TrimSpace(fullName)
	}
	if err := s.ensureProfile(ctx, res.User); err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("owner", res.User.ID).Bool("confirmed", res.AccessToken != "").Msg("signed up")
	return res, nil
}

// SignIn logs in
func (s *Service) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	return s.idp.SignIn(ctx, email, password)
}

// SignOut invalidates token remotely, the error is informational only
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.idp.SignOut(ctx, token)
}

// Authenticate validates token against the identity service
func (s *Service) Authenticate(ctx context.Context, token string) (*persistence.Identity, error) {
	if token == "" {
		return nil, api.ErrUnauthenticated
	}
	return s.idp.User(ctx, token)
}

// CurrentUser returns token identity with profile data, creates a missing profile
func (s *Service) CurrentUser(ctx context.Context, token string) (*persistence.Identity, error) {
	res, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.LoadProfile(ctx, res.ID)
	if err != nil {
		return nil, fmt.Errorf("can't load profile: %w", err)
	}
	if p == nil {
		if err := s.ensureProfile(ctx, res); err != nil {
			return nil, err
		}
		return res, nil
	}
	if p.FullName != "" {
		res.FullName = p.FullName
	}
	return res, nil
}

// Resend asks to send the confirmation email again
func (s *Service) Resend(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return api.NewValidationError("email")
	}
	return s.idp.Resend(ctx, email)
}

// Recover sends the password reset link. An unknown email is not reported
func (s *Service) Recover(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); email == "" || err != nil {
		return api.NewValidationError("email")
	}
	return s.idp.Recover(ctx, email)
}

// UpdatePassword sets the password of the token owner, the token may come from the recovery link
func (s *Service) UpdatePassword(ctx context.Context, token, password string) (*persistence.Identity, error) {
	if token == "" {
		return nil, api.ErrUnauthenticated
	}
	if password == "" {
		return nil, api.NewValidationError("password")
	}
	if len(password) < api.MinPasswordLen {
		return nil, weakPassword()
	}
	res, err := s.idp.UpdatePassword(ctx, token, password)
	if err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("owner", res.ID).Msg("password updated")
	return res, nil
}

func (s *Service) ensureProfile(ctx context.Context, id *persistence.Identity) error {
	err := s.profiles.InsertProfile(ctx, &persistence.Profile{ID: id.ID, Email: id.Email,
		FullName: id.FullName, Created: s.now()})
	if err != nil {
		return fmt.Errorf("can't create profile: %w", err)
	}
	return nil
}

func weakPassword() error {
	return fmt.Errorf("password must be at least %d characters: %w", api.MinPasswordLen, api.ErrWeakCredential)
}

func validateCredentials(email, password string) error {
	var missing []string
	if email == "" {
		missing = append(missing, "email")
	} else if _, err := mail.ParseAddress(email); err != nil {
		missing = append(missing, "email")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	return api.NewValidationError(missing...)
}
