package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/cenkalti/backoff/v4"
)

// Session is an identity provider session
type Session struct {
	AccessToken string
	ExpiresAt   int64
	User        *persistence.Identity
}

// Client communicates with the GoTrue compatible identity service
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	timeout    time.Duration
	backoff    func() backoff.BackOff
}

// NewClient creates identity client
func NewClient(urlStr, key string) (*Client, error) {
	if urlStr == "" {
		return nil, fmt.Errorf("no identity url")
	}
	if key == "" {
		return nil, fmt.Errorf("no identity key")
	}
	return &Client{httpclient: &http.Client{}, url: strings.TrimSuffix(urlStr, "/") + "/auth/v1",
		key: key, timeout: time.Second * 20, backoff: newSimpleBackoff}, nil
}

type userData struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
}

type sessionData struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   int64     `json:"expires_at"`
	ExpiresIn   int64     `json:"expires_in"`
	User        *userData `json:"user"`
	userData
}

type errorData struct {
	Code             interface{} `json:"code"`
	ErrorCode        string      `json:"error_code"`
	Msg              string      `json:"msg"`
	Message          string      `json:"message"`
	Error            string      `json:"error"`
	ErrorDescription string      `json:"error_description"`
}

// SignUp registers a new identity. AccessToken is empty when the email must be confirmed first
func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (*Session, error) {
	in := map[string]interface{}{"email": email, "password": password,
		"data": map[string]string{"full_name": fullName}}
	var out sessionData
	if err := c.call(ctx, http.MethodPost, "/signup", "", in, &out); err != nil {
		return nil, err
	}
	return out.toSession(time.Now())
}

// SignIn logs in by email and password
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var out sessionData
	if err := c.call(ctx, http.MethodPost, "/token?grant_type=password", "",
		map[string]string{"email": email, "password": password}, &out); err != nil {
		return nil, err
	}
	res, err := out.toSession(time.Now())
	if err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, fmt.Errorf("no access token in response")
	}
	return res, nil
}

// SignOut invalidates the token
func (c *Client) SignOut(ctx context.Context, token string) error {
	return c.call(ctx, http.MethodPost, "/logout", token, nil, nil)
}

// User returns identity of the token, api.ErrUnauthenticated if token is not valid
func (c *Client) User(ctx context.Context, token string) (*persistence.Identity, error) {
	return goapp.InvokeWithBackoff(ctx, func() (*persistence.Identity, bool, error) {
		var out userData
		err := c.call(ctx, http.MethodGet, "/user", token, nil, &out)
		if err != nil {
			var re *retryableError
			if asRetryable(err, &re) {
				return nil, true, re.err
			}
			return nil, false, err
		}
		if out.ID == "" {
			return nil, false, fmt.Errorf("no user in response")
		}
		return out.toIdentity(), false, nil
	}, c.backoff())
}

// Resend sends the signup confirmation email again
func (c *Client) Resend(ctx context.Context, email string) error {
	return c.call(ctx, http.MethodPost, "/resend", "", map[string]string{"type": "signup", "email": email}, nil)
}

// Recover sends the password reset email. The link in it carries a recovery access token
func (c *Client) Recover(ctx context.Context, email string) error {
	return c.call(ctx, http.MethodPost, "/recover", "", map[string]string{"email": email}, nil)
}

// UpdatePassword sets a new password for the token owner
func (c *Client) UpdatePassword(ctx context.Context, token, password string) (*persistence.Identity, error) {
	var out userData
	if err := c.call(ctx, http.MethodPut, "/user", token, map[string]string{"password": password}, &out); err != nil {
		var re *retryableError
		if asRetryable(err, &re) {
			return nil, re.err
		}
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("no user in response")
	}
	return out.toIdentity(), nil
}

func (c *Client) call(ctx context.Context, method, path, token string, in, out interface{}) error {
	ctx, cancelF := context.WithTimeout(ctx, c.timeout)
	defer cancelF()
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.key)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpclient.Do(req)
	if err != nil {
		err = fmt.Errorf("can't call: %w", err)
		if goapp.IsRetryableErr(err) {
			return &retryableError{err: err}
		}
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2000))
		err := classify(resp.StatusCode, b)
		if goapp.IsRetryableCode(resp.StatusCode) {
			return &retryableError{err: err}
		}
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("can't decode response: %w", err)
	}
	return nil
}

func classify(code int, b []byte) error {
	var ed errorData
	_ = json.Unmarshal(b, &ed)
	msg := firstNonEmpty(ed.Msg, ed.Message, ed.ErrorDescription, ed.Error)
	lmsg := strings.ToLower(msg)
	switch {
	case ed.ErrorCode == "email_not_confirmed" || strings.Contains(lmsg, "email not confirmed"):
		return api.ErrEmailUnconfirmed
	case ed.ErrorCode == "invalid_credentials" || strings.Contains(lmsg, "invalid login credentials"):
		return api.ErrInvalidCredentials
	case ed.ErrorCode == "user_already_exists" || ed.ErrorCode == "email_exists" ||
		strings.Contains(lmsg, "already registered"):
		return api.ErrEmailInUse
	case ed.ErrorCode == "weak_password" || strings.Contains(lmsg, "password should be"):
		return fmt.Errorf("%s: %w", msg, api.ErrWeakCredential)
	case code == http.StatusUnauthorized || ed.ErrorCode == "bad_jwt" || ed.ErrorCode == "session_not_found":
		return api.ErrUnauthenticated
	}
	if msg == "" {
		msg = goapp.Sanitize(string(b))
	}
	return fmt.Errorf("identity service error, code %d: %s", code, msg)
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *sessionData) toSession(now time.Time) (*Session, error) {
	u := s.User
	if u == nil && s.userData.ID != "" {
		u = &s.userData
	}
	if u == nil || u.ID == "" {
		return nil, fmt.Errorf("no user in response")
	}
	res := &Session{AccessToken: s.AccessToken, ExpiresAt: s.ExpiresAt, User: u.toIdentity()}
	if res.ExpiresAt == 0 && s.ExpiresIn > 0 {
		res.ExpiresAt = now.Unix() + s.ExpiresIn
	}
	return res, nil
}

func (u *userData) toIdentity() *persistence.Identity {
	return &persistence.Identity{ID: u.ID, Email: u.Email, FullName: u.UserMetadata.FullName}
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func asRetryable(err error, target **retryableError) bool {
	res, ok := err.(*retryableError)
	if ok {
		*target = res
	}
	return ok
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	res.InitialInterval = time.Millisecond * 200
	return backoff.WithMaxRetries(res, 3)
}
