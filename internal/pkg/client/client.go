package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Client communicates with the scribe relay
type Client struct {
	httpclient *http.Client
	url        string
	timeout    time.Duration
	backoff    func() backoff.BackOff
	logger     *zap.Logger

	lock  sync.RWMutex
	token string
}

// New creates relay client
func New(urlStr string, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("wrong url '%s': %w", urlStr, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("no http in url '%s'", urlStr)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpclient: &http.Client{}, url: strings.TrimSuffix(urlStr, "/"), timeout: time.Second * 30,
		backoff: newSimpleBackoff, logger: logger}, nil
}

// SetToken sets access token for the authenticated calls
func (c *Client) SetToken(token string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.token = token
}

// Token returns current access token
func (c *Client) Token() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.token
}

// Register creates an account
func (c *Client) Register(ctx context.Context, in *api.RegisterRequest) (*api.SessionResponse, error) {
	var out api.SessionResponse
	if err := c.call(ctx, callData{method: http.MethodPost, path: "/api/auth/register", in: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login signs in with email and password
func (c *Client) Login(ctx context.Context, email, password string) (*api.SessionResponse, error) {
	var out api.SessionResponse
	if err := c.call(ctx, callData{method: http.MethodPost, path: "/api/auth/login",
		in: &api.Credentials{Email: email, Password: password}, out: &out}); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("no access token in response")
	}
	return &out, nil
}

// Logout invalidates the current token on the server
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, callData{method: http.MethodPost, path: "/api/auth/logout"})
}

// User returns the user of the current token
func (c *Client) User(ctx context.Context) (*api.User, error) {
	res, err := invoke(ctx, c, callData{method: http.MethodGet, path: "/api/auth/user"}, func(r *api.UserResponse) *api.User {
		return r.User
	})
	if err == nil && res == nil {
		return nil, fmt.Errorf("no user in response")
	}
	return res, err
}

// Resend asks to send the confirmation email again
func (c *Client) Resend(ctx context.Context, email string) error {
	return c.call(ctx, callData{method: http.MethodPost, path: "/api/auth/resend", in: &api.ResendRequest{Email: email}})
}

// Recover asks for the password reset email
func (c *Client) Recover(ctx context.Context, email string) error {
	return c.call(ctx, callData{method: http.MethodPost, path: "/api/auth/recover", in: &api.RecoverRequest{Email: email}})
}

// UpdatePassword sets a new password. An empty token means the current session token
func (c *Client) UpdatePassword(ctx context.Context, token, password string) (*api.User, error) {
	var out api.UserResponse
	if err := c.call(ctx, callData{method: http.MethodPut, path: "/api/auth/password",
		in: &api.PasswordRequest{Password: password}, out: &out, token: token}); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, fmt.Errorf("no user in response")
	}
	return out.User, nil
}

// List returns all records of the user, newest first
func (c *Client) List(ctx context.Context) ([]*api.Transcription, error) {
	return invoke(ctx, c, callData{method: http.MethodGet, path: "/api/transcriptions"},
		func(r *api.TranscriptionsResponse) []*api.Transcription {
			return r.Transcriptions
		})
}

// Get returns one record
func (c *Client) Get(ctx context.Context, id string) (*api.Transcription, error) {
	res, err := invoke(ctx, c, callData{method: http.MethodGet, path: "/api/transcriptions/" + url.PathEscape(id)},
		takeTranscription)
	if err == nil && res == nil {
		return nil, fmt.Errorf("no transcription in response")
	}
	return res, err
}

// Create submits a record. It is never retried.
// progress, if not nil, gets the count of the request body bytes sent
func (c *Client) Create(ctx context.Context, in *api.CreateRequest, progress func(sent, total int64)) (*api.Transcription, error) {
	var out api.TranscriptionResponse
	if err := c.call(ctx, callData{method: http.MethodPost, path: "/api/transcriptions", in: in, out: &out,
		progress: progress, noTimeout: true}); err != nil {
		return nil, err
	}
	return checkTranscription(&out)
}

// Update changes the set fields of the record
func (c *Client) Update(ctx context.Context, id string, in *api.UpdateRequest) (*api.Transcription, error) {
	var out api.TranscriptionResponse
	if err := c.call(ctx, callData{method: http.MethodPut, path: "/api/transcriptions/" + url.PathEscape(id),
		in: in, out: &out}); err != nil {
		return nil, err
	}
	return checkTranscription(&out)
}

// Delete removes the record
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.call(ctx, callData{method: http.MethodDelete, path: "/api/transcriptions/" + url.PathEscape(id)})
}

// URL returns absolute URL of the relay path
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.url + "/" + strings.TrimPrefix(path, "/")
}

type callData struct {
	method    string
	path      string
	in        interface{}
	out       interface{}
	progress  func(sent, total int64)
	noTimeout bool
	token     string
}

func invoke[R any, T any](ctx context.Context, c *Client, cd callData, take func(*R) T) (T, error) {
	return goapp.InvokeWithBackoff(ctx, func() (T, bool, error) {
		var out R
		var zero T
		cd.out = &out
		err := c.call(ctx, cd)
		if err != nil {
			if re, ok := err.(*retryableError); ok {
				return zero, true, re.err
			}
			return zero, false, err
		}
		return take(&out), false, nil
	}, c.backoff())
}

func (c *Client) call(ctx context.Context, cd callData) error {
	if !cd.noTimeout {
		var cancelF context.CancelFunc
		ctx, cancelF = context.WithTimeout(ctx, c.timeout)
		defer cancelF()
	}
	var body io.Reader
	var size int64
	if cd.in != nil {
		b, err := json.Marshal(cd.in)
		if err != nil {
			return err
		}
		body, size = bytes.NewReader(b), int64(len(b))
		if cd.progress != nil {
			body = &progressReader{r: body, total: size, f: cd.progress}
		}
	}
	req, err := http.NewRequestWithContext(ctx, cd.method, c.url+cd.path, body)
	if err != nil {
		return err
	}
	req.ContentLength = size
	if cd.in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	t := cd.token
	if t == "" {
		t = c.Token()
	}
	if t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}
	c.logger.Debug("call", zap.String("method", cd.method), zap.String("path", cd.path))
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
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 5000))
		err := decodeError(resp.StatusCode, b)
		if goapp.IsRetryableCode(resp.StatusCode) {
			return &retryableError{err: err}
		}
		return err
	}
	if cd.out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cd.out); err != nil {
		return fmt.Errorf("can't decode response: %w", err)
	}
	return nil
}

// decodeError restores the error kind from the relay error body
func decodeError(code int, b []byte) error {
	var er api.ErrorResponse
	if err := json.Unmarshal(b, &er); err == nil && er.Code != "" {
		return api.FromCode(er.Code, er.Error)
	}
	switch code {
	case http.StatusUnauthorized:
		return api.ErrUnauthenticated
	case http.StatusNotFound:
		return api.ErrNotFound
	}
	msg := er.Error
	if msg == "" {
		msg = goapp.Sanitize(string(b))
	}
	return fmt.Errorf("relay error, code %d: %s", code, msg)
}

func takeTranscription(r *api.TranscriptionResponse) *api.Transcription {
	return r.Transcription
}

func checkTranscription(r *api.TranscriptionResponse) (*api.Transcription, error) {
	if r.Transcription == nil || r.Transcription.ID == "" {
		return nil, fmt.Errorf("no transcription in response")
	}
	return r.Transcription, nil
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	f     func(sent, total int64)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.sent += int64(n)
		pr.f(pr.sent, pr.total)
	}
	return n, err
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

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	res.InitialInterval = time.Millisecond * 200
	return backoff.WithMaxRetries(res, 3)
}
