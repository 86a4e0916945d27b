package api

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrUnauthenticated - no or expired session
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound - record absent or owned by another identity
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials - wrong email or password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailUnconfirmed - sign in before the email confirmation
	ErrEmailUnconfirmed = errors.New("email not confirmed")
	// ErrEmailInUse - sign up with a registered email
	ErrEmailInUse = errors.New("email already in use")
	// ErrWeakCredential - password does not pass the policy
	ErrWeakCredential = errors.New("weak password")
	// ErrPermissionDenied - no access to the input device
	ErrPermissionDenied = errors.New("audio device permission denied")
	// ErrDeviceUnavailable - no input device
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrInvalidFileType - not an audio file
	ErrInvalidFileType = errors.New("invalid file type")
	// ErrDecode - can't read media metadata
	ErrDecode = errors.New("can't decode audio metadata")
	// ErrBusy - submission already in flight
	ErrBusy = errors.New("submission in progress")
)

// MinPasswordLen is the password length policy
const MinPasswordLen = 6

// ValidationError lists missing or wrong fields
type ValidationError struct {
	Fields []string
}

// NewValidationError creates error for the fields, returns nil if there are no fields
func NewValidationError(fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	res := &ValidationError{Fields: append([]string{}, fields...)}
	sort.Strings(res.Fields)
	return res
}

func (e *ValidationError) Error() string {
	return "missing fields: " + strings.Join(e.Fields, ", ")
}

// TranscriptionError indicates the oracle failure
type TranscriptionError struct {
	Msg string
	err error
}

// NewTranscriptionError wraps the oracle error
func NewTranscriptionError(msg string, err error) error {
	return &TranscriptionError{Msg: msg, err: err}
}

func (e *TranscriptionError) Error() string {
	if e.err != nil && e.Msg == "" {
		return "transcription failed: " + e.err.Error()
	}
	return "transcription failed: " + e.Msg
}

func (e *TranscriptionError) Unwrap() error {
	return e.err
}

// Error codes used on the wire
const (
	CodeValidation          = "validation"
	CodeUnauthenticated     = "unauthenticated"
	CodeNotFound            = "not_found"
	CodeInvalidCredentials  = "invalid_credentials"
	CodeEmailUnconfirmed    = "email_unconfirmed"
	CodeEmailInUse          = "email_in_use"
	CodeWeakCredential      = "weak_credential"
	CodeTranscriptionFailed = "transcription_failed"
	CodeBusy                = "busy"
	CodeInternal            = "internal"
)

var codeErr = map[string]error{
	CodeUnauthenticated:    ErrUnauthenticated,
	CodeNotFound:           ErrNotFound,
	CodeInvalidCredentials: ErrInvalidCredentials,
	CodeEmailUnconfirmed:   ErrEmailUnconfirmed,
	CodeEmailInUse:         ErrEmailInUse,
	CodeWeakCredential:     ErrWeakCredential,
	CodeBusy:               ErrBusy,
}

// Code returns wire code for the error
func Code(err error) string {
	var ve *ValidationError
	var te *TranscriptionError
	switch {
	case errors.As(err, &ve):
		return CodeValidation
	case errors.As(err, &te):
		return CodeTranscriptionFailed
	}
	for c, e := range codeErr {
		if errors.Is(err, e) {
			return c
		}
	}
	return CodeInternal
}

// FromCode restores error from the wire code and message
func FromCode(code, msg string) error {
	if e, ok := codeErr[code]; ok {
		return e
	}
	switch code {
	case CodeValidation:
		return &ValidationError{Fields: parseFields(msg)}
	case CodeTranscriptionFailed:
		return &TranscriptionError{Msg: strings.TrimPrefix(msg, "transcription failed: ")}
	}
	return fmt.Errorf("server error: %s", msg)
}

func parseFields(msg string) []string {
	s := strings.TrimPrefix(msg, "missing fields: ")
	res := []string{}
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			res = append(res, f)
		}
	}
	return res
}
