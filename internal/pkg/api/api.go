package api

import "time"

const (
	// PrmAudio is the JSON field holding base64 encoded audio
	PrmAudio = "audioData"
	// PrmTitle is the title field name
	PrmTitle = "title"
	// PrmDuration is the duration field name
	PrmDuration = "duration"
	// PrmMimeType is the audio mime type field name
	PrmMimeType = "mimeType"
	// PrmFileName is the original file name field name
	PrmFileName = "fileName"
)

// APITagManual marks records created without the oracle
const APITagManual = "manual"

// Transcription is the wire form of a transcription record
type Transcription struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	APIUsed   string    `json:"api_used"`
	AudioURL  string    `json:"audio_url,omitempty"`
	Duration  *float64  `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest is a body of POST /api/transcriptions
type CreateRequest struct {
	Title     string   `json:"title"`
	AudioData string   `json:"audioData,omitempty"`
	MimeType  string   `json:"mimeType,omitempty"`
	FileName  string   `json:"fileName,omitempty"`
	Duration  *float64 `json:"duration"`
	Content   string   `json:"content,omitempty"`
	APIUsed   string   `json:"api_used,omitempty"`
}

// UpdateRequest is a body of PUT /api/transcriptions/:id, nil fields are left untouched
type UpdateRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// TranscriptionResponse wraps one record
type TranscriptionResponse struct {
	Success       bool           `json:"success"`
	Transcription *Transcription `json:"transcription"`
}

// TranscriptionsResponse wraps a list of records
type TranscriptionsResponse struct {
	Success        bool             `json:"success"`
	Transcriptions []*Transcription `json:"transcriptions"`
}

// MessageResponse is a simple ack
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is returned on any failure
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
}

// User is the wire form of a session identity
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// Credentials are used for login
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is a body of POST /api/auth/register
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// ResendRequest asks to resend a confirmation email
type ResendRequest struct {
	Email string `json:"email"`
}

// RecoverRequest asks for a password reset email
type RecoverRequest struct {
	Email string `json:"email"`
}

// PasswordRequest sets a new password for the token owner
type PasswordRequest struct {
	Password string `json:"password"`
}

// SessionResponse is returned after login/register
type SessionResponse struct {
	Success     bool   `json:"success"`
	User        *User  `json:"user,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
}

// UserResponse wraps current user
type UserResponse struct {
	Success bool  `json:"success"`
	User    *User `json:"user"`
}

// Event is a submission state change pushed over websocket
type Event struct {
	ID              string    `json:"id"`
	State           string    `json:"state"`
	TranscriptionID string    `json:"transcriptionId,omitempty"`
	Error           string    `json:"error,omitempty"`
	At              time.Time `json:"at"`
}
