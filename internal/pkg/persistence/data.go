package persistence

import (
	"database/sql"
	"time"
)

type (

	//Transcription table
	Transcription struct {
		ID       string
		UserID   string
		Title    string
		Content  string
		APIUsed  string
		AudioURL sql.NullString
		Duration *float64
		Created  time.Time
		Updated  time.Time
	}

	//TranscriptionUpdate keeps fields to change, nil means no change
	TranscriptionUpdate struct {
		Title   *string
		Content *string
	}

	//Profile table, paired 1:1 with identity
	Profile struct {
		ID       string
		Email    string
		FullName string
		Created  time.Time
	}

	//Identity is the authenticated user
	Identity struct {
		ID       string
		Email    string
		FullName string
	}
)

// Empty returns true if update changes nothing
func (u *TranscriptionUpdate) Empty() bool {
	return u == nil || (u.Title == nil && u.Content == nil)
}
