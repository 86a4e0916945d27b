package messages

import (
	amessages "github.com/airenas/async-api/pkg/messages"
)

const (
	st = "SCRIBE/"
	// Work queue name
	Work = st + "Work"
	// CleanAudio job type, removes raw audio artifacts of a deleted record
	CleanAudio = "clean-audio"
)

// CleanMessage asks to remove all stored audio of the transcription
type CleanMessage struct {
	amessages.QueueMessage
	Owner    string `json:"owner,omitempty"`
	AudioURL string `json:"audioURL,omitempty"`
}

// NewCleanMessage creates a clean message for transcription ID
func NewCleanMessage(id, owner, audioURL string) *CleanMessage {
	return &CleanMessage{QueueMessage: amessages.QueueMessage{ID: id}, Owner: owner, AudioURL: audioURL}
}
