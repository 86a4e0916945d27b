package utils

import (
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var extMime = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/m4a",
	".flac": "audio/flac",
	".webm": "audio/webm",
	".mp4":  "audio/mp4",
}

var mimeExt = map[string]string{
	"audio/mpeg":   ".mp3",
	"audio/mp3":    ".mp3",
	"audio/wav":    ".wav",
	"audio/wave":   ".wav",
	"audio/x-wav":  ".wav",
	"audio/ogg":    ".ogg",
	"audio/m4a":    ".m4a",
	"audio/x-m4a":  ".m4a",
	"audio/flac":   ".flac",
	"audio/x-flac": ".flac",
	"audio/webm":   ".webm",
	"audio/mp4":    ".mp4",
}

// DefaultAudioMime is used when nothing is known about the audio
const DefaultAudioMime = "audio/mpeg"

//SupportAudioExt checks if audio ext is supported
func SupportAudioExt(ext string) bool {
	_, ok := extMime[strings.ToLower(ext)]
	return ok
}

// MimeByName returns audio mime type by the file extension, DefaultAudioMime if unknown
func MimeByName(name string) string {
	if res, ok := extMime[strings.ToLower(filepath.Ext(name))]; ok {
		return res
	}
	return DefaultAudioMime
}

// ExtByMime returns file extension for the audio mime type
func ExtByMime(m string) string {
	mt, _, err := mime.ParseMediaType(m)
	if err != nil {
		return ""
	}
	return mimeExt[strings.ToLower(mt)]
}

// IsAudioMime checks if mime type is of audio/*
func IsAudioMime(m string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(m)), "audio/")
}

// MakeArtifactName generates storage name of the audio for the record ID
func MakeArtifactName(ID, ext string) (string, error) {
	if ID == "" || strings.ContainsAny(ID, `/\.`) {
		return "", fmt.Errorf("wrong ID '%s'", ID)
	}
	return path.Join(ID, uuid.New().String()+strings.ToLower(ext)), nil
}
