package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/spf13/viper"
)

const (
	// ProviderDeepgram tag of the Deepgram prerecorded API
	ProviderDeepgram = "deepgram"
	// ProviderOpenAI tag of the OpenAI whisper API
	ProviderOpenAI = "openai"
)

// Audio is the oracle input
type Audio struct {
	Data     []byte
	MimeType string
	FileName string
}

// Result is the oracle output
type Result struct {
	Text    string
	APIUsed string
}

// Transcriber is a speech to text oracle. It is never retried by callers
type Transcriber interface {
	Transcribe(ctx context.Context, audio *Audio) (*Result, error)
}

// NewFromConfig creates transcriber by transcriber.provider
func NewFromConfig(cfg *viper.Viper) (Transcriber, error) {
	provider := strings.ToLower(cfg.GetString("transcriber.provider"))
	switch provider {
	case "", ProviderDeepgram:
		return NewDeepgram(cfg.GetString("transcriber.url"), cfg.GetString("transcriber.key"))
	case ProviderOpenAI:
		return NewOpenAI(cfg.GetString("transcriber.url"), cfg.GetString("transcriber.key"), cfg.GetString("transcriber.model"))
	}
	return nil, fmt.Errorf("unknown transcriber provider '%s'", provider)
}

func (a *Audio) mime() string {
	if a.MimeType != "" {
		return a.MimeType
	}
	return utils.MimeByName(a.FileName)
}

func (a *Audio) name() string {
	if a.FileName != "" {
		return filepath.Base(a.FileName)
	}
	ext := utils.ExtByMime(a.mime())
	if ext == "" {
		ext = ".mp3"
	}
	return "audio" + ext
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: newTransport(), Timeout: timeout}
}

func newTransport() http.RoundTripper {
	// default roundripper keeps just 2 idle connections per host
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 50
	res.MaxIdleConns = 20
	res.MaxIdleConnsPerHost = 20
	res.IdleConnTimeout = 90 * time.Second
	return res
}
