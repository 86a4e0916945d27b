package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/sashabaranov/go-openai"
)

// OpenAI calls the whisper transcription endpoint
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates whisper client, url and model may be empty
func NewOpenAI(url, key, model string) (*OpenAI, error) {
	if key == "" {
		return nil, fmt.Errorf("no openai key")
	}
	cfg := openai.DefaultConfig(key)
	if url != "" {
		cfg.BaseURL = url
	}
	cfg.HTTPClient = newHTTPClient(0)
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// Transcribe sends audio as a multipart file
func (o *OpenAI) Transcribe(ctx context.Context, audio *Audio) (*Result, error) {
	defer goapp.Estimate("openai")()
	goapp.Log.Info().Str("model", o.model).Str("file", audio.name()).Int("size", len(audio.Data)).Msg("call openai")
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		Reader:   bytes.NewReader(audio.Data),
		FilePath: audio.name(),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, api.NewTranscriptionError(apiErr.Message, err)
		}
		return nil, api.NewTranscriptionError("", err)
	}
	return &Result{Text: resp.Text, APIUsed: ProviderOpenAI}, nil
}
