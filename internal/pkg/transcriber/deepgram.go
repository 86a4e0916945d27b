package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/api"
)

const deepgramURL = "https://api.deepgram.com/v1/listen"

// Deepgram calls the Deepgram prerecorded audio API
type Deepgram struct {
	httpclient *http.Client
	url        string
	key        string
}

// NewDeepgram creates Deepgram client, url may be empty
func NewDeepgram(urlStr, key string) (*Deepgram, error) {
	if key == "" {
		return nil, fmt.Errorf("no deepgram key")
	}
	if urlStr == "" {
		urlStr = deepgramURL
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("can't parse url '%s': %w", urlStr, err)
	}
	q := u.Query()
	for k, v := range map[string]string{"smart_format": "true", "punctuate": "true", "diarize": "true"} {
		if q.Get(k) == "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return &Deepgram{httpclient: newHTTPClient(10 * time.Minute), url: u.String(), key: key}, nil
}

type deepgramResponse struct {
	Results *struct {
		Channels []struct {
			Alternatives []struct {
				Transcript *string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

type deepgramError struct {
	ErrCode string `json:"err_code"`
	ErrMsg  string `json:"err_msg"`
}

// Transcribe sends audio bytes and returns the first alternative transcript
func (d *Deepgram) Transcribe(ctx context.Context, audio *Audio) (*Result, error) {
	defer goapp.Estimate("deepgram")()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(audio.Data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+d.key)
	req.Header.Set("Content-Type", audio.mime())
	goapp.Log.Info().Str("mime", audio.mime()).Int("size", len(audio.Data)).Msg("call deepgram")
	resp, err := d.httpclient.Do(req)
	if err != nil {
		return nil, api.NewTranscriptionError("", fmt.Errorf("can't call deepgram: %w", err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2000))
		return nil, api.NewTranscriptionError(errorMsg(b, resp.Status), nil)
	}
	var respData deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, api.NewTranscriptionError("malformed response", err)
	}
	if respData.Results == nil || len(respData.Results.Channels) == 0 ||
		len(respData.Results.Channels[0].Alternatives) == 0 ||
		respData.Results.Channels[0].Alternatives[0].Transcript == nil {
		return nil, api.NewTranscriptionError("no transcript in response", nil)
	}
	return &Result{Text: *respData.Results.Channels[0].Alternatives[0].Transcript, APIUsed: ProviderDeepgram}, nil
}

func errorMsg(b []byte, status string) string {
	var ed deepgramError
	if err := json.Unmarshal(b, &ed); err == nil && ed.ErrMsg != "" {
		return ed.ErrMsg
	}
	if s := strings.TrimSpace(goapp.Sanitize(string(b))); s != "" {
		return fmt.Sprintf("%s: %s", status, s)
	}
	return status
}
