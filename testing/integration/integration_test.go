//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/client"
	"github.com/airenas/scribe/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testToken = "integration-token"
	badAudio  = "bad-audio"
)

type config struct {
	apiURL     string
	dbURL      string
	httpclient *http.Client
}

var cfg config

// TestMain expects the relay configured with identity.url and transcriber.url pointing to the mock on :9876
func TestMain(m *testing.M) {
	cfg.apiURL = GetEnvOrFail("API_URL")
	cfg.dbURL = GetEnvOrFail("DB_URL")
	cfg.httpclient = &http.Client{Timeout: time.Second * 30}

	tCtx, cf := context.WithTimeout(context.Background(), time.Second*20)
	defer cf()
	WaitForOpenOrFail(tCtx, cfg.dbURL)
	WaitForOpenOrFail(tCtx, cfg.apiURL)
	waitForDB(tCtx, cfg.dbURL)

	l, ts := startMockService(9876)
	defer ts.Close()
	defer l.Close()

	os.Exit(m.Run())
}

func TestLive(t *testing.T) {
	t.Parallel()
	req, err := http.NewRequest(http.MethodGet, cfg.apiURL+"/live", nil)
	require.Nil(t, err)
	test.CheckCode(t, test.Invoke(t, cfg.httpclient, req), http.StatusOK)
}

func TestUnauthenticated(t *testing.T) {
	t.Parallel()
	cl := newClient(t)
	_, err := cl.List(test.Ctx(t))
	assert.ErrorIs(t, err, api.ErrUnauthenticated)
}

func TestLogin_Invalid(t *testing.T) {
	t.Parallel()
	cl := newClient(t)
	_, err := cl.Login(test.Ctx(t), "olia@o.o", "wrong")
	assert.ErrorIs(t, err, api.ErrInvalidCredentials)
}

func TestRecords(t *testing.T) {
	t.Parallel()
	ctx := test.Ctx(t)
	cl := login(t)

	it, err := cl.Create(ctx, &api.CreateRequest{Title: "Notes", Content: "some text"}, nil)
	require.Nil(t, err)
	assert.Equal(t, api.APITagManual, it.APIUsed)
	assert.Nil(t, it.Duration)

	got, err := cl.Get(ctx, it.ID)
	require.Nil(t, err)
	assert.Equal(t, "some text", got.Content)

	title := "Renamed"
	upd, err := cl.Update(ctx, it.ID, &api.UpdateRequest{Title: &title})
	require.Nil(t, err)
	assert.Equal(t, "Renamed", upd.Title)
	assert.Equal(t, "some text", upd.Content)

	list, err := cl.List(ctx)
	require.Nil(t, err)
	assert.True(t, contains(list, it.ID))

	require.Nil(t, cl.Delete(ctx, it.ID))
	_, err = cl.Get(ctx, it.ID)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()
	cl := login(t)
	_, err := cl.Create(test.Ctx(t), &api.CreateRequest{Title: " ", Content: "x"}, nil)
	var ve *api.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"title"}, ve.Fields)
}

func TestSubmit(t *testing.T) {
	t.Parallel()
	ctx := test.Ctx(t)
	cl := login(t)
	d := 2.0
	data := testWAV(2)
	it, err := cl.Create(ctx, &api.CreateRequest{Title: "Audio", AudioData: base64.StdEncoding.EncodeToString(data),
		MimeType: "audio/wav", FileName: "a.wav", Duration: &d}, nil)
	require.Nil(t, err)
	assert.Equal(t, "hello from the mock", it.Content)
	assert.Equal(t, "deepgram", it.APIUsed)
	require.NotEmpty(t, it.AudioURL)

	req, err := http.NewRequest(http.MethodGet, cl.URL(it.AudioURL), nil)
	require.Nil(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp := test.CheckCode(t, test.Invoke(t, cfg.httpclient, req), http.StatusOK)
	assert.Equal(t, data, []byte(test.RStr(t, resp.Body)))

	require.Nil(t, cl.Delete(ctx, it.ID))
}

func TestSubmit_OracleFails(t *testing.T) {
	t.Parallel()
	cl := login(t)
	_, err := cl.Create(test.Ctx(t), &api.CreateRequest{Title: badAudio,
		AudioData: base64.StdEncoding.EncodeToString([]byte(badAudio)), MimeType: "audio/wav"}, nil)
	var te *api.TranscriptionError
	require.ErrorAs(t, err, &te)
	list, err := cl.List(test.Ctx(t))
	require.Nil(t, err)
	for _, it := range list {
		assert.NotEqual(t, badAudio, it.Title)
	}
}

func TestEvents(t *testing.T) {
	t.Parallel()
	ctx, cf := context.WithCancel(test.Ctx(t))
	defer cf()
	cl := login(t)
	evs, err := cl.Events(ctx)
	require.Nil(t, err)
	it, err := cl.Create(ctx, &api.CreateRequest{Title: "Events", AudioData: base64.StdEncoding.EncodeToString(testWAV(1)),
		MimeType: "audio/wav"}, nil)
	require.Nil(t, err)
	for {
		select {
		case ev, ok := <-evs:
			require.True(t, ok)
			if ev.TranscriptionID == it.ID {
				assert.Equal(t, "complete", ev.State)
				return
			}
		case <-ctx.Done():
			require.Fail(t, "no complete event")
		}
	}
}

func newClient(t *testing.T) *client.Client {
	t.Helper()
	res, err := client.New(cfg.apiURL, zap.NewNop())
	require.Nil(t, err)
	return res
}

func login(t *testing.T) *client.Client {
	t.Helper()
	res := newClient(t)
	_, err := res.Login(test.Ctx(t), "olia@o.o", "secret")
	require.Nil(t, err)
	require.Equal(t, testToken, res.Token())
	return res
}

func contains(list []*api.Transcription, id string) bool {
	for _, it := range list {
		if it.ID == id {
			return true
		}
	}
	return false
}

func startMockService(port int) (net.Listener, *httptest.Server) {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		log.Fatalf("can't start mock service: %v", err)
	}
	user := map[string]interface{}{"id": "8d2f5a54-2a58-4c8e-9a9e-1b1c3b0b3a11", "email": "olia@o.o",
		"user_metadata": map[string]string{"full_name": "Olia"}}
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/v1/token":
			b, _ := io.ReadAll(r.Body)
			if strings.Contains(string(b), `"wrong"`) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error_code": "invalid_credentials",
					"msg": "Invalid login credentials"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"access_token": testToken,
				"expires_at": time.Now().Add(time.Hour).Unix(), "user": user})
		case r.URL.Path == "/auth/v1/user":
			if r.Header.Get("Authorization") != "Bearer "+testToken {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "invalid JWT"})
				return
			}
			writeJSON(w, http.StatusOK, user)
		case r.URL.Path == "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/v1/listen":
			b, _ := io.ReadAll(r.Body)
			if string(b) == badAudio {
				writeJSON(w, http.StatusBadRequest, map[string]string{"err_code": "Bad Request",
					"err_msg": "corrupt or unsupported data"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"results": map[string]interface{}{
				"channels": []interface{}{map[string]interface{}{"alternatives": []interface{}{
					map[string]string{"transcript": "hello from the mock"}}}}}})
		default:
			log.Printf("Unknown request to: %s", r.URL.String())
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	ts.Listener.Close()
	ts.Listener = l
	ts.Start()
	log.Printf("started mock srv on port: %d", port)
	return l, ts
}
