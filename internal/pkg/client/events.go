package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Events subscribes to the submission events of the user.
// The channel is closed when ctx is done or the connection drops.
func (c *Client) Events(ctx context.Context) (<-chan *api.Event, error) {
	wsURL := "ws" + strings.TrimPrefix(c.url, "http") + "/api/events"
	header := http.Header{}
	if t := c.Token(); t != "" {
		header.Set("Authorization", "Bearer "+t)
	}
	conn, err := goapp.InvokeWithBackoff(ctx, func() (*websocket.Conn, bool, error) {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
		if err != nil {
			if resp != nil {
				return nil, goapp.IsRetryableCode(resp.StatusCode), dialError(resp, err)
			}
			return nil, goapp.IsRetryableErr(err), err
		}
		return conn, false, nil
	}, c.backoff())
	if err != nil {
		return nil, fmt.Errorf("can't dial to events: %w", err)
	}
	res := make(chan *api.Event, 10)
	readDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-readDone:
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()
	go func() {
		defer close(res)
		defer close(readDone)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					c.logger.Warn("events read error", zap.Error(err))
				}
				return
			}
			var ev api.Event
			if err := json.Unmarshal(msg, &ev); err != nil {
				c.logger.Warn("can't decode event", zap.Error(err))
				continue
			}
			select {
			case res <- &ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return res, nil
}

func dialError(resp *http.Response, err error) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return api.ErrUnauthenticated
	}
	return fmt.Errorf("%w, code %d", err, resp.StatusCode)
}
