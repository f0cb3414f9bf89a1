package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/jury-engine/internal/notify"
)

// Watch streams lifecycle messages from /api/v1/events to fn until ctx is
// cancelled or the connection drops. A cancelled ctx returns nil.
func (c *Client) Watch(ctx context.Context, fn func(notify.Message)) error {
	url := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/v1/events"

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect to events: HTTP %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to connect to events: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		var msg notify.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, websocket.ErrCloseSent) {
				return nil
			}
			return fmt.Errorf("event stream closed: %w", err)
		}
		fn(msg)
	}
}
