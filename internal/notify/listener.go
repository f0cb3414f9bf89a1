package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Handler receives decoded messages
type Handler func(Message)

// Listener receives NOTIFY payloads on Channel through lib/pq
type Listener struct {
	dsn          string
	pingInterval time.Duration
	logger       *slog.Logger
}

// NewListener creates a Listener
func NewListener(dsn string, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		dsn:          dsn,
		pingInterval: 90 * time.Second,
		logger:       logger,
	}
}

// Run listens until ctx is cancelled, calling handler for every message
func (l *Listener) Run(ctx context.Context, handler Handler) error {
	listener := pq.NewListener(l.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			l.logger.Warn("notification listener connection problem", "event", ev, "error", err)
		case pq.ListenerEventReconnected:
			l.logger.Info("notification listener reconnected")
		}
	})
	defer listener.Close()

	if err := listener.Listen(Channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}

	l.logger.Info("notification listener started", "channel", Channel)

	ticker := time.NewTicker(l.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("notification listener stopped")
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect; notifications may have been missed
			if n == nil {
				continue
			}
			msg, err := Decode(n.Extra)
			if err != nil {
				l.logger.Warn("dropping malformed notification", "error", err)
				continue
			}
			handler(msg)
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				l.logger.Warn("notification listener ping failed", "error", err)
			}
		}
	}
}

// Decode parses a NOTIFY payload
func Decode(payload string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return Message{}, fmt.Errorf("failed to decode notification: %w", err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("notification without type")
	}
	return msg, nil
}
