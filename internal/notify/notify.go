// Package notify fans out lifecycle changes between service instances over
// Postgres LISTEN/NOTIFY, so every instance can push them to its websocket clients.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/terra-clan/jury-engine/internal/events"
)

// Channel is the Postgres notification channel
const Channel = "jury_events"

// Message types pushed to clients
const (
	TypeInvalidated  = "invalidated"
	TypeRoundOverdue = "round_overdue"
)

// Message is the wire form shared by NOTIFY payloads and websocket frames
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Invalidation asks clients to refetch an aggregate
type Invalidation struct {
	Scope events.Scope `json:"scope"`
	ID    string       `json:"id,omitempty"`
}

// RoundOverdue reports an active round past its deadline
type RoundOverdue struct {
	RoundID    string `json:"round_id"`
	CampaignID string `json:"campaign_id"`
}

// NewMessage encodes payload under msgType
func NewMessage(msgType string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return Message{Type: msgType, Payload: data}, nil
}

// Notifier sends a message to every listening instance
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Sender is the storage side of NOTIFY
type Sender interface {
	Notify(ctx context.Context, channel, payload string) error
}

// PostgresNotifier publishes messages with pg_notify
type PostgresNotifier struct {
	sender Sender
}

// NewPostgresNotifier creates a PostgresNotifier
func NewPostgresNotifier(sender Sender) *PostgresNotifier {
	return &PostgresNotifier{sender: sender}
}

// Notify publishes msg on Channel
func (n *PostgresNotifier) Notify(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return n.sender.Notify(ctx, Channel, string(data))
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, msg Message) error

// Notify calls f
func (f NotifierFunc) Notify(ctx context.Context, msg Message) error { return f(ctx, msg) }
