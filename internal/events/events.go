package events

import (
	"context"
	"encoding/json"
	"time"
)

// Channel is the broker channel all auth events are published on.
const Channel = "auth.events"

// Event types published by the auth flows.
const (
	TypeUserRegistered = "user.registered"
	TypeUserLogin      = "user.login"
)

// Event is the payload published when an auth flow completes.
type Event struct {
	Type   string    `json:"type"`
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Publisher wraps a backend with a stable API for emitting auth events.
// A nil *Publisher is valid and drops every event, so callers never
// need to branch on whether events are configured.
type Publisher struct {
	backend Backend
}

// NewPublisher constructs a Publisher for the provided backend.
func NewPublisher(backend Backend) *Publisher {
	return &Publisher{backend: backend}
}

// Publish serializes the event and sends it on the auth channel.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.backend == nil {
		return nil
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.backend.Publish(ctx, Channel, data, map[string]string{"type": event.Type})
	return err
}

// Subscribe consumes auth events from the broker.
func (p *Publisher) Subscribe(ctx context.Context, handler Handler) error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Subscribe(ctx, Channel, handler)
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}
