// Package event defines the procurement domain events published on the
// message bus after a state change commits.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/messaging"
)

// Type names a domain event.
type Type string

const (
	UserRegistered Type = "user.registered"
	RFPCreated     Type = "rfp.created"
	RFPPublished   Type = "rfp.published"
	QuoteSubmitted Type = "quote.submitted"
	OrderAwarded   Type = "order.awarded"
	OrderDecided   Type = "order.decided"
)

// Envelope is the JSON payload written to the bus.
type Envelope struct {
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	RFPID      int64     `json:"rfp_id,omitempty"`
	QuoteID    int64     `json:"quote_id,omitempty"`
	OrderID    int64     `json:"order_id,omitempty"`
	BuyerID    int64     `json:"buyer_id,omitempty"`
	VendorID   int64     `json:"vendor_id,omitempty"`
	UserID     int64     `json:"user_id,omitempty"`
	Status     string    `json:"status,omitempty"`
}

// Key is the partition key: events about one aggregate stay ordered.
func (e Envelope) Key() string {
	switch {
	case e.OrderID != 0:
		return fmt.Sprintf("order-%d", e.OrderID)
	case e.QuoteID != 0:
		return fmt.Sprintf("quote-%d", e.QuoteID)
	case e.RFPID == 0 && e.UserID != 0:
		return fmt.Sprintf("user-%d", e.UserID)
	default:
		return fmt.Sprintf("rfp-%d", e.RFPID)
	}
}

// Decode parses a bus payload.
func Decode(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("event without type")
	}
	return env, nil
}

// Publisher emits domain events. Failures are logged, never returned, since
// the state change they describe has already committed.
type Publisher interface {
	Publish(ctx context.Context, env Envelope)
}

// Module provides the bus-backed publisher.
var Module = fx.Provide(NewPublisher)

// Params defines dependencies for constructing the publisher.
type Params struct {
	fx.In

	Client messaging.Client
	Config config.Config
	Logger *zap.Logger
}

type busPublisher struct {
	client  messaging.Client
	enabled bool
	logger  *zap.Logger
}

// NewPublisher returns a Publisher writing to the configured messaging client.
func NewPublisher(p Params) Publisher {
	return &busPublisher{client: p.Client, enabled: p.Config.Messaging.Enabled, logger: p.Logger}
}

func (b *busPublisher) Publish(ctx context.Context, env Envelope) {
	if !b.enabled || b.client == nil {
		return
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(env)
	if err != nil {
		b.logger.Error("marshal domain event", zap.String("type", string(env.Type)), zap.Error(err))
		return
	}
	msg := messaging.Message{
		Key:     []byte(env.Key()),
		Value:   payload,
		Headers: map[string]string{messaging.TypeHeader: string(env.Type)},
	}
	if err := b.client.Publish(ctx, msg); err != nil {
		b.logger.Error("publish domain event", zap.String("type", string(env.Type)), zap.Error(err))
	}
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Envelope) {}
