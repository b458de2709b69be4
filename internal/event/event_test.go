package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/messaging"
)

type recordingClient struct {
	keys     []string
	types    []string
	payloads [][]byte
	err      error
}

func (r *recordingClient) Publish(_ context.Context, msg messaging.Message) error {
	r.keys = append(r.keys, string(msg.Key))
	r.types = append(r.types, msg.Type())
	r.payloads = append(r.payloads, msg.Value)
	return r.err
}

func (r *recordingClient) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (r *recordingClient) Topic() string { return "procurement.events" }

func TestPublishWritesEnvelope(t *testing.T) {
	client := &recordingClient{}
	cfg := config.Config{Messaging: config.Messaging{Enabled: true}}
	pub := NewPublisher(Params{Client: client, Config: cfg, Logger: zap.NewNop()})

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pub.Publish(context.Background(), Envelope{Type: OrderAwarded, OccurredAt: at, OrderID: 5, RFPID: 2, BuyerID: 7, VendorID: 9})

	require.Equal(t, []string{"order-5"}, client.keys)
	require.Equal(t, []string{"order.awarded"}, client.types)
	env, err := Decode(client.payloads[0])
	require.NoError(t, err)
	require.Equal(t, OrderAwarded, env.Type)
	require.Equal(t, int64(7), env.BuyerID)
	require.True(t, at.Equal(env.OccurredAt))
}

func TestPublishDisabled(t *testing.T) {
	client := &recordingClient{}
	pub := NewPublisher(Params{Client: client, Config: config.Config{}, Logger: zap.NewNop()})
	pub.Publish(context.Background(), Envelope{Type: RFPPublished, RFPID: 1})
	require.Empty(t, client.payloads)
}

func TestPublishSwallowsBusErrors(t *testing.T) {
	client := &recordingClient{err: errors.New("broker down")}
	cfg := config.Config{Messaging: config.Messaging{Enabled: true}}
	pub := NewPublisher(Params{Client: client, Config: cfg, Logger: zap.NewNop()})
	require.NotPanics(t, func() {
		pub.Publish(context.Background(), Envelope{Type: QuoteSubmitted, QuoteID: 3})
	})
	require.Equal(t, []string{"quote-3"}, client.keys)
}

func TestDecodeRejectsUntyped(t *testing.T) {
	_, err := Decode([]byte(`{"rfp_id":1}`))
	require.Error(t, err)
	_, err = Decode([]byte(`not json`))
	require.Error(t, err)
}

func TestEnvelopeKey(t *testing.T) {
	cases := map[string]Envelope{
		"order-4": {Type: OrderDecided, OrderID: 4, QuoteID: 3, RFPID: 2},
		"quote-3": {Type: QuoteSubmitted, QuoteID: 3, RFPID: 2},
		"rfp-2":   {Type: RFPCreated, RFPID: 2, BuyerID: 1},
		"user-8":  {Type: UserRegistered, UserID: 8},
	}
	for want, env := range cases {
		require.Equal(t, want, env.Key(), string(env.Type))
	}
}
