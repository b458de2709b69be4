package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/cache"
	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/event"
	"github.com/Additional-Code/procura/internal/messaging"
)

type recordingCache struct {
	mu      sync.Mutex
	deleted []string
	fail    bool
}

func (r *recordingCache) Get(context.Context, string) ([]byte, error) { return nil, cache.ErrCacheMiss }

func (r *recordingCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (r *recordingCache) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, keys...)
	if r.fail {
		return errors.New("redis down")
	}
	return nil
}

func message(t *testing.T, env event.Envelope) messaging.Message {
	t.Helper()
	payload, err := json.Marshal(env)
	require.NoError(t, err)
	return messaging.Message{Topic: "procura.events", Value: payload}
}

func TestInvalidatorOrderDecided(t *testing.T) {
	store := &recordingCache{}
	handle := invalidator(store, zap.NewNop())

	err := handle(context.Background(), message(t, event.Envelope{
		Type: event.OrderDecided, OrderID: 9, BuyerID: 1, VendorID: 2, Status: "approved",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"dashboard:buyer:1",
		"dashboard:vendor:2",
		"dashboard:approver",
		"dashboard:admin",
	}, store.deleted)
}

func TestInvalidatorRFPPublishedLeavesApprovers(t *testing.T) {
	store := &recordingCache{}
	handle := invalidator(store, zap.NewNop())

	require.NoError(t, handle(context.Background(), message(t, event.Envelope{Type: event.RFPPublished, RFPID: 3, BuyerID: 1})))
	assert.Equal(t, []string{"dashboard:buyer:1", "dashboard:admin"}, store.deleted)
}

func TestInvalidatorCreationEvents(t *testing.T) {
	cases := []struct {
		env  event.Envelope
		want []string
	}{
		{event.Envelope{Type: event.RFPCreated, RFPID: 4, BuyerID: 1, Status: "draft"}, []string{"dashboard:buyer:1", "dashboard:admin"}},
		{event.Envelope{Type: event.UserRegistered, UserID: 12, Status: "vendor"}, []string{"dashboard:admin"}},
	}
	for _, tc := range cases {
		store := &recordingCache{}
		require.NoError(t, invalidator(store, zap.NewNop())(context.Background(), message(t, tc.env)))
		assert.Equal(t, tc.want, store.deleted, string(tc.env.Type))
	}
}

func TestInvalidatorSurvivesCacheFailure(t *testing.T) {
	store := &recordingCache{fail: true}
	handle := invalidator(store, zap.NewNop())

	err := handle(context.Background(), message(t, event.Envelope{Type: event.QuoteSubmitted, QuoteID: 4, BuyerID: 1, VendorID: 2}))
	require.NoError(t, err)
	assert.Len(t, store.deleted, 3)
}

func TestInvalidatorAgainstMemoryCache(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory(0)
	for _, k := range []string{"dashboard:buyer:1", "dashboard:buyer:2", "dashboard:admin"} {
		require.NoError(t, store.Set(ctx, k, []byte("{}"), 0))
	}

	handle := invalidator(store, zap.NewNop())
	require.NoError(t, handle(ctx, message(t, event.Envelope{Type: event.RFPPublished, RFPID: 3, BuyerID: 1})))

	_, err := store.Get(ctx, "dashboard:buyer:1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	_, err = store.Get(ctx, "dashboard:admin")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	_, err = store.Get(ctx, "dashboard:buyer:2")
	assert.NoError(t, err)
}

func TestInvalidatorRejectsGarbage(t *testing.T) {
	store := &recordingCache{}
	handle := invalidator(store, zap.NewNop())

	err := handle(context.Background(), messaging.Message{Value: []byte(`{"rfp_id":1}`)})
	require.Error(t, err)
	assert.Empty(t, store.deleted)
}

func TestDashboardInvalidatorRegistration(t *testing.T) {
	cfg := config.Config{Messaging: config.Messaging{Kafka: config.Kafka{Topic: "procura.events"}}}

	reg := NewDashboardInvalidator(&recordingCache{}, zap.NewNop(), cfg)

	assert.Equal(t, "procura.events", reg.Topic)
	assert.ElementsMatch(t, []string{
		"user.registered", "rfp.created", "rfp.published", "quote.submitted", "order.awarded", "order.decided",
	}, reg.Types)
	assert.NotNil(t, reg.Handler)
}
