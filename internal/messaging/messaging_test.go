package messaging

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestFromKafka(t *testing.T) {
	at := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)
	raw := kafka.Message{
		Topic:   "procurement.events",
		Key:     []byte("order-5"),
		Value:   []byte(`{"type":"order.awarded"}`),
		Offset:  42,
		Time:    at,
		Headers: []kafka.Header{{Key: TypeHeader, Value: []byte("order.awarded")}},
	}

	msg := fromKafka(raw)
	raw.Value[0] = 'x'

	assert.Equal(t, "order.awarded", msg.Type())
	assert.Equal(t, `{"type":"order.awarded"}`, string(msg.Value))
	assert.Equal(t, int64(42), msg.Offset)
	assert.Equal(t, "order-5", string(msg.Key))
}

func TestFromKafkaWithoutHeaders(t *testing.T) {
	msg := fromKafka(kafka.Message{Value: []byte("{}")})
	assert.Nil(t, msg.Headers)
	assert.Empty(t, msg.Type())
}
