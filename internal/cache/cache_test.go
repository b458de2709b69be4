package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return clock }

	require.NoError(t, m.Set(ctx, "dashboard:admin", []byte("a"), 0))
	require.NoError(t, m.Set(ctx, "orders:1", []byte("b"), 10*time.Second))

	got, err := m.Get(ctx, "dashboard:admin")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)

	clock = clock.Add(10 * time.Second)
	_, err = m.Get(ctx, "orders:1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = m.Get(ctx, "dashboard:admin")
	assert.NoError(t, err)

	clock = clock.Add(time.Minute)
	_, err = m.Get(ctx, "dashboard:admin")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryDeleteMany(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, m.Set(ctx, k, []byte(k), 0))
	}

	require.NoError(t, m.Delete(ctx, "a", "c", "missing"))

	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = m.Get(ctx, "b")
	assert.NoError(t, err)
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf, 0))
	buf[0] = 'x'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	type stats struct {
		TotalRFPs float64 `json:"totalRFPs"`
	}
	require.NoError(t, StoreJSON(ctx, m, "dashboard:buyer:1", stats{TotalRFPs: 3}, time.Minute))

	var out stats
	require.NoError(t, LoadJSON(ctx, m, "dashboard:buyer:1", &out))
	assert.Equal(t, 3.0, out.TotalRFPs)

	assert.ErrorIs(t, LoadJSON(ctx, m, "dashboard:buyer:2", &out), ErrCacheMiss)
	assert.ErrorIs(t, LoadJSON(ctx, nil, "dashboard:buyer:1", &out), ErrCacheMiss)
	assert.NoError(t, StoreJSON(ctx, nil, "k", out, 0))

	require.NoError(t, m.Set(ctx, "broken", []byte("{"), 0))
	err := LoadJSON(ctx, m, "broken", &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
