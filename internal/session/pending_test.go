package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acu-chatbot/internal/cache"
	"acu-chatbot/internal/common/logger"
)

func TestIsAffirmative(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"evet", true},
		{"Evet", true},
		{"EVET", true},
		{"aynen öyle", true},
		{"tabi ki", true},
		{"yes please", true},
		{"doğru", true},
		{"onayla", true},
		{"hayır", false},
		{"yok", false},
		{"istemiyorum", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAffirmative(tt.message))
		})
	}
}

func TestPendingStore_SetAndConsume(t *testing.T) {
	store := NewPendingStore(cache.NewMemory(), logger.NewNoOpLogger())
	ctx := context.Background()

	store.Set(ctx, "sess-1", "Projeksiyon Cihazı")

	pending, ok := store.Consume(ctx, "sess-1")
	require.True(t, ok)
	assert.Equal(t, "Projeksiyon Cihazı", pending.Device)
	assert.WithinDuration(t, time.Now(), pending.CreatedAt, 5*time.Second)

	// Consumed: a second read sees nothing.
	_, ok = store.Consume(ctx, "sess-1")
	assert.False(t, ok)
}

func TestPendingStore_SetOverwrites(t *testing.T) {
	store := NewPendingStore(cache.NewMemory(), logger.NewNoOpLogger())
	ctx := context.Background()

	store.Set(ctx, "sess-1", "Yazıcı")
	store.Set(ctx, "sess-1", "Tarayıcı")

	pending, ok := store.Consume(ctx, "sess-1")
	require.True(t, ok)
	assert.Equal(t, "Tarayıcı", pending.Device)
}

func TestPendingStore_SessionsIsolated(t *testing.T) {
	store := NewPendingStore(cache.NewMemory(), logger.NewNoOpLogger())
	ctx := context.Background()

	store.Set(ctx, "sess-1", "Yazıcı")

	_, ok := store.Consume(ctx, "sess-2")
	assert.False(t, ok)

	_, ok = store.Consume(ctx, "sess-1")
	assert.True(t, ok)
}

func TestPendingStore_ExpiresAfterTTL(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := NewPendingStore(cache.NewMemoryWithClock(clock), logger.NewNoOpLogger())
	store.now = func() time.Time { return now }
	ctx := context.Background()

	store.Set(ctx, "sess-1", "Yazıcı")

	now = now.Add(PendingTTL + time.Second)
	_, ok := store.Consume(ctx, "sess-1")
	assert.False(t, ok)
}

func TestPendingStore_Clear(t *testing.T) {
	store := NewPendingStore(cache.NewMemory(), logger.NewNoOpLogger())
	ctx := context.Background()

	store.Set(ctx, "sess-1", "Yazıcı")
	store.Clear(ctx, "sess-1")

	_, ok := store.Consume(ctx, "sess-1")
	assert.False(t, ok)
}
