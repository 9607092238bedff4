package analytics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acu-chatbot/internal/common/logger"
)

func newRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := NewRecorder(filepath.Join(t.TempDir(), "analytics", "events.jsonl"), nil, logger.NewTestLogger(t))
	require.NoError(t, err)
	return r
}

func TestRecorder_RecordAndSummarize(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()
	now := time.Now().UTC()

	r.Record(ctx, Event{Timestamp: now, SessionID: "s1", Intent: "selamlasma", Tier: "keyword", DurationMS: 4})
	r.Record(ctx, Event{Timestamp: now, SessionID: "s1", Intent: "yemek_listesi", Tier: "keyword", Source: "food", DurationMS: 12})
	r.Record(ctx, Event{Timestamp: now, SessionID: "s2", Intent: "", Tier: "fallback", DurationMS: 1200})

	summary, err := r.Summarize(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.ByTier["keyword"])
	assert.Equal(t, 1, summary.ByTier["fallback"])
	assert.Equal(t, 1, summary.ByIntent["yemek_listesi"])
	assert.InDelta(t, (4+12+1200)/3.0, summary.AvgMillis, 0.001)
}

func TestRecorder_SummarizeSinceFilters(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()
	now := time.Now().UTC()

	r.Record(ctx, Event{Timestamp: now.Add(-48 * time.Hour), Intent: "eski", Tier: "keyword"})
	r.Record(ctx, Event{Timestamp: now, Intent: "yeni", Tier: "keyword"})

	summary, err := r.Summarize(now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Zero(t, summary.ByIntent["eski"])
	assert.Equal(t, 1, summary.ByIntent["yeni"])
}

func TestRecorder_SummarizeMissingFileIsEmpty(t *testing.T) {
	r := newRecorder(t)

	summary, err := r.Summarize(time.Time{})
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
}

func TestRecorder_RecentKeepsNewestInOrder(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, name := range []string{"bir", "iki", "üç", "dört"} {
		r.Record(ctx, Event{Timestamp: now, Intent: name, Tier: "keyword"})
	}

	events, err := r.Recent(2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "üç", events[0].Intent)
	assert.Equal(t, "dört", events[1].Intent)
}

func TestRecorder_RecentMissingFileIsEmpty(t *testing.T) {
	r := newRecorder(t)

	events, err := r.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecorder_SummarizeSkipsMalformedLines(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()

	r.Record(ctx, Event{Timestamp: time.Now().UTC(), Intent: "selamlasma", Tier: "keyword"})

	// Simulate a torn write at the end of the file.
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"ts":"2026-`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	summary, err := r.Summarize(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
}
