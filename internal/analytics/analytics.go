// Package analytics records one event per answered chat message to an
// append-only JSONL file, with an optional Elasticsearch mirror for ad hoc
// querying. Recording is best-effort and never blocks the answer path.
package analytics

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"acu-chatbot/internal/common/logger"
)

const esIndex = "chat-analytics"

// Event is one answered message.
type Event struct {
	Timestamp  time.Time `json:"ts"`
	SessionID  string    `json:"session"`
	Intent     string    `json:"intent"`
	Tier       string    `json:"tier"`
	Source     string    `json:"source,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// Summary aggregates events for the reporting endpoint.
type Summary struct {
	Total     int            `json:"total"`
	ByTier    map[string]int `json:"by_tier"`
	ByIntent  map[string]int `json:"by_intent"`
	AvgMillis float64        `json:"avg_duration_ms"`
}

// Recorder appends events under a mutex; the JSONL file is the source of
// truth and the Elasticsearch mirror is fire-and-forget.
type Recorder struct {
	mu     sync.Mutex
	path   string
	es     *elasticsearch.Client
	logger logger.Logger
}

// NewRecorder creates the analytics directory if needed. es may be nil.
func NewRecorder(path string, es *elasticsearch.Client, log logger.Logger) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create analytics directory: %w", err)
	}
	return &Recorder{path: path, es: es, logger: log}, nil
}

// Record appends the event. Failures are logged, never returned: analytics
// must not break chat.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(ev)
	if err != nil {
		return
	}

	r.mu.Lock()
	err = r.appendLine(line)
	r.mu.Unlock()
	if err != nil {
		r.logger.Warn("analytics append failed", map[string]interface{}{"error": err.Error()})
		return
	}

	if r.es != nil {
		r.mirror(ctx, line)
	}
}

func (r *Recorder) appendLine(line []byte) error {
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}

func (r *Recorder) mirror(ctx context.Context, line []byte) {
	req := esapi.IndexRequest{
		Index: esIndex,
		Body:  bytes.NewReader(line),
	}
	res, err := req.Do(ctx, r.es)
	if err != nil {
		r.logger.Warn("analytics mirror failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		r.logger.Warn("analytics mirror rejected", map[string]interface{}{"status": res.Status()})
	}
}

// Summarize aggregates all events at or after since. Malformed lines are
// skipped; a partially written tail line must not break reporting.
func (r *Recorder) Summarize(since time.Time) (*Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Summary{ByTier: map[string]int{}, ByIntent: map[string]int{}}, nil
		}
		return nil, fmt.Errorf("failed to open analytics log: %w", err)
	}
	defer f.Close()

	summary := &Summary{ByTier: map[string]int{}, ByIntent: map[string]int{}}
	var totalMillis int64

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		if ev.Timestamp.Before(since) {
			continue
		}
		summary.Total++
		summary.ByTier[ev.Tier]++
		summary.ByIntent[ev.Intent]++
		totalMillis += ev.DurationMS
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read analytics log: %w", err)
	}

	if summary.Total > 0 {
		summary.AvgMillis = float64(totalMillis) / float64(summary.Total)
	}
	return summary, nil
}

// Recent returns the last n events in file order, oldest first. Malformed
// lines are skipped the same way Summarize skips them.
func (r *Recorder) Recent(n int) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, nil
		}
		return nil, fmt.Errorf("failed to open analytics log: %w", err)
	}
	defer f.Close()

	events := make([]Event, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		events = append(events, ev)
		if len(events) > n {
			events = events[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read analytics log: %w", err)
	}
	return events, nil
}
