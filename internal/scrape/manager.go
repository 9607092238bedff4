package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"acu-chatbot/internal/cache"
	"acu-chatbot/internal/common/logger"
	"acu-chatbot/internal/common/metrics"
	"acu-chatbot/internal/devices"
	"acu-chatbot/internal/intent"
)

// Fetcher is one live data source. Fetch returns user-facing text; an
// error means the source is unavailable and nothing may be cached.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) (string, error)
}

// CacheKey is the cache key a live source's answer lives under.
func CacheKey(source string) string {
	return "live:" + source
}

// Manager owns the refresh lifecycle: warming the live caches, updating
// the calendar archive inside the intent document and refreshing the
// device catalog.
type Manager struct {
	fetchers    map[string]Fetcher
	store       cache.Store
	registry    *intent.Registry
	calendar    *CalendarScraper
	devices     *devices.Registry
	deviceScrpr devices.Scraper
	intentsPath string
	logger      logger.Logger

	// reloadHook runs after a successful registry reload so derived state
	// (semantic example embeddings) follows the new snapshot.
	reloadHook func(ctx context.Context, snap *intent.Snapshot)
}

func NewManager(
	fetchers []Fetcher,
	store cache.Store,
	registry *intent.Registry,
	calendar *CalendarScraper,
	deviceRegistry *devices.Registry,
	deviceScraper devices.Scraper,
	intentsPath string,
	log logger.Logger,
) *Manager {
	byName := make(map[string]Fetcher, len(fetchers))
	for _, f := range fetchers {
		byName[f.Name()] = f
	}
	return &Manager{
		fetchers:    byName,
		store:       store,
		registry:    registry,
		calendar:    calendar,
		devices:     deviceRegistry,
		deviceScrpr: deviceScraper,
		intentsPath: intentsPath,
		logger:      log,
	}
}

// OnReload registers a hook invoked with the fresh snapshot after every
// successful intent reload.
func (m *Manager) OnReload(hook func(ctx context.Context, snap *intent.Snapshot)) {
	m.reloadHook = hook
}

// Fetcher returns the live source registered under the given name.
func (m *Manager) Fetcher(source string) (Fetcher, bool) {
	f, ok := m.fetchers[source]
	return f, ok
}

// Warm fetches every live source in parallel and caches the successes
// under each source's configured TTL. Failures are logged and skipped so
// one dead source never blocks the others.
func (m *Manager) Warm(ctx context.Context) {
	ttls := m.sourceTTLs()

	g, ctx := errgroup.WithContext(ctx)
	for name, fetcher := range m.fetchers {
		g.Go(func() error {
			text, err := fetcher.Fetch(ctx)
			if err != nil {
				metrics.ScrapeRefreshes.WithLabelValues(name, "error").Inc()
				m.logger.Warn("live source warm failed", map[string]interface{}{
					"source": name,
					"error":  err.Error(),
				})
				return nil
			}
			m.store.Set(ctx, CacheKey(name), text, ttls[name])
			metrics.ScrapeRefreshes.WithLabelValues(name, "success").Inc()
			return nil
		})
	}
	g.Wait()
}

// RefreshWeb is the full web refresh: warm the live caches and pull the
// calendar archive into the intent document.
func (m *Manager) RefreshWeb(ctx context.Context) error {
	m.Warm(ctx)

	if err := m.refreshCalendars(ctx); err != nil {
		metrics.ScrapeRefreshes.WithLabelValues("calendar", "error").Inc()
		return err
	}
	metrics.ScrapeRefreshes.WithLabelValues("calendar", "success").Inc()
	return nil
}

// RefreshDevices rebuilds the device catalog.
func (m *Manager) RefreshDevices(ctx context.Context) error {
	if err := m.devices.Refresh(ctx, m.deviceScrpr); err != nil {
		metrics.ScrapeRefreshes.WithLabelValues("devices", "error").Inc()
		return err
	}
	metrics.ScrapeRefreshes.WithLabelValues("devices", "success").Inc()
	return nil
}

// sourceTTLs maps live source names to their configured cache TTLs.
func (m *Manager) sourceTTLs() map[string]time.Duration {
	ttls := make(map[string]time.Duration, len(m.fetchers))
	for _, it := range m.registry.Current().Intents {
		if it.Kind == intent.KindLive && it.Source != "" {
			ttls[it.Source] = it.TTL
		}
	}
	return ttls
}

// refreshCalendars scrapes the calendar archive and writes it into the
// extra data of calendar intents on disk, then reloads the registry so
// the new snapshot becomes current. The write is atomic: temp file plus
// rename, never a half-written document.
func (m *Manager) refreshCalendars(ctx context.Context) error {
	if m.calendar == nil {
		return nil
	}
	calendars, err := m.calendar.ScrapeCalendars(ctx)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(m.intentsPath)
	if err != nil {
		return fmt.Errorf("failed to read intent document: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse intent document: %w", err)
	}

	var items []map[string]interface{}
	if err := json.Unmarshal(doc["intents"], &items); err != nil {
		return fmt.Errorf("failed to parse intent list: %w", err)
	}

	updated := false
	for _, item := range items {
		if handler, _ := item["handler"].(string); handler == "calendar" {
			item["extra_data"] = calendars
			updated = true
		}
	}
	if !updated {
		m.logger.Info("no calendar intent configured, archive skipped", nil)
		return nil
	}

	encoded, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode intent list: %w", err)
	}
	doc["intents"] = encoded

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode intent document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.intentsPath), "intents-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp intent file: %w", err)
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp intent file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp intent file: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.intentsPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace intent document: %w", err)
	}

	if err := m.registry.Reload(); err != nil {
		return err
	}
	if m.reloadHook != nil {
		m.reloadHook(ctx, m.registry.Current())
	}
	return nil
}
