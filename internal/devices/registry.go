// Package devices holds the lab device catalog: exact lookup over message
// substrings and a fuzzy suggestion path for near-misses.
package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"acu-chatbot/internal/common/logger"
	"acu-chatbot/internal/nlp"
)

// Device is one catalog entry, keyed by its normalized name.
type Device struct {
	OriginalName string `json:"original_name"`
	Description  string `json:"description"`
	Stock        string `json:"stock"`
}

// Scraper produces a fresh catalog from the lab inventory pages.
type Scraper interface {
	ScrapeDevices(ctx context.Context) (map[string]Device, error)
}

// Registry is the in-memory catalog with disk persistence. Lookups take a
// read lock; replacing the catalog takes the write lock, so readers always
// see one consistent generation.
type Registry struct {
	mu      sync.RWMutex
	catalog map[string]Device
	keys    []string // sorted iteration order for deterministic suggestions

	path   string
	logger logger.Logger
}

func NewRegistry(path string, log logger.Logger) *Registry {
	return &Registry{
		catalog: make(map[string]Device),
		path:    path,
		logger:  log,
	}
}

// Load reads the catalog from disk. A missing file is not an error; the
// registry stays empty until the first refresh.
func (r *Registry) Load() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Warn("device catalog file missing, starting empty", map[string]interface{}{
				"path": r.path,
			})
			return nil
		}
		return fmt.Errorf("failed to read device catalog: %w", err)
	}

	var catalog map[string]Device
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return fmt.Errorf("failed to parse device catalog: %w", err)
	}

	r.replace(catalog)
	r.logger.Info("device catalog loaded", map[string]interface{}{
		"path":    r.path,
		"devices": len(catalog),
	})
	return nil
}

// Refresh scrapes a fresh catalog, persists it and swaps it in. An empty
// or failed scrape keeps the previous catalog.
func (r *Registry) Refresh(ctx context.Context, scraper Scraper) error {
	catalog, err := scraper.ScrapeDevices(ctx)
	if err != nil {
		return fmt.Errorf("device scrape failed: %w", err)
	}
	if len(catalog) == 0 {
		return fmt.Errorf("device scrape returned no devices, keeping previous catalog")
	}

	if err := r.save(catalog); err != nil {
		return err
	}

	r.replace(catalog)
	r.logger.Info("device catalog refreshed", map[string]interface{}{
		"devices": len(catalog),
	})
	return nil
}

func (r *Registry) save(catalog map[string]Device) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	raw, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode device catalog: %w", err)
	}
	if err := os.WriteFile(r.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write device catalog: %w", err)
	}
	return nil
}

func (r *Registry) replace(catalog map[string]Device) {
	keys := make([]string, 0, len(catalog))
	for key := range catalog {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	r.mu.Lock()
	r.catalog = catalog
	r.keys = keys
	r.mu.Unlock()
}

// Len returns the catalog size.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.catalog)
}

// Search returns the device whose catalog key appears verbatim in the
// normalized message.
func (r *Registry) Search(message string) (Device, bool) {
	normalized := nlp.Normalize(message)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, key := range r.keys {
		if strings.Contains(normalized, key) {
			return r.catalog[key], true
		}
	}
	return Device{}, false
}

// Get looks up a device by its exact catalog key.
func (r *Registry) Get(key string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.catalog[key]
	return d, ok
}

// Suggest finds a near-miss: for each message word of at least four runes,
// the closest catalog key at similarity >= 0.6. The first qualifying word
// wins, so "projeksıyon cihazı nerede" suggests from "projeksıyon" even if
// a later word also matches something.
func (r *Registry) Suggest(message string) (string, bool) {
	normalized := nlp.Normalize(message)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, word := range strings.Fields(normalized) {
		if len([]rune(word)) < 4 {
			continue
		}
		if key, ok := closestMatch(word, r.keys, suggestCutoff); ok {
			return key, true
		}
	}
	return "", false
}
