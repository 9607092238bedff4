package intent

import (
	"fmt"
	"os"
	"sync"

	"acu-chatbot/internal/common/logger"
)

// Registry owns the current intent configuration snapshot. Read paths take
// an immutable snapshot; only Reload swaps it.
type Registry struct {
	mu     sync.RWMutex
	path   string
	snap   *Snapshot
	logger logger.Logger
}

// NewRegistry loads the initial snapshot from path.
func NewRegistry(path string, log logger.Logger) (*Registry, error) {
	r := &Registry{path: path, logger: log}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewRegistryFromSnapshot builds a registry around an in-memory snapshot.
// Used by tests and by tooling that synthesizes configuration.
func NewRegistryFromSnapshot(snap *Snapshot, log logger.Logger) *Registry {
	return &Registry{snap: snap, logger: log}
}

// Current returns the live snapshot. Callers must not mutate it.
func (r *Registry) Current() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Reload re-reads and re-validates the configuration file. On any error the
// previous snapshot stays live.
func (r *Registry) Reload() error {
	if r.path == "" {
		return fmt.Errorf("intent registry has no backing file")
	}

	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read intent data: %w", err)
	}

	snap, err := Parse(raw)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()

	r.logger.Info("intent data loaded", map[string]interface{}{
		"intents":              len(snap.Intents),
		"version":              snap.Version,
		"keyword_threshold":    snap.KeywordThreshold,
		"similarity_threshold": snap.SimilarityThreshold,
	})
	return nil
}

// Find returns the intent with the given name, or nil.
func (s *Snapshot) Find(name string) *Intent {
	for _, it := range s.Intents {
		if it.Name == name {
			return it
		}
	}
	return nil
}
