package classify

import (
	"context"
	"sync"

	"acu-chatbot/internal/common/logger"
	"acu-chatbot/internal/embedding"
	"acu-chatbot/internal/intent"
	"acu-chatbot/internal/nlp"
)

// Matcher is the semantic tier. Implementations must be safe for
// concurrent use; a failed match is reported as not-matched, never as
// an error to the caller.
type Matcher interface {
	// Match returns the best intent whose example similarity clears the
	// snapshot threshold, or nil when nothing does.
	Match(ctx context.Context, message string, snap *intent.Snapshot) *Result

	// Rebuild refreshes any precomputed state for a new snapshot.
	Rebuild(ctx context.Context, snap *intent.Snapshot) error
}

// noopMatcher is used when embeddings are disabled. It never matches, so
// every message the keyword tier misses goes straight to the fallback.
type noopMatcher struct{}

func NewNoopMatcher() Matcher { return noopMatcher{} }

func (noopMatcher) Match(context.Context, string, *intent.Snapshot) *Result { return nil }
func (noopMatcher) Rebuild(context.Context, *intent.Snapshot) error         { return nil }

// EmbeddingMatcher compares the message embedding against precomputed
// example embeddings. An intent matches at the similarity of its closest
// example.
type EmbeddingMatcher struct {
	engine    embedding.Engine
	threshold float64
	logger    logger.Logger

	mu       sync.RWMutex
	examples map[string][][]float32 // intent name -> example vectors

	queryMu    sync.Mutex
	queryCache map[string][]float32
}

func NewEmbeddingMatcher(engine embedding.Engine, threshold float64, log logger.Logger) *EmbeddingMatcher {
	return &EmbeddingMatcher{
		engine:     engine,
		threshold:  threshold,
		logger:     log,
		examples:   make(map[string][][]float32),
		queryCache: make(map[string][]float32),
	}
}

// Rebuild embeds every example phrase of every intent in the snapshot.
// All-or-nothing per intent: an intent whose batch fails is left out and
// simply cannot match until the next rebuild.
func (m *EmbeddingMatcher) Rebuild(ctx context.Context, snap *intent.Snapshot) error {
	built := make(map[string][][]float32, len(snap.Intents))
	for _, it := range snap.Intents {
		if len(it.Examples) == 0 {
			continue
		}
		vectors, err := m.engine.EmbedBatch(ctx, it.Examples)
		if err != nil {
			m.logger.Warn("example embedding failed, intent excluded from semantic tier", map[string]interface{}{
				"intent": it.Name,
				"error":  err.Error(),
			})
			continue
		}
		built[it.Name] = vectors
	}

	m.mu.Lock()
	m.examples = built
	m.mu.Unlock()

	m.queryMu.Lock()
	m.queryCache = make(map[string][]float32)
	m.queryMu.Unlock()

	m.logger.Info("semantic index rebuilt", map[string]interface{}{
		"engine":  m.engine.Name(),
		"intents": len(built),
	})
	return nil
}

func (m *EmbeddingMatcher) Match(ctx context.Context, message string, snap *intent.Snapshot) *Result {
	threshold := m.threshold
	if snap.SimilarityThreshold > 0 {
		threshold = snap.SimilarityThreshold
	}

	query, err := m.embedQuery(ctx, message)
	if err != nil {
		m.logger.Warn("query embedding failed, semantic tier skipped", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *intent.Intent
	var bestSim float64
	for _, it := range snap.Intents {
		vectors, ok := m.examples[it.Name]
		if !ok {
			continue
		}
		for _, vec := range vectors {
			sim, err := embedding.CosineSimilarity(query, vec)
			if err != nil {
				continue
			}
			if sim > bestSim {
				best = it
				bestSim = sim
			}
		}
	}

	if best == nil || bestSim < threshold {
		return nil
	}
	return &Result{Intent: best, Tier: TierSemantic, Score: bestSim}
}

// queryCacheLimit caps the query memo; Rebuild clears it anyway but a
// burst of unique messages must not grow it without bound.
const queryCacheLimit = 1024

// embedQuery memoizes message embeddings: repeated questions are common
// and each remote embedding call costs latency and quota.
func (m *EmbeddingMatcher) embedQuery(ctx context.Context, message string) ([]float32, error) {
	key := nlp.Normalize(message)

	m.queryMu.Lock()
	cached, ok := m.queryCache[key]
	m.queryMu.Unlock()
	if ok {
		return cached, nil
	}

	vec, err := m.engine.Embed(ctx, message)
	if err != nil {
		return nil, err
	}

	m.queryMu.Lock()
	if len(m.queryCache) >= queryCacheLimit {
		for k := range m.queryCache {
			delete(m.queryCache, k)
			break
		}
	}
	m.queryCache[key] = vec
	m.queryMu.Unlock()
	return vec, nil
}
