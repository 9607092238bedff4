package classify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acu-chatbot/internal/common/logger"
	"acu-chatbot/internal/intent"
	"acu-chatbot/internal/nlp"
)

func snapshot(intents ...*intent.Intent) *intent.Snapshot {
	return &intent.Snapshot{
		KeywordThreshold:    8.0,
		SimilarityThreshold: 0.65,
		Intents:             intents,
	}
}

func TestKeywordScorer_Score(t *testing.T) {
	greeting := &intent.Intent{
		Name:     "selamlasma",
		Keywords: map[string]float64{"merhaba": 10, "selam": 10},
	}
	food := &intent.Intent{
		Name:     "yemek_listesi",
		Keywords: map[string]float64{"yemek": 5, "menü": 5},
	}

	tests := []struct {
		name       string
		message    string
		wantIntent string
		wantScore  float64
	}{
		{
			name:       "single keyword over threshold",
			message:    "merhaba",
			wantIntent: "selamlasma",
			wantScore:  10,
		},
		{
			name:       "repeated token counted per occurrence",
			message:    "yemek yemek",
			wantIntent: "yemek_listesi",
			wantScore:  10,
		},
		{
			name:    "single weak keyword below threshold",
			message: "yemek",
		},
		{
			name:       "case and punctuation normalized",
			message:    "Merhaba!",
			wantIntent: "selamlasma",
			wantScore:  10,
		},
		{
			name:    "no keyword overlap",
			message: "kütüphane saat kaçta açılıyor",
		},
		{
			name:    "empty message",
			message: "   ",
		},
	}

	scorer := NewKeywordScorer(nlp.NewSimpleTokenizer(), 8.0)
	snap := snapshot(greeting, food)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := scorer.Score(tt.message, snap)
			if tt.wantIntent == "" {
				assert.Nil(t, res)
				return
			}
			require.NotNil(t, res)
			assert.Equal(t, tt.wantIntent, res.Intent.Name)
			assert.Equal(t, TierKeyword, res.Tier)
			assert.Equal(t, tt.wantScore, res.Score)
		})
	}
}

func TestKeywordScorer_TieKeepsFirstConfigured(t *testing.T) {
	first := &intent.Intent{Name: "first", Keywords: map[string]float64{"kayıt": 9}}
	second := &intent.Intent{Name: "second", Keywords: map[string]float64{"kayıt": 9}}

	scorer := NewKeywordScorer(nlp.NewSimpleTokenizer(), 8.0)

	res := scorer.Score("kayıt", snapshot(first, second))
	require.NotNil(t, res)
	assert.Equal(t, "first", res.Intent.Name)

	// Reversed configuration order flips the winner.
	res = scorer.Score("kayıt", snapshot(second, first))
	require.NotNil(t, res)
	assert.Equal(t, "second", res.Intent.Name)
}

func TestKeywordScorer_SnapshotThresholdOverrides(t *testing.T) {
	it := &intent.Intent{Name: "selamlasma", Keywords: map[string]float64{"selam": 5}}
	snap := snapshot(it)
	snap.KeywordThreshold = 4.0

	scorer := NewKeywordScorer(nlp.NewSimpleTokenizer(), 8.0)
	res := scorer.Score("selam", snap)
	require.NotNil(t, res)
	assert.Equal(t, "selamlasma", res.Intent.Name)
}

// fakeEngine returns canned vectors keyed by text.
type fakeEngine struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEngine) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vec, ok := f.vectors[text]
	if !ok {
		return []float32{0, 0, 1}, nil
	}
	return vec, nil
}

func (f *fakeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (f *fakeEngine) Name() string { return "fake" }

func TestEmbeddingMatcher_Match(t *testing.T) {
	food := &intent.Intent{
		Name:     "yemek_listesi",
		Examples: []string{"bugün yemekte ne var"},
	}
	calendar := &intent.Intent{
		Name:     "akademik_takvim",
		Examples: []string{"final tarihleri ne zaman"},
	}
	snap := snapshot(food, calendar)

	engine := &fakeEngine{vectors: map[string][]float32{
		"bugün yemekte ne var":   {1, 0, 0},
		"final tarihleri ne zaman": {0, 1, 0},
		"yemekhanede ne çıkacak": {0.9, 0.1, 0},
		"alakasız bir soru":      {0, 0, 1},
	}}

	matcher := NewEmbeddingMatcher(engine, 0.65, logger.NewTestLogger(t))
	require.NoError(t, matcher.Rebuild(context.Background(), snap))

	res := matcher.Match(context.Background(), "yemekhanede ne çıkacak", snap)
	require.NotNil(t, res)
	assert.Equal(t, "yemek_listesi", res.Intent.Name)
	assert.Equal(t, TierSemantic, res.Tier)
	assert.Greater(t, res.Score, 0.65)

	assert.Nil(t, matcher.Match(context.Background(), "alakasız bir soru", snap))
}

func TestEmbeddingMatcher_QueryMemoized(t *testing.T) {
	it := &intent.Intent{Name: "selamlasma", Examples: []string{"merhaba"}}
	snap := snapshot(it)

	engine := &fakeEngine{vectors: map[string][]float32{"merhaba": {1, 0, 0}}}
	matcher := NewEmbeddingMatcher(engine, 0.65, logger.NewNoOpLogger())
	require.NoError(t, matcher.Rebuild(context.Background(), snap))

	calls := engine.calls
	matcher.Match(context.Background(), "Merhaba!", snap)
	matcher.Match(context.Background(), "merhaba", snap)
	// Both normalize to the same key; only one remote embed.
	assert.Equal(t, calls+1, engine.calls)
}

func TestEmbeddingMatcher_QueryMemoBounded(t *testing.T) {
	engine := &fakeEngine{}
	matcher := NewEmbeddingMatcher(engine, 0.65, logger.NewNoOpLogger())

	for i := 0; i < queryCacheLimit+200; i++ {
		_, err := matcher.embedQuery(context.Background(), fmt.Sprintf("soru %d", i))
		require.NoError(t, err)
	}

	matcher.queryMu.Lock()
	size := len(matcher.queryCache)
	matcher.queryMu.Unlock()
	assert.LessOrEqual(t, size, queryCacheLimit)

	// A key still resident after the churn must not re-embed.
	_, err := matcher.embedQuery(context.Background(), fmt.Sprintf("soru %d", queryCacheLimit+199))
	require.NoError(t, err)
	calls := engine.calls
	_, err = matcher.embedQuery(context.Background(), fmt.Sprintf("soru %d", queryCacheLimit+199))
	require.NoError(t, err)
	assert.Equal(t, calls, engine.calls)
}

func TestEmbeddingMatcher_EmbedFailureIsMiss(t *testing.T) {
	it := &intent.Intent{Name: "selamlasma", Examples: []string{"merhaba"}}
	snap := snapshot(it)

	engine := &fakeEngine{vectors: map[string][]float32{"merhaba": {1, 0, 0}}}
	matcher := NewEmbeddingMatcher(engine, 0.65, logger.NewNoOpLogger())
	require.NoError(t, matcher.Rebuild(context.Background(), snap))

	engine.err = errors.New("quota exceeded")
	assert.Nil(t, matcher.Match(context.Background(), "merhaba tekrar", snap))
}

func TestClassifier_KeywordShortCircuitsSemantic(t *testing.T) {
	it := &intent.Intent{
		Name:     "selamlasma",
		Keywords: map[string]float64{"merhaba": 10},
		Examples: []string{"merhaba"},
	}
	snap := snapshot(it)

	engine := &fakeEngine{vectors: map[string][]float32{"merhaba": {1, 0, 0}}}
	matcher := NewEmbeddingMatcher(engine, 0.65, logger.NewNoOpLogger())

	classifier := NewClassifier(
		NewKeywordScorer(nlp.NewSimpleTokenizer(), 8.0),
		matcher,
		logger.NewNoOpLogger(),
	)

	res := classifier.Classify(context.Background(), "merhaba", snap)
	require.NotNil(t, res)
	assert.Equal(t, TierKeyword, res.Tier)
	// Semantic tier never consulted, so no embed calls happened.
	assert.Zero(t, engine.calls)
}

func TestClassifier_NoopMatcherUnresolved(t *testing.T) {
	it := &intent.Intent{
		Name:     "selamlasma",
		Keywords: map[string]float64{"merhaba": 10},
		Examples: []string{"merhaba"},
	}
	snap := snapshot(it)

	classifier := NewClassifier(
		NewKeywordScorer(nlp.NewSimpleTokenizer(), 8.0),
		NewNoopMatcher(),
		logger.NewNoOpLogger(),
	)

	assert.Nil(t, classifier.Classify(context.Background(), "kampüste kargo var mı", snap))
}
