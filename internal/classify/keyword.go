// Package classify implements the cascading intent classifier: a cheap
// keyword tier, a semantic embedding tier behind it, and an unresolved
// outcome the caller escalates to the generative fallback.
package classify

import (
	"acu-chatbot/internal/intent"
	"acu-chatbot/internal/nlp"
)

// Tier labels an outcome with the stage that resolved it.
const (
	TierKeyword  = "keyword"
	TierSemantic = "semantic"
	TierFallback = "fallback"
)

// Result is a resolved classification. A nil *Result means unresolved.
type Result struct {
	Intent *intent.Intent
	Tier   string
	Score  float64
}

// KeywordScorer sums configured keyword weights over message tokens.
type KeywordScorer struct {
	tokenizer nlp.Tokenizer
	threshold float64
}

func NewKeywordScorer(tokenizer nlp.Tokenizer, threshold float64) *KeywordScorer {
	return &KeywordScorer{tokenizer: tokenizer, threshold: threshold}
}

// Score computes the best keyword match for message against the snapshot.
// Every token occurrence contributes its weight, so repeated keywords add
// repeatedly. The strictly highest total wins; on a tie the intent earlier
// in configuration order keeps the win. Returns nil when the winning score
// is below the threshold.
func (s *KeywordScorer) Score(message string, snap *intent.Snapshot) *Result {
	tokens := s.tokenizer.Tokenize(message)
	if len(tokens) == 0 {
		return nil
	}

	threshold := s.threshold
	if snap.KeywordThreshold > 0 {
		threshold = snap.KeywordThreshold
	}

	var best *intent.Intent
	var bestScore float64
	for _, it := range snap.Intents {
		if len(it.Keywords) == 0 {
			continue
		}
		var score float64
		for _, tok := range tokens {
			if w, ok := it.Keywords[tok]; ok {
				score += w
			}
		}
		if score > bestScore {
			best = it
			bestScore = score
		}
	}

	if best == nil || bestScore < threshold {
		return nil
	}
	return &Result{Intent: best, Tier: TierKeyword, Score: bestScore}
}
