package classify

import (
	"context"

	"acu-chatbot/internal/common/logger"
	"acu-chatbot/internal/common/metrics"
	"acu-chatbot/internal/intent"
)

// Classifier runs the cascade: keyword tier first, semantic tier only
// when keywords do not clear their threshold. A nil result means the
// caller should use the generative fallback.
type Classifier struct {
	scorer  *KeywordScorer
	matcher Matcher
	logger  logger.Logger
}

func NewClassifier(scorer *KeywordScorer, matcher Matcher, log logger.Logger) *Classifier {
	return &Classifier{scorer: scorer, matcher: matcher, logger: log}
}

// Classify resolves the message against the snapshot. The keyword tier
// short-circuits: when it resolves, the semantic tier is never consulted.
func (c *Classifier) Classify(ctx context.Context, message string, snap *intent.Snapshot) *Result {
	if res := c.scorer.Score(message, snap); res != nil {
		c.logger.Debug("keyword tier resolved", map[string]interface{}{
			"intent": res.Intent.Name,
			"score":  res.Score,
		})
		metrics.ChatIntentResolved.WithLabelValues(res.Intent.Name, res.Tier).Inc()
		return res
	}

	if res := c.matcher.Match(ctx, message, snap); res != nil {
		c.logger.Debug("semantic tier resolved", map[string]interface{}{
			"intent":     res.Intent.Name,
			"similarity": res.Score,
		})
		metrics.ChatIntentResolved.WithLabelValues(res.Intent.Name, res.Tier).Inc()
		return res
	}

	return nil
}
