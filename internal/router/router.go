// Package router turns a classified (or unclassified) message into the
// final answer: pending confirmations first, then the intent handler for
// the resolved kind, then the generative fallback.
package router

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"unicode"

	"acu-chatbot/internal/cache"
	"acu-chatbot/internal/classify"
	"acu-chatbot/internal/common/logger"
	"acu-chatbot/internal/common/metrics"
	"acu-chatbot/internal/devices"
	"acu-chatbot/internal/intent"
	"acu-chatbot/internal/llm"
	"acu-chatbot/internal/scrape"
	"acu-chatbot/internal/session"
)

// Source labels carried in every answer, mirroring where the content came
// from.
const (
	sourceFastPath     = "Hızlı Yol"
	sourceArchive      = "Akıllı Arşiv"
	sourceCatalog      = "Cihaz Katalogu"
	sourceConfirmed    = "Cihaz Katalogu (Onaylı)"
	sourceSuggestion   = "Akıllı Öneri Sistemi"
	sourceLive         = "Canlı Veri"
	sourceLiveCached   = "Canlı Veri (cache)"
	sourceGenerative   = "Gemini AI"
	sourceTimeout      = "Timeout"
	sourceError        = "Hata"
	sourceConfirmState = "Onay"
)

const (
	msgDenied          = "Anlaşıldı, vazgeçtim. Başka bir konuda yardımcı olabilir miyim?"
	msgDeviceNotFound  = "Maalesef o cihazı bulamadım. Başka bir şey sormak ister misiniz?"
	msgLiveUnavailable = "Şu an bu bilgiye ulaşılamıyor. Lütfen daha sonra tekrar deneyin."
	msgLLMTimeout      = "Üzgünüm, AI servisi şu an yanıt vermiyor. Lütfen tekrar deneyin."
	msgLLMError        = "Üzgünüm, şu anda AI servisine bağlanamıyorum."
)

// yearCueRe recognizes either a full year ("2024") or a short year range
// ("24-25") inside the raw message.
var yearCueRe = regexp.MustCompile(`(20\d{2})|(\d{2}-\d{2})`)

// Answer is the routed response.
type Answer struct {
	Text   string `json:"response"`
	Intent string `json:"intent_name"`
	Tier   string `json:"tier"`
	Source string `json:"source"`
}

// SourceProvider looks up live fetchers by source name.
type SourceProvider interface {
	Fetcher(source string) (scrape.Fetcher, bool)
}

// Router holds the wiring for one answer path.
type Router struct {
	classifier *classify.Classifier
	registry   *intent.Registry
	store      cache.Store
	sources    SourceProvider
	devices    *devices.Registry
	pending    *session.PendingStore
	generator  llm.Generator
	logger     logger.Logger

	// pick selects a list-response index; swapped out in tests
	pick func(n int) int
}

func New(
	classifier *classify.Classifier,
	registry *intent.Registry,
	store cache.Store,
	sources SourceProvider,
	deviceRegistry *devices.Registry,
	pending *session.PendingStore,
	generator llm.Generator,
	log logger.Logger,
) *Router {
	return &Router{
		classifier: classifier,
		registry:   registry,
		store:      store,
		sources:    sources,
		devices:    deviceRegistry,
		pending:    pending,
		generator:  generator,
		logger:     log,
		pick:       rand.Intn,
	}
}

// Handle answers one message. Order matters: a pending confirmation always
// consumes the whole turn, classification never sees it.
func (r *Router) Handle(ctx context.Context, sessionID, message string, history []session.Message) *Answer {
	if ans := r.consumePending(ctx, sessionID, message); ans != nil {
		metrics.ChatMessagesTotal.WithLabelValues(ans.Tier).Inc()
		return ans
	}

	snap := r.registry.Current()
	if res := r.classifier.Classify(ctx, message, snap); res != nil {
		ans := r.dispatch(ctx, sessionID, message, res)
		metrics.ChatMessagesTotal.WithLabelValues(ans.Tier).Inc()
		return ans
	}

	ans := r.fallback(ctx, message, history)
	metrics.ChatMessagesTotal.WithLabelValues(ans.Tier).Inc()
	return ans
}

// HandleStream is Handle for the streaming endpoint: resolved answers are
// emitted as a single chunk, generative fallbacks token by token. The
// returned answer carries the full text for history and analytics. An
// error from emit aborts the stream and is returned to the caller.
func (r *Router) HandleStream(ctx context.Context, sessionID, message string, history []session.Message, emit func(token string) error) (*Answer, error) {
	if ans := r.consumePending(ctx, sessionID, message); ans != nil {
		metrics.ChatMessagesTotal.WithLabelValues(ans.Tier).Inc()
		return ans, emit(ans.Text)
	}

	snap := r.registry.Current()
	if res := r.classifier.Classify(ctx, message, snap); res != nil {
		ans := r.dispatch(ctx, sessionID, message, res)
		metrics.ChatMessagesTotal.WithLabelValues(ans.Tier).Inc()
		return ans, emit(ans.Text)
	}

	metrics.ChatMessagesTotal.WithLabelValues(classify.TierFallback).Inc()

	var b strings.Builder
	err := r.generator.GenerateStream(ctx, message, history, func(token string) error {
		b.WriteString(token)
		if err := emit(token); err != nil {
			return fmt.Errorf("%w: %v", errEmit, err)
		}
		return nil
	})
	if err == nil {
		metrics.LLMFallbacks.WithLabelValues("success").Inc()
		return &Answer{Text: b.String(), Intent: "genel_sohbet", Tier: classify.TierFallback, Source: sourceGenerative}, nil
	}

	// an emit error means the client went away mid-stream; a model error
	// still gets the apology delivered
	if errors.Is(err, errEmit) {
		return nil, err
	}

	ans := r.llmFailureAnswer(err)
	return ans, emit(ans.Text)
}

var errEmit = errors.New("stream write failed")

// consumePending runs the confirmation state machine. A non-nil answer
// means the pending entry existed and this turn is fully consumed, whether
// confirmed or denied.
func (r *Router) consumePending(ctx context.Context, sessionID, message string) *Answer {
	pending, ok := r.pending.Consume(ctx, sessionID)
	if !ok {
		return nil
	}

	if !session.IsAffirmative(message) {
		r.logger.Debug("pending suggestion denied", map[string]interface{}{
			"session": sessionID,
			"device":  pending.Device,
		})
		return &Answer{Text: msgDenied, Intent: "cihaz_bilgisi_iptal", Tier: "pending", Source: sourceConfirmState}
	}

	device, found := r.devices.Get(pending.Device)
	if !found {
		// catalog refreshed between prompt and confirmation
		return &Answer{Text: msgDeviceNotFound, Intent: "cihaz_bilgisi_hata", Tier: "pending", Source: sourceError}
	}

	text := fmt.Sprintf("Anlaşıldı. İşte bilgiler:\n\n%s", formatDevice(device))
	return &Answer{Text: text, Intent: "cihaz_bilgisi", Tier: "pending", Source: sourceConfirmed}
}

// dispatch is exhaustive over intent kinds; an unknown kind cannot occur
// past configuration validation.
func (r *Router) dispatch(ctx context.Context, sessionID, message string, res *classify.Result) *Answer {
	it := res.Intent
	switch it.Kind {
	case intent.KindLiteral:
		return &Answer{Text: it.Response, Intent: it.Name, Tier: res.Tier, Source: sourceFastPath}
	case intent.KindList:
		return &Answer{Text: it.Responses[r.pick(len(it.Responses))], Intent: it.Name, Tier: res.Tier, Source: sourceFastPath}
	case intent.KindCalendar:
		return r.handleCalendar(it, message, res.Tier)
	case intent.KindLive:
		return r.handleLive(ctx, it, res.Tier)
	case intent.KindDevice:
		return r.handleDevice(ctx, sessionID, message, res.Tier)
	default:
		return &Answer{Text: it.Response, Intent: it.Name, Tier: res.Tier, Source: sourceFastPath}
	}
}

// handleCalendar resolves a year cue against the intent's archive map. No
// cue, or a cue with no archive entry, falls back to the default content.
func (r *Router) handleCalendar(it *intent.Intent, message, tier string) *Answer {
	cue := yearCueRe.FindString(message)
	if cue == "" || len(it.ExtraData) == 0 {
		return &Answer{Text: it.Response, Intent: it.Name, Tier: tier, Source: sourceFastPath}
	}

	for key, url := range it.ExtraData {
		if key != "current" && strings.Contains(key, cue) {
			return &Answer{
				Text:   fmt.Sprintf("%s Akademik Takvimi: %s", key, url),
				Intent: it.Name,
				Tier:   tier,
				Source: sourceArchive,
			}
		}
	}

	return &Answer{
		Text:   fmt.Sprintf("%s yılı bulunamadı. Güncel: %s", cue, it.Response),
		Intent: it.Name,
		Tier:   tier,
		Source: sourceFastPath,
	}
}

// handleLive is the read-through path. A failed fetch yields the
// unavailable message and writes nothing, so the next request retries.
func (r *Router) handleLive(ctx context.Context, it *intent.Intent, tier string) *Answer {
	key := scrape.CacheKey(it.Source)
	if text, ok := r.store.Get(ctx, key); ok {
		return &Answer{Text: text, Intent: it.Name, Tier: tier, Source: sourceLiveCached}
	}

	fetcher, ok := r.sources.Fetcher(it.Source)
	if !ok {
		r.logger.Error("live intent has no registered source", map[string]interface{}{
			"intent": it.Name,
			"source": it.Source,
		})
		return &Answer{Text: msgLiveUnavailable, Intent: it.Name, Tier: tier, Source: sourceError}
	}

	text, err := fetcher.Fetch(ctx)
	if err != nil {
		r.logger.Warn("live fetch failed", map[string]interface{}{
			"source": it.Source,
			"error":  err.Error(),
		})
		return &Answer{Text: msgLiveUnavailable, Intent: it.Name, Tier: tier, Source: sourceError}
	}

	r.store.Set(ctx, key, text, it.TTL)
	return &Answer{Text: text, Intent: it.Name, Tier: tier, Source: sourceLive}
}

// handleDevice: exact catalog hit answers directly, a fuzzy-only hit
// writes pending state and asks, no hit apologizes.
func (r *Router) handleDevice(ctx context.Context, sessionID, message, tier string) *Answer {
	if device, ok := r.devices.Search(message); ok {
		return &Answer{Text: formatDevice(device), Intent: "cihaz_bilgisi", Tier: tier, Source: sourceCatalog}
	}

	if key, ok := r.devices.Suggest(message); ok {
		r.pending.Set(ctx, sessionID, key)
		return &Answer{
			Text:   fmt.Sprintf("Tam bulamadım ama şunu mu demek istediniz: **%s**? (Evet/Hayır)", titleCase(key)),
			Intent: "cihaz_bilgisi_onay",
			Tier:   tier,
			Source: sourceSuggestion,
		}
	}

	return &Answer{Text: msgDeviceNotFound, Intent: "cihaz_bilgisi_hata", Tier: tier, Source: sourceError}
}

// fallback delegates to the generative model; the timeout lives inside the
// generator. Timeouts and failures map to fixed messages with distinct
// source provenance.
func (r *Router) fallback(ctx context.Context, message string, history []session.Message) *Answer {
	text, err := r.generator.Generate(ctx, message, history)
	if err != nil {
		return r.llmFailureAnswer(err)
	}
	metrics.LLMFallbacks.WithLabelValues("success").Inc()
	return &Answer{Text: text, Intent: "genel_sohbet", Tier: classify.TierFallback, Source: sourceGenerative}
}

func (r *Router) llmFailureAnswer(err error) *Answer {
	if errors.Is(err, context.DeadlineExceeded) {
		metrics.LLMFallbacks.WithLabelValues("timeout").Inc()
		r.logger.Error("generative fallback timed out", nil)
		return &Answer{Text: msgLLMTimeout, Intent: "error", Tier: classify.TierFallback, Source: sourceTimeout}
	}
	metrics.LLMFallbacks.WithLabelValues("error").Inc()
	r.logger.WithError(err).Error("generative fallback failed", nil)
	return &Answer{Text: msgLLMError, Intent: "error", Tier: classify.TierFallback, Source: sourceError}
}

func formatDevice(d devices.Device) string {
	return fmt.Sprintf("**%s**\n\n%s\n\n%s", d.OriginalName, d.Description, d.Stock)
}

// titleCase uppercases the first rune of each word with Turkish casing.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.TurkishCase.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
