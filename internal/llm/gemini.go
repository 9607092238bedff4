// Package llm wraps the generative model used when classification comes up
// empty. The model is an external collaborator: slow, fallible and behind
// a hard timeout.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"acu-chatbot/internal/common/logger"
	"acu-chatbot/internal/session"
)

// systemPrompt pins the assistant to the campus domain and to Turkish.
const systemPrompt = `Sen Artvin Çoruh Üniversitesi'nin yardımcı kampüs asistanısın. ` +
	`Öğrencilere ders kayıtları, kampüs olanakları, yemekhane, kütüphane ve genel üniversite ` +
	`konularında Türkçe, kısa ve samimi yanıtlar verirsin. Emin olmadığın konularda tahmin ` +
	`yürütmek yerine ilgili birime veya üniversitenin web sitesine yönlendirirsin.`

// Generator produces free-form answers, optionally token by token.
type Generator interface {
	Generate(ctx context.Context, message string, history []session.Message) (string, error)
	GenerateStream(ctx context.Context, message string, history []session.Message, emit func(token string) error) error
}

// GeminiClient is the Gemini-backed Generator.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  logger.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration, log logger.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  log,
	}, nil
}

func (c *GeminiClient) config() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
}

// contents turns stored history plus the new message into the model's
// conversation format.
func contents(message string, history []session.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		var role genai.Role = genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return append(out, genai.NewContentFromText(message, genai.RoleUser))
}

// Generate produces one complete answer under the client timeout.
func (c *GeminiClient) Generate(ctx context.Context, message string, history []session.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents(message, history), c.config())
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini returned empty answer")
	}
	return b.String(), nil
}

// GenerateStream emits answer chunks as they arrive. emit returning an
// error stops the stream; that error is returned unchanged so the caller
// can tell a disconnected client apart from a model failure.
func (c *GeminiClient) GenerateStream(ctx context.Context, message string, history []session.Message, emit func(token string) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	emitted := false
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, contents(message, history), c.config()) {
		if err != nil {
			return fmt.Errorf("gemini stream failed: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text == "" {
				continue
			}
			if err := emit(part.Text); err != nil {
				return err
			}
			emitted = true
		}
	}

	if !emitted {
		return fmt.Errorf("gemini stream produced no output")
	}
	return nil
}
