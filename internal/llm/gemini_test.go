package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"acu-chatbot/internal/session"
)

func TestContentsMapsRolesInOrder(t *testing.T) {
	history := []session.Message{
		{Role: "user", Content: "merhaba"},
		{Role: "assistant", Content: "Merhaba! Nasıl yardımcı olabilirim?"},
	}

	got := contents("yemekhane nerede", history)
	require.Len(t, got, 3)

	assert.Equal(t, genai.RoleUser, got[0].Role)
	assert.Equal(t, genai.RoleModel, got[1].Role)
	assert.Equal(t, genai.RoleUser, got[2].Role)
	assert.Equal(t, "yemekhane nerede", got[2].Parts[0].Text)
}

func TestContentsWithoutHistory(t *testing.T) {
	got := contents("selam", nil)
	require.Len(t, got, 1)
	assert.Equal(t, "selam", got[0].Parts[0].Text)
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(t.Context(), "", "gemini-2.0-flash", 0, nil)
	assert.Error(t, err)
}
