package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptManager_LoadsEmbeddedPrompts(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	for _, key := range []PromptKey{ClassifierPrompt, ConfigGeneratorPrompt, SecurityPrompt, HealerPrompt, StructuredOutputPrompt} {
		_, err := pm.Get(key, DefaultProvider)
		assert.NoError(t, err, "prompt %s", key)
	}

	_, err = pm.Get("unknown", DefaultProvider)
	assert.Error(t, err)
}

func TestPromptManager_ProviderFallback(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	data := structuredPromptData{SystemInstruction: "SYS", Prompt: "CTX", Schema: `{"type":"object"}`}

	ollama, err := pm.Render(StructuredOutputPrompt, "ollama", data)
	require.NoError(t, err)
	assert.Contains(t, ollama, "### Instructions")

	gemini, err := pm.Render(StructuredOutputPrompt, "gemini", data)
	require.NoError(t, err)
	assert.NotContains(t, gemini, "### Instructions")
	assert.Contains(t, gemini, "SYS")
	assert.Contains(t, gemini, `{"type":"object"}`)
}

func TestPromptManager_CustomInstructions(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	plain, err := pm.Render(ConfigGeneratorPrompt, DefaultProvider, configPromptData{})
	require.NoError(t, err)
	assert.NotContains(t, plain, "Additional project requirements")

	custom, err := pm.Render(ConfigGeneratorPrompt, DefaultProvider, configPromptData{
		CustomInstructions: []string{"Use distroless images", "Pin actions by SHA"},
	})
	require.NoError(t, err)
	assert.Contains(t, custom, "Additional project requirements:")
	assert.Contains(t, custom, "- Use distroless images")
	assert.Contains(t, custom, "- Pin actions by SHA")
}
