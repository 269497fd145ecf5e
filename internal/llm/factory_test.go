package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/dossier/internal/model"
)

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{Provider: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = NewProvider(Config{Provider: "claude", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	p, err = NewProvider(Config{Provider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	_, err = NewProvider(Config{Provider: "openai"})
	assert.Error(t, err, "missing key")

	_, err = NewProvider(Config{Provider: "bard"})
	assert.Error(t, err)

	_, err = NewProvider(Config{})
	assert.Error(t, err)
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "secret"
	cfg.HTTP.HTTPSProxy = "http://proxy:8080"

	c := ConfigFromModel(cfg, nil)

	assert.Equal(t, "openai", c.Provider)
	assert.Equal(t, "gpt-4o-mini", c.Model)
	assert.Equal(t, "secret", c.APIKey)
	assert.Equal(t, float32(0.2), c.Temperature)
	assert.Equal(t, "http://proxy:8080", c.HTTPSProxy)
	assert.NotNil(t, c.logger())
}
