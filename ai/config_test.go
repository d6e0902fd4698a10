package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, ProviderCompatible, cfg.Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "nomic-embed-text", cfg.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.APIKeyEnv)
	assert.Equal(t, 32, cfg.BatchSize)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		// Should have default values
		assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
		assert.Equal(t, 32, cfg.BatchSize)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithProvider(ProviderOpenAI),
			WithHost("https://api.example.com/v1"),
			WithEmbeddingModel("text-embedding-3-small"),
			WithAPIKeyEnv("EMBED_KEY"),
			WithBatchSize(64),
		)

		assert.Equal(t, ProviderOpenAI, cfg.Provider)
		assert.Equal(t, "https://api.example.com/v1", cfg.Host)
		assert.Equal(t, "text-embedding-3-small", cfg.Model)
		assert.Equal(t, "EMBED_KEY", cfg.APIKeyEnv)
		assert.Equal(t, 64, cfg.BatchSize)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name         string
		input        Config
		wantProvider string
		wantHost     string
	}{
		{
			name:         "adds /v1 to compatible host",
			input:        Config{Provider: ProviderCompatible, Host: "http://localhost:11434"},
			wantProvider: ProviderCompatible,
			wantHost:     "http://localhost:11434/v1",
		},
		{
			name:         "removes trailing slash before adding /v1",
			input:        Config{Provider: ProviderCompatible, Host: "http://localhost:11434/"},
			wantProvider: ProviderCompatible,
			wantHost:     "http://localhost:11434/v1",
		},
		{
			name:         "keeps existing /v1",
			input:        Config{Provider: ProviderCompatible, Host: "http://localhost:11434/v1"},
			wantProvider: ProviderCompatible,
			wantHost:     "http://localhost:11434/v1",
		},
		{
			name:         "empty provider defaults to compatible",
			input:        Config{Host: "http://gpu:8000"},
			wantProvider: ProviderCompatible,
			wantHost:     "http://gpu:8000/v1",
		},
		{
			name:         "provider is lower-cased",
			input:        Config{Provider: " OpenAI "},
			wantProvider: ProviderOpenAI,
			wantHost:     "",
		},
		{
			name:         "openai host is left alone",
			input:        Config{Provider: ProviderOpenAI, Host: "https://proxy.internal"},
			wantProvider: ProviderOpenAI,
			wantHost:     "https://proxy.internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.input
			cfg.Normalize()
			assert.Equal(t, tt.wantProvider, cfg.Provider)
			assert.Equal(t, tt.wantHost, cfg.Host)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "valid compatible config",
			config: Config{Provider: ProviderCompatible, Host: "http://localhost:11434", Model: "m", BatchSize: 1},
		},
		{
			name:   "valid openai config without host",
			config: Config{Provider: ProviderOpenAI, Model: "m", APIKeyEnv: "KEY", BatchSize: 8},
		},
		{
			name:   "mock needs no model",
			config: Config{Provider: ProviderMock, BatchSize: 8},
		},
		{
			name:    "compatible without host",
			config:  Config{Provider: ProviderCompatible, Model: "m", BatchSize: 1},
			wantErr: "Host is required",
		},
		{
			name:    "openai without key env",
			config:  Config{Provider: ProviderOpenAI, Model: "m", BatchSize: 1},
			wantErr: "APIKeyEnv is required",
		},
		{
			name:    "missing model",
			config:  Config{Provider: ProviderCompatible, Host: "http://h", BatchSize: 1},
			wantErr: "Model is required",
		},
		{
			name:    "zero batch size",
			config:  Config{Provider: ProviderCompatible, Host: "http://h", Model: "m"},
			wantErr: "BatchSize must be at least 1",
		},
		{
			name:    "unknown provider",
			config:  Config{Provider: "carrier-pigeon", Model: "m", BatchSize: 1},
			wantErr: "unknown embedding provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidate_UnknownProviderSentinel(t *testing.T) {
	cfg := NewConfig(WithProvider("nope"))
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownProvider)
}

func TestConfigAPIKey(t *testing.T) {
	t.Run("reads configured variable", func(t *testing.T) {
		t.Setenv("LARDER_TEST_KEY", "sk-test")
		cfg := NewConfig(WithAPIKeyEnv("LARDER_TEST_KEY"))
		assert.Equal(t, "sk-test", cfg.APIKey())
	})

	t.Run("falls back to none", func(t *testing.T) {
		t.Setenv("LARDER_TEST_KEY", "")
		cfg := NewConfig(WithAPIKeyEnv("LARDER_TEST_KEY"))
		assert.Equal(t, "none", cfg.APIKey())
	})
}
