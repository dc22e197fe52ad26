package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/virtue-stages/internal/generation"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1<<20), cfg.MaxRequestBodyBytes)
	assert.Equal(t, 3*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 5, cfg.Store.Retention)
	assert.Equal(t, 20*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Generation.RequestTimeout)
	assert.Equal(t, 2, cfg.Generation.RecentPromptWindow)
	assert.Equal(t, "v2", cfg.Generation.ComposerVersion)
	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.False(t, cfg.IsDevelopment())

	require.Len(t, cfg.Generation.Chains.Prompt, 5)
	first := cfg.Generation.Chains.Prompt[0]
	assert.Equal(t, "gemini-2.5-flash-lite", first.ID)
	assert.Equal(t, int32(300), first.Config.MaxOutputTokens)
	assert.Equal(t, float32(40), first.Config.TopK)
	assert.Equal(t, 20*time.Second, first.Timeout)
	assert.Len(t, cfg.Generation.Chains.Classification, 2)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "development")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("STORE_TIMEOUT", "500ms")
	t.Setenv("GENERATION_TIMEOUT", "5s")
	t.Setenv("REQUEST_TIMEOUT", "45s")
	t.Setenv("PROMPT_COMPOSER_VERSION", "v1")
	t.Setenv("CLASSIFY_PARALLELISM", "4")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.Store.Timeout)
	assert.Equal(t, "v1", cfg.Generation.ComposerVersion)
	assert.Equal(t, 4, cfg.Generation.ClassifyParallelism)
	assert.Equal(t, 45*time.Second, cfg.Generation.RequestTimeout)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 5*time.Second, cfg.Generation.Chains.Classification[0].Timeout)
}

func TestGoogleAPIKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "google-key", cfg.Gemini.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		value  string
		errMsg string
	}{
		{"unknown composer", "PROMPT_COMPOSER_VERSION", "v9", "PROMPT_COMPOSER_VERSION"},
		{"zero parallelism", "CLASSIFY_PARALLELISM", "0", "CLASSIFY_PARALLELISM"},
		{"zero retention", "ASSESSMENT_RETENTION", "0", "ASSESSMENT_RETENTION"},
		{"zero recent window", "RECENT_PROMPT_WINDOW", "0", "RECENT_PROMPT_WINDOW"},
		{"zero request timeout", "REQUEST_TIMEOUT", "0s", "REQUEST_TIMEOUT"},
		{"empty port", "PORT", "", "PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDisabledStoreSkipsStoreValidation(t *testing.T) {
	t.Setenv("ASSESSMENT_STORE_ENABLED", "false")
	t.Setenv("DB_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Store.Enabled)
}

func TestParseChains(t *testing.T) {
	data := []byte(`
prompt:
  defaults:
    maxOutputTokens: 200
    temperature: 0.4
    safety: strict
  timeout: 10s
  candidates:
    - id: model-a
    - id: model-b
      timeout: 30s
      temperature: 0.9
`)
	chains, err := ParseChains(data, 20*time.Second)
	require.NoError(t, err)

	require.Len(t, chains.Prompt, 2)
	assert.Equal(t, []string{"model-a", "model-b"}, chains.Prompt.IDs())
	assert.Equal(t, int32(200), chains.Prompt[0].Config.MaxOutputTokens)
	assert.Equal(t, float32(0.4), chains.Prompt[0].Config.Temperature)
	assert.Equal(t, generation.SafetyStrict, chains.Prompt[0].Config.Safety)
	assert.Equal(t, 10*time.Second, chains.Prompt[0].Timeout)
	assert.Equal(t, float32(0.9), chains.Prompt[1].Config.Temperature)
	assert.Equal(t, int32(200), chains.Prompt[1].Config.MaxOutputTokens)
	assert.Equal(t, 30*time.Second, chains.Prompt[1].Timeout)

	// Missing section keeps the default chain.
	assert.Equal(t, DefaultChains(20*time.Second).Classification, chains.Classification)
}

func TestParseChainsErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no candidates", "prompt:\n  candidates: []\n"},
		{"missing id", "prompt:\n  candidates:\n    - timeout: 5s\n"},
		{"duplicate", "prompt:\n  candidates:\n    - id: a\n    - id: a\n"},
		{"bad safety", "classification:\n  candidates:\n    - id: a\n      safety: paranoid\n"},
		{"not yaml", "prompt: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChains([]byte(tt.yaml), time.Second)
			assert.Error(t, err)
		})
	}
}

func TestLoadChainsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classification:\n  candidates:\n    - id: judge\n"), 0o644))

	chains, err := LoadChains(path, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"judge"}, chains.Classification.IDs())
	assert.Equal(t, DefaultClassificationConfig, chains.Classification[0].Config)

	_, err = LoadChains(filepath.Join(t.TempDir(), "missing.yaml"), time.Second)
	assert.Error(t, err)
}
