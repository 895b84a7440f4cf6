package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"PORT", "LOG_LEVEL", "AWS_REGION", "BEDROCK_MODEL_ID", "BEDROCK_FALLBACK_MODELS",
	"BEDROCK_INFERENCE_PROFILES_JSON", "BEDROCK_MODEL_CATALOG", "BEDROCK_MAX_TOKENS",
	"BEDROCK_TEMPERATURE", "BEDROCK_TOP_P", "BEDROCK_MAX_ATTEMPTS", "BEDROCK_MAX_CONNS",
	"LLM_TIMEOUT", "GOOGLE_CHAT_WEBHOOK_URL", "SES_SENDER_EMAIL", "SES_RECIPIENT_EMAILS",
	"MERAKI_SHARED_SECRET", "DISPATCH_QUEUE_SIZE", "DISPATCH_WORKERS", "DISPATCH_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
	}
	for _, legacy := range legacyProfileEnv {
		t.Setenv(legacy.env, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, DefaultPrimaryModel, cfg.PrimaryModel)
	assert.Equal(t, DefaultFallbackModels, cfg.FallbackModels)
	assert.Empty(t, cfg.InferenceProfiles)
	assert.Equal(t, 1000, cfg.MaxTokens)
	assert.InDelta(t, 0.1, cfg.Temperature, 1e-9)
	assert.InDelta(t, 0.9, cfg.TopP, 1e-9)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 10, cfg.MaxConns)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Empty(t, cfg.SESRecipients)
}

func TestLoadDefaultFallbacksAreCopied(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.FallbackModels[0] = "mutated"

	assert.Equal(t, "anthropic.claude-sonnet-4-20250514-v1:0", DefaultFallbackModels[0])
}

func TestLoadModelOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BEDROCK_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0")
	t.Setenv("BEDROCK_FALLBACK_MODELS", " model-a, ,model-b,model-a ")
	t.Setenv("BEDROCK_INFERENCE_PROFILES_JSON", `{"model-a":"arn:aws:bedrock:us-east-1:123:inference-profile/a"}`)
	t.Setenv("BEDROCK_CLAUDE3_HAIKU_PROFILE_ARN", "arn:aws:bedrock:us-east-1:123:inference-profile/haiku")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", cfg.PrimaryModel)
	// duplicates are kept here; the cascade skips repeats.
	assert.Equal(t, []string{"model-a", "model-b", "model-a"}, cfg.FallbackModels)
	assert.Equal(t, map[string]string{
		"model-a":                                 "arn:aws:bedrock:us-east-1:123:inference-profile/a",
		"anthropic.claude-3-haiku-20240307-v1:0": "arn:aws:bedrock:us-east-1:123:inference-profile/haiku",
	}, cfg.InferenceProfiles)
}

func TestLoadRejectsMalformedProfilesJSON(t *testing.T) {
	clearEnv(t)
	t.Setenv("BEDROCK_INFERENCE_PROFILES_JSON", `["not", "an", "object"]`)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BEDROCK_INFERENCE_PROFILES_JSON")
}

func TestLoadCatalogPrecedence(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
primary: catalog-primary
fallbacks:
  - catalog-a
  - catalog-b
profiles:
  catalog-a: arn:catalog-a
  anthropic.claude-3-haiku-20240307-v1:0: arn:catalog-haiku
`), 0o644))

	t.Setenv("BEDROCK_MODEL_CATALOG", path)
	t.Setenv("BEDROCK_INFERENCE_PROFILES_JSON", `{"catalog-a":"arn:json-a"}`)
	t.Setenv("BEDROCK_CLAUDE3_HAIKU_PROFILE_ARN", "arn:legacy-haiku")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "catalog-primary", cfg.PrimaryModel)
	assert.Equal(t, []string{"catalog-a", "catalog-b"}, cfg.FallbackModels)
	assert.Equal(t, "arn:json-a", cfg.InferenceProfiles["catalog-a"])
	assert.Equal(t, "arn:legacy-haiku", cfg.InferenceProfiles["anthropic.claude-3-haiku-20240307-v1:0"])

	t.Setenv("BEDROCK_MODEL_ID", "env-primary")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "env-primary", cfg.PrimaryModel)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("BEDROCK_MODEL_CATALOG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read model catalog")
}

func TestLoadRejectsNonPositiveMaxTokens(t *testing.T) {
	clearEnv(t)
	t.Setenv("BEDROCK_MAX_TOKENS", "0")

	_, err := Load()
	require.Error(t, err)
}

func TestParseRecipients(t *testing.T) {
	got := ParseRecipients("ops@example.com, not-an-email ,, oncall@corp.example.org")
	assert.Equal(t, []string{"ops@example.com", "oncall@corp.example.org"}, got)
	assert.Empty(t, ParseRecipients(""))
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	// t.Setenv above restores the original value; unset so the file can supply it.
	require.NoError(t, os.Unsetenv("BEDROCK_MODEL_ID"))
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("BEDROCK_MODEL_ID=from-env-file\nPORT=9999\n"), 0o644))
	t.Setenv("PORT", "7000")

	// godotenv does not override variables that are already set.
	require.NoError(t, LoadEnvFile(path))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env-file", cfg.PrimaryModel)
	assert.Equal(t, 7000, cfg.Port)
}

func TestLoadEnvFileMissingIsIgnored(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
	assert.NoError(t, LoadEnvFile(""))
}
