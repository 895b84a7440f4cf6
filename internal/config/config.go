package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPrimaryModel = "anthropic.claude-sonnet-4-20250514-v1:0"

// DefaultFallbackModels prefers Claude 4, then 3.7/3.5, then Claude 3.
var DefaultFallbackModels = []string{
	"anthropic.claude-sonnet-4-20250514-v1:0",
	"anthropic.claude-opus-4-20250514-v1:0",
	"anthropic.claude-3-7-sonnet-20250219-v1:0",
	"anthropic.claude-3-5-sonnet-20241022-v2:0",
	"anthropic.claude-3-5-sonnet-20240620-v1:0",
	"anthropic.claude-3-sonnet-20240229-v1:0",
	"anthropic.claude-3-haiku-20240307-v1:0",
	"anthropic.claude-instant-v1",
}

// legacyProfileEnv maps the per-model profile variables of older
// deployments onto the models they address.
var legacyProfileEnv = []struct {
	env   string
	model string
}{
	{"BEDROCK_CLAUDE4_SONNET_PROFILE_ARN", "anthropic.claude-sonnet-4-20250514-v1:0"},
	{"BEDROCK_CLAUDE37_SONNET_PROFILE_ARN", "anthropic.claude-3-7-sonnet-20250219-v1:0"},
	{"BEDROCK_CLAUDE35_SONNET_V2_PROFILE_ARN", "anthropic.claude-3-5-sonnet-20241022-v2:0"},
	{"BEDROCK_CLAUDE35_SONNET_PROFILE_ARN", "anthropic.claude-3-5-sonnet-20240620-v1:0"},
	{"BEDROCK_CLAUDE3_SONNET_PROFILE_ARN", "anthropic.claude-3-sonnet-20240229-v1:0"},
	{"BEDROCK_CLAUDE3_HAIKU_PROFILE_ARN", "anthropic.claude-3-haiku-20240307-v1:0"},
}

type Config struct {
	Port     int
	LogLevel string

	AWSRegion         string
	PrimaryModel      string
	FallbackModels    []string
	InferenceProfiles map[string]string
	MaxTokens         int
	Temperature       float64
	TopP              float64
	MaxAttempts       int
	MaxConns          int
	LLMTimeout        time.Duration

	GoogleChatWebhookURL string
	SESSender            string
	SESRecipients        []string
	SharedSecret         string

	DispatchQueueSize int
	DispatchWorkers   int
	DispatchTimeout   time.Duration
}

// Catalog is the optional YAML model catalog named by BEDROCK_MODEL_CATALOG.
type Catalog struct {
	Primary   string            `yaml:"primary"`
	Fallbacks []string          `yaml:"fallbacks"`
	Profiles  map[string]string `yaml:"profiles"`
}

// LoadEnvFile loads variables from a dotenv file without overriding the
// ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func Load() (Config, error) {
	cfg := Config{
		Port:                 envInt("PORT", 8080),
		LogLevel:             envString("LOG_LEVEL", "info"),
		AWSRegion:            envString("AWS_REGION", "us-east-1"),
		PrimaryModel:         DefaultPrimaryModel,
		FallbackModels:       append([]string(nil), DefaultFallbackModels...),
		InferenceProfiles:    map[string]string{},
		MaxTokens:            envInt("BEDROCK_MAX_TOKENS", 1000),
		Temperature:          envFloat("BEDROCK_TEMPERATURE", 0.1),
		TopP:                 envFloat("BEDROCK_TOP_P", 0.9),
		MaxAttempts:          envInt("BEDROCK_MAX_ATTEMPTS", 3),
		MaxConns:             envInt("BEDROCK_MAX_CONNS", 10),
		LLMTimeout:           envDuration("LLM_TIMEOUT", 60*time.Second),
		GoogleChatWebhookURL: envString("GOOGLE_CHAT_WEBHOOK_URL", ""),
		SESSender:            envString("SES_SENDER_EMAIL", ""),
		SESRecipients:        ParseRecipients(os.Getenv("SES_RECIPIENT_EMAILS")),
		SharedSecret:         envString("MERAKI_SHARED_SECRET", ""),
		DispatchQueueSize:    envInt("DISPATCH_QUEUE_SIZE", 32),
		DispatchWorkers:      envInt("DISPATCH_WORKERS", 2),
		DispatchTimeout:      envDuration("DISPATCH_TIMEOUT", 30*time.Second),
	}

	if path := envString("BEDROCK_MODEL_CATALOG", ""); path != "" {
		catalog, err := LoadCatalog(path)
		if err != nil {
			return Config{}, err
		}
		cfg.applyCatalog(catalog)
	}

	if v := envString("BEDROCK_MODEL_ID", ""); v != "" {
		cfg.PrimaryModel = v
	}
	if v := envString("BEDROCK_FALLBACK_MODELS", ""); v != "" {
		cfg.FallbackModels = splitList(v)
	}

	profiles, err := parseProfiles(envString("BEDROCK_INFERENCE_PROFILES_JSON", "{}"))
	if err != nil {
		return Config{}, err
	}
	for model, arn := range profiles {
		cfg.InferenceProfiles[model] = arn
	}
	for _, legacy := range legacyProfileEnv {
		if arn := envString(legacy.env, ""); arn != "" {
			cfg.InferenceProfiles[legacy.model] = arn
		}
	}

	if cfg.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("BEDROCK_MAX_TOKENS must be positive, got %d", cfg.MaxTokens)
	}
	if cfg.DispatchWorkers < 1 {
		cfg.DispatchWorkers = 1
	}
	if cfg.DispatchQueueSize < 0 {
		cfg.DispatchQueueSize = 0
	}

	return cfg, nil
}

// LoadCatalog reads a YAML model catalog.
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read model catalog: %w", err)
	}
	var catalog Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("parse model catalog %s: %w", path, err)
	}
	return catalog, nil
}

func (c *Config) applyCatalog(catalog Catalog) {
	if v := strings.TrimSpace(catalog.Primary); v != "" {
		c.PrimaryModel = v
	}
	if len(catalog.Fallbacks) > 0 {
		c.FallbackModels = compact(catalog.Fallbacks)
	}
	for model, arn := range catalog.Profiles {
		c.InferenceProfiles[strings.TrimSpace(model)] = strings.TrimSpace(arn)
	}
}

func parseProfiles(raw string) (map[string]string, error) {
	var profiles map[string]string
	if err := json.Unmarshal([]byte(raw), &profiles); err != nil {
		return nil, fmt.Errorf("parse BEDROCK_INFERENCE_PROFILES_JSON: %w", err)
	}
	return profiles, nil
}

// ParseRecipients splits a comma-separated address list and drops entries
// that are not well-formed email addresses.
func ParseRecipients(raw string) []string {
	var valid []string
	dropped := 0
	for _, addr := range splitList(raw) {
		if err := validation.Validate(addr, validation.Required, is.EmailFormat); err != nil {
			dropped++
			continue
		}
		valid = append(valid, addr)
	}
	if dropped > 0 {
		slog.Warn("some email addresses were invalid and filtered out", "dropped", dropped)
	}
	return valid
}

func splitList(raw string) []string {
	return compact(strings.Split(raw, ","))
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
