package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// Provider names accepted in Config.Provider.
const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Session store backends accepted in Config.SessionStore.
const (
	SessionStoreMemory = "memory"
	SessionStoreSQLite = "sqlite"
)

// legacyGroqKeyEnv is the secret name the first deployments used.
const legacyGroqKeyEnv = "GROQ_SECRETE_TOKEN"

// Config holds application configuration.
type Config struct {
	// Provider selects the completion backend: "groq", "openai" or "anthropic".
	Provider string `json:"provider"`

	// Model overrides the variant's default model identifier.
	Model string `json:"model,omitempty"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible providers only).
	BaseURL string `json:"base_url,omitempty"`

	// APIKeyEnv names the environment variable holding the API key.
	// Empty means the provider default (GROQ_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY).
	APIKeyEnv string `json:"api_key_env,omitempty"`

	// Variant selects the prompt template: "jee", "percentile" or "swot".
	Variant string `json:"variant"`

	// Temperature is passed to the model when non-zero.
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens caps the completion length.
	MaxTokens int `json:"max_tokens"`

	// RequestTimeoutSeconds bounds a single completion call. 0 waits indefinitely.
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty"`

	// SessionStore selects where per-session state lives: "memory" or "sqlite".
	SessionStore string `json:"session_store"`

	// SessionSecretEnv names the environment variable holding the cookie signing key.
	// When unset or empty a random key is generated per process.
	SessionSecretEnv string `json:"session_secret_env,omitempty"`

	// CookieSecure marks the session cookie Secure (HTTPS only).
	CookieSecure bool `json:"cookie_secure,omitempty"`

	// LogMode is "dev" (console) or "prod" (JSON).
	LogMode string `json:"log_mode"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:         ProviderGroq,
		Variant:          "jee",
		MaxTokens:        4096,
		SessionStore:     SessionStoreMemory,
		SessionSecretEnv: "ROADMAP_SESSION_SECRET",
		LogMode:          "dev",
	}
}

// Load loads configuration from baseDir/config.json, then applies environment overrides.
// Returns default config (plus overrides) if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.roadmap.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are not overwritten. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnv overrides scalar fields from ROADMAP_* environment variables.
func ApplyEnv(cfg *Config) {
	overrides := map[string]*string{
		"ROADMAP_PROVIDER":      &cfg.Provider,
		"ROADMAP_MODEL":         &cfg.Model,
		"ROADMAP_BASE_URL":      &cfg.BaseURL,
		"ROADMAP_VARIANT":       &cfg.Variant,
		"ROADMAP_SESSION_STORE": &cfg.SessionStore,
		"ROADMAP_LOG_MODE":      &cfg.LogMode,
	}
	for env, field := range overrides {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*field = v
		}
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
}

// KeyEnv returns the environment variable name the API key is read from.
func (c *Config) KeyEnv() string {
	if c.APIKeyEnv != "" {
		return c.APIKeyEnv
	}
	switch c.Provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return "GROQ_API_KEY"
	}
}

// APIKey resolves the provider API key from the environment.
// For groq the legacy GROQ_SECRETE_TOKEN name is accepted as a fallback.
func (c *Config) APIKey() string {
	if key := strings.TrimSpace(os.Getenv(c.KeyEnv())); key != "" {
		return key
	}
	if c.Provider == ProviderGroq && c.APIKeyEnv == "" {
		return strings.TrimSpace(os.Getenv(legacyGroqKeyEnv))
	}
	return ""
}

// SessionSecret returns the cookie signing key from the environment, or nil.
func (c *Config) SessionSecret() []byte {
	if c.SessionSecretEnv == "" {
		return nil
	}
	if v := os.Getenv(c.SessionSecretEnv); v != "" {
		return []byte(v)
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Provider:              lo.CoalesceOrEmpty(overlay.Provider, base.Provider),
		Model:                 lo.CoalesceOrEmpty(overlay.Model, base.Model),
		BaseURL:               lo.CoalesceOrEmpty(overlay.BaseURL, base.BaseURL),
		APIKeyEnv:             lo.CoalesceOrEmpty(overlay.APIKeyEnv, base.APIKeyEnv),
		Variant:               lo.CoalesceOrEmpty(overlay.Variant, base.Variant),
		Temperature:           lo.CoalesceOrEmpty(overlay.Temperature, base.Temperature),
		MaxTokens:             lo.CoalesceOrEmpty(overlay.MaxTokens, base.MaxTokens),
		RequestTimeoutSeconds: lo.CoalesceOrEmpty(overlay.RequestTimeoutSeconds, base.RequestTimeoutSeconds),
		SessionStore:          lo.CoalesceOrEmpty(overlay.SessionStore, base.SessionStore),
		SessionSecretEnv:      lo.CoalesceOrEmpty(overlay.SessionSecretEnv, base.SessionSecretEnv),
		LogMode:               lo.CoalesceOrEmpty(overlay.LogMode, base.LogMode),
	}

	// Booleans: overlay wins if true, else base
	result.CookieSecure = base.CookieSecure || overlay.CookieSecure

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	all := lo.Map(append(append([]string{}, a...), b...), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	result := lo.Uniq(lo.Compact(all))
	if len(result) == 0 {
		return nil
	}
	return result
}
