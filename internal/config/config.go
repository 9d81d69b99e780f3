package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	LLM        LLMConfig
	Completion CompletionConfig
	Cache      CacheConfig
	Clinic     ClinicConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LLMConfig struct {
	GeminiKey        string
	GeminiBackend    string // "gemini" or "vertex"
	VertexProject    string
	VertexLocation   string
	OpenAIKey        string
	AnthropicKey     string
	OllamaURL        string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	MaxRetries       int
	Temperature      float64
	MaxTokens        int
}

// CompletionConfig controls the request slots shared by every call site.
type CompletionConfig struct {
	Timeout              time.Duration
	AssistantIdleTimeout time.Duration
	AssistantHistory     int // max tokens of history folded into an assistant prompt
	AutoInsights         bool
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

type ClinicConfig struct {
	Name string
	Logo string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	temperature, err := getEnvFloat("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	}

	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", 1024)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_TOKENS: %w", err)
	}

	timeout, err := getEnvDuration("COMPLETION_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid COMPLETION_TIMEOUT: %w", err)
	}

	idle, err := getEnvDuration("ASSISTANT_IDLE_TIMEOUT", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid ASSISTANT_IDLE_TIMEOUT: %w", err)
	}

	history, err := getEnvInt("ASSISTANT_HISTORY_TOKENS", 600)
	if err != nil {
		return nil, fmt.Errorf("invalid ASSISTANT_HISTORY_TOKENS: %w", err)
	}

	cacheTTL, err := getEnvDuration("CACHE_TTL", 6*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		LLM: LLMConfig{
			GeminiKey:        getEnv("GEMINI_API_KEY", ""),
			GeminiBackend:    getEnv("GEMINI_BACKEND", "gemini"),
			VertexProject:    getEnv("VERTEX_PROJECT_ID", ""),
			VertexLocation:   getEnv("VERTEX_LOCATION", "us-central1"),
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:        getEnv("OLLAMA_URL", ""),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "gemini"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", "gemini-2.5-flash"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			MaxRetries:       maxRetries,
			Temperature:      temperature,
			MaxTokens:        maxTokens,
		},
		Completion: CompletionConfig{
			Timeout:              timeout,
			AssistantIdleTimeout: idle,
			AssistantHistory:     history,
			AutoInsights:         getEnvBool("AUTO_INSIGHTS", true),
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", true),
			TTL:     cacheTTL,
			Prefix:  getEnv("CACHE_PREFIX", "clinicfeedback:completion:"),
		},
		Clinic: ClinicConfig{
			Name: getEnv("CLINIC_NAME", "City Health Clinic"),
			Logo: getEnv("CLINIC_LOGO", "https://placehold.co/100x100?text=CH"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports credentials missing for the configured providers.
func (c *Config) Validate() error {
	var missing []string
	for _, p := range []string{c.LLM.DefaultProvider, c.LLM.FallbackProvider} {
		switch p {
		case "gemini":
			if c.LLM.GeminiBackend == "vertex" && c.LLM.VertexProject == "" {
				missing = append(missing, "VERTEX_PROJECT_ID")
			} else if c.LLM.GeminiBackend != "vertex" && c.LLM.GeminiKey == "" {
				missing = append(missing, "GEMINI_API_KEY")
			}
		case "openai":
			if c.LLM.OpenAIKey == "" {
				missing = append(missing, "OPENAI_API_KEY")
			}
		case "anthropic":
			if c.LLM.AnthropicKey == "" {
				missing = append(missing, "ANTHROPIC_API_KEY")
			}
		case "ollama":
			if c.LLM.OllamaURL == "" {
				missing = append(missing, "OLLAMA_URL")
			}
		}
	}
	if c.Completion.Timeout <= 0 {
		return fmt.Errorf("COMPLETION_TIMEOUT must be positive")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
