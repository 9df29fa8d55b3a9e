package common

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/constants"
)

// LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	Extract   ExtractConfig
	LLM       LLMConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port       string
	GRPCAddr   string // empty disables the gRPC health endpoint
	Production bool
	StaticDir  string // empty serves the embedded UI
}

// UploadConfig holds intake limits
type UploadConfig struct {
	MaxBytes int64
}

// ExtractConfig holds PDF text extraction settings
type ExtractConfig struct {
	MaxPages int // 0 = all pages
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider     string
	Model        string
	APIKey       string
	BaseURL      string
	Temperature  float32
	Timeout      time.Duration
	StrictSchema bool
}

// RateLimitConfig configures the optional token bucket in front of the API. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  slog.Level
	Format string // "text" | "json"
}

// LoadEnvFile loads variables from a .env file without overriding the process environment.
// A missing file is not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return WrapError(err, "load "+p)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini))

	var apiKey, defModel string
	switch provider {
	case ProviderOpenAI:
		apiKey = getEnv("OPENAI_API_KEY", "")
		defModel = "gpt-4o-mini"
	default:
		apiKey = getEnv("GOOGLE_API_KEY", "")
		defModel = "gemini-1.5-flash"
	}

	env := strings.ToLower(getEnv("APP_ENV", getEnv("NODE_ENV", "")))

	return &Config{
		Server: ServerConfig{
			Port:       getEnv("PORT", "3001"),
			GRPCAddr:   getEnv("GRPC_ADDR", ""),
			Production: env == "production",
			StaticDir:  getEnv("STATIC_DIR", ""),
		},
		Upload: UploadConfig{
			MaxBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", constants.MaxUploadBytes),
		},
		Extract: ExtractConfig{
			MaxPages: getEnvAsInt("PDF_MAX_PAGES", 0),
		},
		LLM: LLMConfig{
			Provider:     provider,
			Model:        getEnv("LLM_MODEL", defModel),
			APIKey:       apiKey,
			BaseURL:      getEnv("LLM_BASE_URL", ""),
			Temperature:  getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:      getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			StrictSchema: getEnvAsBool("STRICT_SCHEMA", true),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat64("RATE_LIMIT_RPS", 0),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 5),
		},
		Log: LogConfig{
			Level:  parseLevel(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.APIKey == "" {
			return ConfigError("GOOGLE_API_KEY is required")
		}
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return ConfigError("OPENAI_API_KEY is required")
		}
	default:
		return ConfigError("LLM_PROVIDER must be one of: gemini | openai")
	}
	if c.Server.Port == "" {
		return ConfigError("PORT is required")
	}
	if c.Upload.MaxBytes <= 0 {
		return ConfigError("MAX_UPLOAD_BYTES must be positive")
	}
	if c.LLM.Timeout <= 0 {
		return ConfigError("LLM_TIMEOUT must be positive")
	}
	return nil
}

// Addr returns the HTTP listen address derived from Port.
func (s ServerConfig) Addr() string {
	if strings.HasPrefix(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}
