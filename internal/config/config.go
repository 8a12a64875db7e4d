package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Load reads the .env file specified by KINDRED_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("KINDRED_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	return intEnv("SERVER_PORT", 8080)
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// RedisAddr defaults to localhost:6379.
func RedisAddr() string {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return "localhost:6379"
	}
	return addr
}

func RedisPassword() string {
	return os.Getenv("REDIS_PASSWORD")
}

func RedisDB() int {
	db, err := strconv.Atoi(os.Getenv("REDIS_DB"))
	if err != nil || db < 0 {
		return 0
	}
	return db
}

// LLMProvider returns the configured text generation provider.
// Defaults to "openai" if not set.
// Valid values: openai, anthropic, gemini, cerebras, mock
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "cerebras":
		return os.Getenv("CEREBRAS_API_KEY")
	case "mock":
		return ""
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	return intEnv("RATE_LIMIT_BURST", 20)
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// DedupWindow is how long an emitted line stays unavailable to the same user.
func DedupWindow() time.Duration {
	return durationEnv("DEDUP_WINDOW", 30*time.Minute)
}

func DedupSweepInterval() time.Duration {
	return durationEnv("DEDUP_SWEEP_INTERVAL", 5*time.Minute)
}

func AdjustmentCacheSize() int {
	return intEnv("ADJUSTMENT_CACHE_SIZE", 1024)
}

func AdjustmentCacheTTL() time.Duration {
	return durationEnv("ADJUSTMENT_CACHE_TTL", time.Hour)
}

func CorrectionApplyTimeout() time.Duration {
	return durationEnv("CORRECTION_APPLY_TIMEOUT", 150*time.Millisecond)
}

func AdjustmentFetchTimeout() time.Duration {
	return durationEnv("ADJUSTMENT_FETCH_TIMEOUT", 400*time.Millisecond)
}

func PromptHistoryTurns() int {
	return intEnv("PROMPT_HISTORY_TURNS", 12)
}

// CorrectionPatternsPath points at an optional YAML file that replaces the
// built-in correction pattern table.
func CorrectionPatternsPath() string {
	return os.Getenv("CORRECTION_PATTERNS_PATH")
}

// NewLogger builds a production zap logger at the configured level.
func NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(LogLevel()))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", LogLevel(), err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

func intEnv(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func durationEnv(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
