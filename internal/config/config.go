package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by VERITY_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("VERITY_ENV")
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
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
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

// OracleProvider returns the configured source oracle provider.
// Defaults to "mock" if not set. Valid values: http, mock.
func OracleProvider() string {
	p := os.Getenv("ORACLE_PROVIDER")
	if p == "" {
		return "mock"
	}
	return p
}

func OracleURL() string {
	return os.Getenv("ORACLE_URL")
}

// OracleRPS returns the aggregate oracle queries-per-second budget.
// Defaults to 10 if not set.
func OracleRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("ORACLE_RPS"), 64)
	if err != nil || rps <= 0 {
		return 10
	}
	return rps
}

// OracleBurst returns the oracle limiter burst size. Defaults to 5.
func OracleBurst() int {
	burst, err := strconv.Atoi(os.Getenv("ORACLE_BURST"))
	if err != nil || burst <= 0 {
		return 5
	}
	return burst
}

// RateLimitRPS returns the HTTP requests-per-second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for HTTP rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// Engine bounds. Each accessor falls back to the engine's shipped default
// when the env var is unset or unparsable; validation proper happens at
// engine construction.

func MaxParallel() int {
	return intEnv("MAX_PARALLEL", 4)
}

func GlobalDeadline() time.Duration {
	return durationEnv("GLOBAL_DEADLINE_MS", 30*time.Second)
}

func PerQueryTimeout() time.Duration {
	return durationEnv("PER_QUERY_TIMEOUT_MS", 5*time.Second)
}

func ConfidenceThreshold() float64 {
	return floatEnv("CONFIDENCE_THRESHOLD", 0.7)
}

func MaxIterations() int {
	return intEnv("MAX_ITERATIONS", 10)
}

func BudgetCeiling() float64 {
	return floatEnv("BUDGET_CEILING", 10)
}

func MaxForkDepth() int {
	return intEnv("MAX_FORK_DEPTH", 2)
}

func MaxConsecutiveFailures() int {
	return intEnv("MAX_CONSECUTIVE_FAILURES", 3)
}

func MinConfidence() float64 {
	return floatEnv("MIN_CONFIDENCE", 0.3)
}

func MinEvidence() int {
	return intEnv("MIN_EVIDENCE", 2)
}

func MaxCost() float64 {
	return floatEnv("MAX_COST", 20)
}

func intEnv(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func floatEnv(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	ms, err := strconv.Atoi(os.Getenv(key))
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
