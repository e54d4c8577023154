package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"perpPatternBot/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading Universe
	Symbols          []string // Symbols analyzed each cycle
	Timeframes       []string // Timeframes fetched for confluence analysis
	PrimaryTimeframe string   // Timeframe used for primary signals and state analysis

	// Risk Parameters
	MaxDrawdownPercent   float64 // Circuit breaker drawdown limit in percent
	MaxConsecutiveLosses int
	DailyLossLimit       float64 // In quote currency (USDT)
	CooldownMinutes      int     // Circuit breaker cooldown
	RiskPerTrade         float64 // Fraction of balance risked per trade
	MaxPositions         int

	// Execution Gate
	MinTradeIntervalMinutes int
	MinBodyRatio            float64
	MinStopDistance         float64 // Required stop distance as a fraction of entry

	// Pipeline
	PollInterval     time.Duration
	EnableSimulation bool   // Dry-run: synthetic fills, no real orders
	StrategyParams   string // Path to the YAML strategy parameter file

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety
	cfg.EnableSimulation = getEnvAsBool("ENABLE_SIMULATION", true)

	// Real trading needs credentials; simulation can run without them.
	if !cfg.EnableSimulation {
		if cfg.APIKey == "" {
			errs = append(errs, "BINANCE_API_KEY must be set when simulation is disabled")
		}
		if cfg.SecretKey == "" {
			errs = append(errs, "BINANCE_API_SECRET must be set when simulation is disabled")
		}
	}

	// Trading Universe
	cfg.Symbols = getEnvAsSlice("SYMBOLS", []string{"ETHUSDT"})
	if len(cfg.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must list at least one symbol")
	}
	cfg.Timeframes = getEnvAsSlice("TIMEFRAMES", []string{"5m", "15m", "1h"})
	if len(cfg.Timeframes) == 0 {
		errs = append(errs, "TIMEFRAMES must list at least one timeframe")
	}
	cfg.PrimaryTimeframe = getEnv("PRIMARY_TIMEFRAME", "5m")
	if !contains(cfg.Timeframes, cfg.PrimaryTimeframe) {
		errs = append(errs, "PRIMARY_TIMEFRAME must be one of TIMEFRAMES")
	}

	// Risk Parameters
	cfg.MaxDrawdownPercent, err = getEnvAsFloatRequired("MAX_DRAWDOWN_PERCENT", 5.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DRAWDOWN_PERCENT: %v", err))
	} else if cfg.MaxDrawdownPercent <= 0 {
		errs = append(errs, "MAX_DRAWDOWN_PERCENT must be positive")
	}

	cfg.MaxConsecutiveLosses, err = getEnvAsIntRequired("MAX_CONSECUTIVE_LOSSES", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_CONSECUTIVE_LOSSES: %v", err))
	} else if cfg.MaxConsecutiveLosses <= 0 {
		errs = append(errs, "MAX_CONSECUTIVE_LOSSES must be positive")
	}

	cfg.DailyLossLimit, err = getEnvAsFloatRequired("DAILY_LOSS_LIMIT", 30.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DAILY_LOSS_LIMIT: %v", err))
	} else if cfg.DailyLossLimit <= 0 {
		errs = append(errs, "DAILY_LOSS_LIMIT must be positive")
	}

	cfg.CooldownMinutes = getEnvAsInt("COOLDOWN_MINUTES", 30)
	if cfg.CooldownMinutes <= 0 {
		errs = append(errs, "COOLDOWN_MINUTES must be positive")
	}

	cfg.RiskPerTrade, err = getEnvAsFloatRequired("RISK_PER_TRADE", 0.02)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RISK_PER_TRADE: %v", err))
	} else if cfg.RiskPerTrade <= 0 || cfg.RiskPerTrade >= 1.0 {
		errs = append(errs, "RISK_PER_TRADE must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.MaxPositions = getEnvAsInt("MAX_POSITIONS", 3)
	if cfg.MaxPositions <= 0 {
		errs = append(errs, "MAX_POSITIONS must be positive")
	}

	// Execution Gate
	cfg.MinTradeIntervalMinutes = getEnvAsInt("MIN_TRADE_INTERVAL_MINUTES", 10)
	if cfg.MinTradeIntervalMinutes < 0 {
		errs = append(errs, "MIN_TRADE_INTERVAL_MINUTES cannot be negative")
	}
	cfg.MinBodyRatio = getEnvAsFloat("MIN_BODY_RATIO", 0.3)
	cfg.MinStopDistance, err = getEnvAsFloatRequired("MIN_STOP_DISTANCE", 0.005)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_STOP_DISTANCE: %v", err))
	} else if cfg.MinStopDistance < 0 {
		errs = append(errs, "MIN_STOP_DISTANCE cannot be negative")
	}

	// Pipeline
	pollSeconds := getEnvAsInt("POLL_INTERVAL_SECONDS", 5)
	if pollSeconds <= 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be positive")
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second
	cfg.StrategyParams = getEnv("STRATEGY_PARAMS", "")

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/pattern_bot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
