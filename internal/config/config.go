package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel        slog.Level
	HTTPAddr        string        `validate:"required"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`

	LocalBasePath    string        `validate:"required"`
	ManifestURL      string        `validate:"required"`
	OverpassEndpoint string        `validate:"required,url"`
	FetchTimeout     time.Duration `validate:"gt=0"`

	WSSendBuffer  int           `validate:"gt=0"`
	WSSendTimeout time.Duration `validate:"gt=0"`

	RedisEnabled      bool
	RedisAddr         string `validate:"required_if=RedisEnabled true"`
	RedisPassword     string
	RedisDB           int           `validate:"gte=0"`
	CacheTTL          time.Duration `validate:"gte=0"`
	CacheWarmOnStart  bool
	CacheFlushOnStart bool

	RateLimitPerWindow int           `validate:"gte=0"`
	RateLimitWindow    time.Duration `validate:"gt=0"`
	RateLimitWhitelist []string
}

func defaults() *Config {
	return &Config{
		LogLevel:        slog.LevelInfo,
		HTTPAddr:        ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    90 * time.Second,
		ShutdownTimeout: 30 * time.Second,

		LocalBasePath:    "route-data/geojson",
		ManifestURL:      "route-data/routes.json",
		OverpassEndpoint: "https://overpass-api.de/api/interpreter",
		FetchTimeout:     60 * time.Second,

		WSSendBuffer:  256,
		WSSendTimeout: 5 * time.Second,

		RedisAddr:        "localhost:6379",
		CacheTTL:         7 * 24 * time.Hour,
		CacheWarmOnStart: false,

		RateLimitPerWindow: 120,
		RateLimitWindow:    time.Minute,
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// named by CONFIG_FILE, then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.LogLevel = getLogLevelEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.ReadTimeout = getDurationEnv("READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = getDurationEnv("WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.ShutdownTimeout = getDurationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	cfg.LocalBasePath = getEnv("LOCAL_BASE_PATH", cfg.LocalBasePath)
	cfg.ManifestURL = getEnv("MANIFEST_URL", cfg.ManifestURL)
	cfg.OverpassEndpoint = getEnv("OVERPASS_ENDPOINT", cfg.OverpassEndpoint)
	cfg.FetchTimeout = getDurationEnv("FETCH_TIMEOUT", cfg.FetchTimeout)

	cfg.WSSendBuffer = getIntEnv("WS_SEND_BUFFER", cfg.WSSendBuffer)
	cfg.WSSendTimeout = getDurationEnv("WS_SEND_TIMEOUT", cfg.WSSendTimeout)

	cfg.RedisEnabled = getBoolEnv("REDIS_ENABLED", cfg.RedisEnabled)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getIntEnv("REDIS_DB", cfg.RedisDB)
	cfg.CacheTTL = getDurationEnv("CACHE_TTL", cfg.CacheTTL)
	cfg.CacheWarmOnStart = getBoolEnv("CACHE_WARM_ON_START", cfg.CacheWarmOnStart)
	cfg.CacheFlushOnStart = getBoolEnv("CACHE_FLUSH_ON_START", cfg.CacheFlushOnStart)

	cfg.RateLimitPerWindow = getIntEnv("RATE_LIMIT_PER_WINDOW", cfg.RateLimitPerWindow)
	cfg.RateLimitWindow = getDurationEnv("RATE_LIMIT_WINDOW", cfg.RateLimitWindow)
	if wl := getCSVEnv("RATE_LIMIT_WHITELIST"); wl != nil {
		cfg.RateLimitWhitelist = wl
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fileConfig mirrors Config for YAML; durations and the log level are
// written as strings ("30s", "debug").
type fileConfig struct {
	LogLevel        string `yaml:"logLevel"`
	HTTPAddr        string `yaml:"httpAddr"`
	ReadTimeout     string `yaml:"readTimeout"`
	WriteTimeout    string `yaml:"writeTimeout"`
	ShutdownTimeout string `yaml:"shutdownTimeout"`

	LocalBasePath    string `yaml:"localBasePath"`
	ManifestURL      string `yaml:"manifestUrl"`
	OverpassEndpoint string `yaml:"overpassEndpoint"`
	FetchTimeout     string `yaml:"fetchTimeout"`

	WSSendBuffer  *int   `yaml:"wsSendBuffer"`
	WSSendTimeout string `yaml:"wsSendTimeout"`

	Redis struct {
		Enabled      *bool  `yaml:"enabled"`
		Addr         string `yaml:"addr"`
		Password     string `yaml:"password"`
		DB           *int   `yaml:"db"`
		TTL          string `yaml:"ttl"`
		WarmOnStart  *bool  `yaml:"warmOnStart"`
		FlushOnStart *bool  `yaml:"flushOnStart"`
	} `yaml:"redis"`

	RateLimit struct {
		PerWindow *int     `yaml:"perWindow"`
		Window    string   `yaml:"window"`
		Whitelist []string `yaml:"whitelist"`
	} `yaml:"rateLimit"`
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fc.LogLevel != "" {
		c.LogLevel = parseLogLevel(fc.LogLevel, c.LogLevel)
	}
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.LocalBasePath, fc.LocalBasePath)
	setString(&c.ManifestURL, fc.ManifestURL)
	setString(&c.OverpassEndpoint, fc.OverpassEndpoint)
	setString(&c.RedisAddr, fc.Redis.Addr)
	setString(&c.RedisPassword, fc.Redis.Password)

	durations := []struct {
		dst *time.Duration
		val string
	}{
		{&c.ReadTimeout, fc.ReadTimeout},
		{&c.WriteTimeout, fc.WriteTimeout},
		{&c.ShutdownTimeout, fc.ShutdownTimeout},
		{&c.FetchTimeout, fc.FetchTimeout},
		{&c.WSSendTimeout, fc.WSSendTimeout},
		{&c.CacheTTL, fc.Redis.TTL},
		{&c.RateLimitWindow, fc.RateLimit.Window},
	}
	for _, d := range durations {
		if d.val == "" {
			continue
		}
		v, err := time.ParseDuration(d.val)
		if err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
		*d.dst = v
	}

	if fc.WSSendBuffer != nil {
		c.WSSendBuffer = *fc.WSSendBuffer
	}
	if fc.Redis.Enabled != nil {
		c.RedisEnabled = *fc.Redis.Enabled
	}
	if fc.Redis.WarmOnStart != nil {
		c.CacheWarmOnStart = *fc.Redis.WarmOnStart
	}
	if fc.Redis.FlushOnStart != nil {
		c.CacheFlushOnStart = *fc.Redis.FlushOnStart
	}
	if fc.Redis.DB != nil {
		c.RedisDB = *fc.Redis.DB
	}
	if fc.RateLimit.PerWindow != nil {
		c.RateLimitPerWindow = *fc.RateLimit.PerWindow
	}
	if len(fc.RateLimit.Whitelist) > 0 {
		c.RateLimitWhitelist = fc.RateLimit.Whitelist
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getLogLevelEnv(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return parseLogLevel(v, defaultVal)
}

func parseLogLevel(v string, defaultVal slog.Level) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return defaultVal
	}
}

func getCSVEnv(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			result = append(result, t)
		}
	}
	return result
}
