// Package config loads awake settings from config.yaml, a dotenv file and the
// process environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/awakeconnect/awake/apperr"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDatabasePath = "awake.db"
	DefaultHTTPAddr     = ":8080"
	DefaultEnvFile      = ".env"
	DefaultCacheTTL     = 300
	DefaultSamplingTick = 5000
	DefaultSampleAfter  = 2000
)

// Config holds every knob the awake binary reads.
type Config struct {
	DatabaseURL        string `yaml:"database_url" json:"database_url"`
	DatabaseDriver     string `yaml:"database_driver" json:"database_driver"`
	DatabasePath       string `yaml:"database_path" json:"database_path"`
	JWTSecret          string `yaml:"-" json:"-"`
	RedisURL           string `yaml:"redis_url" json:"redis_url"`
	EnableRedis        bool   `yaml:"enable_redis" json:"enable_redis"`
	CacheTTLSeconds    int    `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`
	HTTPAddr           string `yaml:"http_addr" json:"http_addr"`
	IsDebug            bool   `yaml:"debug" json:"debug"`
	LogSamplingTickMs  int    `yaml:"log_sampling_tick_ms" json:"log_sampling_tick_ms"`
	LogSamplingAfterMs int    `yaml:"log_sampling_after_ms" json:"log_sampling_after_ms"`
}

// Defaults fills zero values.
func (c *Config) Defaults() {
	if c.DatabasePath == "" {
		c.DatabasePath = DefaultDatabasePath
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
	if c.CacheTTLSeconds <= 0 {
		c.CacheTTLSeconds = DefaultCacheTTL
	}
	if c.LogSamplingTickMs <= 0 {
		c.LogSamplingTickMs = DefaultSamplingTick
	}
	if c.LogSamplingAfterMs <= 0 {
		c.LogSamplingAfterMs = DefaultSampleAfter
	}
}

// CacheTTL is CacheTTLSeconds as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Options controls where Load looks.
type Options struct {
	// ConfigPath is an explicit config.yaml; empty searches ./config.yaml then ../config.yaml.
	ConfigPath string
	// EnvFile is loaded into the process environment before overrides are read.
	EnvFile string
	// Getenv defaults to os.Getenv. An injected getter takes precedence over the env
	// file; keys it returns empty are read from the file.
	Getenv func(string) string
}

// Load builds a Config. A missing config.yaml or env file is not an error unless
// the path was given explicitly.
func Load(opts Options) (Config, error) {
	var cfg Config

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = FirstExistingPath("./config.yaml", "../config.yaml")
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return cfg, apperr.Wrap(err, apperr.ErrConfig, fmt.Sprintf("read config: %v", err))
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, apperr.Wrap(err, apperr.ErrConfig, fmt.Sprintf("parse config yaml: %v", err))
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || opts.EnvFile != "" {
			return cfg, apperr.Wrap(err, apperr.ErrConfig, fmt.Sprintf("load env file %s: %v", envFile, err))
		}
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	} else if values, err := godotenv.Read(envFile); err == nil {
		getenv = withFallback(getenv, values)
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return cfg, err
	}
	cfg.Defaults()
	return cfg, nil
}

// withFallback consults values for keys getenv leaves empty, so an injected getter
// sees the env file the same way the process environment does.
func withFallback(getenv func(string) string, values map[string]string) func(string) string {
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return values[key]
	}
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("DATABASE_URL", &c.DatabaseURL)
	str("DATABASE_DRIVER", &c.DatabaseDriver)
	str("DATABASE_PATH", &c.DatabasePath)
	str("REDIS_URL", &c.RedisURL)
	str("HTTP_ADDR", &c.HTTPAddr)
	// the secret is taken verbatim; validation belongs to the auth package
	c.JWTSecret = getenv("JWT_SECRET")

	var errs []error
	boolean := func(key string, dst *bool) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
	integer := func(key string, dst *int) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
	boolean("ENABLE_REDIS", &c.EnableRedis)
	boolean("DEBUG", &c.IsDebug)
	integer("CACHE_TTL_SECONDS", &c.CacheTTLSeconds)
	integer("LOG_SAMPLING_TICK_MS", &c.LogSamplingTickMs)
	integer("LOG_SAMPLING_AFTER_MS", &c.LogSamplingAfterMs)

	if err := errors.Join(errs...); err != nil {
		return apperr.Wrap(err, apperr.ErrConfig, "invalid environment: "+err.Error())
	}
	return nil
}

// FirstExistingPath returns the first candidate that exists as a regular file.
func FirstExistingPath(candidates ...string) string {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
