package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Runtime is the process configuration shared by every command. Values come
// from an optional YAML file first and DECISION_* environment variables after.
type Runtime struct {
	HTTPAddr      string `yaml:"http_addr"`
	CacheMaxItems int    `yaml:"cache_max_items"`
	MaxSteps      int    `yaml:"max_steps"`
	MaxDepth      int    `yaml:"max_depth"`
	ObsBuffer     int    `yaml:"obs_buffer"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`

	Loader LoaderConfig `yaml:"loader"`
}

type LoaderConfig struct {
	Backend  string        `yaml:"backend"`
	CacheTTL time.Duration `yaml:"cache_ttl"`

	FSRoot  string `yaml:"fs_root"`
	FSWatch bool   `yaml:"fs_watch"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	SQLDriver string `yaml:"sql_driver"`
	SQLDSN    string `yaml:"sql_dsn"`
	SQLTable  string `yaml:"sql_table"`
}

const (
	BackendMemory = "memory"
	BackendFS     = "fs"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
)

func Defaults() Runtime {
	return Runtime{
		HTTPAddr:      ":8080",
		CacheMaxItems: 1024,
		MaxSteps:      10_000,
		MaxDepth:      5,
		ObsBuffer:     4096,
		LogLevel:      "info",
		LogFormat:     "text",
		Loader: LoaderConfig{
			Backend:     BackendMemory,
			FSRoot:      "decisions",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "decision:",
			SQLDriver:   "sqlite",
			SQLTable:    "decisions",
		},
	}
}

// Load reads DECISION_CONFIG (if set) and then the environment.
func Load() (Runtime, error) {
	return LoadFile(os.Getenv("DECISION_CONFIG"))
}

// LoadFile reads path (if not empty) and then the environment.
func LoadFile(path string) (Runtime, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Runtime{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Runtime{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Runtime{}, err
	}
	return cfg, nil
}

func (c *Runtime) applyEnv() {
	c.HTTPAddr = getenv("DECISION_HTTP_ADDR", c.HTTPAddr)
	c.CacheMaxItems = getenvInt("DECISION_CACHE_MAX_ITEMS", c.CacheMaxItems, 0)
	c.MaxSteps = getenvInt("DECISION_MAX_STEPS", c.MaxSteps, 1)
	c.MaxDepth = getenvInt("DECISION_MAX_DEPTH", c.MaxDepth, 0)
	c.ObsBuffer = getenvInt("DECISION_OBS_BUFFER", c.ObsBuffer, 1)
	c.LogLevel = getenv("DECISION_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getenv("DECISION_LOG_FORMAT", c.LogFormat)

	l := &c.Loader
	l.Backend = getenv("DECISION_LOADER", l.Backend)
	l.CacheTTL = getenvDuration("DECISION_LOADER_CACHE_TTL", l.CacheTTL)
	l.FSRoot = getenv("DECISION_FS_ROOT", l.FSRoot)
	l.FSWatch = getenvBool("DECISION_FS_WATCH", l.FSWatch)
	l.RedisAddr = getenv("DECISION_REDIS_ADDR", l.RedisAddr)
	l.RedisPassword = getenv("DECISION_REDIS_PASSWORD", l.RedisPassword)
	l.RedisDB = getenvInt("DECISION_REDIS_DB", l.RedisDB, 0)
	l.RedisPrefix = getenv("DECISION_REDIS_PREFIX", l.RedisPrefix)
	l.SQLDriver = getenv("DECISION_SQL_DRIVER", l.SQLDriver)
	l.SQLDSN = getenv("DECISION_SQL_DSN", l.SQLDSN)
	l.SQLTable = getenv("DECISION_SQL_TABLE", l.SQLTable)
}

func (c Runtime) Validate() error {
	switch c.Loader.Backend {
	case BackendMemory, BackendFS, BackendRedis:
	case BackendSQL:
		if c.Loader.SQLDSN == "" {
			return fmt.Errorf("config: sql loader needs a dsn")
		}
	default:
		return fmt.Errorf("config: unknown loader backend %q", c.Loader.Backend)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("config: max_steps must be positive")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("config: max_depth must not be negative")
	}
	if c.Loader.FSWatch && c.Loader.Backend != BackendFS {
		return fmt.Errorf("config: fs_watch requires the fs loader")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback, min int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		return fallback
	}
	return v
}

func getenvBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
