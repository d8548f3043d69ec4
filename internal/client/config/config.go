package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// セッションの保存先です。
const (
	SessionFile   = "file"
	SessionRedis  = "redis"
	SessionMemory = "memory"
)

// EnvBaseURL は base_url を上書きする環境変数です。
const EnvBaseURL = "SHIFTBOARD_API_URL"

// Config は shiftctl の設定です。
type Config struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
	Session    SessionConfig `yaml:"session"`
}

// SessionConfig はセッションの保存先設定です。
type SessionConfig struct {
	Backend   string        `yaml:"backend"`
	Path      string        `yaml:"path"`
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
	TTL       time.Duration `yaml:"-"`
	TTLRaw    string        `yaml:"ttl"`
}

// Default はファイルがない場合に用いる設定を返します。
func Default() *Config {
	cfg := &Config{}
	_ = cfg.validateAndNormalize()
	return cfg
}

// Load は path から設定を読み込みます。path が空、またはファイルが存在しない場合は既定値を使います。
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("config: parse yaml: %w", err)
			}
		}
	}

	if v, ok := lookupEnv(EnvBaseURL); ok && v != "" {
		cfg.BaseURL = v
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080/api"
	}

	c.Timeout = 10 * time.Second
	if c.TimeoutRaw != "" {
		d, err := time.ParseDuration(c.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("config: timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("config: timeout must be positive")
		}
		c.Timeout = d
	}

	s := &c.Session
	if s.Backend == "" {
		s.Backend = SessionFile
	}
	switch s.Backend {
	case SessionFile, SessionMemory:
	case SessionRedis:
		if s.RedisAddr == "" {
			return fmt.Errorf("config: session.redis_addr must be set for the redis backend")
		}
	default:
		return fmt.Errorf("config: session.backend must be one of %s, %s, %s", SessionFile, SessionRedis, SessionMemory)
	}
	if s.TTLRaw != "" {
		d, err := time.ParseDuration(s.TTLRaw)
		if err != nil {
			return fmt.Errorf("config: session.ttl: %w", err)
		}
		s.TTL = d
	}
	return nil
}
