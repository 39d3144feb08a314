package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wmoralesdev/ues-live-go/pkg/logger"
	"github.com/wmoralesdev/ues-live-go/postgres"
	"github.com/wmoralesdev/ues-live-go/realtime"
)

type Auth struct {
	BaseURL     string        `yaml:"baseUrl"`     // напр. https://acme.ueslive.io/auth/v1
	AnonKey     string        `yaml:"anonKey"`     // публичный ключ проекта; перекрывается UESLIVE_ANON_KEY
	RedirectURL string        `yaml:"redirectUrl"` // loopback callback, напр. http://127.0.0.1:53682/callback
	Timeout     time.Duration `yaml:"timeout"`
}

func (a *Auth) Validate() error {
	if a.BaseURL == "" {
		return errors.New("auth.baseUrl is required")
	}
	if a.AnonKey == "" {
		return errors.New("auth.anonKey is required")
	}
	if a.Timeout <= 0 {
		a.Timeout = 10 * time.Second
	}

	return nil
}

type Postgres struct {
	DSN               string        `yaml:"dsn"` // перекрывается UESLIVE_POSTGRES_DSN
	MaxConns          int32         `yaml:"maxConns"`
	MinConns          int32         `yaml:"minConns"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod"`
	ApplicationName   string        `yaml:"applicationName"`
}

func (p *Postgres) Validate() error {
	if p.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if p.ApplicationName == "" {
		p.ApplicationName = "ueslive"
	}

	return nil
}

func (p Postgres) ToPGConfig() postgres.Config {
	return postgres.Config{
		DSN:               p.DSN,
		MaxConns:          p.MaxConns,
		MinConns:          p.MinConns,
		MaxConnLifetime:   p.MaxConnLifetime,
		MaxConnIdleTime:   p.MaxConnIdleTime,
		HealthCheckPeriod: p.HealthCheckPeriod,
		ApplicationName:   p.ApplicationName,
	}
}

type Reconnect struct {
	Enabled    bool          `yaml:"enabled"` // по умолчанию выключено: упавшая подписка не переподключается
	BaseDelay  time.Duration `yaml:"baseDelay"`
	MaxDelay   time.Duration `yaml:"maxDelay"`
	Multiplier float64       `yaml:"multiplier"`
}

type Realtime struct {
	URL          string        `yaml:"url"` // напр. wss://acme.ueslive.io/realtime/v1
	Heartbeat    time.Duration `yaml:"heartbeat"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	Reconnect    Reconnect     `yaml:"reconnect"`
}

func (r *Realtime) Validate() error {
	if r.URL == "" {
		return errors.New("realtime.url is required")
	}
	if !strings.HasPrefix(r.URL, "ws://") && !strings.HasPrefix(r.URL, "wss://") {
		return errors.New("realtime.url must be a ws:// or wss:// URL")
	}
	if r.Heartbeat <= 0 {
		r.Heartbeat = 25 * time.Second
	}
	if r.WriteTimeout <= 0 {
		r.WriteTimeout = 10 * time.Second
	}
	if r.Reconnect.Enabled {
		if r.Reconnect.BaseDelay <= 0 {
			r.Reconnect.BaseDelay = time.Second
		}
		if r.Reconnect.MaxDelay <= 0 {
			r.Reconnect.MaxDelay = 30 * time.Second
		}
		if r.Reconnect.Multiplier < 1 {
			r.Reconnect.Multiplier = 2
		}
	}

	return nil
}

// ToRealtimeOptions собирает опции realtime-клиента; token подставляет
// актуальный access token при каждом dial.
func (r Realtime) ToRealtimeOptions(anonKey string, token func() string) realtime.Options {
	return realtime.Options{
		URL:          r.URL,
		AnonKey:      anonKey,
		Token:        token,
		Heartbeat:    r.Heartbeat,
		WriteTimeout: r.WriteTimeout,
		Reconnect: realtime.ReconnectPolicy{
			Enabled:    r.Reconnect.Enabled,
			BaseDelay:  r.Reconnect.BaseDelay,
			MaxDelay:   r.Reconnect.MaxDelay,
			Multiplier: r.Reconnect.Multiplier,
		},
	}
}

type Logging struct {
	Env       string `yaml:"env"`
	Service   string `yaml:"service"`
	Version   string `yaml:"version"`
	Backend   string `yaml:"backend"`
	AddSource bool   `yaml:"addSource"`
	Debug     bool   `yaml:"debug"`
}

func (l *Logging) Validate() error {
	if l.Service == "" {
		l.Service = "ueslive"
	}
	if l.Env == "" {
		l.Env = string(logger.DetectEnv())
	}

	return nil
}

func (l Logging) ToLoggerConfig() logger.Config {
	return logger.Config{
		Service:   l.Service,
		Version:   l.Version,
		Env:       logger.Env(l.Env),
		Backend:   logger.Backend(l.Backend),
		AddSource: l.AddSource,
		Debug:     l.Debug,
	}
}

type Config struct {
	Auth     Auth     `yaml:"auth"`
	Postgres Postgres `yaml:"postgres"`
	Realtime Realtime `yaml:"realtime"`
	Logging  Logging  `yaml:"logging"`
}

func (c *Config) Validate() error {
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Postgres.Validate(); err != nil {
		return err
	}
	if err := c.Realtime.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}

	return nil
}

// Load читает yaml-конфиг: явный путь > CONFIG_PATH > config/config.yaml.
// Секреты перекрываются из окружения
func Load(path ...string) (*Config, error) {
	filename := os.Getenv("CONFIG_PATH")
	if filename == "" {
		filename = "config/config.yaml"
	}
	if len(path) > 0 && strings.TrimSpace(path[0]) != "" {
		filename = path[0]
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("UESLIVE_ANON_KEY"); v != "" {
		cfg.Auth.AnonKey = v
	}
	if v := os.Getenv("UESLIVE_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
}
