// Package config описывает настройки сервера и клиента.
// Источники в порядке приоритета: флаги cobra, переменные окружения FIELDSYNC_*, YAML файл, значения по умолчанию.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/iudanet/fieldsync/internal/backoff"
	"github.com/iudanet/fieldsync/internal/models"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "FIELDSYNC"

// Bus kinds
const (
	BusMemory = "memory"
	BusZMQ    = "zmq"
)

// Config полная конфигурация
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Client  ClientConfig  `mapstructure:"client"`
	Backoff BackoffConfig `mapstructure:"backoff"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig настройки сервера
type ServerConfig struct {
	ListenAddr          string        `mapstructure:"listen_addr"`
	DatabasePath        string        `mapstructure:"database_path"`
	JWTSecret           string        `mapstructure:"jwt_secret"`
	ProducerID          string        `mapstructure:"producer_id"`
	Bus                 BusConfig     `mapstructure:"bus"`
	LogRetention        time.Duration `mapstructure:"log_retention"`
	HeartbeatInterval   time.Duration `mapstructure:"heartbeat_interval"`
	HeartbeatTimeout    time.Duration `mapstructure:"heartbeat_timeout"`
	IdempotencyTTL      time.Duration `mapstructure:"idempotency_ttl"`
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval"`
	RateWindow          time.Duration `mapstructure:"rate_window"`
	ReplayBatchSize     int           `mapstructure:"replay_batch_size"`
	RateLimit           int           `mapstructure:"rate_limit"`

	// Commutative коммутативные операции по типам сущностей; типы без записи используют increment и append
	Commutative map[string][]string `mapstructure:"commutative"`
}

// BusConfig настройки шины
type BusConfig struct {
	Kind        string `mapstructure:"kind"`         // memory | zmq
	PubEndpoint string `mapstructure:"pub_endpoint"` // XSUB сторона прокси, куда публикуем
	SubEndpoint string `mapstructure:"sub_endpoint"` // XPUB сторона прокси, откуда читаем
}

// ClientConfig настройки клиента
type ClientConfig struct {
	ServerURL     string        `mapstructure:"server_url"`
	DatabasePath  string        `mapstructure:"database_path"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	Concurrency   int           `mapstructure:"concurrency"`
	EntityTypes   []string      `mapstructure:"entity_types"` // типы сущностей для data pack и resync
	CallTimeout   time.Duration `mapstructure:"call_timeout"`
	DrainInterval time.Duration `mapstructure:"drain_interval"`
}

// BackoffConfig параметры backoff для переподключения и повторов
type BackoffConfig struct {
	Base   time.Duration `mapstructure:"base"`
	Cap    time.Duration `mapstructure:"cap"`
	Jitter float64       `mapstructure:"jitter"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug | info | warn | error
	Format string `mapstructure:"format"` // text | json
}

// Policy конвертирует настройки в backoff.Policy
func (b BackoffConfig) Policy() backoff.Policy {
	return backoff.Policy{Base: b.Base, Cap: b.Cap, Jitter: b.Jitter}
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	p := backoff.DefaultPolicy()
	return Config{
		Server: ServerConfig{
			ListenAddr:          ":8080",
			DatabasePath:        "fieldsync.db",
			Bus:                 BusConfig{Kind: BusMemory},
			LogRetention:        7 * 24 * time.Hour,
			HeartbeatInterval:   15 * time.Second,
			HeartbeatTimeout:    45 * time.Second,
			IdempotencyTTL:      14 * 24 * time.Hour,
			MaintenanceInterval: time.Minute,
			ReplayBatchSize:     500,
			RateLimit:           600,
			RateWindow:          time.Minute,
		},
		Client: ClientConfig{
			ServerURL:     "http://localhost:8080",
			DatabasePath:  "fieldsync-client.db",
			MaxAttempts:   10,
			Concurrency:   4,
			EntityTypes:   []string{},
			CallTimeout:   15 * time.Second,
			DrainInterval: 10 * time.Second,
		},
		Backoff: BackoffConfig{Base: p.Base, Cap: p.Cap, Jitter: p.Jitter},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// SetDefaults регистрирует значения по умолчанию в viper.
// Без них AutomaticEnv не видит ключи при Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.listen_addr", d.Server.ListenAddr)
	v.SetDefault("server.database_path", d.Server.DatabasePath)
	v.SetDefault("server.jwt_secret", d.Server.JWTSecret)
	v.SetDefault("server.producer_id", d.Server.ProducerID)
	v.SetDefault("server.bus.kind", d.Server.Bus.Kind)
	v.SetDefault("server.bus.pub_endpoint", d.Server.Bus.PubEndpoint)
	v.SetDefault("server.bus.sub_endpoint", d.Server.Bus.SubEndpoint)
	v.SetDefault("server.log_retention", d.Server.LogRetention)
	v.SetDefault("server.heartbeat_interval", d.Server.HeartbeatInterval)
	v.SetDefault("server.heartbeat_timeout", d.Server.HeartbeatTimeout)
	v.SetDefault("server.idempotency_ttl", d.Server.IdempotencyTTL)
	v.SetDefault("server.maintenance_interval", d.Server.MaintenanceInterval)
	v.SetDefault("server.replay_batch_size", d.Server.ReplayBatchSize)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_window", d.Server.RateWindow)

	v.SetDefault("client.server_url", d.Client.ServerURL)
	v.SetDefault("client.database_path", d.Client.DatabasePath)
	v.SetDefault("client.max_attempts", d.Client.MaxAttempts)
	v.SetDefault("client.concurrency", d.Client.Concurrency)
	v.SetDefault("client.call_timeout", d.Client.CallTimeout)
	v.SetDefault("client.drain_interval", d.Client.DrainInterval)
	v.SetDefault("client.entity_types", d.Client.EntityTypes)

	v.SetDefault("backoff.base", d.Backoff.Base)
	v.SetDefault("backoff.cap", d.Backoff.Cap)
	v.SetDefault("backoff.jitter", d.Backoff.Jitter)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// NewViper создает viper с дефолтами и чтением окружения
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load читает конфигурацию. path может быть пустым: тогда используются окружение и дефолты.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	var errs []error

	if c.Server.LogRetention <= 0 {
		errs = append(errs, errors.New("server.log_retention must be positive"))
	}
	if c.Server.HeartbeatInterval <= 0 {
		errs = append(errs, errors.New("server.heartbeat_interval must be positive"))
	}
	if c.Server.HeartbeatTimeout <= c.Server.HeartbeatInterval {
		errs = append(errs, errors.New("server.heartbeat_timeout must exceed server.heartbeat_interval"))
	}
	if c.Server.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("server.idempotency_ttl must be positive"))
	}
	if c.Server.ReplayBatchSize <= 0 {
		errs = append(errs, errors.New("server.replay_batch_size must be positive"))
	}
	switch c.Server.Bus.Kind {
	case BusMemory:
	case BusZMQ:
		if c.Server.Bus.PubEndpoint == "" || c.Server.Bus.SubEndpoint == "" {
			errs = append(errs, errors.New("server.bus.pub_endpoint and server.bus.sub_endpoint are required for zmq bus"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown server.bus.kind %q", c.Server.Bus.Kind))
	}
	for entityType, ops := range c.Server.Commutative {
		for _, op := range ops {
			o := models.Operation(op)
			if !o.Valid() || o == models.OpDelete {
				errs = append(errs, fmt.Errorf("server.commutative.%s: %q cannot be commutative", entityType, op))
			}
		}
	}
	if c.Client.MaxAttempts <= 0 {
		errs = append(errs, errors.New("client.max_attempts must be positive"))
	}
	if c.Client.Concurrency <= 0 {
		errs = append(errs, errors.New("client.concurrency must be positive"))
	}
	if c.Client.CallTimeout <= 0 {
		errs = append(errs, errors.New("client.call_timeout must be positive"))
	}
	if c.Backoff.Base <= 0 || c.Backoff.Cap < c.Backoff.Base {
		errs = append(errs, errors.New("backoff.base must be positive and not exceed backoff.cap"))
	}
	if c.Backoff.Jitter < 0 || c.Backoff.Jitter > 1 {
		errs = append(errs, errors.New("backoff.jitter must be within [0, 1]"))
	}

	return errors.Join(errs...)
}
