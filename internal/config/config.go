package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/m04kA/SMC-RentalService/internal/domain"
)

// EnvDatabasePassword переменная окружения, перекрывающая пароль БД из файла
const EnvDatabasePassword = "DATABASE_PASSWORD"

// Бэкенды публикации событий
const (
	EventsBackendNone     = "none"
	EventsBackendRabbitMQ = "rabbitmq"
	EventsBackendKafka    = "kafka"
)

var (
	// ErrReadConfig ошибка чтения/парсинга файла конфигурации
	ErrReadConfig = errors.New("config: failed to read config")

	// ErrInvalidConfig конфигурация не прошла валидацию
	ErrInvalidConfig = errors.New("config: invalid config")
)

// Config конфигурация сервиса
type Config struct {
	Server       ServerConfig       `toml:"server"`
	Database     DatabaseConfig     `toml:"database"`
	Logs         LogsConfig         `toml:"logs"`
	Metrics      MetricsConfig      `toml:"metrics"`
	Tracing      TracingConfig      `toml:"tracing"`
	Redis        RedisConfig        `toml:"redis"`
	Events       EventsConfig       `toml:"events"`
	Auth         AuthConfig         `toml:"auth"`
	Availability AvailabilityConfig `toml:"availability"`
}

// ServerConfig HTTP сервер, таймауты в секундах
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
	Path        string `toml:"path"`
}

type TracingConfig struct {
	Enabled     bool    `toml:"enabled"`
	Endpoint    string  `toml:"endpoint"`
	SampleRatio float64 `toml:"sample_ratio"`
}

// RedisConfig хранилище ключей идемпотентности
type RedisConfig struct {
	Enabled        bool   `toml:"enabled"`
	Addr           string `toml:"addr"`
	Password       string `toml:"password"`
	DB             int    `toml:"db"`
	IdempotencyTTL int    `toml:"idempotency_ttl"` // секунды
}

// EventsConfig публикация событий бронирований
type EventsConfig struct {
	Backend string         `toml:"backend"`
	Rabbit  RabbitMQConfig `toml:"rabbitmq"`
	Kafka   KafkaConfig    `toml:"kafka"`
}

type RabbitMQConfig struct {
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
}

type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// AuthConfig заголовки, которые выставляет upstream gateway
type AuthConfig struct {
	UserIDHeader string `toml:"user_id_header"`
	RoleHeader   string `toml:"role_header"`
	AdminRole    string `toml:"admin_role"`
}

// AvailabilityConfig поведение проверки доступности
type AvailabilityConfig struct {
	DateOrderPolicy        string `toml:"date_order_policy"`
	ReservationConsistency string `toml:"reservation_consistency"`
	MaxTxRetries           int    `toml:"max_tx_retries"`
}

// Policy политика порядка дат
func (a AvailabilityConfig) Policy() domain.DateOrderPolicy {
	return domain.DateOrderPolicy(a.DateOrderPolicy)
}

// Consistency режим создания бронирования
func (a AvailabilityConfig) Consistency() domain.ReservationConsistency {
	return domain.ReservationConsistency(a.ReservationConsistency)
}

// Load читает TOML файл, применяет значения по умолчанию и валидирует результат
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadConfig, path, err)
	}

	return finalize(cfg)
}

// Parse то же, что Load, но из строки
func Parse(data string) (*Config, error) {
	cfg := Default()

	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadConfig, err)
	}

	return finalize(cfg)
}

func finalize(cfg *Config) (*Config, error) {
	if pwd, ok := os.LookupEnv(EnvDatabasePassword); ok {
		cfg.Database.Password = pwd
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default конфигурация по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     10,
			WriteTimeout:    10,
			IdleTimeout:     60,
			ShutdownTimeout: 15,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			DBName:          "rental",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logs: LogsConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled:     true,
			ServiceName: "rental_service",
			Path:        "/metrics",
		},
		Tracing: TracingConfig{
			SampleRatio: 1,
		},
		Redis: RedisConfig{
			Addr:           "localhost:6379",
			IdempotencyTTL: 86400,
		},
		Events: EventsConfig{
			Backend: EventsBackendNone,
			Rabbit: RabbitMQConfig{
				Exchange: "rental.events",
			},
			Kafka: KafkaConfig{
				Topic: "rental.reservations",
			},
		},
		Auth: AuthConfig{
			UserIDHeader: "X-User-ID",
			RoleHeader:   "X-User-Role",
			AdminRole:    "admin",
		},
		Availability: AvailabilityConfig{
			DateOrderPolicy:        string(domain.DefaultDateOrderPolicy),
			ReservationConsistency: string(domain.DefaultReservationConsistency),
			MaxTxRetries:           3,
		},
	}
}

// applyDefaults заполняет значения, которые в файле явно оставили пустыми
func (c *Config) applyDefaults() {
	def := Default()

	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = def.Metrics.ServiceName
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = def.Metrics.Path
	}
	if c.Events.Backend == "" {
		c.Events.Backend = EventsBackendNone
	}
	if c.Auth.UserIDHeader == "" {
		c.Auth.UserIDHeader = def.Auth.UserIDHeader
	}
	if c.Auth.RoleHeader == "" {
		c.Auth.RoleHeader = def.Auth.RoleHeader
	}
	if c.Auth.AdminRole == "" {
		c.Auth.AdminRole = def.Auth.AdminRole
	}
	if c.Availability.DateOrderPolicy == "" {
		c.Availability.DateOrderPolicy = def.Availability.DateOrderPolicy
	}
	if c.Availability.ReservationConsistency == "" {
		c.Availability.ReservationConsistency = def.Availability.ReservationConsistency
	}
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	var problems []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		problems = append(problems, fmt.Sprintf("server.http_port out of range: %d", c.Server.HTTPPort))
	}
	if c.Database.Host == "" {
		problems = append(problems, "database.host is required")
	}
	if c.Database.DBName == "" {
		problems = append(problems, "database.dbname is required")
	}
	if !c.Availability.Policy().IsValid() {
		problems = append(problems, fmt.Sprintf("availability.date_order_policy: unknown value %q", c.Availability.DateOrderPolicy))
	}
	if !c.Availability.Consistency().IsValid() {
		problems = append(problems, fmt.Sprintf("availability.reservation_consistency: unknown value %q", c.Availability.ReservationConsistency))
	}
	if c.Availability.MaxTxRetries < 0 {
		problems = append(problems, "availability.max_tx_retries must be >= 0")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		problems = append(problems, "tracing.endpoint is required when tracing is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		problems = append(problems, "redis.addr is required when redis is enabled")
	}

	switch c.Events.Backend {
	case EventsBackendNone:
	case EventsBackendRabbitMQ:
		if c.Events.Rabbit.URL == "" {
			problems = append(problems, "events.rabbitmq.url is required for rabbitmq backend")
		}
	case EventsBackendKafka:
		if len(c.Events.Kafka.Brokers) == 0 {
			problems = append(problems, "events.kafka.brokers is required for kafka backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("events.backend: unknown value %q", c.Events.Backend))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
