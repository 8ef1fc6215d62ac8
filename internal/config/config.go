package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Name       string `yaml:"name"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	SSLMode    string `yaml:"sslmode"`
	Path       string `yaml:"path"`
	Migrations string `yaml:"migrations"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	APIKey    string `yaml:"api_key"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type CacheConfig struct {
	StepCacheBytes int `yaml:"step_cache_bytes"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// SlogLevel maps log.level onto a slog level. Unknown values mean info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:     DriverPostgres,
			Migrations: "migrations",
		},
		Auth:  AuthConfig{Issuer: "gym-manager"},
		Kafka: KafkaConfig{Topic: "liveclass.events"},
		Tailscale: TailscaleConfig{
			Hostname: "liveclass",
			StateDir: "tsnet-state",
		},
		Cache: CacheConfig{StepCacheBytes: 8 << 20},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix LIVECLASS_ and underscore-separated paths:
//
//	LIVECLASS_SERVER_HOST, LIVECLASS_SERVER_PORT,
//	LIVECLASS_DB_DRIVER, LIVECLASS_DB_HOST, LIVECLASS_DB_PORT, LIVECLASS_DB_NAME,
//	LIVECLASS_DB_USER, LIVECLASS_DB_PASSWORD, LIVECLASS_DB_SSLMODE, LIVECLASS_DB_PATH,
//	LIVECLASS_AUTH_JWT_SECRET, LIVECLASS_AUTH_ISSUER, LIVECLASS_AUTH_API_KEY,
//	LIVECLASS_KAFKA_BROKERS (comma-separated), LIVECLASS_KAFKA_TOPIC,
//	LIVECLASS_TAILSCALE_ENABLED, LIVECLASS_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("LIVECLASS_SERVER_HOST", &cfg.Server.Host)
	num("LIVECLASS_SERVER_PORT", &cfg.Server.Port)
	str("LIVECLASS_DB_DRIVER", &cfg.Database.Driver)
	str("LIVECLASS_DB_HOST", &cfg.Database.Host)
	num("LIVECLASS_DB_PORT", &cfg.Database.Port)
	str("LIVECLASS_DB_NAME", &cfg.Database.Name)
	str("LIVECLASS_DB_USER", &cfg.Database.User)
	str("LIVECLASS_DB_PASSWORD", &cfg.Database.Password)
	str("LIVECLASS_DB_SSLMODE", &cfg.Database.SSLMode)
	str("LIVECLASS_DB_PATH", &cfg.Database.Path)
	str("LIVECLASS_AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	str("LIVECLASS_AUTH_ISSUER", &cfg.Auth.Issuer)
	str("LIVECLASS_AUTH_API_KEY", &cfg.Auth.APIKey)
	str("LIVECLASS_KAFKA_TOPIC", &cfg.Kafka.Topic)
	str("LIVECLASS_LOG_LEVEL", &cfg.Log.Level)

	if v := os.Getenv("LIVECLASS_KAFKA_BROKERS"); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		cfg.Kafka.Brokers = brokers
	}
	if v := os.Getenv("LIVECLASS_TAILSCALE_ENABLED"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = on
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not one of %s, %s", c.Database.Driver, DriverPostgres, DriverSQLite)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are set")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if c.Cache.StepCacheBytes < 0 {
		return fmt.Errorf("cache.step_cache_bytes must not be negative")
	}
	return nil
}
