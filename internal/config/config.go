// Package config loads wanderlog configuration from an optional YAML file
// and from environment variables. Environment variables always win, so the
// file can hold shared defaults while deployment-specific values come from
// the environment (or a .env file in development).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"
)

// Config is the full application configuration.
type Config struct {
	Env         string         `yaml:"env"`
	PingMessage string         `yaml:"ping_message"`
	Server      ServerConfig   `yaml:"server"`
	Log         LogConfig      `yaml:"log"`
	Database    DatabaseConfig `yaml:"database"`
	Minio       MinioConfig    `yaml:"minio"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig holds PostgreSQL connection and pool settings.
type DatabaseConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Name         string        `yaml:"name"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	SSLMode      string        `yaml:"ssl_mode"`
	MaxConns     int32         `yaml:"max_conns"`
	MinConns     int32         `yaml:"min_conns"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// Configured reports whether enough settings are present to attempt a
// database connection.
func (c DatabaseConfig) Configured() bool {
	return c.Host != "" && c.Name != "" && c.User != ""
}

// DSN builds the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.User, c.Password, c.Name, sslMode,
	)
}

// MinioConfig holds object store connection settings.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Port      int    `yaml:"port"`
	UseSSL    bool   `yaml:"use_ssl"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
}

// Configured reports whether enough settings are present to attempt an
// object store connection.
func (c MinioConfig) Configured() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Address returns the host:port the MinIO client should dial.
// A port already present in Endpoint is left untouched.
func (c MinioConfig) Address() string {
	if c.Port == 0 || strings.Contains(c.Endpoint, ":") {
		return c.Endpoint
	}
	return fmt.Sprintf("%s:%d", c.Endpoint, c.Port)
}

// Default returns the built-in defaults applied before file and env loading.
func Default() *Config {
	return &Config{
		Env:         "development",
		PingMessage: "pong",
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			Port:         5432,
			SSLMode:      "disable",
			MaxConns:     10,
			MinConns:     2,
			QueryTimeout: 30 * time.Second,
		},
		Minio: MinioConfig{
			Port:   9000,
			Bucket: "journal-photos",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// WANDERLOG_CONFIG (if set), then environment variables. A .env file in the
// working directory is loaded first if present.
func Load() (*Config, error) {
	// Missing .env is fine — production sets real environment variables.
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("WANDERLOG_CONFIG"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Env, "APP_ENV", "NODE_ENV")
	setString(&cfg.PingMessage, "PING_MESSAGE")
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	setString(&cfg.Database.Host, "DATABASE_HOST")
	setInt(&cfg.Database.Port, "DATABASE_PORT")
	setString(&cfg.Database.Name, "DATABASE_NAME")
	setString(&cfg.Database.User, "DATABASE_USER")
	setString(&cfg.Database.Password, "DATABASE_PASSWORD")
	setString(&cfg.Database.SSLMode, "DATABASE_SSL_MODE")

	setString(&cfg.Minio.Endpoint, "MINIO_ENDPOINT")
	setInt(&cfg.Minio.Port, "MINIO_PORT")
	setBool(&cfg.Minio.UseSSL, "MINIO_USE_SSL")
	setString(&cfg.Minio.AccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.Minio.SecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.Minio.Bucket, "MINIO_BUCKET")
}

// setString assigns the first non-empty value among the named variables.
func setString(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
			return
		}
	}
}

func setInt(dst *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, name string) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
