// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Bot        BotConfig        `mapstructure:"bot"`
	Completion CompletionConfig `mapstructure:"completion"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Session    SessionConfig    `mapstructure:"session"`
	Query      QueryConfig      `mapstructure:"query"`
	Synthesis  SynthesisConfig  `mapstructure:"synthesis"`
	PlantAPI   PlantAPIConfig   `mapstructure:"plant_api"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// BotConfig holds the chat transport credential. Inbound webhook calls must
// present it in the X-Bot-Token header.
type BotConfig struct {
	Token        string `mapstructure:"token"`
	ImageTimeout int    `mapstructure:"image_timeout"` // milliseconds
}

// CompletionConfig selects and configures the language model provider.
type CompletionConfig struct {
	Provider    string  `mapstructure:"provider"` // "openai" or "gemini"
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	RouterModel string  `mapstructure:"router_model"`
	Temperature float64 `mapstructure:"temperature"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
}

type DatabaseConfig struct {
	Driver        string              `mapstructure:"driver"` // postgres, pgx or sqlite
	DSN           string              `mapstructure:"dsn"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

// GetDSN prefers the explicit DSN and falls back to the postgres fields.
func (d DatabaseConfig) GetDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Postgres.Host == "" {
		return ""
	}
	return d.Postgres.GetDSN()
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SessionConfig controls where conversation sessions live and how long an
// idle one survives.
type SessionConfig struct {
	Backend      string `mapstructure:"backend"` // "memory" or "redis"
	IdleTimeout  int    `mapstructure:"idle_timeout"` // milliseconds
	MaxEntries   int    `mapstructure:"max_entries"`
	KeyPrefix    string `mapstructure:"key_prefix"`
	HistoryTurns int    `mapstructure:"history_turns"`
}

type QueryConfig struct {
	Schema  string `mapstructure:"schema"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
	MaxRows int    `mapstructure:"max_rows"`
}

type SynthesisConfig struct {
	CacheTTL int `mapstructure:"cache_ttl"` // milliseconds, 0 disables the cache
}

type PlantAPIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type AuditConfig struct {
	Elasticsearch bool   `mapstructure:"elasticsearch"`
	Index         string `mapstructure:"index"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
