// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	// BaseURL is the public URL of the tracking application, used in
	// notification deep links.
	BaseURL string `mapstructure:"base_url"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// RequestTimeout bounds one job invocation, milliseconds.
	RequestTimeout int `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
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

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// --- Notification pipeline configuration ---

type NotificationConfig struct {
	Email  EmailConfig  `mapstructure:"email"`
	AWS    AWSConfig    `mapstructure:"aws"`
	Alerts AlertsConfig `mapstructure:"alerts"`
	Audit  AuditConfig  `mapstructure:"audit"`
	Digest DigestConfig `mapstructure:"digest"`
	// LockTTL bounds the redis run lock of every job trigger, milliseconds.
	LockTTL int `mapstructure:"lock_ttl"`
}

type EmailConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	FromEmail string `mapstructure:"from_email"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

// AlertsConfig enables publishing a run-failure summary to an SNS topic.
type AlertsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	TopicARN string `mapstructure:"topic_arn"`
}

// AuditConfig controls the optional Elasticsearch mirror of delivery logs.
// Postgres remains the durable audit store either way.
type AuditConfig struct {
	IndexEnabled bool   `mapstructure:"index_enabled"`
	Index        string `mapstructure:"index"`
}

type DigestConfig struct {
	// IncludeContracts adds support contracts to the ranked expiring-items
	// list. The headline counts always include contracts.
	IncludeContracts bool `mapstructure:"include_contracts"`
	// TopExpiring is the length of the ranked expiring-items list.
	TopExpiring int `mapstructure:"top_expiring"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
