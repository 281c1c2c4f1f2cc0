// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	AI            AIConfig           `mapstructure:"ai"`
	Batch         BatchConfig        `mapstructure:"batch"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Trigger       TriggerConfig      `mapstructure:"trigger"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
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

// GetDSN returns the PostgreSQL connection string.
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

// --- AI Scoring Config ---

// AIConfig selects the text-generation transport. Gateway wins when both are
// set; leaving both empty is a supported state (rule-only scoring).
type AIConfig struct {
	Gateway struct {
		BaseURL      string `mapstructure:"base_url"`
		ServiceToken string `mapstructure:"service_token"`
	} `mapstructure:"gateway"`

	Direct struct {
		Endpoint string `mapstructure:"endpoint"`
		APIKey   string `mapstructure:"api_key"`
		Model    string `mapstructure:"model"`
	} `mapstructure:"direct"`

	Timeout      int `mapstructure:"timeout"`        // milliseconds
	MaxRetries   int `mapstructure:"max_retries"`
	CacheTTLDays int `mapstructure:"cache_ttl_days"` // analysis freshness window
}

// --- Batch Config ---

type BatchConfig struct {
	Workers     int `mapstructure:"workers"`       // concurrent users; 1 = sequential
	AIGateScore int `mapstructure:"ai_gate_score"` // rule score needed before AI runs
	NotifyScore int `mapstructure:"notify_score"`  // hybrid score needed to notify
	MaxProducts int `mapstructure:"max_products"`  // cap on products per sweep
	Timeout     int `mapstructure:"timeout"`       // milliseconds, whole-sweep budget
}

// --- Notification Config ---

type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`

	InApp struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"in_app"`

	Webhook struct {
		Enabled  bool   `mapstructure:"enabled"`
		URL      string `mapstructure:"url"`
		SNSTopic string `mapstructure:"sns_topic"` // used instead of URL when set
		Timeout  int    `mapstructure:"timeout"`   // milliseconds
	} `mapstructure:"webhook"`

	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// --- Trigger Config ---

// TriggerConfig covers the scheduler-facing entry point.
type TriggerConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	AuthToken     string `mapstructure:"auth_token"`
}

// --- Logging Config ---

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
