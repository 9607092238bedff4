// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Scrapers   ScrapersConfig   `mapstructure:"scrapers"`
	Weather    WeatherConfig    `mapstructure:"weather"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RatePerMinute  int      `mapstructure:"rate_per_minute"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
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

// Enabled reports whether a session history database is configured.
// History is best-effort; an empty host disables it without error.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

func (e ElasticsearchConfig) Enabled() bool {
	return len(e.Addresses) > 0
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Classification Config ---

type ClassifierConfig struct {
	IntentsPath         string  `mapstructure:"intents_path"`
	DevicesPath         string  `mapstructure:"devices_path"`
	KeywordThreshold    float64 `mapstructure:"keyword_threshold"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	UseEmbeddings       bool    `mapstructure:"use_embeddings"`
	EmbeddingModel      string  `mapstructure:"embedding_model"`
}

// --- External API Config ---

type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type ScrapersConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	LibraryURL      string `mapstructure:"library_url"`
	Timeout         int    `mapstructure:"timeout"`          // milliseconds
	RefreshInterval int    `mapstructure:"refresh_interval"` // hours, full web refresh
	DeviceInterval  int    `mapstructure:"device_interval"`  // hours, device catalog refresh
}

type WeatherConfig struct {
	APIKey string `mapstructure:"api_key"`
	City   string `mapstructure:"city"`
}

// AdminConfig holds the shared secret for out-of-band operations.
// An empty token means admin endpoints report "not configured".
type AdminConfig struct {
	Token string `mapstructure:"token"`
}

type AnalyticsConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
