// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Generation    GenerationConfig        `mapstructure:"generation"`
	Examples      ExamplesConfig          `mapstructure:"examples"`
	Prompts       PromptsConfig           `mapstructure:"prompts"`
	Debug         DebugConfig             `mapstructure:"debug"`
	Trace         TraceConfig             `mapstructure:"trace"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Registry      RegistryConfig          `mapstructure:"registry"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
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

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig is optional; an empty address disables the response cache.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Report generation ---

// GenerationConfig drives the chat-completion client.
type GenerationConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	Endpoint      string  `mapstructure:"endpoint"`
	Model         string  `mapstructure:"model"`
	APIKey        string  `mapstructure:"api_key"`
	APIKeyEnv     string  `mapstructure:"api_key_env"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	Temperature   float64 `mapstructure:"temperature"`
	Timeout       int     `mapstructure:"timeout"`         // milliseconds
	RateLimitWait int     `mapstructure:"rate_limit_wait"` // milliseconds
	CacheTTL      int     `mapstructure:"cache_ttl"`       // seconds, 0 disables the Redis response cache
}

// ExamplesConfig selects where the few-shot example cache comes from.
type ExamplesConfig struct {
	Source          string `mapstructure:"source"` // "file" or "postgres"
	CacheDirectory  string `mapstructure:"cache_directory"`
	ExamplesFile    string `mapstructure:"examples_file"`
	MetadataFile    string `mapstructure:"metadata_file"`
	ExpectedVersion string `mapstructure:"expected_version"`
	FewShotCount    int    `mapstructure:"few_shot_count"`
}

type PromptsConfig struct {
	Directory string `mapstructure:"directory"`
}

// DebugConfig controls the per-run prompt/output dump directory. Empty disables dumps.
type DebugConfig struct {
	Directory string `mapstructure:"directory"`
}

// TraceConfig controls the generation trace files. Empty disables tracing.
type TraceConfig struct {
	Directory string `mapstructure:"directory"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	MetricsAddress string `mapstructure:"metrics_address"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// RegistryConfig points at the activity registry holding worker input schemas.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
