// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultEndpoint      = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel         = "mistralai/mistral-small-3.1-24b-instruct:free"
	DefaultAPIKeyEnv     = "OPENROUTER_API_KEY"
	DefaultExamplesFile  = "training_data_granular.json"
	DefaultMetadataFile  = "training_metadata_granular.json"
	DefaultFewShotCount  = 2
	ExampleSourceFile    = "file"
	ExampleSourceDB      = "postgres"
	defaultConfigName    = "config"
	defaultEnvironment   = "development"
	defaultServiceName   = "report-workers"
	defaultRegistryPath  = "configs/activity-registry.json"
	defaultPromptsDir    = "prompts"
	defaultExampleCache  = "data/ai_training"
	defaultMaxTokens     = 1500
	defaultTemperature   = 0.3
	defaultGenTimeoutMS  = 30000
	defaultRateLimitWait = 2000
)

// Load reads configs/config.yaml (plus config.<env>.yaml when present),
// expands ${VAR} placeholders and applies defaults.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName(defaultConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = defaultEnvironment
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("%s.%s", defaultConfigName, env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setViperDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setViperDefaults covers booleans, which applyDefaults cannot tell apart from an explicit false.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("generation.enabled", true)
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets and addresses from the environment when the file left them empty.
// The generation key is special: the environment always wins over the file.
func overrideEmptyConfig(cfg *Config) {
	if val := os.Getenv(cfg.Generation.APIKeyEnv); val != "" {
		cfg.Generation.APIKey = val
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Address == "" {
		if val := os.Getenv("REDIS_ADDRESS"); val != "" {
			cfg.Database.Redis.Address = val
		}
	}
	if cfg.Observability.JaegerEndpoint == "" {
		if val := os.Getenv("JAEGER_ENDPOINT"); val != "" {
			cfg.Observability.JaegerEndpoint = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = defaultServiceName
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = defaultEnvironment
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	g := &cfg.Generation
	if g.Endpoint == "" {
		g.Endpoint = DefaultEndpoint
	}
	if g.Model == "" {
		g.Model = DefaultModel
	}
	if g.APIKeyEnv == "" {
		g.APIKeyEnv = DefaultAPIKeyEnv
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = defaultMaxTokens
	}
	if g.Temperature == 0 {
		g.Temperature = defaultTemperature
	}
	if g.Timeout == 0 {
		g.Timeout = defaultGenTimeoutMS
	}
	if g.RateLimitWait == 0 {
		g.RateLimitWait = defaultRateLimitWait
	}

	e := &cfg.Examples
	if e.Source == "" {
		e.Source = ExampleSourceFile
	}
	if e.CacheDirectory == "" {
		e.CacheDirectory = defaultExampleCache
	}
	if e.ExamplesFile == "" {
		e.ExamplesFile = DefaultExamplesFile
	}
	if e.MetadataFile == "" {
		e.MetadataFile = DefaultMetadataFile
	}
	if e.FewShotCount == 0 {
		e.FewShotCount = DefaultFewShotCount
	}

	if cfg.Prompts.Directory == "" {
		cfg.Prompts.Directory = defaultPromptsDir
	}
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = defaultRegistryPath
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 300000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Examples.Source {
	case ExampleSourceFile:
	case ExampleSourceDB:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required when examples.source is %q", ExampleSourceDB)
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required when examples.source is %q", ExampleSourceDB)
		}
	default:
		return fmt.Errorf("examples.source must be %q or %q, got %q", ExampleSourceFile, ExampleSourceDB, cfg.Examples.Source)
	}

	if cfg.Generation.MaxTokens < 0 {
		return fmt.Errorf("generation.max_tokens must be positive")
	}
	if cfg.Generation.Temperature < 0 || cfg.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be within [0, 2]")
	}
	if cfg.Examples.FewShotCount < 0 {
		return fmt.Errorf("examples.few_shot_count must be positive")
	}
	return nil
}

// ValidateForWorker adds the checks only the Zeebe worker manager needs.
func ValidateForWorker(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       300000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
