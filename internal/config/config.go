package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `json:"database" envPrefix:"ASKDATA_"`
	Vector   VectorConfig   `json:"vector"   envPrefix:"ASKDATA_"`
	LLM      LLMConfig      `json:"llm"      envPrefix:"ASKDATA_"`
	Query    QueryConfig    `json:"query"    envPrefix:"ASKDATA_"`
	Logging  LoggingConfig  `json:"logging"  envPrefix:"ASKDATA_"`
}

// DatabaseConfig represents the DuckDB dataset store configuration
type DatabaseConfig struct {
	Path            string `json:"path"               env:"DB_PATH"               envDefault:"~/.config/askdata/dataset.db"`
	Table           string `json:"table"              env:"DB_TABLE"              envDefault:"sample_sales_data"`
	MaxConnections  int    `json:"max_connections"    env:"DB_MAX_CONNECTIONS"    envDefault:"10"`
	MaxIdleConns    int    `json:"max_idle_conns"     env:"DB_MAX_IDLE_CONNS"     envDefault:"5"`
	ConnMaxLifetime string `json:"conn_max_lifetime"  env:"DB_CONN_MAX_LIFETIME"  envDefault:"30m"`
}

// VectorConfig represents the documentation vector store configuration
type VectorConfig struct {
	Path       string `json:"path"       env:"VECTOR_PATH"       envDefault:"~/.config/askdata/chromem"`
	Collection string `json:"collection" env:"VECTOR_COLLECTION" envDefault:"docs_collection"`
	ChunkSize  int    `json:"chunk_size" env:"VECTOR_CHUNK_SIZE" envDefault:"500"`
}

// LLMConfig represents the language model endpoint configuration
type LLMConfig struct {
	Provider string `json:"provider" env:"LLM_PROVIDER" envDefault:"openai"`
	Model    string `json:"model"    env:"LLM_MODEL"    envDefault:"gpt-4o-mini"`
	APIKey   string `json:"api_key"  env:"LLM_API_KEY"`
	BaseURL  string `json:"base_url" env:"LLM_BASE_URL"`
	Timeout  string `json:"timeout"  env:"LLM_TIMEOUT"  envDefault:"60s"`
}

// QueryConfig bounds the generation and execution loop
type QueryConfig struct {
	MaxAttempts      int    `json:"max_attempts"       env:"MAX_ATTEMPTS"       envDefault:"3"`
	ContextTopK      int    `json:"context_top_k"      env:"CONTEXT_TOP_K"      envDefault:"3"`
	PromptSizeBudget int    `json:"prompt_size_budget" env:"PROMPT_SIZE_BUDGET" envDefault:"12000"`
	ExecutionTimeout string `json:"execution_timeout"  env:"EXECUTION_TIMEOUT"  envDefault:"30s"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:"~/.config/askdata/logs/app.log"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag
// overrides. Precedence, lowest to highest: envDefault tags, config file,
// environment variables, flags.
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := &Config{}

	// Parsing against an empty environment applies only the envDefault tags,
	// so file values layered next are not clobbered by defaults.
	if err := env.ParseWithOptions(config, env.Options{
		Environment: map[string]string{},
	}); err != nil {
		return nil, fmt.Errorf("failed to apply configuration defaults: %w", err)
	}

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides copies into config the fields whose environment variable
// is actually set. A full env.Parse would re-apply envDefault values and
// erase the file layer, so only explicitly set variables carry over.
func applyEnvOverrides(config *Config) error {
	parsed := &Config{}
	if err := env.Parse(parsed); err != nil {
		return err
	}

	target := reflect.ValueOf(config).Elem()
	source := reflect.ValueOf(parsed).Elem()
	configType := target.Type()

	for i := range configType.NumField() {
		prefix := configType.Field(i).Tag.Get("envPrefix")
		sectionType := configType.Field(i).Type

		for j := range sectionType.NumField() {
			name := sectionType.Field(j).Tag.Get("env")
			if name == "" {
				continue
			}

			if _, ok := os.LookupEnv(prefix + name); ok {
				target.Field(i).Field(j).Set(source.Field(i).Field(j))
			}
		}
	}

	return nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) error {
	for key, value := range overrides {
		switch key {
		case "db-path":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Path = str
			}
		case "table":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Table = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "max-attempts":
			if n, ok := value.(int); ok && n > 0 {
				config.Query.MaxAttempts = n
			}
		case "top-k":
			if n, ok := value.(int); ok && n >= 0 {
				config.Query.ContextTopK = n
			}
		}
	}

	return nil
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	validProviders := map[string]bool{
		"openai": true, "anthropic": true, "ollama": true, "local": true,
	}
	if !validProviders[strings.ToLower(config.LLM.Provider)] {
		return fmt.Errorf(
			"invalid LLM provider: %s (must be openai, anthropic, ollama, or local)",
			config.LLM.Provider,
		)
	}

	if config.Query.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1: %d", config.Query.MaxAttempts)
	}

	if config.Query.ContextTopK < 0 {
		return fmt.Errorf("context top-k must not be negative: %d", config.Query.ContextTopK)
	}

	if config.Query.PromptSizeBudget <= 0 {
		return fmt.Errorf("prompt size budget must be positive: %d", config.Query.PromptSizeBudget)
	}

	if _, err := time.ParseDuration(config.Query.ExecutionTimeout); err != nil {
		return fmt.Errorf("invalid execution timeout: %s", config.Query.ExecutionTimeout)
	}

	if _, err := time.ParseDuration(config.LLM.Timeout); err != nil {
		return fmt.Errorf("invalid LLM timeout: %s", config.LLM.Timeout)
	}

	if _, err := time.ParseDuration(config.Database.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid connection max lifetime: %s", config.Database.ConnMaxLifetime)
	}

	if config.Database.MaxConnections <= 0 {
		return fmt.Errorf(
			"database max connections must be positive: %d",
			config.Database.MaxConnections,
		)
	}

	if config.Vector.ChunkSize <= 0 {
		return fmt.Errorf("vector chunk size must be positive: %d", config.Vector.ChunkSize)
	}

	return nil
}

// ExecutionTimeout returns the parsed execution timeout duration
func (c *Config) ExecutionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Query.ExecutionTimeout)
	if err != nil {
		return 30 * time.Second
	}

	return d
}

// LLMTimeout returns the parsed model call timeout duration
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}

	return d
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("ASKDATA_CONFIG"); configPath != "" {
		return ExpandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "askdata", "config.json")
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Database.Path = ExpandPath(c.Database.Path)
	c.Vector.Path = ExpandPath(c.Vector.Path)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/askdata"
	}

	return filepath.Join(homeDir, ".config", "askdata")
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Database.Path),
		c.Vector.Path,
		filepath.Dir(c.Logging.File),
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
