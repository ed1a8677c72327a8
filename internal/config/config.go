// Package config provides session option management for virtual dataframe
// operations. Options are initialized once at process start with defaults,
// mutated through explicit setters, and read by nearly every core operation.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	ferrors "github.com/sqlframe/sqlframe/internal/errors"
)

// Config represents the session options consulted by core operations.
type Config struct {
	// Caching Configuration
	CacheEnabled bool   `json:"cache_enabled" yaml:"cache_enabled"` // Consult/update the aggregate catalog
	TempSchema   string `json:"temp_schema" yaml:"temp_schema"`     // Schema for temporary relations

	// Display Configuration
	MaxRows    int `json:"max_rows" yaml:"max_rows"`       // Row limit for head/tail display
	MaxColumns int `json:"max_columns" yaml:"max_columns"` // Column limit for display

	// Debugging Configuration
	PrintSQL bool `json:"print_sql" yaml:"print_sql"` // Echo generated SQL before execution

	// Aggregation Fan-out Configuration
	ChunkSize      int `json:"chunk_size" yaml:"chunk_size"`             // Columns per worker block (0 = no fan-out)
	WorkerPoolSize int `json:"worker_pool_size" yaml:"worker_pool_size"` // Worker goroutines (0 = auto-detect)
}

// Global configuration instance
var (
	globalConfig Config
	configMutex  sync.RWMutex
)

// Default configuration values
const (
	DefaultTempSchema = "public"
	DefaultMaxRows    = 100
	DefaultMaxColumns = 50
	DefaultChunkSize  = 10
)

// Initialize global configuration with defaults
func init() {
	globalConfig = NewConfig()
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		CacheEnabled:   true,
		TempSchema:     DefaultTempSchema,
		MaxRows:        DefaultMaxRows,
		MaxColumns:     DefaultMaxColumns,
		PrintSQL:       false,
		ChunkSize:      DefaultChunkSize,
		WorkerPoolSize: 0, // Auto-detect
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.TempSchema == "" {
		return ferrors.NewOptionError("temp_schema", "must not be empty")
	}

	if c.MaxRows <= 0 {
		return ferrors.NewOptionError("max_rows", fmt.Sprintf("must be positive, got %d", c.MaxRows))
	}

	if c.MaxColumns <= 0 {
		return ferrors.NewOptionError("max_columns", fmt.Sprintf("must be positive, got %d", c.MaxColumns))
	}

	if c.ChunkSize < 0 {
		return ferrors.NewOptionError("chunk_size", fmt.Sprintf("must be non-negative, got %d", c.ChunkSize))
	}

	if c.WorkerPoolSize < 0 {
		return ferrors.NewOptionError("worker_pool_size", fmt.Sprintf("must be non-negative, got %d", c.WorkerPoolSize))
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.TempSchema == "" {
		c.TempSchema = defaults.TempSchema
	}
	if c.MaxRows == 0 {
		c.MaxRows = defaults.MaxRows
	}
	if c.MaxColumns == 0 {
		c.MaxColumns = defaults.MaxColumns
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = defaults.ChunkSize
	}

	// Note: Boolean fields are intentionally not set to defaults here
	// This allows distinguishing between explicitly set false and unset values

	return c
}

// Set mutates one named option on the configuration. Unknown option names and
// ill-typed values are configuration errors, raised before any SQL is built.
func (c *Config) Set(name string, value interface{}) error {
	switch name {
	case "cache_enabled":
		v, ok := value.(bool)
		if !ok {
			return ferrors.NewOptionError(name, fmt.Sprintf("expects bool, got %T", value))
		}
		c.CacheEnabled = v
	case "temp_schema":
		v, ok := value.(string)
		if !ok {
			return ferrors.NewOptionError(name, fmt.Sprintf("expects string, got %T", value))
		}
		if v == "" {
			return ferrors.NewOptionError(name, "must not be empty")
		}
		c.TempSchema = v
	case "max_rows":
		v, ok := value.(int)
		if !ok || v <= 0 {
			return ferrors.NewOptionError(name, fmt.Sprintf("expects positive int, got %v", value))
		}
		c.MaxRows = v
	case "max_columns":
		v, ok := value.(int)
		if !ok || v <= 0 {
			return ferrors.NewOptionError(name, fmt.Sprintf("expects positive int, got %v", value))
		}
		c.MaxColumns = v
	case "print_sql":
		v, ok := value.(bool)
		if !ok {
			return ferrors.NewOptionError(name, fmt.Sprintf("expects bool, got %T", value))
		}
		c.PrintSQL = v
	case "chunk_size":
		v, ok := value.(int)
		if !ok || v < 0 {
			return ferrors.NewOptionError(name, fmt.Sprintf("expects non-negative int, got %v", value))
		}
		c.ChunkSize = v
	case "worker_pool_size":
		v, ok := value.(int)
		if !ok || v < 0 {
			return ferrors.NewOptionError(name, fmt.Sprintf("expects non-negative int, got %v", value))
		}
		c.WorkerPoolSize = v
	default:
		return ferrors.NewOptionError(name, "unknown option")
	}
	return nil
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetGlobalConfig returns the current global configuration
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetGlobalOption mutates one option on the global configuration.
func SetGlobalOption(name string, value interface{}) error {
	configMutex.Lock()
	defer configMutex.Unlock()
	return globalConfig.Set(name, value)
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON and YAML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() Config {
	config := NewConfig()

	if val := os.Getenv("SQLFRAME_CACHE_ENABLED"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.CacheEnabled = parsed
		}
	}

	if val := os.Getenv("SQLFRAME_TEMP_SCHEMA"); val != "" {
		config.TempSchema = val
	}

	if val := os.Getenv("SQLFRAME_MAX_ROWS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.MaxRows = parsed
		}
	}

	if val := os.Getenv("SQLFRAME_MAX_COLUMNS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.MaxColumns = parsed
		}
	}

	if val := os.Getenv("SQLFRAME_PRINT_SQL"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.PrintSQL = parsed
		}
	}

	if val := os.Getenv("SQLFRAME_CHUNK_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.ChunkSize = parsed
		}
	}

	if val := os.Getenv("SQLFRAME_WORKER_POOL_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.WorkerPoolSize = parsed
		}
	}

	return config
}

// Warning sink. Local recoverable conditions (rolled-back filters, quoting
// rewrites, empty filter results) are reported here rather than as errors.
var (
	warnMutex sync.RWMutex
	warnSink  = func(format string, args ...interface{}) {
		log.Printf("sqlframe: warning: "+format, args...)
	}
)

// SetWarnSink replaces the process-wide warning sink. Passing nil restores
// the default sink.
func SetWarnSink(sink func(format string, args ...interface{})) {
	warnMutex.Lock()
	defer warnMutex.Unlock()
	if sink == nil {
		sink = func(format string, args ...interface{}) {
			log.Printf("sqlframe: warning: "+format, args...)
		}
	}
	warnSink = sink
}

// Warnf reports a recoverable condition through the current warning sink.
func Warnf(format string, args ...interface{}) {
	warnMutex.RLock()
	sink := warnSink
	warnMutex.RUnlock()
	sink(format, args...)
}
