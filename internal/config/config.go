package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
)

// Config holds the newsdex API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Index      IndexConfig      `yaml:"index"`
	Search     SearchConfig     `yaml:"search"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig maps bearer tokens to the user ids they authenticate.
type AuthConfig struct {
	Tokens map[string]string `yaml:"tokens"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IndexConfig describes the items index.
type IndexConfig struct {
	Name   string        `yaml:"name"`
	Create bool          `yaml:"create"`
	Fields []FieldConfig `yaml:"fields"`
}

// FieldConfig is an extra indexed item field.
type FieldConfig struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Type     string `yaml:"type"` // tag, text, numeric
	Sortable bool   `yaml:"sortable"`
}

// SearchConfig holds request compilation settings.
type SearchConfig struct {
	DefaultSection     string                   `yaml:"default_section"`
	DefaultPageSize    int                      `yaml:"default_page_size"`
	PostFilter         bool                     `yaml:"post_filter"`
	FilterAggregations *bool                    `yaml:"filter_aggregations"`
	QueryString        QueryStringConfig        `yaml:"query_string"`
	Highlight          HighlightConfig          `yaml:"highlight"`
	MaxChainHops       int                      `yaml:"max_chain_hops"`
	AllVersionsSize    int                      `yaml:"all_versions_size"`
	Sections           map[string]SectionConfig `yaml:"sections"`
	CompanyTypes       []CompanyTypeConfig      `yaml:"company_types"`
}

// QueryStringConfig holds free-text analysis settings.
type QueryStringConfig struct {
	AnalyzeWildcard bool `yaml:"analyze_wildcard"`
}

// HighlightConfig holds highlight settings.
type HighlightConfig struct {
	Enabled bool   `yaml:"enabled"`
	Field   string `yaml:"field"`
	PreTag  string `yaml:"pre_tag"`
	PostTag string `yaml:"post_tag"`
}

// SectionConfig holds per-section search settings.
type SectionConfig struct {
	LimitDays    int                          `yaml:"limit_days"`
	Aggregations map[string]query.Aggregation `yaml:"aggregations"`
	Groups       []GroupConfig                `yaml:"groups"`
}

// GroupConfig labels an aggregation.
type GroupConfig struct {
	Field string `yaml:"field"`
	Label string `yaml:"label"`
}

// CompanyTypeConfig holds mandatory clauses per section for a company type.
type CompanyTypeConfig struct {
	ID      string                  `yaml:"id"`
	Name    string                  `yaml:"name"`
	Must    map[string]query.Clause `yaml:"must"`
	MustNot map[string]query.Clause `yaml:"must_not"`
}

// ResilienceConfig tunes index call retries and the circuit breaker.
type ResilienceConfig struct {
	Enabled           bool   `yaml:"enabled"`
	InitialIntervalMs int    `yaml:"initial_interval_ms"`
	MaxElapsedMs      int    `yaml:"max_elapsed_ms"`
	MaxRetries        uint64 `yaml:"max_retries"`
	FailureThreshold  uint32 `yaml:"failure_threshold"`
	OpenTimeoutSec    int    `yaml:"open_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates configuration YAML.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ParseSearch decodes a standalone search section.
func ParseSearch(data []byte) (SearchConfig, error) {
	var sc SearchConfig
	if err := yaml.Unmarshal(expandEnvVars(data), &sc); err != nil {
		return SearchConfig{}, fmt.Errorf("failed to parse search config: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return SearchConfig{}, fmt.Errorf("invalid search config: %w", err)
	}
	return sc, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = domain.DefaultKeyPrefix
	}
	if c.Index.Name == "" {
		c.Index.Name = strings.TrimSuffix(c.Storage.KeyPrefix, ":") + ":items"
	}
	if c.Search.FilterAggregations == nil {
		on := true
		c.Search.FilterAggregations = &on
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	for i, f := range c.Index.Fields {
		if f.Name == "" {
			return fmt.Errorf("index.fields[%d].name is required", i)
		}
		switch f.Type {
		case "tag", "text", "numeric":
		default:
			return fmt.Errorf("index.fields.%s.type must be tag, text or numeric, got %q", f.Name, f.Type)
		}
	}
	for token, user := range c.Auth.Tokens {
		if token == "" || user == "" {
			return fmt.Errorf("auth.tokens entries need a token and a user id")
		}
	}
	return c.Search.Validate()
}

// Validate checks the search section.
func (s *SearchConfig) Validate() error {
	if s.DefaultPageSize < 0 || s.DefaultPageSize > 1000 {
		return fmt.Errorf("search.default_page_size must be between 0 and 1000, got %d", s.DefaultPageSize)
	}
	for name, sec := range s.Sections {
		if sec.LimitDays < 0 {
			return fmt.Errorf("search.sections.%s.limit_days must not be negative", name)
		}
		for agg, a := range sec.Aggregations {
			if a.Terms.Field == "" {
				return fmt.Errorf("search.sections.%s.aggregations.%s.terms.field is required", name, agg)
			}
		}
	}
	seen := make(map[string]struct{}, len(s.CompanyTypes))
	for i, ct := range s.CompanyTypes {
		if ct.ID == "" {
			return fmt.Errorf("search.company_types[%d].id is required", i)
		}
		if _, dup := seen[ct.ID]; dup {
			return fmt.Errorf("search.company_types: duplicate id %q", ct.ID)
		}
		seen[ct.ID] = struct{}{}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
