// Package config loads slackmcp configuration from defaults, YAML files,
// a .env file and the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
)

// Project config file names, checked in order.
var projectConfigNames = []string{".slackmcp.yaml", ".slackmcp.yml"}

// Config represents the complete slackmcp configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Database   DatabaseConfig   `yaml:"database" json:"database"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Context    ContextConfig    `yaml:"context" json:"context"`
	Slack      SlackConfig      `yaml:"slack" json:"slack"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`
}

// DatabaseConfig configures the PostgreSQL connection pool.
type DatabaseConfig struct {
	// URL is a libpq connection string or postgres:// URL.
	URL      string `yaml:"url" json:"url"`
	MinConns int32  `yaml:"min_conns" json:"min_conns"`
	MaxConns int32  `yaml:"max_conns" json:"max_conns"`
	// ConnectRetries bounds the retries of the initial ping while the
	// database is still starting.
	ConnectRetries   int           `yaml:"connect_retries" json:"connect_retries"`
	StatementTimeout time.Duration `yaml:"statement_timeout" json:"statement_timeout"`
}

// EmbeddingsConfig configures the query embedding provider.
type EmbeddingsConfig struct {
	// Provider is "openai" or "none". "none" disables semantic search.
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	// BaseURL points at an OpenAI-compatible endpoint; empty uses OpenAI.
	BaseURL string `yaml:"base_url" json:"base_url"`
	APIKey  string `yaml:"api_key" json:"api_key"`
	// CacheSize is the number of query vectors kept; negative disables the cache.
	CacheSize int           `yaml:"cache_size" json:"cache_size"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// SearchConfig configures hybrid search.
// Weights and RRF constant are configurable via:
//  1. User config (~/.config/slackmcp/config.yaml)
//  2. Project config (.slackmcp.yaml)
//  3. Env vars (SLACKMCP_SEMANTIC_WEIGHT, SLACKMCP_RRF_CONSTANT), highest priority
type SearchConfig struct {
	// SemanticWeight is the default semantic share when a request gives none.
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
	// RRFConstant is the fusion smoothing constant k.
	RRFConstant     int           `yaml:"rrf_constant" json:"rrf_constant"`
	OverfetchFactor int           `yaml:"overfetch_factor" json:"overfetch_factor"`
	DefaultLimit    int           `yaml:"default_limit" json:"default_limit"`
	MaxLimit        int           `yaml:"max_limit" json:"max_limit"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
}

// ContextConfig bounds context windows and listings.
type ContextConfig struct {
	DefaultWindow int `yaml:"default_window" json:"default_window"`
	MaxWindow     int `yaml:"max_window" json:"max_window"`
	DefaultLimit  int `yaml:"default_limit" json:"default_limit"`
	MaxLimit      int `yaml:"max_limit" json:"max_limit"`
	// ChannelSpan is how far either side of a root the planner looks for
	// channel neighbors.
	ChannelSpan time.Duration `yaml:"channel_span" json:"channel_span"`
}

// SlackConfig describes the workspace the archive came from.
type SlackConfig struct {
	// WorkspaceURL enables permalinks, e.g. https://acme.slack.com.
	WorkspaceURL string `yaml:"workspace_url" json:"workspace_url"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Addr      string `yaml:"addr" json:"addr"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// MetricsConfig configures the Prometheus endpoint on the HTTP transport.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Database: DatabaseConfig{
			MinConns:         1,
			MaxConns:         8,
			ConnectRetries:   3,
			StatementTimeout: 30 * time.Second,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			CacheSize:  1000,
			Timeout:    30 * time.Second,
		},
		Search: SearchConfig{
			SemanticWeight: 0.5,
			// RRF constant k=60 is the common default
			RRFConstant:     60,
			OverfetchFactor: 2,
			DefaultLimit:    10,
			MaxLimit:        100,
			Timeout:         10 * time.Second,
		},
		Context: ContextConfig{
			DefaultWindow: 5,
			MaxWindow:     50,
			DefaultLimit:  200,
			MaxLimit:      1000,
			ChannelSpan:   24 * time.Hour,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Addr:      "127.0.0.1:8765",
			LogLevel:  "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/slackmcp/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/slackmcp/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "slackmcp", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "slackmcp", "config.yaml")
	}
	return filepath.Join(home, ".config", "slackmcp", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for the project in dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/slackmcp/config.yaml)
//  3. Project config (.slackmcp.yaml in dir)
//  4. .env in dir, which never overrides variables already set
//  5. Environment variables (SLACKMCP_* and the conventional names)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	if err := loadDotEnv(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, or "" if none.
func ProjectConfigPath(dir string) string {
	for _, name := range projectConfigNames {
		if path := filepath.Join(dir, name); fileExists(path) {
			return path
		}
	}
	return ""
}

// LoadFile returns the defaults with the single YAML file at path applied.
// The environment is not consulted.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile loads .slackmcp.yaml or .slackmcp.yml from dir if present.
func (c *Config) loadFromFile(dir string) error {
	path := ProjectConfigPath(dir)
	if path == "" {
		return nil
	}
	if err := c.loadYAML(path); err != nil {
		return fmt.Errorf("failed to load project config: %w", err)
	}
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return slerrors.ConfigError(fmt.Sprintf("failed to parse %s", path), err).
			WithSuggestion("Check the YAML syntax, or regenerate it with 'slackmcp config init --force'.")
	}

	c.mergeWith(&parsed)
	return nil
}

func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if !fileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return slerrors.ConfigError("failed to load .env", err).WithDetail("path", path)
	}
	return nil
}

// mergeWith merges non-zero values from other into c. A zero semantic
// weight cannot be told apart from an unset one in YAML; use
// SLACKMCP_SEMANTIC_WEIGHT=0 or embeddings.provider none for keyword-only
// defaults.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Database
	if other.Database.URL != "" {
		c.Database.URL = other.Database.URL
	}
	if other.Database.MinConns != 0 {
		c.Database.MinConns = other.Database.MinConns
	}
	if other.Database.MaxConns != 0 {
		c.Database.MaxConns = other.Database.MaxConns
	}
	if other.Database.ConnectRetries != 0 {
		c.Database.ConnectRetries = other.Database.ConnectRetries
	}
	if other.Database.StatementTimeout != 0 {
		c.Database.StatementTimeout = other.Database.StatementTimeout
	}

	// Embeddings
	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BaseURL != "" {
		c.Embeddings.BaseURL = other.Embeddings.BaseURL
	}
	if other.Embeddings.APIKey != "" {
		c.Embeddings.APIKey = other.Embeddings.APIKey
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}
	if other.Embeddings.Timeout != 0 {
		c.Embeddings.Timeout = other.Embeddings.Timeout
	}

	// Search
	if other.Search.SemanticWeight != 0 {
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.OverfetchFactor != 0 {
		c.Search.OverfetchFactor = other.Search.OverfetchFactor
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}
	if other.Search.Timeout != 0 {
		c.Search.Timeout = other.Search.Timeout
	}

	// Context
	if other.Context.DefaultWindow != 0 {
		c.Context.DefaultWindow = other.Context.DefaultWindow
	}
	if other.Context.MaxWindow != 0 {
		c.Context.MaxWindow = other.Context.MaxWindow
	}
	if other.Context.DefaultLimit != 0 {
		c.Context.DefaultLimit = other.Context.DefaultLimit
	}
	if other.Context.MaxLimit != 0 {
		c.Context.MaxLimit = other.Context.MaxLimit
	}
	if other.Context.ChannelSpan != 0 {
		c.Context.ChannelSpan = other.Context.ChannelSpan
	}

	// Slack
	if other.Slack.WorkspaceURL != "" {
		c.Slack.WorkspaceURL = other.Slack.WorkspaceURL
	}

	// Server
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	// Metrics: enabled is a bool, so a section with a path carries it
	if other.Metrics.Path != "" {
		c.Metrics.Path = other.Metrics.Path
		c.Metrics.Enabled = other.Metrics.Enabled
	}
}

// applyEnvOverrides applies environment variable overrides. SLACKMCP_*
// names win over the conventional names they shadow.
func (c *Config) applyEnvOverrides() {
	if v := firstEnv("SLACKMCP_DATABASE_URL", "DATABASE_URL"); v != "" {
		c.Database.URL = v
	}

	if v := os.Getenv("SLACKMCP_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("SLACKMCP_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := firstEnv("SLACKMCP_EMBEDDINGS_BASE_URL", "OPENAI_BASE_URL"); v != "" {
		c.Embeddings.BaseURL = v
	}
	if v := firstEnv("SLACKMCP_EMBEDDINGS_API_KEY", "OPENAI_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	}

	// Explicit zero is allowed here, unlike in YAML
	if v := os.Getenv("SLACKMCP_SEMANTIC_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 && w <= 1 {
			c.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("SLACKMCP_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}

	if v := firstEnv("SLACKMCP_WORKSPACE_URL", "SLACK_WORKSPACE_URL"); v != "" {
		c.Slack.WorkspaceURL = v
	}

	if v := os.Getenv("SLACKMCP_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("SLACKMCP_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("SLACKMCP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SLACKMCP_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// SemanticEnabled reports whether an embedding provider is configured.
func (c *Config) SemanticEnabled() bool {
	return !strings.EqualFold(strings.TrimSpace(c.Embeddings.Provider), "none")
}

// FindProjectRoot finds the project root directory.
// It looks for a .git directory or .slackmcp.yaml/.yml file by walking up
// the directory tree, and falls back to startDir.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) || ProjectConfigPath(currentDir) != "" {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
// A missing database URL is not an error here; commands that need the
// database report it when connecting.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return slerrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if c.Database.MinConns < 0 || c.Database.MaxConns < 0 {
		return invalid("database connection counts must be non-negative")
	}
	if c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
		return invalid("database.min_conns (%d) exceeds database.max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Database.ConnectRetries < 0 {
		return invalid("database.connect_retries must be non-negative, got %d", c.Database.ConnectRetries)
	}

	switch strings.ToLower(strings.TrimSpace(c.Embeddings.Provider)) {
	case "openai", "none", "":
	default:
		return invalid("embeddings.provider must be 'openai' or 'none', got %s", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions < 0 {
		return invalid("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}

	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return invalid("search.semantic_weight must be between 0 and 1, got %f", c.Search.SemanticWeight)
	}
	if c.Search.RRFConstant <= 0 {
		return invalid("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.OverfetchFactor < 1 {
		return invalid("search.overfetch_factor must be at least 1, got %d", c.Search.OverfetchFactor)
	}
	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > c.Search.MaxLimit {
		return invalid("search.default_limit must be between 1 and search.max_limit (%d), got %d",
			c.Search.MaxLimit, c.Search.DefaultLimit)
	}

	if c.Context.MaxWindow < 0 || c.Context.DefaultWindow < 0 || c.Context.DefaultWindow > c.Context.MaxWindow {
		return invalid("context.default_window must be between 0 and context.max_window (%d), got %d",
			c.Context.MaxWindow, c.Context.DefaultWindow)
	}
	if c.Context.DefaultLimit < 1 || c.Context.DefaultLimit > c.Context.MaxLimit {
		return invalid("context.default_limit must be between 1 and context.max_limit (%d), got %d",
			c.Context.MaxLimit, c.Context.DefaultLimit)
	}
	if c.Context.ChannelSpan < 0 {
		return invalid("context.channel_span must be non-negative, got %s", c.Context.ChannelSpan)
	}

	if c.Slack.WorkspaceURL != "" {
		u, err := url.Parse(c.Slack.WorkspaceURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("slack.workspace_url must be an absolute URL, got %s", c.Slack.WorkspaceURL)
		}
	}

	validTransports := map[string]bool{"stdio": true, "http": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return invalid("server.transport must be 'stdio' or 'http', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return invalid("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return invalid("metrics.path must start with '/', got %s", c.Metrics.Path)
	}

	return nil
}

// Redacted returns a copy safe to print: the API key and the database
// password are masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Embeddings.APIKey != "" {
		out.Embeddings.APIKey = "********"
	}
	if out.Database.URL != "" {
		if u, err := url.Parse(out.Database.URL); err == nil && u.User != nil {
			if _, ok := u.User.Password(); ok {
				u.User = url.UserPassword(u.User.Username(), "xxxxx")
				out.Database.URL = u.String()
			}
		}
	}
	return &out
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
