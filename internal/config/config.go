// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/interview-coach/internal/cloud"
	"github.com/jeranaias/interview-coach/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete interview-coach configuration.
type Config struct {
	Server     ServerConfig     `toml:"server" json:"server"`
	Provider   ProviderConfig   `toml:"provider" json:"provider"`
	Validation ValidationConfig `toml:"validation" json:"validation"`
	Moderation ModerationConfig `toml:"moderation" json:"moderation"`
	RateLimit  RateLimitConfig  `toml:"rate_limit" json:"rate_limit"`
	Logging    LoggingConfig    `toml:"logging" json:"logging"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Addr                string   `toml:"addr" json:"addr"`
	ReadTimeoutSecs     int      `toml:"read_timeout_secs" json:"read_timeout_secs"`
	WriteTimeoutSecs    int      `toml:"write_timeout_secs" json:"write_timeout_secs"`
	ShutdownTimeoutSecs int      `toml:"shutdown_timeout_secs" json:"shutdown_timeout_secs"`
	MaxBodyBytes        int64    `toml:"max_body_bytes" json:"max_body_bytes"`
	CORSOrigins         []string `toml:"cors_origins" json:"cors_origins"`
	TrustedProxies      []string `toml:"trusted_proxies" json:"trusted_proxies"`

	// GlobalRPS throttles the whole server. Zero disables it.
	GlobalRPS   float64 `toml:"global_rps" json:"global_rps"`
	GlobalBurst int     `toml:"global_burst" json:"global_burst"`
}

// ProviderConfig selects and configures the model provider.
type ProviderConfig struct {
	Name           string   `toml:"name" json:"name"`
	OpenAIKey      string   `toml:"openai_key" json:"openai_key"`
	GoogleKey      string   `toml:"google_key" json:"google_key"`
	BaseURL        string   `toml:"base_url" json:"base_url"`
	TimeoutSecs    int      `toml:"timeout_secs" json:"timeout_secs"`
	Models         []string `toml:"models" json:"models"`
	MaxTokensLimit int      `toml:"max_tokens_limit" json:"max_tokens_limit"`
	MaxMessages    int      `toml:"max_messages" json:"max_messages"`
}

// ValidationConfig controls the input validator.
type ValidationConfig struct {
	MaxLength int  `toml:"max_length" json:"max_length"`
	Normalize bool `toml:"normalize" json:"normalize"`
}

// ModerationConfig controls the moderator.
type ModerationConfig struct {
	Normalize     bool     `toml:"normalize" json:"normalize"`
	ExtraPatterns []string `toml:"extra_patterns" json:"extra_patterns"`
}

// Identifier strategies for rate limiting.
const (
	IdentifierIP      = "ip"
	IdentifierSession = "session"
	IdentifierRandom  = "random"
)

// RateLimitConfig controls the per-identifier limiter.
type RateLimitConfig struct {
	Limit             int    `toml:"limit" json:"limit"`
	WindowMs          int    `toml:"window_ms" json:"window_ms"`
	Identifier        string `toml:"identifier" json:"identifier"`
	SweepIntervalSecs int    `toml:"sweep_interval_secs" json:"sweep_interval_secs"`
}

// Window returns the window length.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowMs) * time.Millisecond
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
	File   string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                ":3000",
			ReadTimeoutSecs:     30,
			WriteTimeoutSecs:    90,
			ShutdownTimeoutSecs: 10,
			MaxBodyBytes:        1 << 20,
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			},
			TrustedProxies: []string{
				"127.0.0.1/32",
				"::1/128",
			},
		},
		Provider: ProviderConfig{
			Name:           cloud.ProviderOpenAI,
			TimeoutSecs:    60,
			Models:         slices.Clone(cloud.DefaultModels[cloud.ProviderOpenAI]),
			MaxTokensLimit: 4000,
			MaxMessages:    100,
		},
		Validation: ValidationConfig{
			MaxLength: 2000,
			Normalize: true,
		},
		Moderation: ModerationConfig{
			Normalize: true,
		},
		RateLimit: RateLimitConfig{
			Limit:             50,
			WindowMs:          60000,
			Identifier:        IdentifierIP,
			SweepIntervalSecs: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// SetDefaults fills zero values with defaults. The model list follows the
// selected provider.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.ReadTimeoutSecs == 0 {
		c.Server.ReadTimeoutSecs = d.Server.ReadTimeoutSecs
	}
	if c.Server.WriteTimeoutSecs == 0 {
		c.Server.WriteTimeoutSecs = d.Server.WriteTimeoutSecs
	}
	if c.Server.ShutdownTimeoutSecs == 0 {
		c.Server.ShutdownTimeoutSecs = d.Server.ShutdownTimeoutSecs
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = d.Server.MaxBodyBytes
	}

	if c.Provider.Name == "" {
		c.Provider.Name = d.Provider.Name
	}
	c.Provider.Name = strings.ToLower(c.Provider.Name)
	if c.Provider.TimeoutSecs == 0 {
		c.Provider.TimeoutSecs = d.Provider.TimeoutSecs
	}
	if len(c.Provider.Models) == 0 {
		c.Provider.Models = slices.Clone(cloud.DefaultModels[c.Provider.Name])
	}
	if c.Provider.MaxTokensLimit == 0 {
		c.Provider.MaxTokensLimit = d.Provider.MaxTokensLimit
	}
	if c.Provider.MaxMessages == 0 {
		c.Provider.MaxMessages = d.Provider.MaxMessages
	}

	if c.Validation.MaxLength == 0 {
		c.Validation.MaxLength = d.Validation.MaxLength
	}

	if c.RateLimit.Limit == 0 {
		c.RateLimit.Limit = d.RateLimit.Limit
	}
	if c.RateLimit.WindowMs == 0 {
		c.RateLimit.WindowMs = d.RateLimit.WindowMs
	}
	if c.RateLimit.Identifier == "" {
		c.RateLimit.Identifier = d.RateLimit.Identifier
	}
	c.RateLimit.Identifier = strings.ToLower(c.RateLimit.Identifier)
	if c.RateLimit.SweepIntervalSecs == 0 {
		c.RateLimit.SweepIntervalSecs = d.RateLimit.SweepIntervalSecs
	}

	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".interview-coach"), nil
}

// DefaultPath returns the path to the default TOML config file.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the config at path, or the default path when path is empty. A
// missing file at the default path yields the defaults. Environment overrides
// are applied last, then the result is validated.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Unknown keys are an error. If the
// file switches provider without listing models, the model list is cleared
// so SetDefaults can pick the new provider's defaults.
func LoadTOML(cfg *Config, path string) error {
	prevProvider := cfg.Provider.Name
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if !md.IsDefined("provider", "models") && !strings.EqualFold(cfg.Provider.Name, prevProvider) {
		cfg.Provider.Models = nil
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg as TOML to path with owner-only permissions.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# interview-coach configuration file\n")
	buf.WriteString("# API keys may also be supplied via OPENAI_API_KEY / GOOGLE_API_KEY.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns all problems as ValidateErrors.
// The API key is not checked here; provider construction reports it.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Server
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		add("server.addr", "invalid listen address %q: %v", c.Server.Addr, err)
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 || c.Server.ShutdownTimeoutSecs < 0 {
		add("server", "timeouts cannot be negative")
	}
	if c.Server.MaxBodyBytes < 0 {
		add("server.max_body_bytes", "cannot be negative")
	}
	for _, cidr := range c.Server.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			add("server.trusted_proxies", "invalid CIDR %q", cidr)
		}
	}
	if c.Server.GlobalRPS < 0 {
		add("server.global_rps", "cannot be negative")
	}
	if c.Server.GlobalRPS > 0 && c.Server.GlobalBurst < 1 {
		add("server.global_burst", "must be at least 1 when global_rps is set")
	}

	// Provider
	if !slices.Contains(cloud.Names(), c.Provider.Name) {
		add("provider.name", "invalid provider '%s', must be one of: %s", c.Provider.Name, strings.Join(cloud.Names(), ", "))
	}
	if c.Provider.TimeoutSecs < 1 || c.Provider.TimeoutSecs > 600 {
		add("provider.timeout_secs", "must be between 1 and 600")
	}
	if c.Provider.MaxTokensLimit < 1 {
		add("provider.max_tokens_limit", "must be positive")
	}
	if c.Provider.MaxMessages < 1 {
		add("provider.max_messages", "must be positive")
	}

	// Validation
	if c.Validation.MaxLength < 1 {
		add("validation.max_length", "must be positive")
	}

	// Moderation
	for _, p := range c.Moderation.ExtraPatterns {
		if _, err := regexp.Compile(p); err != nil {
			add("moderation.extra_patterns", "invalid pattern %q: %v", p, err)
		}
	}

	// Rate limit
	if c.RateLimit.Limit < 1 {
		add("rate_limit.limit", "must be positive")
	}
	if c.RateLimit.WindowMs < 1 {
		add("rate_limit.window_ms", "must be positive")
	}
	switch c.RateLimit.Identifier {
	case IdentifierIP, IdentifierSession, IdentifierRandom:
	default:
		add("rate_limit.identifier", "invalid strategy '%s', must be one of: ip, session, random", c.RateLimit.Identifier)
	}
	if c.RateLimit.SweepIntervalSecs < 0 {
		add("rate_limit.sweep_interval_secs", "cannot be negative")
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", "invalid level '%s'", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		add("logging.format", "invalid format '%s', must be json or text", c.Logging.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - OPENAI_API_KEY: overrides provider.openai_key
//   - GOOGLE_API_KEY: overrides provider.google_key
//   - COACH_ADDR: overrides server.addr
//   - COACH_PROVIDER: overrides provider.name
//   - COACH_LOG_LEVEL: overrides logging.level
//   - COACH_RATE_LIMIT: overrides rate_limit.limit
//   - COACH_RATE_WINDOW_MS: overrides rate_limit.window_ms
//   - COACH_IDENTIFIER: overrides rate_limit.identifier
//
// Unparseable numbers are ignored.
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Provider.OpenAIKey = key
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Provider.GoogleKey = key
	}
	if addr := os.Getenv("COACH_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if name := os.Getenv("COACH_PROVIDER"); name != "" {
		if !strings.EqualFold(name, c.Provider.Name) {
			// The model list belongs to the previous provider.
			c.Provider.Models = nil
		}
		c.Provider.Name = strings.ToLower(name)
	}
	if level := os.Getenv("COACH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if v := os.Getenv("COACH_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.Limit = n
		}
	}
	if v := os.Getenv("COACH_RATE_WINDOW_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.WindowMs = n
		}
	}
	if id := os.Getenv("COACH_IDENTIFIER"); id != "" {
		c.RateLimit.Identifier = strings.ToLower(id)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// APIKey returns the key for the selected provider.
func (c *Config) APIKey() string {
	switch c.Provider.Name {
	case cloud.ProviderGoogle:
		return c.Provider.GoogleKey
	default:
		return c.Provider.OpenAIKey
	}
}

// ProviderTimeout returns the provider call timeout.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSecs) * time.Second
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Server.CORSOrigins = slices.Clone(c.Server.CORSOrigins)
	clone.Server.TrustedProxies = slices.Clone(c.Server.TrustedProxies)
	clone.Provider.Models = slices.Clone(c.Provider.Models)
	clone.Moderation.ExtraPatterns = slices.Clone(c.Moderation.ExtraPatterns)
	return &clone
}

// String returns the config as JSON with API keys redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Provider.OpenAIKey != "" {
		safe.Provider.OpenAIKey = "[REDACTED]"
	}
	if safe.Provider.GoogleKey != "" {
		safe.Provider.GoogleKey = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig   *Config
	globalConfigMu sync.RWMutex
)

// Global returns the process-wide configuration, or the defaults if none
// has been set.
func Global() *Config {
	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	if globalConfig == nil {
		return Default()
	}
	return globalConfig
}

// SetGlobal sets the process-wide configuration. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the process-wide configuration.
func ResetGlobalForTesting() {
	SetGlobal(nil)
}
