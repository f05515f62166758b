// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/flybuddy/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete flybuddy configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Chat service endpoint
	Endpoint EndpointConfig `toml:"endpoint" json:"endpoint"`

	// Local persistence
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`

	// Interactive session behavior
	Session SessionConfig `toml:"session" json:"session"`

	// Terminal rendering
	UI UIConfig `toml:"ui" json:"ui"`

	// Local mock chat service (flybuddy serve)
	Server ServerConfig `toml:"server" json:"server"`
}

// EndpointConfig configures the chat service client.
type EndpointConfig struct {
	// URL is the base URL of the chat service
	URL string `toml:"url" json:"url"`
	// TimeoutSecs bounds each chat request
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RateLimit is the sustained number of sends per second
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	// Burst is the number of sends allowed back to back
	Burst int `toml:"burst" json:"burst"`
	// Offline restricts the client to localhost endpoints
	Offline bool `toml:"offline" json:"offline"`
}

// Timeout returns the request timeout as a duration.
func (e EndpointConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

// StorageConfig configures persistence.
type StorageConfig struct {
	// Backend is "file", "sqlite" or "memory"
	Backend string `toml:"backend" json:"backend"`
	// DataDir holds the stored values; empty means ~/.flybuddy/data
	DataDir string `toml:"data_dir" json:"data_dir"`
	// QuotaBytes caps the total stored size; 0 means unlimited
	QuotaBytes int64 `toml:"quota_bytes" json:"quota_bytes"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `toml:"level" json:"level"`
	// File is the log destination; "stderr" logs to the terminal
	File string `toml:"file" json:"file"`
	// Development switches to human-readable console output
	Development bool `toml:"development" json:"development"`
}

// SessionConfig configures the interactive chat session.
type SessionConfig struct {
	// AutoSaveSecs is the autosave interval
	AutoSaveSecs int `toml:"autosave_secs" json:"autosave_secs"`
	// SendFeedback posts likes to the feedback endpoint
	SendFeedback bool `toml:"send_feedback" json:"send_feedback"`
	// HistoryFile stores REPL input history; empty means ~/.flybuddy/history
	HistoryFile string `toml:"history_file" json:"history_file"`
}

// UIConfig configures terminal rendering.
type UIConfig struct {
	// Theme is "auto", "light" or "dark"; auto detects the terminal background
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders assistant replies as Markdown
	Markdown bool `toml:"markdown" json:"markdown"`
	// Width overrides the detected terminal width when non-zero
	Width int `toml:"width" json:"width"`
}

// ServerConfig configures `flybuddy serve`.
type ServerConfig struct {
	// Addr is the listen address
	Addr string `toml:"addr" json:"addr"`
	// Environment is reported by the health endpoint
	Environment string `toml:"environment" json:"environment"`
	// AllowedOrigins lists CORS origins
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins"`
	// Latency adds an artificial delay to chat replies, in milliseconds
	LatencyMs int `toml:"latency_ms" json:"latency_ms"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Endpoint: EndpointConfig{
			URL:         "http://localhost:5000",
			TimeoutSecs: 30,
			RateLimit:   1,
			Burst:       1,
		},

		Storage: StorageConfig{
			Backend: "file",
		},

		Log: LogConfig{
			Level: "info",
		},

		Session: SessionConfig{
			AutoSaveSecs: 30,
			SendFeedback: true,
		},

		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
		},

		Server: ServerConfig{
			Addr:           "127.0.0.1:5000",
			Environment:    "development",
			AllowedOrigins: []string{"*"},
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the flybuddy configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("FLYBUDDY_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".flybuddy"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, util.DefaultDirPerm)
}

// DataDir returns the resolved storage directory.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return expandHome(c.Storage.DataDir)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// LogPath returns the resolved log file path, or "stderr".
func (c *Config) LogPath() (string, error) {
	if c.Log.File == "stderr" {
		return "stderr", nil
	}
	if c.Log.File != "" {
		return expandHome(c.Log.File)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "flybuddy.log"), nil
}

// HistoryPath returns the resolved REPL history file path.
func (c *Config) HistoryPath() (string, error) {
	if c.Session.HistoryFile != "" {
		return expandHome(c.Session.HistoryFile)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.flybuddy/config.toml, falling back to
// defaults when the file does not exist. Environment overrides are applied
// last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadOrDefault(path)
}

// LoadOrDefault loads path like LoadFromPath, but a missing file yields the
// defaults with environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg and fills missing values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	fillDefaults(cfg, md)
	return nil
}

// fillDefaults fills in any missing values with defaults. Booleans are only
// defaulted when the key was absent from the file.
func fillDefaults(cfg *Config, md toml.MetaData) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Endpoint
	if cfg.Endpoint.URL == "" {
		cfg.Endpoint.URL = defaults.Endpoint.URL
	}
	if cfg.Endpoint.TimeoutSecs == 0 {
		cfg.Endpoint.TimeoutSecs = defaults.Endpoint.TimeoutSecs
	}
	if cfg.Endpoint.RateLimit == 0 {
		cfg.Endpoint.RateLimit = defaults.Endpoint.RateLimit
	}
	if cfg.Endpoint.Burst == 0 {
		cfg.Endpoint.Burst = defaults.Endpoint.Burst
	}

	// Storage
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}

	// Session
	if cfg.Session.AutoSaveSecs == 0 {
		cfg.Session.AutoSaveSecs = defaults.Session.AutoSaveSecs
	}
	if !md.IsDefined("session", "send_feedback") {
		cfg.Session.SendFeedback = defaults.Session.SendFeedback
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if !md.IsDefined("ui", "markdown") {
		cfg.UI.Markdown = defaults.UI.Markdown
	}

	// Server
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = defaults.Server.Environment
	}
	if cfg.Server.AllowedOrigins == nil {
		cfg.Server.AllowedOrigins = defaults.Server.AllowedOrigins
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path atomically with 0600
// permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# flybuddy configuration file\n")
	buf.WriteString("# Generated by flybuddy - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
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
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var (
	validBackends  = map[string]bool{"file": true, "sqlite": true, "memory": true}
	validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validThemes    = map[string]bool{"auto": true, "light": true, "dark": true}
)

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Endpoint
	if u, err := url.Parse(c.Endpoint.URL); err != nil || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "endpoint.url",
			Message: fmt.Sprintf("invalid URL '%s'", c.Endpoint.URL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{
			Field:   "endpoint.url",
			Message: fmt.Sprintf("scheme must be http or https, got '%s'", u.Scheme),
		})
	}
	if c.Endpoint.TimeoutSecs < 1 || c.Endpoint.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "endpoint.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Endpoint.TimeoutSecs),
		})
	}
	if c.Endpoint.RateLimit <= 0 {
		errs = append(errs, ValidationError{
			Field:   "endpoint.rate_limit",
			Message: "must be positive",
		})
	}
	if c.Endpoint.Burst < 1 {
		errs = append(errs, ValidationError{
			Field:   "endpoint.burst",
			Message: "must be at least 1",
		})
	}

	// Storage
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite, memory", c.Storage.Backend),
		})
	}
	if c.Storage.QuotaBytes < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.quota_bytes",
			Message: "must not be negative",
		})
	}

	// Log
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	// Session
	if c.Session.AutoSaveSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "session.autosave_secs",
			Message: "must be at least 1",
		})
	}

	// UI
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, light, dark", c.UI.Theme),
		})
	}
	if c.UI.Width < 0 {
		errs = append(errs, ValidationError{
			Field:   "ui.width",
			Message: "must not be negative",
		})
	}

	// Server
	if c.Server.LatencyMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.latency_ms",
			Message: "must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - FLYBUDDY_ENDPOINT: overrides endpoint.url
//   - FLYBUDDY_TIMEOUT: overrides endpoint.timeout_secs (seconds or a Go duration)
//   - FLYBUDDY_OFFLINE: overrides endpoint.offline
//   - FLYBUDDY_STORAGE: overrides storage.backend
//   - FLYBUDDY_DATA_DIR: overrides storage.data_dir
//   - FLYBUDDY_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if endpoint := os.Getenv("FLYBUDDY_ENDPOINT"); endpoint != "" {
		c.Endpoint.URL = endpoint
	}

	if timeout := os.Getenv("FLYBUDDY_TIMEOUT"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil {
			c.Endpoint.TimeoutSecs = secs
		} else if d, err := time.ParseDuration(timeout); err == nil {
			c.Endpoint.TimeoutSecs = int(d.Round(time.Second) / time.Second)
		}
	}

	if offline := os.Getenv("FLYBUDDY_OFFLINE"); offline != "" {
		c.Endpoint.Offline = parseBool(offline)
	}

	if backend := os.Getenv("FLYBUDDY_STORAGE"); backend != "" {
		c.Storage.Backend = backend
	}

	if dir := os.Getenv("FLYBUDDY_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}

	if level := os.Getenv("FLYBUDDY_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "endpoint.url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "endpoint.timeout_secs").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct by toml tag names.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(strVal, ",")
				for i := range parts {
					parts[i] = strings.TrimSpace(parts[i])
				}
				field.Set(reflect.ValueOf(parts))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("toml"), ",")[0]
		if f.Type.Kind() != reflect.Struct {
			keys = append(keys, name)
			continue
		}
		for j := 0; j < f.Type.NumField(); j++ {
			sub := strings.Split(f.Type.Field(j).Tag.Get("toml"), ",")[0]
			keys = append(keys, name+"."+sub)
		}
	}
	return keys
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Server.AllowedOrigins != nil {
		clone.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	}
	return &clone
}

// Equal reports whether two configurations are identical.
func (c *Config) Equal(other *Config) bool {
	return reflect.DeepEqual(c, other)
}

// String returns a JSON representation of the config for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
