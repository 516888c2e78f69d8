// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/jeranaias/personachat/internal/protocol"
	"github.com/jeranaias/personachat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete personachat configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" json:"server"`
	Session   SessionConfig   `toml:"session" json:"session"`
	Reconnect ReconnectConfig `toml:"reconnect" json:"reconnect"`
	UI        UIConfig        `toml:"ui" json:"ui"`
	Log       LogConfig       `toml:"log" json:"log"`
}

// ServerConfig locates the chat backend.
type ServerConfig struct {
	// URL is the backend base URL (http, https, ws or wss).
	URL string `toml:"url" json:"url" env:"PERSONACHAT_SERVER_URL"`

	// SessionCookie is sent as the Cookie header on the socket handshake.
	SessionCookie string `toml:"session_cookie" json:"session_cookie" env:"PERSONACHAT_SESSION_COOKIE"`

	HandshakeTimeoutSecs int `toml:"handshake_timeout_secs" json:"handshake_timeout_secs" env:"PERSONACHAT_HANDSHAKE_TIMEOUT"`
}

// SessionConfig identifies the chat session.
type SessionConfig struct {
	ID string `toml:"id" json:"id" env:"PERSONACHAT_SESSION_ID"`

	// HomeURL is handed to the user after "clear all chats".
	HomeURL string `toml:"home_url" json:"home_url" env:"PERSONACHAT_HOME_URL"`
}

// ReconnectConfig tunes the socket reconnect policy.
type ReconnectConfig struct {
	// MaxAttempts caps consecutive reconnects; negative means unlimited.
	MaxAttempts int `toml:"max_attempts" json:"max_attempts" env:"PERSONACHAT_RECONNECT_MAX_ATTEMPTS"`
	DelayMs     int `toml:"delay_ms" json:"delay_ms" env:"PERSONACHAT_RECONNECT_DELAY_MS"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Sidebar enables the sidebar panel.
	Sidebar bool `toml:"sidebar" json:"sidebar" env:"PERSONACHAT_SIDEBAR"`

	// SidebarOpen is the initial sidebar visibility.
	SidebarOpen bool `toml:"sidebar_open" json:"sidebar_open" env:"PERSONACHAT_SIDEBAR_OPEN"`

	// SidebarBreakpoint is the width in columns at which the sidebar
	// auto-opens.
	SidebarBreakpoint int `toml:"sidebar_breakpoint" json:"sidebar_breakpoint" env:"PERSONACHAT_SIDEBAR_BREAKPOINT"`

	MaxInputHeight int    `toml:"max_input_height" json:"max_input_height" env:"PERSONACHAT_MAX_INPUT_HEIGHT"`
	Theme          string `toml:"theme" json:"theme" env:"PERSONACHAT_THEME"`
}

// LogConfig controls the zerolog sink.
type LogConfig struct {
	Level string `toml:"level" json:"level" env:"PERSONACHAT_LOG_LEVEL"`

	// File receives JSON log lines while the TUI owns the terminal.
	File string `toml:"file" json:"file" env:"PERSONACHAT_LOG_FILE"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultServerURL         = "http://localhost:8000"
	DefaultHomeURL           = "http://localhost:8000/"
	DefaultHandshakeTimeout  = 10
	DefaultMaxAttempts       = 5
	DefaultDelayMs           = 3000
	DefaultSidebarBreakpoint = 100
	DefaultMaxInputHeight    = 200
	DefaultTheme             = "auto"
	DefaultLogLevel          = "info"
	logFileName              = "personachat.log"
)

// Default returns a Config with all built-in defaults.
func Default() *Config {
	logFile := ""
	if dir, err := ConfigDir(); err == nil {
		logFile = filepath.Join(dir, logFileName)
	}

	return &Config{
		Server: ServerConfig{
			URL:                  DefaultServerURL,
			HandshakeTimeoutSecs: DefaultHandshakeTimeout,
		},
		Session: SessionConfig{
			HomeURL: DefaultHomeURL,
		},
		Reconnect: ReconnectConfig{
			MaxAttempts: DefaultMaxAttempts,
			DelayMs:     DefaultDelayMs,
		},
		UI: UIConfig{
			Sidebar:           true,
			SidebarBreakpoint: DefaultSidebarBreakpoint,
			MaxInputHeight:    DefaultMaxInputHeight,
			Theme:             DefaultTheme,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
			File:  logFile,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the personachat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".personachat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if path, err := ConfigPathTOML(); err == nil && exists(path) {
		return LoadFromPath(path)
	}
	if path, err := ConfigPathJSON(); err == nil && exists(path) {
		return LoadFromPath(path)
	}
	return finish(Default())
}

// LoadFromPath loads configuration from a specific file. Files ending in
// .json are decoded as JSON, everything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	if strings.HasSuffix(path, ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ApplyEnvOverrides replaces fields whose PERSONACHAT_* variable is set.
func (c *Config) ApplyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Server.URL == "" {
		c.Server.URL = d.Server.URL
	}
	if c.Server.HandshakeTimeoutSecs == 0 {
		c.Server.HandshakeTimeoutSecs = d.Server.HandshakeTimeoutSecs
	}
	if c.Session.HomeURL == "" {
		c.Session.HomeURL = d.Session.HomeURL
	}
	if c.Reconnect.MaxAttempts == 0 {
		c.Reconnect.MaxAttempts = d.Reconnect.MaxAttempts
	}
	if c.Reconnect.DelayMs == 0 {
		c.Reconnect.DelayMs = d.Reconnect.DelayMs
	}
	if c.UI.SidebarBreakpoint == 0 {
		c.UI.SidebarBreakpoint = d.UI.SidebarBreakpoint
	}
	if c.UI.MaxInputHeight == 0 {
		c.UI.MaxInputHeight = d.UI.MaxInputHeight
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with a short header. The file is created
// with 0600 permissions since it may hold a session cookie.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# personachat configuration file\n")
	b.WriteString("# Environment variables (PERSONACHAT_*) override these values.\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
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
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLevels = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
var validThemes = map[string]bool{"auto": true, "dark": true, "light": true}

// Validate checks the configuration and returns ValidateErrors when any
// field is out of range.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if _, err := protocol.ChannelURL(c.Server.URL, "probe"); err != nil {
		errs = append(errs, ValidationError{"server.url", err.Error()})
	}
	if c.Server.HandshakeTimeoutSecs < 0 {
		errs = append(errs, ValidationError{"server.handshake_timeout_secs", "must not be negative"})
	}
	if strings.ContainsAny(c.Session.ID, "/?# ") {
		errs = append(errs, ValidationError{"session.id", "must not contain '/', '?', '#' or spaces"})
	}
	if c.Reconnect.DelayMs < 0 {
		errs = append(errs, ValidationError{"reconnect.delay_ms", "must not be negative"})
	}
	if c.UI.SidebarBreakpoint < 0 {
		errs = append(errs, ValidationError{"ui.sidebar_breakpoint", "must not be negative"})
	}
	if c.UI.MaxInputHeight < 0 {
		errs = append(errs, ValidationError{"ui.max_input_height", "must not be negative"})
	}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{"ui.theme", fmt.Sprintf("must be auto, dark or light, got %q", c.UI.Theme)})
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{"log.level", fmt.Sprintf("unknown level %q", c.Log.Level)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// ChannelURL returns the socket URL of the configured session.
func (c *Config) ChannelURL() (string, error) {
	return protocol.ChannelURL(c.Server.URL, c.Session.ID)
}

// HandshakeTimeout returns the handshake timeout as a duration.
func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.Server.HandshakeTimeoutSecs) * time.Second
}

// ReconnectDelay returns the reconnect delay as a duration.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Reconnect.DelayMs) * time.Millisecond
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "ui.theme").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
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

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
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

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

func setFieldValue(field reflect.Value, value interface{}) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int:
			n, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(int64(n))
			return nil
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(b)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() == field.Kind() {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every configuration key in dot notation.
func Keys() []string {
	var keys []string
	walkKeys(reflect.TypeOf(Config{}), "", &keys)
	return keys
}

func walkKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("toml"), ",")[0]
		if f.Type.Kind() == reflect.Struct {
			walkKeys(f.Type, prefix+name+".", keys)
			continue
		}
		*keys = append(*keys, prefix+name)
	}
}

// String returns the config as JSON with the session cookie redacted.
func (c *Config) String() string {
	safe := *c
	if safe.Server.SessionCookie != "" {
		safe.Server.SessionCookie = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance, loading it on first
// access. A load failure falls back to defaults.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
