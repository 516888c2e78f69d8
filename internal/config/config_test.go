// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// isolateHome points the config directory at a temp dir and clears any
// PERSONACHAT_* variables inherited from the environment.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, "PERSONACHAT_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	return home
}

// =============================================================================
// DEFAULTS AND LOADING
// =============================================================================

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	home := isolateHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.URL != DefaultServerURL {
		t.Errorf("Expected server url %q, got %q", DefaultServerURL, cfg.Server.URL)
	}
	if cfg.Reconnect.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Expected max attempts %d, got %d", DefaultMaxAttempts, cfg.Reconnect.MaxAttempts)
	}
	if cfg.ReconnectDelay() != 3*time.Second {
		t.Errorf("Expected reconnect delay 3s, got %v", cfg.ReconnectDelay())
	}
	if cfg.UI.SidebarBreakpoint != DefaultSidebarBreakpoint {
		t.Errorf("Expected breakpoint %d, got %d", DefaultSidebarBreakpoint, cfg.UI.SidebarBreakpoint)
	}
	if !cfg.UI.Sidebar {
		t.Error("Sidebar should be enabled by default")
	}
	want := filepath.Join(home, ".personachat", "personachat.log")
	if cfg.Log.File != want {
		t.Errorf("Expected log file %q, got %q", want, cfg.Log.File)
	}
}

func TestLoadFromPath_TOMLOverDefaults(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[server]
url = "https://chat.example.com"

[session]
id = "abc123"

[reconnect]
max_attempts = -1

[ui]
theme = "dark"
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.Session.ID != "abc123" {
		t.Errorf("Expected session id abc123, got %q", cfg.Session.ID)
	}
	if cfg.Reconnect.MaxAttempts != -1 {
		t.Errorf("Expected unlimited reconnects, got %d", cfg.Reconnect.MaxAttempts)
	}
	if cfg.Reconnect.DelayMs != DefaultDelayMs {
		t.Errorf("Missing delay should default, got %d", cfg.Reconnect.DelayMs)
	}

	url, err := cfg.ChannelURL()
	if err != nil {
		t.Fatalf("ChannelURL() error = %v", err)
	}
	if url != "wss://chat.example.com/ws/chat/abc123/" {
		t.Errorf("Unexpected channel url %q", url)
	}
}

func TestLoadFromPath_JSON(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"session":{"id":"j1"},"log":{"level":"debug"}}`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Session.ID != "j1" || cfg.Log.Level != "debug" {
		t.Errorf("JSON values not applied: %+v", cfg)
	}
}

func TestLoad_PrefersTOMLOverJSON(t *testing.T) {
	home := isolateHome(t)
	dir := filepath.Join(home, ".personachat")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[session]\nid = \"from-toml\"\n"), 0600)
	os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"session":{"id":"from-json"}}`), 0600)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Session.ID != "from-toml" {
		t.Errorf("Expected TOML to win, got %q", cfg.Session.ID)
	}
}

func TestLoadFromPath_BadFile(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[server\nurl="), 0600)

	if _, err := LoadFromPath(path); err == nil {
		t.Error("Expected decode error")
	}
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv("PERSONACHAT_SERVER_URL", "http://10.0.0.5:9000")
	t.Setenv("PERSONACHAT_SESSION_ID", "env-session")
	t.Setenv("PERSONACHAT_RECONNECT_MAX_ATTEMPTS", "2")
	t.Setenv("PERSONACHAT_SIDEBAR", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.URL != "http://10.0.0.5:9000" {
		t.Errorf("Expected env server url, got %q", cfg.Server.URL)
	}
	if cfg.Session.ID != "env-session" {
		t.Errorf("Expected env session id, got %q", cfg.Session.ID)
	}
	if cfg.Reconnect.MaxAttempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", cfg.Reconnect.MaxAttempts)
	}
	if cfg.UI.Sidebar {
		t.Error("Expected sidebar disabled by env")
	}
}

func TestApplyEnvOverrides_BadValue(t *testing.T) {
	isolateHome(t)
	t.Setenv("PERSONACHAT_RECONNECT_DELAY_MS", "soon")

	if _, err := Load(); err == nil {
		t.Error("Expected error for non-numeric delay")
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad scheme", func(c *Config) { c.Server.URL = "ftp://x" }, "server.url"},
		{"path in session", func(c *Config) { c.Session.ID = "a/b" }, "session.id"},
		{"negative delay", func(c *Config) { c.Reconnect.DelayMs = -1 }, "reconnect.delay_ms"},
		{"theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var verrs ValidateErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Expected ValidateErrors, got %v", err)
			}
			if len(verrs) != 1 || verrs[0].Field != tt.field {
				t.Errorf("Expected one error on %s, got %v", tt.field, verrs)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

// =============================================================================
// SAVE, GET, SET
// =============================================================================

func TestSaveTOMLRoundTrip(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Session.ID = "saved"
	cfg.Server.SessionCookie = "sessionid=xyz"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 && os.PathSeparator == '/' {
		t.Errorf("Expected 0600, got %o", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if loaded.Session.ID != "saved" || loaded.Server.SessionCookie != "sessionid=xyz" {
		t.Errorf("Round trip lost values: %+v", loaded)
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("reconnect.max_attempts", "7"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cfg.Set("ui.sidebar", "false"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cfg.Set("session.home_url", "https://example.com/"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	v, err := cfg.Get("reconnect.max_attempts")
	if err != nil || v.(int) != 7 {
		t.Errorf("Get() = %v, %v", v, err)
	}
	if cfg.UI.Sidebar {
		t.Error("Expected sidebar false")
	}
	if cfg.Session.HomeURL != "https://example.com/" {
		t.Errorf("Unexpected home url %q", cfg.Session.HomeURL)
	}

	if _, err := cfg.Get("server.nope"); err == nil {
		t.Error("Expected unknown field error")
	}
	if err := cfg.Set("ui.max_input_height", "tall"); err == nil {
		t.Error("Expected conversion error")
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	want := map[string]bool{"server.url": false, "session.id": false, "log.file": false, "ui.sidebar_breakpoint": false}
	for _, k := range keys {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("Keys() missing %s", k)
		}
	}
}

func TestStringRedactsCookie(t *testing.T) {
	cfg := Default()
	cfg.Server.SessionCookie = "sessionid=secret"

	if s := cfg.String(); strings.Contains(s, "secret") {
		t.Errorf("String() leaked the cookie: %s", s)
	}
	if cfg.Server.SessionCookie != "sessionid=secret" {
		t.Error("String() must not modify the config")
	}
}

// =============================================================================
// GLOBAL
// =============================================================================

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// called concurrently. Run with: go test -race ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolateHome(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolateHome(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	_ = Global()
	custom := Default()
	custom.Session.ID = "custom"
	SetGlobal(custom)

	if Global().Session.ID != "custom" {
		t.Errorf("Expected custom session, got %q", Global().Session.ID)
	}
}
