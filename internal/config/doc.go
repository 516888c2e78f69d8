// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// personachat.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, and validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (highest first):
//   - Command line flags (applied by the cli package)
//   - Environment variables (PERSONACHAT_*), including a .env file
//   - ~/.personachat/config.toml
//   - ~/.personachat/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	url, err := cfg.ChannelURL()
package config
