// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for forgemind.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, validation and live reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Chat backend URL and request limits
//   - PluginConfig: Plugin status poll cadence and send precondition
//   - Watcher: fsnotify-based reloader for the config file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (FORGEMIND_*)
//   - ~/.forgemind/config.toml
//   - ~/.forgemind/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := backend.NewClient(cfg.Backend.URL).WithTimeout(cfg.Backend.Timeout())
package config
