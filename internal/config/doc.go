// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for flybuddy.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides and validation.
//
// # Key Types
//
//   - Config: main configuration structure
//   - EndpointConfig: chat service URL, timeout and send rate
//   - StorageConfig: persistence backend and data directory
//   - Watcher: hot reload of the config file while a chat session runs
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (FLYBUDDY_*)
//   - ~/.flybuddy/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := transport.NewClient(cfg.Endpoint.URL).WithTimeout(cfg.Endpoint.Timeout())
package config
