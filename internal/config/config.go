// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

// Package config loads and validates the engine configuration from
// defaults, an optional YAML file, and environment variables — in that
// order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration.
type Config struct {
	API      APIConfig      `koanf:"api"      validate:"required"`
	Enforcer EnforcerConfig `koanf:"enforcer" validate:"required"`
	Control  ControlConfig  `koanf:"control"`
	State    StateConfig    `koanf:"state"`
	Log      LogConfig      `koanf:"log"`
}

// APIConfig locates the backend the engine syncs against.
type APIConfig struct {
	// BaseURL is the REST base, e.g. "https://api.focusguard.app/api/v1".
	// The realtime endpoint is derived from it (https → wss).
	BaseURL string `koanf:"base_url" validate:"required,url"`
}

// EnforcerConfig tunes the enforcement controller.
type EnforcerConfig struct {
	// LockPageURL is where blocked tabs are redirected.
	LockPageURL string `koanf:"lock_page_url" validate:"required,url"`

	// KeepAliveInterval is the cheap active-tab re-check period.
	KeepAliveInterval time.Duration `koanf:"keep_alive_interval"`

	// RebuildInterval is the cached block-set rebuild period.
	RebuildInterval time.Duration `koanf:"rebuild_interval"`
}

// ControlConfig configures the local control surface the UI and browser
// bridge talk to.
type ControlConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"gte=0,lte=65535"`

	// AllowedOrigins are the extension/UI origins admitted by CORS.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// RequestsPerMinute rate-limits control requests per client IP.
	RequestsPerMinute int `koanf:"requests_per_minute"`
}

// StateConfig configures durable storage.
type StateConfig struct {
	// Path is the BadgerDB directory.
	Path string `koanf:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level"  validate:"omitempty,oneof=trace debug info warn warning error disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
}

// defaultConfig returns the baseline every other layer overrides.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "",
		},
		Enforcer: EnforcerConfig{
			LockPageURL:       "",
			KeepAliveInterval: 20 * time.Second,
			RebuildInterval:   time.Minute,
		},
		Control: ControlConfig{
			Host:              "127.0.0.1",
			Port:              7710,
			AllowedOrigins:    nil,
			RequestsPerMinute: 120,
		},
		State: StateConfig{
			Path: "/var/lib/focusguard",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Enforcer.KeepAliveInterval <= 0 {
		return fmt.Errorf("enforcer.keep_alive_interval must be positive")
	}

	if c.Enforcer.RebuildInterval <= 0 {
		return fmt.Errorf("enforcer.rebuild_interval must be positive")
	}

	return nil
}
