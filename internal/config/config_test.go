// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv satisfies the two required fields so Load can succeed.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FOCUSGUARD_API_BASE_URL", "https://api.example.com/api/v1")
	t.Setenv("FOCUSGUARD_ENFORCER_LOCK_PAGE_URL", "https://focusguard.app/locked")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/api/v1", cfg.API.BaseURL)
	assert.Equal(t, "https://focusguard.app/locked", cfg.Enforcer.LockPageURL)
	assert.Equal(t, 20*time.Second, cfg.Enforcer.KeepAliveInterval)
	assert.Equal(t, time.Minute, cfg.Enforcer.RebuildInterval)
	assert.Equal(t, "127.0.0.1", cfg.Control.Host)
	assert.Equal(t, 7710, cfg.Control.Port)
	assert.Equal(t, 120, cfg.Control.RequestsPerMinute)
	assert.Equal(t, "/var/lib/focusguard", cfg.State.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadMissingRequiredFields(t *testing.T) {
	// Neither API base nor lock page set anywhere.
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FOCUSGUARD_LOG_LEVEL", "debug")
	t.Setenv("FOCUSGUARD_LOG_FORMAT", "console")
	t.Setenv("FOCUSGUARD_CONTROL_PORT", "9000")
	t.Setenv("FOCUSGUARD_STATE_PATH", "/tmp/focusguard-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9000, cfg.Control.Port)
	assert.Equal(t, "/tmp/focusguard-test", cfg.State.Path)
}

func TestLoadAllowedOriginsFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FOCUSGUARD_CONTROL_ALLOWED_ORIGINS",
		"chrome-extension://abc, chrome-extension://def")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"chrome-extension://abc", "chrome-extension://def"},
		cfg.Control.AllowedOrigins,
	)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "focusguard.yaml")

	yaml := `
api:
  base_url: https://api.example.com/api/v1
enforcer:
  lock_page_url: https://focusguard.app/locked
  keep_alive_interval: 45s
  rebuild_interval: 2m
control:
  port: 8800
  allowed_origins:
    - chrome-extension://abc
log:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Enforcer.KeepAliveInterval)
	assert.Equal(t, 2*time.Minute, cfg.Enforcer.RebuildInterval)
	assert.Equal(t, 8800, cfg.Control.Port)
	assert.Equal(t, []string{"chrome-extension://abc"}, cfg.Control.AllowedOrigins)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "focusguard.yaml")

	yaml := `
api:
  base_url: https://file.example.com
enforcer:
  lock_page_url: https://focusguard.app/locked
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("FOCUSGUARD_API_BASE_URL", "https://env.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.API.BaseURL)
}

func TestValidate(t *testing.T) {
	valid := defaultConfig()
	valid.API.BaseURL = "https://api.example.com"
	valid.Enforcer.LockPageURL = "https://focusguard.app/locked"

	require.NoError(t, valid.Validate())

	t.Run("bad log level", func(t *testing.T) {
		cfg := *valid
		cfg.Log.Level = "loud"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := *valid
		cfg.Control.Port = 70000
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-url lock page", func(t *testing.T) {
		cfg := *valid
		cfg.Enforcer.LockPageURL = "not a url"
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero keep alive", func(t *testing.T) {
		cfg := *valid
		cfg.Enforcer.KeepAliveInterval = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"FOCUSGUARD_API_BASE_URL", "api.base_url"},
		{"FOCUSGUARD_ENFORCER_LOCK_PAGE_URL", "enforcer.lock_page_url"},
		{"FOCUSGUARD_CONTROL_ALLOWED_ORIGINS", "control.allowed_origins"},
		{"FOCUSGUARD_LOG_LEVEL", "log.level"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, envTransformFunc(tt.in), tt.in)
	}
}
