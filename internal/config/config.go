/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type RenderConfig struct {
	FontsDir   string `yaml:"fonts_dir"`
	TitleFont  string `yaml:"title_font"`
	AuthorFont string `yaml:"author_font"`
	TextColor  string `yaml:"text_color"` // "#rrggbb"
	Format     string `yaml:"format"`     // "png" | "pdf"
	LineLength int    `yaml:"line_length"`
}

type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// DSN is a sqlite file path, or a postgres:// URL.
	DSN string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type TelemetryConfig struct {
	OptIn     bool   `yaml:"opt_in"`
	EventsURL string `yaml:"events_url"`
	CrashURL  string `yaml:"crash_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Render        RenderConfig    `yaml:"render"`
	History       HistoryConfig   `yaml:"history"`
	Logging       LoggingConfig   `yaml:"logging"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Render: RenderConfig{
			TitleFont:  "go-bold",
			AuthorFont: "go-regular",
			TextColor:  "#ffffff",
			Format:     "png",
			LineLength: 20,
		},
		History:   HistoryConfig{Enabled: false, DSN: ""},
		Logging:   LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
		Telemetry: TelemetryConfig{OptIn: false, TimeoutMs: 1500},
	}
}

// Env var names used as overrides.
const (
	EnvFontsDir     = "BKC_FONTS_DIR"
	EnvTitleFont    = "BKC_TITLE_FONT"
	EnvAuthorFont   = "BKC_AUTHOR_FONT"
	EnvTextColor    = "BKC_TEXT_COLOR"
	EnvFormat       = "BKC_FORMAT"
	EnvLineLength   = "BKC_LINE_LENGTH"
	EnvHistory      = "BKC_HISTORY"
	EnvHistoryDSN   = "BKC_HISTORY_DSN"
	EnvTelemetryOn  = "BKC_TELEMETRY_OPT_IN"
	EnvTelemetryURL = "BKC_TELEMETRY_URL"
	EnvCrashURL     = "BKC_CRASH_UPLOAD_URL"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "BKC_LOG_LEVEL"
	EnvLogFormat = "BKC_LOG_FORMAT"
	EnvLogSource = "BKC_LOG_SOURCE"
	EnvLogFile   = "BKC_LOG_FILE"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "BKC_CONFIG"

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Bookcover")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Bookcover")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "bookcover")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "bookcover")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DefaultHistoryDSN is the sqlite file used when history is enabled without a DSN.
func DefaultHistoryDSN() (string, error) {
	p, err := ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(p), "history.db"), nil
}

// Load reads the config file at path (or ConfigPath when empty), applies
// defaults and merges environment overrides. A missing file is not an error;
// a malformed one is.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the config YAML to path (or ConfigPath when empty).
func Save(cfg AppConfig, path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// render
	if v := strings.TrimSpace(src.Render.FontsDir); v != "" {
		dst.Render.FontsDir = v
	}
	if v := strings.TrimSpace(src.Render.TitleFont); v != "" {
		dst.Render.TitleFont = v
	}
	if v := strings.TrimSpace(src.Render.AuthorFont); v != "" {
		dst.Render.AuthorFont = v
	}
	if v := strings.TrimSpace(src.Render.TextColor); v != "" {
		dst.Render.TextColor = v
	}
	if v := strings.TrimSpace(src.Render.Format); v != "" {
		dst.Render.Format = strings.ToLower(v)
	}
	if src.Render.LineLength > 0 {
		dst.Render.LineLength = src.Render.LineLength
	}
	// history: booleans copied directly so the file's choice persists
	dst.History.Enabled = src.History.Enabled
	if v := strings.TrimSpace(src.History.DSN); v != "" {
		dst.History.DSN = v
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	// telemetry
	dst.Telemetry.OptIn = src.Telemetry.OptIn
	if v := strings.TrimSpace(src.Telemetry.EventsURL); v != "" {
		dst.Telemetry.EventsURL = v
	}
	if v := strings.TrimSpace(src.Telemetry.CrashURL); v != "" {
		dst.Telemetry.CrashURL = v
	}
	if src.Telemetry.TimeoutMs > 0 {
		dst.Telemetry.TimeoutMs = src.Telemetry.TimeoutMs
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvFontsDir)); v != "" {
		cfg.Render.FontsDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTitleFont)); v != "" {
		cfg.Render.TitleFont = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAuthorFont)); v != "" {
		cfg.Render.AuthorFont = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTextColor)); v != "" {
		cfg.Render.TextColor = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFormat)); v != "" {
		cfg.Render.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLineLength)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Render.LineLength = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistory)); v != "" {
		cfg.History.Enabled = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryDSN)); v != "" {
		cfg.History.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOn)); v != "" {
		cfg.Telemetry.OptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryURL)); v != "" {
		cfg.Telemetry.EventsURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCrashURL)); v != "" {
		cfg.Telemetry.CrashURL = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"render.fonts_dir":     EnvFontsDir,
	"render.title_font":    EnvTitleFont,
	"render.author_font":   EnvAuthorFont,
	"render.text_color":    EnvTextColor,
	"render.format":        EnvFormat,
	"render.line_length":   EnvLineLength,
	"history.enabled":      EnvHistory,
	"history.dsn":          EnvHistoryDSN,
	"telemetry.opt_in":     EnvTelemetryOn,
	"telemetry.events_url": EnvTelemetryURL,
	"telemetry.crash_url":  EnvCrashURL,
	"logging.level":        EnvLogLevel,
	"logging.format":       EnvLogFormat,
	"logging.source":       EnvLogSource,
	"logging.file":         EnvLogFile,
}

// OverrideKeys lists the dotted config keys that have an env override, sorted.
func OverrideKeys() []string {
	keys := make([]string, 0, len(envByKey))
	for k := range envByKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envByKey[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// EffectiveTimeoutMs returns the telemetry timeout, falling back to the default.
func (t TelemetryConfig) EffectiveTimeoutMs() int {
	if t.TimeoutMs <= 0 {
		return Defaults().Telemetry.TimeoutMs
	}
	return t.TimeoutMs
}
