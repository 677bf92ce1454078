/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry provides a tiny, privacy-respecting, opt-in event sender
// for anonymous render metrics and optional crash uploads. Events never
// carry cover text or image data.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"bookcover/internal/config"
	applog "bookcover/internal/log"
	"bookcover/internal/version"
)

// Config holds runtime configuration for telemetry and crash uploads.
// All telemetry is strictly opt-in and disabled by default.
//
// If no URLs are set, events are dropped (no-ops), even if opt-in is true.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

// FromConfig maps the telemetry section of the app config.
func FromConfig(c config.TelemetryConfig) Config {
	return Config{
		OptIn:        c.OptIn,
		EventsURL:    strings.TrimSpace(c.EventsURL),
		CrashURL:     strings.TrimSpace(c.CrashURL),
		Timeout:      time.Duration(c.EffectiveTimeoutMs()) * time.Millisecond,
		DebugLogging: os.Getenv("BKC_TELEMETRY_DEBUG") != "",
	}
}

// FromEnv reads BKC_TELEMETRY_OPT_IN, BKC_TELEMETRY_URL,
// BKC_CRASH_UPLOAD_URL, BKC_TELEMETRY_TIMEOUT_MS and BKC_TELEMETRY_DEBUG.
func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("BKC_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("BKC_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("BKC_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("BKC_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("BKC_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

type event struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client is a minimal async sender; it drops events silently on errors.
// The queue is bounded so callers never block.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	q       chan event
	pending atomic.Int64
	dropped atomic.Int64
	once    sync.Once
	closed  chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the package-level client, creating it from the
// environment on first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault replaces the package-level client, closing the previous one.
func SetDefault(cfg Config) *Client {
	c := New(cfg)
	defaultMu.Lock()
	old := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	old.Close()
	return c
}

// New constructs a client and starts its sender.
func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan event, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether anonymous telemetry is enabled and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a small JSON event if enabled. Props must not contain PII.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	e := event{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Props:   make(map[string]any, len(props)),
	}
	for k, v := range props {
		e.Props[k] = v
	}
	c.pending.Add(1)
	select {
	case c.q <- e:
	default:
		c.pending.Add(-1)
		c.dropped.Add(1)
	}
}

// RenderStats are the anonymous facts reported for one render.
type RenderStats struct {
	Format       string
	SourceFormat string
	Width        int
	Height       int
	Blocks       int
	Elapsed      time.Duration
	// ErrClass is empty for a successful render, else a coarse class such
	// as "decode" or "degenerate".
	ErrClass string
}

// Render reports a finished render. Failures carry only the error class.
func (c *Client) Render(s RenderStats) {
	props := map[string]any{
		"format":     s.Format,
		"source":     s.SourceFormat,
		"width":      s.Width,
		"height":     s.Height,
		"blocks":     s.Blocks,
		"elapsed_ms": s.Elapsed.Milliseconds(),
	}
	name := "cover_rendered"
	if s.ErrClass != "" {
		name = "cover_failed"
		props["error_class"] = s.ErrClass
	}
	c.Event(name, props)
}

// Dropped counts events discarded because the queue was full.
func (c *Client) Dropped() int64 {
	if c == nil {
		return 0
	}
	return c.dropped.Load()
}

// Flush waits until queued events are sent, ctx is done, or 500ms pass.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for c.pending.Load() > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Close stops the background sender.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.closed) })
}

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case e := <-c.q:
			c.send(e)
			c.pending.Add(-1)
		}
	}
}

func (c *Client) send(e event) {
	buf, err := json.Marshal(e)
	if err != nil {
		return
	}
	c.post(c.cfg.EventsURL, "application/json", buf, "telemetry event")
}

func (c *Client) post(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug(what+" failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug(what+" sent", slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts an already-serialized crash report to the configured
// crash URL if opted in. It waits at most the client timeout.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", report, "crash upload")
}

// Event using the default client.
func Event(name string, props map[string]any) { Default().Event(name, props) }

// UploadCrash using the default client.
func UploadCrash(report []byte) { Default().UploadCrash(report) }
