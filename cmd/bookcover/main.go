/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"bookcover/internal/config"
	"bookcover/internal/crash"
	applog "bookcover/internal/log"
	"bookcover/internal/telemetry"
	"bookcover/internal/version"
)

func usage(w io.Writer) {
	_, _ = fmt.Fprintf(w, "bookcover %s\n\n", version.String())
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  bookcover render -image <file> -params <file> [-out <file>] [-format png|pdf] [-base64]")
	_, _ = fmt.Fprintln(w, "                                              Draw title and author onto an image")
	_, _ = fmt.Fprintln(w, "  bookcover validate [-schema] <params-file>  Check cover parameters against the schema")
	_, _ = fmt.Fprintln(w, "  bookcover fonts [-install <zip> | -export <zip>]")
	_, _ = fmt.Fprintln(w, "                                              List, install or export fonts")
	_, _ = fmt.Fprintln(w, "  bookcover history [-n 20] [-id <id>]        Show recent renders or one entry")
	_, _ = fmt.Fprintln(w, "  bookcover config [-init]                    Show the effective config or write defaults")
	_, _ = fmt.Fprintln(w, "  bookcover version|-v|--version              Show version")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Every command accepts -config <file>; BKC_* environment variables override it.")
}

// errUsage makes main print usage and exit 2.
var errUsage = errors.New("usage")

func main() {
	args := os.Args
	cmd := ""
	if len(args) > 1 {
		cmd = args[1]
	}
	defer crash.Recover(crash.Scope{Command: cmd})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code := run(ctx, args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	var err error
	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	case "render":
		err = cmdRender(ctx, args[1:], stdin, stdout, stderr)
	case "validate":
		err = cmdValidate(args[1:], stdout, stderr)
	case "fonts":
		err = cmdFonts(args[1:], stdout, stderr)
	case "history":
		err = cmdHistory(ctx, args[1:], stdout, stderr)
	case "config":
		err = cmdConfig(args[1:], stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		err = errUsage
	}
	flushTelemetry()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		usage(stderr)
		return 2
	default:
		applog.WithComponent("cli").Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
}

// setup loads the config and initializes logging and telemetry from it.
func setup(command, configPath string, stderr io.Writer) (config.AppConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Writer:    stderr,
	})
	telemetry.SetDefault(telemetry.FromConfig(cfg.Telemetry))
	telemetry.Event("command", map[string]any{"name": command})
	return cfg, nil
}

func flushTelemetry() {
	c := telemetry.Default()
	c.Flush(context.Background())
	if n := c.Dropped(); n > 0 {
		applog.WithComponent("telemetry").Debug("events dropped", slog.Int64("count", n))
	}
}
