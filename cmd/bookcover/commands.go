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
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"bookcover/internal/config"
	"bookcover/internal/request"
	"bookcover/internal/storage"
	"bookcover/internal/textlayout"
)

func cmdValidate(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	printSchema := fs.Bool("schema", false, "print the JSON schema and exit")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *printSchema {
		_, err := stdout.Write(request.Schema())
		return err
	}
	if fs.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "validate requires exactly one params file")
		return errUsage
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read params: %w", err)
	}
	req, err := request.Parse(data)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "ok: title %q at %s, author %q at %s, blend %s\n",
		req.Title, req.TitlePosition, req.Author, req.AuthorPosition, req.Blend)
	return nil
}

func cmdFonts(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fonts", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file")
	fontsDir := fs.String("fonts-dir", "", "directory searched for .ttf/.otf fonts")
	install := fs.String("install", "", "install the fonts of a zip pack into the fonts dir")
	export := fs.String("export", "", "write the fonts dir as a zip pack")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	cfg, err := setup("fonts", *configPath, stderr)
	if err != nil {
		return err
	}
	dir := firstNonEmpty(*fontsDir, cfg.Render.FontsDir)
	if (*install != "" || *export != "") && dir == "" {
		return errors.New("no fonts dir: pass -fonts-dir or set render.fonts_dir")
	}
	if *install != "" {
		n, err := textlayout.InstallFontPack(dir, *install)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "installed %d font(s) into %s\n", n, dir)
		return nil
	}
	if *export != "" {
		n, err := textlayout.ExportFontPack(dir, *export)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "exported %d font(s) to %s\n", n, *export)
		return nil
	}
	for _, n := range textlayout.BuiltinNames() {
		_, _ = fmt.Fprintf(stdout, "%s\t(built-in)\n", n)
	}
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read fonts dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".ttf" || ext == ".otf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, n := range names {
		_, _ = fmt.Fprintf(stdout, "%s\t%s\n", strings.TrimSuffix(n, filepath.Ext(n)), filepath.Join(dir, n))
	}
	return nil
}

func cmdHistory(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file")
	n := fs.Int("n", 20, "number of entries")
	id := fs.Int64("id", 0, "show a single entry")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	cfg, err := setup("history", *configPath, stderr)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("history is disabled; set history.enabled in the config or BKC_HISTORY=1")
	}
	h, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()
	if *id > 0 {
		e, err := h.Get(ctx, *id)
		if err != nil {
			return err
		}
		return printEntry(stdout, h.Driver(), e)
	}
	entries, err := h.Recent(ctx, *n)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tWHEN\tSTATUS\tFORMAT\tSIZE\tTITLE\tAUTHOR")
	for _, e := range entries {
		status := e.Status
		if e.Error != "" {
			status += ": " + e.Error
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%dx%d\t%s\t%s\n",
			e.ID, when(e.CreatedAt), status, e.Format, e.Width, e.Height, e.Title, e.Author)
	}
	return tw.Flush()
}

func printEntry(w io.Writer, driver string, e storage.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row := func(k string, v any) { _, _ = fmt.Fprintf(tw, "%s\t%v\n", k, v) }
	row("id", e.ID)
	row("store", driver)
	row("created", e.CreatedAt.Local().Format(time.RFC3339))
	row("status", e.Status)
	if e.Error != "" {
		row("error", e.Error)
	}
	row("title", e.Title)
	row("author", e.Author)
	row("positions", e.TitlePosition+" / "+e.AuthorPosition)
	row("blend", fmt.Sprintf("%s alpha=%g", e.Blend, e.Alpha))
	row("line_length", e.LineLength)
	row("source", fmt.Sprintf("%s %dx%d", e.SourceFormat, e.Width, e.Height))
	row("output", fmt.Sprintf("%s %d bytes", e.Format, e.Bytes))
	if e.SHA256 != "" {
		row("sha256", e.SHA256)
	}
	row("elapsed", fmt.Sprintf("%dms", e.ElapsedMs))
	return tw.Flush()
}

// cmdConfig prints the effective configuration, or writes the defaults with -init.
func cmdConfig(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file")
	initFile := fs.Bool("init", false, "write a default config file if none exists")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	path := *configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if *initFile {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
		if err := config.Save(config.Defaults(), path); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		_, _ = fmt.Fprintf(stdout, "wrote %s\n", path)
		return nil
	}
	cfg, err := setup("config", path, stderr)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "# %s\n", path)
	_, _ = stdout.Write(data)
	for _, k := range config.OverrideKeys() {
		if env, ok := config.EnvOverrideFor(k); ok {
			_, _ = fmt.Fprintf(stdout, "# %s overridden by %s\n", k, env)
		}
	}
	return nil
}

// when formats t relative to now for recent entries.
func when(t time.Time) string {
	d := time.Since(t)
	if d < time.Minute {
		return d.Round(time.Second).String() + " ago"
	}
	return t.Local().Format("2006-01-02 15:04")
}
