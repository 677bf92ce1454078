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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bookcover/internal/config"
	"bookcover/internal/export"
	applog "bookcover/internal/log"
	"bookcover/internal/overlay"
	"bookcover/internal/request"
	"bookcover/internal/storage"
	"bookcover/internal/telemetry"
	"bookcover/internal/textlayout"
)

func cmdRender(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "config file")
		imagePath  = fs.String("image", "", "source image file, or - for stdin")
		imageB64   = fs.Bool("image-base64", false, "source image is base64 text")
		paramsPath = fs.String("params", "", "cover parameters (YAML or JSON)")
		outPath    = fs.String("out", "", "output file, or - for stdout (default <image>-cover.<format>)")
		formatStr  = fs.String("format", "", "png or pdf (default from config)")
		asBase64   = fs.Bool("base64", false, "write base64 text instead of raw bytes")
		fontsDir   = fs.String("fonts-dir", "", "directory searched for .ttf/.otf fonts")
		titleFile  = fs.String("title-font-file", "", "font file for the title")
		authorFile = fs.String("author-font-file", "", "font file for the author")
		dpi        = fs.Float64("dpi", 0, "pixels per inch when writing PDF (default 72)")
	)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *imagePath == "" || *paramsPath == "" {
		_, _ = fmt.Fprintln(stderr, "render requires -image and -params")
		return errUsage
	}
	cfg, err := setup("render", *configPath, stderr)
	if err != nil {
		return err
	}
	l := applog.WithOperation(applog.WithComponent("cli"), "render")

	format, err := export.ParseFormat(firstNonEmpty(*formatStr, cfg.Render.Format))
	if err != nil {
		return err
	}
	params, err := os.ReadFile(*paramsPath)
	if err != nil {
		return fmt.Errorf("read params: %w", err)
	}
	req, err := request.Parse(params)
	if err != nil {
		return err
	}
	req = req.WithDefaults(request.Defaults{
		LineLength: cfg.Render.LineLength,
		Color:      cfg.Render.TextColor,
		TitleFont:  cfg.Render.TitleFont,
		AuthorFont: cfg.Render.AuthorFont,
	})

	fonts := textlayout.NewFontLibrary(firstNonEmpty(*fontsDir, cfg.Render.FontsDir))
	if *titleFile != "" {
		if err := fonts.LoadTTF("title-file", *titleFile); err != nil {
			return err
		}
		req.TitleFont = "title-file"
	}
	if *authorFile != "" {
		if err := fonts.LoadTTF("author-file", *authorFile); err != nil {
			return err
		}
		req.AuthorFont = "author-file"
	}

	img, err := readInput(*imagePath, stdin)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if *imageB64 {
		if img, err = export.DecodeBase64(string(img)); err != nil {
			return err
		}
	}

	res, renderErr := request.Render(ctx, req, img, fonts, request.Options{Format: format, PDF: export.PDFOptions{DPI: *dpi}})
	report(ctx, cfg, req, format, res, renderErr, l)
	if renderErr != nil {
		return renderErr
	}

	out := res.Data
	if *asBase64 {
		out = []byte(export.EncodeBase64(res.Data) + "\n")
	}
	dest := *outPath
	if dest == "" {
		dest = defaultOutPath(*imagePath, format, *asBase64)
	}
	if dest == "-" {
		_, err = stdout.Write(out)
		return err
	}
	if err := os.WriteFile(dest, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	l.Info("cover written", slog.String("path", dest), slog.Int("bytes", len(out)))
	return nil
}

// report sends telemetry and appends to the history when enabled. Neither
// failure affects the render result.
func report(ctx context.Context, cfg config.AppConfig, req request.CoverRequest, format export.Format, res request.Result, renderErr error, l *slog.Logger) {
	telemetry.Default().Render(telemetry.RenderStats{
		Format:       string(format),
		SourceFormat: res.SourceFormat,
		Width:        res.Width,
		Height:       res.Height,
		Blocks:       res.Blocks,
		Elapsed:      res.Elapsed,
		ErrClass:     errorClass(renderErr),
	})
	if !cfg.History.Enabled {
		return
	}
	h, err := openHistory(ctx, cfg)
	if err != nil {
		l.Warn("history unavailable", slog.Any("err", err))
		return
	}
	defer func() { _ = h.Close() }()
	if _, err := h.Record(ctx, historyEntry(req, format, res, renderErr)); err != nil {
		l.Warn("history record failed", slog.Any("err", err))
	}
}

func historyEntry(req request.CoverRequest, format export.Format, res request.Result, renderErr error) storage.Entry {
	e := storage.Entry{
		Title:          req.Title,
		Author:         req.Author,
		TitlePosition:  req.TitlePosition.String(),
		AuthorPosition: req.AuthorPosition.String(),
		Blend:          req.Blend.String(),
		Alpha:          req.EffectiveAlpha(),
		LineLength:     req.LineLength,
		Format:         string(format),
		SourceFormat:   res.SourceFormat,
		Width:          res.Width,
		Height:         res.Height,
		Bytes:          len(res.Data),
		ElapsedMs:      res.Elapsed.Milliseconds(),
		Status:         storage.StatusOK,
	}
	if len(res.Data) > 0 {
		sum := sha256.Sum256(res.Data)
		e.SHA256 = hex.EncodeToString(sum[:])
	}
	if renderErr != nil {
		e.Status = storage.StatusFailed
		e.Error = renderErr.Error()
	}
	return e
}

func openHistory(ctx context.Context, cfg config.AppConfig) (*storage.History, error) {
	dsn := cfg.History.DSN
	if dsn == "" {
		p, err := config.DefaultHistoryDSN()
		if err != nil {
			return nil, err
		}
		dsn = p
	}
	return storage.Open(ctx, dsn)
}

// errorClass names the failure for telemetry without exposing its text.
func errorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, export.ErrDecode):
		return "decode"
	case errors.Is(err, export.ErrEncode):
		return "encode"
	case errors.Is(err, overlay.ErrDegenerateInput):
		return "degenerate"
	case errors.Is(err, textlayout.ErrFontNotFound):
		return "font"
	case errors.Is(err, request.ErrInvalid):
		return "invalid"
	default:
		return "other"
	}
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func defaultOutPath(imagePath string, f export.Format, b64 bool) string {
	if imagePath == "-" {
		return "-"
	}
	base := strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + "-cover" + f.Ext()
	if b64 {
		base += ".b64"
	}
	return base
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
