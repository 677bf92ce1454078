/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/image/font/opentype"

	applog "bookcover/internal/log"
)

const (
	fontPackManifest = "fontpack.manifest.txt"
	// maxFontSize bounds a single archive entry.
	maxFontSize = 64 << 20
)

func isFontFile(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".ttf" || ext == ".otf"
}

// ExportFontPack zips every .ttf/.otf file directly inside dir into
// destZip, plus a small manifest for human inspection. It returns the
// number of fonts written.
func ExportFontPack(dir, destZip string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("fontpack"), "export").With(slog.String("dir", dir))
	if strings.TrimSpace(dir) == "" {
		return 0, errors.New("fonts dir is required")
	}
	if strings.TrimSpace(destZip) == "" {
		return 0, errors.New("destination zip is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read fonts dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && isFontFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	zf, err := os.Create(destZip)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	manifest := fmt.Sprintf("Bookcover Font Pack\nCreated: %s\nFonts: %s\n",
		time.Now().Format(time.RFC3339), strings.Join(names, ", "))
	w, err := zw.Create(fontPackManifest)
	if err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}
	if _, err := io.WriteString(w, manifest); err != nil {
		return 0, fmt.Errorf("write manifest: %w", err)
	}
	for _, n := range names {
		if err := addZipFile(zw, filepath.Join(dir, n), n); err != nil {
			l.Error("zip build failed", slog.Any("err", err))
			return 0, fmt.Errorf("add %s: %w", n, err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finish zip: %w", err)
	}
	l.Info("font pack exported", slog.Int("fonts", len(names)), slog.String("zip", destZip))
	return len(names), nil
}

func addZipFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// InstallFontPack extracts the fonts in packZip into dir. Entries are
// flattened to their base name; anything that is not a parseable .ttf/.otf
// is skipped, and existing files are never overwritten. It returns the
// number of fonts installed.
func InstallFontPack(dir, packZip string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("fontpack"), "install").With(slog.String("dir", dir))
	if strings.TrimSpace(dir) == "" {
		return 0, errors.New("fonts dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure fonts dir: %w", err)
	}
	r, err := zip.OpenReader(packZip)
	if err != nil {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	installed := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !isFontFile(f.Name) {
			continue
		}
		base := path.Base(f.Name)
		target := filepath.Join(dir, base)
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing font", slog.String("path", target))
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			return installed, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if _, err := opentype.Parse(data); err != nil {
			l.Warn("skip unparseable font", slog.String("entry", f.Name), slog.Any("err", err))
			continue
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return installed, fmt.Errorf("write %s: %w", target, err)
		}
		installed++
	}
	l.Info("font pack installed", slog.Int("fonts", installed))
	return installed, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxFontSize {
		return nil, fmt.Errorf("entry larger than %d bytes", maxFontSize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(io.LimitReader(rc, maxFontSize))
}
