/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	applog "bookcover/internal/log"
	"bookcover/internal/overlay"
)

// ErrFontNotFound is returned when a name resolves to neither a loaded,
// built-in nor on-disk font.
var ErrFontNotFound = errors.New("font not found")

// builtin fonts ship with golang.org/x/image and need no files on disk.
var builtin = map[string][]byte{
	"go-regular": goregular.TTF,
	"go-bold":    gobold.TTF,
	"go-medium":  gomedium.TTF,
	"go-italic":  goitalic.TTF,
	"go-mono":    gomono.TTF,
}

// BuiltinNames lists the names that always resolve.
func BuiltinNames() []string {
	return []string{"go-regular", "go-bold", "go-medium", "go-italic", "go-mono"}
}

// FontLibrary resolves font names to parsed faces. Lookups try, in order:
// fonts registered with Load*, the built-in Go fonts, then <Dir>/<name>
// with .ttf/.otf appended when the name has no extension.
// Parsed fonts are cached; a FontLibrary is safe for concurrent use.
type FontLibrary struct {
	Dir string

	mu    sync.Mutex
	fonts map[string]*overlay.Font
}

func NewFontLibrary(dir string) *FontLibrary {
	return &FontLibrary{Dir: dir, fonts: make(map[string]*overlay.Font)}
}

// LoadBytes parses data and registers it under name.
func (fl *FontLibrary) LoadBytes(name string, data []byte) error {
	f, err := parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", name, err)
	}
	fl.put(key(name), f)
	return nil
}

// LoadTTF reads a font file and registers it under name.
func (fl *FontLibrary) LoadTTF(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.LoadBytes(name, data)
}

// Face implements the font source used by the request pipeline.
func (fl *FontLibrary) Face(name string) (overlay.Face, error) {
	f, err := fl.Lookup(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Lookup resolves name as described on FontLibrary.
func (fl *FontLibrary) Lookup(name string) (*overlay.Font, error) {
	k := key(name)
	if k == "" {
		return nil, fmt.Errorf("empty font name: %w", ErrFontNotFound)
	}
	fl.mu.Lock()
	f, ok := fl.fonts[k]
	fl.mu.Unlock()
	if ok {
		return f, nil
	}

	l := applog.WithOperation(applog.WithComponent("fonts"), "lookup").With(slog.String("font", name))
	if data, ok := builtin[k]; ok {
		f, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse builtin font %s: %w", name, err)
		}
		fl.put(k, f)
		l.Debug("builtin font loaded")
		return f, nil
	}

	path, err := fl.find(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	f, err = parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	fl.put(k, f)
	l.Debug("font file loaded", slog.String("path", path))
	return f, nil
}

func (fl *FontLibrary) find(name string) (string, error) {
	if fl.Dir == "" {
		return "", fmt.Errorf("%s (no fonts dir configured): %w", name, ErrFontNotFound)
	}
	// names are plain file names; never escape the fonts dir
	if name != filepath.Base(name) {
		return "", fmt.Errorf("%s is not a plain file name: %w", name, ErrFontNotFound)
	}
	candidates := []string{name}
	if filepath.Ext(name) == "" {
		candidates = []string{name + ".ttf", name + ".otf"}
	}
	for _, c := range candidates {
		p := filepath.Join(fl.Dir, c)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s in %s: %w", name, fl.Dir, ErrFontNotFound)
}

func (fl *FontLibrary) put(k string, f *overlay.Font) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[string]*overlay.Font)
	}
	fl.fonts[k] = f
}

func parse(data []byte) (*overlay.Font, error) {
	otf, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	return overlay.NewFont(otf)
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }
