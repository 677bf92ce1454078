/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package request is the boundary between callers and the overlay engine:
// it decodes and validates cover parameters and turns them into ordered
// text blocks.
package request

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"bookcover/internal/overlay"
)

// ErrInvalid marks parameters rejected by decoding or schema validation.
var ErrInvalid = errors.New("invalid cover request")

// CoverRequest describes one cover. Alpha and LineLength may arrive as
// numbers or numeric strings; "alfa" is accepted as an alias for alpha.
type CoverRequest struct {
	Title          string            `yaml:"title"`
	Author         string            `yaml:"author"`
	TitlePosition  overlay.Position  `yaml:"title_position"`
	AuthorPosition overlay.Position  `yaml:"author_position"`
	Blend          overlay.BlendMode `yaml:"blend_mode"`
	Alpha          *float64          `yaml:"alpha,omitempty"`
	LineLength     int               `yaml:"line_length,omitempty"`
	Color          string            `yaml:"color,omitempty"`
	TitleFont      string            `yaml:"title_font,omitempty"`
	AuthorFont     string            `yaml:"author_font,omitempty"`
}

// Defaults fill the fields a request leaves unset.
type Defaults struct {
	LineLength int
	Color      string
	TitleFont  string
	AuthorFont string
}

// Parse decodes YAML or JSON, normalizes lenient values, validates the result
// against the embedded schema and returns the typed request.
func Parse(data []byte) (CoverRequest, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return CoverRequest{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if doc == nil {
		return CoverRequest{}, fmt.Errorf("%w: empty document", ErrInvalid)
	}
	normalize(doc)
	if err := Validate(doc); err != nil {
		return CoverRequest{}, err
	}
	// the map now only holds canonical values the typed decode accepts
	canon, err := yaml.Marshal(doc)
	if err != nil {
		return CoverRequest{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var req CoverRequest
	if err := yaml.Unmarshal(canon, &req); err != nil {
		return CoverRequest{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return req, nil
}

// normalize rewrites aliases and spellings in place so the schema only sees
// canonical forms. Values it cannot make sense of are left for the schema to
// reject.
func normalize(doc map[string]any) {
	if v, ok := doc["alfa"]; ok {
		if _, dup := doc["alpha"]; !dup {
			doc["alpha"] = v
		}
		delete(doc, "alfa")
	}
	// unquoted YAML scalars such as `title: 1984` decode as numbers
	for _, k := range []string{"title", "author", "color", "title_font", "author_font"} {
		switch v := doc[k].(type) {
		case int, int64, uint64, float64, bool:
			doc[k] = fmt.Sprint(v)
		}
	}
	if s, ok := doc["alpha"].(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			doc["alpha"] = f
		}
	}
	if s, ok := doc["line_length"].(string); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			doc["line_length"] = n
		}
	}
	for _, k := range []string{"title_position", "author_position"} {
		if s, ok := doc[k].(string); ok {
			if p, err := overlay.ParsePosition(s); err == nil {
				doc[k] = p.String()
			}
		}
	}
	if s, ok := doc["blend_mode"].(string); ok {
		if m, err := overlay.ParseBlendMode(s); err == nil {
			doc["blend_mode"] = m.String()
		}
	}
}

// WithDefaults returns a copy of r with unset fields taken from d.
func (r CoverRequest) WithDefaults(d Defaults) CoverRequest {
	if r.LineLength <= 0 {
		r.LineLength = d.LineLength
	}
	if strings.TrimSpace(r.Color) == "" {
		r.Color = d.Color
	}
	if strings.TrimSpace(r.TitleFont) == "" {
		r.TitleFont = d.TitleFont
	}
	if strings.TrimSpace(r.AuthorFont) == "" {
		r.AuthorFont = d.AuthorFont
	}
	return r
}

// EffectiveAlpha is Alpha, or fully opaque when unset.
func (r CoverRequest) EffectiveAlpha() float64 {
	if r.Alpha == nil {
		return 1
	}
	return *r.Alpha
}

// ParseColor accepts "#rgb", "#rrggbb" and the same without '#'. Empty
// means white.
func ParseColor(s string) (overlay.Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 0:
		return overlay.White, nil
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6:
	default:
		return overlay.Color{}, fmt.Errorf("%w: color %q", ErrInvalid, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return overlay.Color{}, fmt.Errorf("%w: color %q", ErrInvalid, s)
	}
	return overlay.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}
