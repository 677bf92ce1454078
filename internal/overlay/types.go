/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package overlay places text blocks onto a raster canvas. It computes per-line
// geometry for a small closed set of placement strategies, rasterizes glyph
// outlines into coverage samples and blends them into the canvas in place.
package overlay

import (
	"fmt"
	"image"
	"strings"
)

// Point is a position in canvas pixel space. Y grows downward.
type Point struct {
	X, Y float64
}

// Color is an opaque 8-bit RGB text color.
type Color struct {
	R, G, B uint8
}

// White is the reference text color.
var White = Color{R: 255, G: 255, B: 255}

// Position selects how the lines of a block are anchored, scaled and stacked.
type Position int

const (
	TopCenter Position = iota
	BottomStretch
	BottomSides
	BottomLeft
	BottomCenter
)

var positionNames = [...]string{"top_center", "bottom_stretch", "bottom_sides", "bottom_left", "bottom_center"}

func (p Position) String() string {
	if p < 0 || int(p) >= len(positionNames) {
		return fmt.Sprintf("Position(%d)", int(p))
	}
	return positionNames[p]
}

// BottomAnchored reports whether lines grow upward from the bottom edge.
func (p Position) BottomAnchored() bool { return p != TopCenter }

// ParsePosition accepts snake_case ("bottom_left"), kebab-case and CamelCase
// ("BottomLeft") names.
func ParsePosition(s string) (Position, error) {
	key := normalizeName(s)
	for i, n := range positionNames {
		if normalizeName(n) == key {
			return Position(i), nil
		}
	}
	return 0, fmt.Errorf("unknown position %q", s)
}

func (p Position) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= len(positionNames) {
		return nil, fmt.Errorf("invalid position %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Position) UnmarshalText(b []byte) error {
	v, err := ParsePosition(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// BlendMode selects the per-channel formula used when compositing text.
type BlendMode int

const (
	// BlendNone is a linear alpha-over of the text color.
	BlendNone BlendMode = iota
	// BlendOverlay applies the photographic overlay blend before the alpha-over.
	BlendOverlay
)

var blendNames = [...]string{"none", "overlay"}

func (m BlendMode) String() string {
	if m < 0 || int(m) >= len(blendNames) {
		return fmt.Sprintf("BlendMode(%d)", int(m))
	}
	return blendNames[m]
}

func ParseBlendMode(s string) (BlendMode, error) {
	key := normalizeName(s)
	for i, n := range blendNames {
		if n == key {
			return BlendMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown blend mode %q", s)
}

func (m BlendMode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(blendNames) {
		return nil, fmt.Errorf("invalid blend mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *BlendMode) UnmarshalText(b []byte) error {
	v, err := ParseBlendMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// TextBlock is one overlay operation. Lines are drawn in order; the order
// drives vertical stacking and the alternating anchor of BottomSides.
type TextBlock struct {
	Lines    []string
	Color    Color
	Alpha    float64 // clamped to [0,1]
	Face     Face
	Position Position
	Blend    BlendMode
	// Offset is added to every sample after layout. Zero in the reference configuration.
	Offset image.Point
}
