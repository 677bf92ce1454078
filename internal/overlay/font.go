/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

var _ Face = (*Font)(nil)

// Font is a Face backed by a parsed OpenType/TrueType font. It is read-only
// and may be shared by any number of text blocks.
type Font struct {
	f    *sfnt.Font
	upem fixed.Int26_6
	// line box metrics in font units
	ascent, height float64
	bufs           sync.Pool
}

// ParseFont parses TTF/OTF bytes. The bytes must not be modified afterwards.
func ParseFont(data []byte) (*Font, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return NewFont(f)
}

// NewFont wraps an already parsed font.
func NewFont(f *sfnt.Font) (*Font, error) {
	if f == nil {
		return nil, errors.New("nil font")
	}
	upem := fixed.I(int(f.UnitsPerEm()))
	var buf sfnt.Buffer
	// At ppem == units per em, 26.6 pixel values are font units scaled by 64.
	m, err := f.Metrics(&buf, upem, font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("font metrics: %w", err)
	}
	height := float64(m.Ascent+m.Descent) / 64
	if height <= 0 {
		return nil, errors.New("font has an empty line box")
	}
	return &Font{f: f, upem: upem, ascent: float64(m.Ascent) / 64, height: height}, nil
}

func (f *Font) buffer() *sfnt.Buffer {
	if b, ok := f.bufs.Get().(*sfnt.Buffer); ok {
		return b
	}
	return &sfnt.Buffer{}
}

// pixels per font unit at scale
func (f *Font) unit(scale float64) float64 { return scale / f.height }

// Advance is the horizontal advance of r at scale. Runes missing from the
// font advance like the .notdef glyph.
func (f *Font) Advance(r rune, scale float64) float64 {
	buf := f.buffer()
	defer f.bufs.Put(buf)
	idx, err := f.f.GlyphIndex(buf, r)
	if err != nil {
		return 0
	}
	adv, err := f.f.GlyphAdvance(buf, idx, f.upem, font.HintingNone)
	if err != nil {
		return 0
	}
	return float64(adv) / 64 * f.unit(scale)
}

func (f *Font) Ascent(scale float64) float64 { return f.ascent * f.unit(scale) }

// Glyph rasterizes r with its origin at dot. The mask covers the floor/ceil
// pixel bounds of the outline.
func (f *Font) Glyph(r rune, scale float64, dot Point) (*image.Alpha, bool) {
	buf := f.buffer()
	defer f.bufs.Put(buf)
	idx, err := f.f.GlyphIndex(buf, r)
	if err != nil {
		return nil, false
	}
	ppem := fixed.Int26_6(float64(f.upem) * f.unit(scale))
	if ppem <= 0 {
		return nil, false
	}
	segs, err := f.f.LoadGlyph(buf, idx, ppem, nil)
	if err != nil || len(segs) == 0 {
		return nil, false
	}
	fb := segs.Bounds()
	minX := math.Floor(dot.X + fromFixed(fb.Min.X))
	minY := math.Floor(dot.Y + fromFixed(fb.Min.Y))
	maxX := math.Ceil(dot.X + fromFixed(fb.Max.X))
	maxY := math.Ceil(dot.Y + fromFixed(fb.Max.Y))
	w, h := int(maxX-minX), int(maxY-minY)
	if w <= 0 || h <= 0 {
		return nil, false
	}

	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Src
	pt := func(p fixed.Point26_6) (float32, float32) {
		return float32(dot.X + fromFixed(p.X) - minX), float32(dot.Y + fromFixed(p.Y) - minY)
	}
	started := false
	for _, s := range segs {
		switch s.Op {
		case sfnt.SegmentOpMoveTo:
			if started {
				z.ClosePath()
			}
			started = true
			z.MoveTo(pt(s.Args[0]))
		case sfnt.SegmentOpLineTo:
			z.LineTo(pt(s.Args[0]))
		case sfnt.SegmentOpQuadTo:
			cx, cy := pt(s.Args[0])
			x, y := pt(s.Args[1])
			z.QuadTo(cx, cy, x, y)
		case sfnt.SegmentOpCubeTo:
			c1x, c1y := pt(s.Args[0])
			c2x, c2y := pt(s.Args[1])
			x, y := pt(s.Args[2])
			z.CubeTo(c1x, c1y, c2x, c2y, x, y)
		}
	}
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	mask.Rect = mask.Rect.Add(image.Point{X: int(minX), Y: int(minY)})
	return mask, true
}

func fromFixed(v fixed.Int26_6) float64 { return float64(v) / 64 }
