/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestFontGlyphMaskIsInCanvasSpace(t *testing.T) {
	f := goRegular(t)
	mask, ok := f.Glyph('H', 50, Point{X: 100.3, Y: 200})
	if !ok {
		t.Fatalf("expected an outline for 'H'")
	}
	r := mask.Rect
	if r.Min.X < 100 || r.Max.Y > 201 || r.Min.Y >= 200 || r.Max.X <= r.Min.X {
		t.Fatalf("unexpected glyph bounds %v", r)
	}
	solid := false
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if mask.AlphaAt(x, y).A == 0xff {
				solid = true
			}
		}
	}
	if !solid {
		t.Fatalf("expected fully covered pixels in the stems of 'H'")
	}
	if _, ok := f.Glyph(' ', 50, Point{}); ok {
		t.Fatalf("space should have no outline")
	}
}

func TestRasterizeLineClipsToCanvas(t *testing.T) {
	clip := image.Rect(0, 0, 40, 40)
	p := Placement{Text: "WIDE TEXT", X: -30, Y: 45, Scale: 30}
	n := 0
	RasterizeLine(goRegular(t), p, image.Point{}, clip, func(s Sample) {
		n++
		if !(image.Point{X: s.X, Y: s.Y}).In(clip) {
			t.Fatalf("sample outside clip: %+v", s)
		}
		if s.Coverage < 0 || s.Coverage > 1 {
			t.Fatalf("coverage out of range: %+v", s)
		}
	})
	if n == 0 {
		t.Fatalf("expected some samples inside the clip")
	}
}

func TestRasterizeLineAppliesOffset(t *testing.T) {
	clip := image.Rect(-1000, -1000, 1000, 1000)
	p := Placement{Text: "a", X: 10, Y: 10, Scale: 10}
	var plain, moved []Sample
	RasterizeLine(boxFace{}, p, image.Point{}, clip, func(s Sample) { plain = append(plain, s) })
	RasterizeLine(boxFace{}, p, image.Point{X: 3, Y: -2}, clip, func(s Sample) { moved = append(moved, s) })
	if len(plain) == 0 || len(plain) != len(moved) {
		t.Fatalf("sample counts differ: %d vs %d", len(plain), len(moved))
	}
	if moved[0].X != plain[0].X+3 || moved[0].Y != plain[0].Y-2 {
		t.Fatalf("offset not applied: %+v vs %+v", plain[0], moved[0])
	}
}

func TestPutTextKeepsDimensionsAndForcesOpaqueAlpha(t *testing.T) {
	img := filled(120, 90, color.NRGBA{R: 40, G: 50, B: 60, A: 0})
	c := NewCanvas(img)
	blocks := []TextBlock{
		{Lines: []string{"Author Name"}, Color: White, Alpha: 0.8, Face: goRegular(t), Position: TopCenter},
		{Lines: []string{"a very long title line", "two"}, Color: White, Alpha: 1, Face: goRegular(t), Position: BottomSides, Blend: BlendOverlay},
	}
	for _, b := range blocks {
		if err := c.PutText(b); err != nil {
			t.Fatalf("PutText: %v", err)
		}
	}
	if c.Bounds() != image.Rect(0, 0, 120, 90) {
		t.Fatalf("canvas resized to %v", c.Bounds())
	}
	touched := 0
	for i := 3; i < len(c.Image().Pix); i += 4 {
		switch c.Image().Pix[i] {
		case 255:
			touched++
		case 0:
		default:
			t.Fatalf("partial alpha %d at byte %d", c.Image().Pix[i], i)
		}
	}
	if touched == 0 {
		t.Fatalf("no pixel was composited")
	}
}

func TestPutTextZeroAlphaLeavesRGBUnchanged(t *testing.T) {
	for _, mode := range []BlendMode{BlendNone, BlendOverlay} {
		img := filled(200, 150, color.NRGBA{R: 90, G: 160, B: 10, A: 255})
		before := append([]uint8(nil), img.Pix...)
		c := NewCanvas(img)
		b := TextBlock{Lines: []string{"Nothing", "To See"}, Color: Color{R: 255}, Alpha: 0, Face: goRegular(t), Position: BottomCenter, Blend: mode}
		if err := c.PutText(b); err != nil {
			t.Fatalf("PutText: %v", err)
		}
		if !bytes.Equal(before, c.Image().Pix) {
			t.Fatalf("%s: alpha 0 modified the canvas", mode)
		}
	}
}

func TestPutTextRejectedBlockLeavesCanvasUntouched(t *testing.T) {
	img := filled(64, 64, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	before := append([]uint8(nil), img.Pix...)
	c := NewCanvas(img)
	err := c.PutText(TextBlock{Lines: []string{"fine", ""}, Alpha: 1, Face: boxFace{}, Position: BottomStretch})
	if !errors.Is(err, ErrDegenerateInput) {
		t.Fatalf("err = %v, want ErrDegenerateInput", err)
	}
	if !bytes.Equal(before, c.Image().Pix) {
		t.Fatalf("rejected block modified the canvas")
	}
	if err := c.PutText(TextBlock{Lines: []string{"x"}}); !errors.Is(err, ErrNilFace) {
		t.Fatalf("err = %v, want ErrNilFace", err)
	}
}

// Blocks composite over the already modified canvas, so applying the same
// half-transparent block twice is not the same as applying it once.
func TestPutTextIsOrderDependent(t *testing.T) {
	b := TextBlock{Lines: []string{"ab"}, Color: White, Alpha: 0.5, Face: boxFace{}, Position: BottomLeft}
	once := NewCanvas(filled(100, 100, color.NRGBA{A: 255}))
	twice := NewCanvas(filled(100, 100, color.NRGBA{A: 255}))
	for _, c := range []*Canvas{once, twice, twice} {
		if err := c.PutText(b); err != nil {
			t.Fatalf("PutText: %v", err)
		}
	}
	ps, _ := Layout(b.Lines, b.Face, b.Position, image.Point{X: 100, Y: 100})
	x, y := int(ps[0].X)+1, int(ps[0].Y)-1
	if got := once.Image().NRGBAAt(x, y).R; got != 127 {
		t.Fatalf("single pass R = %d, want 127", got)
	}
	// 127*0.5 + 255*0.5 = 191
	if got := twice.Image().NRGBAAt(x, y).R; got != 191 {
		t.Fatalf("double pass R = %d, want 191", got)
	}
}

// Two BottomLeft blocks each restart the stack at the bottom edge, and inside
// a block every later line sits further from the bottom edge.
func TestBottomLeftBlocksStackIndependently(t *testing.T) {
	size := image.Point{X: 300, Y: 400}
	first, err := Layout([]string{"first block", "line two"}, boxFace{}, BottomLeft, size)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	second, err := Layout([]string{"other", "block"}, boxFace{}, BottomLeft, size)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if !near(first[0].Y, second[0].Y) || !near(first[0].Y, 400-12.5) {
		t.Fatalf("first lines should share the bottom anchor: %v vs %v", first[0].Y, second[0].Y)
	}
	if first[1].Y >= first[0].Y || second[1].Y >= second[0].Y {
		t.Fatalf("second lines should sit above first lines")
	}
	// the shorter longest line autosizes larger, so its second line climbs higher
	if second[1].Y >= first[1].Y {
		t.Fatalf("expected larger scale to stack higher: %v >= %v", second[1].Y, first[1].Y)
	}
}

func TestNewCanvasNormalizesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 30, 20))
	src.SetRGBA(10, 10, color.RGBA{R: 255, A: 255})
	c := NewCanvas(src)
	if c.Bounds() != image.Rect(0, 0, 20, 10) {
		t.Fatalf("bounds = %v", c.Bounds())
	}
	if got := c.Image().NRGBAAt(0, 0); got.R != 255 || got.A != 255 {
		t.Fatalf("pixel not copied: %v", got)
	}
}
