/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"image"
	"image/color"
	"math"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

// boxFace advances every rune by half the scale and draws it as a solid box
// from the ascent line down to the baseline.
type boxFace struct{}

func (boxFace) Advance(r rune, scale float64) float64 {
	if r == ' ' {
		return 0
	}
	return scale / 2
}

func (boxFace) Ascent(scale float64) float64 { return 0.8 * scale }

func (f boxFace) Glyph(r rune, scale float64, dot Point) (*image.Alpha, bool) {
	w := f.Advance(r, scale)
	if w == 0 {
		return nil, false
	}
	rect := image.Rect(
		int(math.Floor(dot.X)), int(math.Floor(dot.Y-f.Ascent(scale))),
		int(math.Ceil(dot.X+w)), int(math.Ceil(dot.Y)),
	)
	m := image.NewAlpha(rect)
	for i := range m.Pix {
		m.Pix[i] = 0xff
	}
	return m, true
}

func goRegular(t *testing.T) *Font {
	t.Helper()
	f, err := ParseFont(goregular.TTF)
	if err != nil {
		t.Fatalf("parse goregular: %v", err)
	}
	return f
}

func filled(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
