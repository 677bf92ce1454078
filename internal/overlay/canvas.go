/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	applog "bookcover/internal/log"
)

// Canvas owns the pixel buffer that text blocks are composited into.
// It is mutated in place and never resized. A Canvas is not safe for
// concurrent use; blocks must be applied in order.
type Canvas struct {
	img *image.NRGBA
}

// NewCanvas takes ownership of src. An *image.NRGBA anchored at the origin is
// used as is; any other image is converted once.
func NewCanvas(src image.Image) *Canvas {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return &Canvas{img: n}
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return &Canvas{img: dst}
}

// Bounds is always anchored at the origin.
func (c *Canvas) Bounds() image.Rectangle { return c.img.Rect }

// Image returns the underlying buffer for encoding.
func (c *Canvas) Image() *image.NRGBA { return c.img }

// PutText lays out every line of b, then rasterizes and blends them in line
// order. Each write is visible to later glyphs, lines and blocks. A layout
// error leaves the canvas untouched.
func (c *Canvas) PutText(b TextBlock) error {
	l := applog.WithOperation(applog.WithComponent("overlay"), "put_text")
	if b.Face == nil {
		return ErrNilFace
	}
	bounds := c.img.Rect
	placements, err := Layout(b.Lines, b.Face, b.Position, bounds.Size())
	if err != nil {
		return fmt.Errorf("layout %s: %w", b.Position, err)
	}
	alpha := clampAlpha(b.Alpha)
	written := 0
	for _, p := range placements {
		RasterizeLine(b.Face, p, b.Offset, bounds, func(s Sample) {
			i := c.img.PixOffset(s.X, s.Y)
			px := c.img.Pix[i : i+4 : i+4]
			out := Blend(b.Blend, color4(px), b.Color, alpha, s.Coverage)
			px[0], px[1], px[2], px[3] = out.R, out.G, out.B, out.A
			written++
		})
		l.Debug("line placed",
			slog.String("text", p.Text),
			slog.Float64("x", p.X),
			slog.Float64("y", p.Y),
			slog.Float64("scale", p.Scale))
	}
	l.Debug("block composited",
		slog.String("position", b.Position.String()),
		slog.String("blend", b.Blend.String()),
		slog.Int("lines", len(placements)),
		slog.Int("samples", written))
	return nil
}

func color4(px []uint8) color.NRGBA {
	return color.NRGBA{R: px[0], G: px[1], B: px[2], A: px[3]}
}
