/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import "image"

// Sample is the coverage of one canvas pixel by one glyph.
type Sample struct {
	X, Y     int
	Coverage float64 // [0,1]
}

// RasterizeLine lays the placed line out glyph by glyph along its baseline and
// calls fn for every pixel of every glyph bounding box, in glyph order and
// row-major order within a glyph. Samples outside clip are dropped.
func RasterizeLine(face Face, p Placement, offset image.Point, clip image.Rectangle, fn func(Sample)) {
	caret := p.X
	for _, r := range p.Text {
		mask, ok := face.Glyph(r, p.Scale, Point{X: caret, Y: p.Y})
		caret += face.Advance(r, p.Scale)
		if !ok || mask.Rect.Empty() {
			continue
		}
		b := mask.Rect
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				at := image.Point{X: x + offset.X, Y: y + offset.Y}
				if !at.In(clip) {
					continue
				}
				fn(Sample{X: at.X, Y: at.Y, Coverage: float64(mask.AlphaAt(x, y).A) / 0xff})
			}
		}
	}
}
