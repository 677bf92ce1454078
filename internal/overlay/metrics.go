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

	"github.com/rivo/uniseg"
)

// Face is the font resource the engine measures and rasterizes with.
//
// Scale is the pixel height of the font's ascent-to-descent box, applied
// uniformly to both axes. Glyph returns a coverage mask whose rectangle is the
// glyph's pixel bounding box in canvas coordinates for a glyph whose origin
// (baseline start) is dot; ok is false when the glyph has no outline.
type Face interface {
	Advance(r rune, scale float64) float64
	Ascent(scale float64) float64
	Glyph(r rune, scale float64, dot Point) (mask *image.Alpha, ok bool)
}

func lineAdvance(text string, face Face, scale float64) float64 {
	var w float64
	for _, r := range text {
		w += face.Advance(r, scale)
	}
	return w
}

// LineWidth sums the horizontal advance of every rune at scale, truncated to whole pixels.
func LineWidth(text string, face Face, scale float64) int {
	return int(lineAdvance(text, face, scale))
}

// AutosizeScale returns the uniform scale at which text advances target pixels.
// Zero-advance text or a non-positive target is rejected with ErrDegenerateInput.
func AutosizeScale(target int, text string, face Face) (float64, error) {
	if target <= 0 {
		return 0, fmt.Errorf("autosize to %dpx: %w", target, ErrDegenerateInput)
	}
	unit := lineAdvance(text, face, 1)
	if !(unit > 0) {
		return 0, fmt.Errorf("autosize %q: zero advance: %w", text, ErrDegenerateInput)
	}
	return float64(target) / unit, nil
}

// longestLine returns the first line with the most grapheme clusters.
func longestLine(lines []string) string {
	var longest string
	n := 0
	for _, s := range lines {
		if c := uniseg.GraphemeClusterCount(s); c > n {
			longest, n = s, c
		}
	}
	return longest
}
