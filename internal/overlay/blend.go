/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"image/color"
	"math"
)

// Blend composites c over dst with strength alpha*coverage and returns an
// opaque pixel. Channel arithmetic is single precision and truncates.
func Blend(mode BlendMode, dst color.NRGBA, c Color, alpha, coverage float64) color.NRGBA {
	a := float32(alpha) * float32(coverage)
	ch := func(d, s uint8) uint8 {
		src := float32(s)
		if mode == BlendOverlay {
			src = overlayChannel(float32(d), src)
		}
		return toByte(float32(d)*(1-a) + src*a)
	}
	return color.NRGBA{R: ch(dst.R, c.R), G: ch(dst.G, c.G), B: ch(dst.B, c.B), A: 0xff}
}

// overlayChannel multiplies dark destinations and screens light ones.
func overlayChannel(d, s float32) float32 {
	if d < 128 {
		return 2 * d * s / 255
	}
	return 255 - 2*(255-d)*(255-s)/255
}

func toByte(v float32) uint8 {
	switch {
	case v != v, v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

// clampAlpha maps alpha into [0,1]; NaN becomes 0.
func clampAlpha(a float64) float64 {
	if math.IsNaN(a) || a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}
