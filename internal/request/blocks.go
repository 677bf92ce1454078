/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package request

import (
	"fmt"
	"strings"

	"bookcover/internal/overlay"
	"bookcover/internal/textlayout"
)

// FontSource resolves a font name to a face.
type FontSource interface {
	Face(name string) (overlay.Face, error)
}

// Blocks converts r into the text blocks to draw, in drawing order: the
// author line first, then the wrapped title. Bottom-anchored titles are
// reversed because those strategies stack upward from the bottom edge, so
// the first wrapped line ends up on top. Blank author or title yields no
// block.
func Blocks(r CoverRequest, fonts FontSource) ([]overlay.TextBlock, error) {
	col, err := ParseColor(r.Color)
	if err != nil {
		return nil, err
	}
	alpha := r.EffectiveAlpha()
	var out []overlay.TextBlock

	if author := strings.TrimSpace(r.Author); author != "" {
		face, err := fonts.Face(r.AuthorFont)
		if err != nil {
			return nil, fmt.Errorf("author font: %w", err)
		}
		out = append(out, overlay.TextBlock{
			Lines:    []string{author},
			Color:    col,
			Alpha:    alpha,
			Face:     face,
			Position: r.AuthorPosition,
			Blend:    r.Blend,
		})
	}

	if lines := textlayout.Wrap(r.Title, r.LineLength); len(lines) > 0 {
		face, err := fonts.Face(r.TitleFont)
		if err != nil {
			return nil, fmt.Errorf("title font: %w", err)
		}
		if r.TitlePosition.BottomAnchored() {
			lines = textlayout.Reversed(lines)
		}
		out = append(out, overlay.TextBlock{
			Lines:    lines,
			Color:    col,
			Alpha:    alpha,
			Face:     face,
			Position: r.TitlePosition,
			Blend:    r.Blend,
		})
	}
	return out, nil
}
