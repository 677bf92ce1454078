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

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Layout constants in pixels. The top padding grows by padTopStep after every
// placed line, in addition to the ascent of that line.
const (
	padLeft        = 25
	padTopStart    = 25
	padTopStep     = 35
	topCenterStart = 20

	topCenterScale   = 24
	bottomSidesScale = 56
)

// Placement is the computed geometry of one line: the baseline origin of its
// first glyph and the uniform scale it is drawn at. Text is the final text,
// after any case transform.
type Placement struct {
	Text  string
	X, Y  float64
	Scale float64
}

// strategy is implemented once per Position.
type strategy interface {
	place(lines []string, face Face, size image.Point) ([]Placement, error)
}

func (p Position) strategy() (strategy, error) {
	switch p {
	case TopCenter:
		return topCenter{}, nil
	case BottomStretch:
		return bottomStretch{}, nil
	case BottomSides:
		return bottomSides{}, nil
	case BottomLeft:
		return bottomLeft{}, nil
	case BottomCenter:
		return bottomCenter{}, nil
	}
	return nil, fmt.Errorf("unknown position %d", int(p))
}

// Layout computes one Placement per line for a canvas of the given size.
// No placement is returned when any line fails, so callers can lay out a
// whole block before touching pixels.
func Layout(lines []string, face Face, pos Position, size image.Point) ([]Placement, error) {
	if face == nil {
		return nil, ErrNilFace
	}
	if len(lines) == 0 {
		return nil, nil
	}
	s, err := pos.strategy()
	if err != nil {
		return nil, err
	}
	return s.place(lines, face, size)
}

// stack is the vertical cursor shared by all strategies.
type stack struct {
	height float64
	padTop int
}

func newStack(start float64) stack { return stack{height: start, padTop: padTopStart} }

// fromTop is the baseline of the next line growing downward from the top edge.
func (s *stack) fromTop() float64 { return s.height + float64(s.padTop)/2 }

// fromBottom is the baseline of the next line growing upward from the bottom edge.
func (s *stack) fromBottom(imgHeight int) float64 {
	return float64(imgHeight) - s.height - float64(s.padTop)/2
}

// next accounts for a placed line drawn at scale.
func (s *stack) next(face Face, scale float64) {
	s.height += face.Ascent(scale)
	s.padTop += padTopStep
}

func upper(s string) string { return cases.Upper(language.Und).String(s) }

func centered(width int, text string, face Face, scale float64) float64 {
	return float64(width)/2 - float64(LineWidth(text, face, scale))/2
}

type topCenter struct{}

func (topCenter) place(lines []string, face Face, size image.Point) ([]Placement, error) {
	st := newStack(topCenterStart)
	out := make([]Placement, 0, len(lines))
	for _, text := range lines {
		out = append(out, Placement{
			Text:  text,
			X:     centered(size.X, text, face, topCenterScale),
			Y:     st.fromTop(),
			Scale: topCenterScale,
		})
		st.next(face, topCenterScale)
	}
	return out, nil
}

// bottomStretch autosizes every line independently to the padded image width.
type bottomStretch struct{}

func (bottomStretch) place(lines []string, face Face, size image.Point) ([]Placement, error) {
	st := newStack(0)
	out := make([]Placement, 0, len(lines))
	for i, text := range lines {
		text = upper(text)
		scale, err := AutosizeScale(size.X-padLeft, text, face)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		out = append(out, Placement{Text: text, X: padLeft / 2.0, Y: st.fromBottom(size.Y), Scale: scale})
		st.next(face, scale)
	}
	return out, nil
}

// bottomSides alternates left and right anchors, starting on the left.
type bottomSides struct{}

func (bottomSides) place(lines []string, face Face, size image.Point) ([]Placement, error) {
	st := newStack(0)
	out := make([]Placement, 0, len(lines))
	left := true
	for _, text := range lines {
		text = upper(text)
		x := padLeft / 2.0
		if !left {
			x = float64(size.X) - padLeft/2.0 - float64(LineWidth(text, face, bottomSidesScale))
		}
		out = append(out, Placement{Text: text, X: x, Y: st.fromBottom(size.Y), Scale: bottomSidesScale})
		st.next(face, bottomSidesScale)
		left = !left
	}
	return out, nil
}

// sharedScale autosizes the longest line (by grapheme count) to the padded
// image width. The longest line is measured as given, before upper-casing.
func sharedScale(lines []string, face Face, size image.Point) (float64, error) {
	return AutosizeScale(size.X-padLeft, longestLine(lines), face)
}

type bottomLeft struct{}

func (bottomLeft) place(lines []string, face Face, size image.Point) ([]Placement, error) {
	scale, err := sharedScale(lines, face, size)
	if err != nil {
		return nil, err
	}
	st := newStack(0)
	out := make([]Placement, 0, len(lines))
	for _, text := range lines {
		out = append(out, Placement{Text: upper(text), X: padLeft / 2.0, Y: st.fromBottom(size.Y), Scale: scale})
		st.next(face, scale)
	}
	return out, nil
}

type bottomCenter struct{}

func (bottomCenter) place(lines []string, face Face, size image.Point) ([]Placement, error) {
	scale, err := sharedScale(lines, face, size)
	if err != nil {
		return nil, err
	}
	st := newStack(0)
	out := make([]Placement, 0, len(lines))
	for _, text := range lines {
		text = upper(text)
		out = append(out, Placement{Text: text, X: centered(size.X, text, face, scale), Y: st.fromBottom(size.Y), Scale: scale})
		st.next(face, scale)
	}
	return out, nil
}
