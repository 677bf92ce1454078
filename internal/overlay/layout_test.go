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
	"image"
	"testing"
)

var canvas500x800 = image.Point{X: 500, Y: 800}

func TestTopCenterStacksDownward(t *testing.T) {
	ps, err := Layout([]string{"ab", "abcd"}, boxFace{}, TopCenter, canvas500x800)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if ps[0].Text != "ab" || ps[0].Scale != 24 {
		t.Fatalf("first placement = %+v", ps[0])
	}
	// width of "ab" at 24 is 24px, so x = 250 - 12
	if !near(ps[0].X, 238) || !near(ps[0].Y, 20+12.5) {
		t.Fatalf("first placement = %+v, want x=238 y=32.5", ps[0])
	}
	// cursor grows by the ascent of line 0 (19.2) and padding by 35
	if !near(ps[1].X, 226) || !near(ps[1].Y, 20+19.2+30) {
		t.Fatalf("second placement = %+v, want x=226 y=69.2", ps[1])
	}
}

func TestBottomStretchAutosizesEachLineUppercased(t *testing.T) {
	ps, err := Layout([]string{"ab", "abcde"}, boxFace{}, BottomStretch, canvas500x800)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if ps[0].Text != "AB" || ps[1].Text != "ABCDE" {
		t.Fatalf("expected uppercase text, got %q %q", ps[0].Text, ps[1].Text)
	}
	if !near(ps[0].Scale, 475) || !near(ps[1].Scale, 190) {
		t.Fatalf("scales = %v %v, want 475 190", ps[0].Scale, ps[1].Scale)
	}
	if !near(ps[0].X, 12.5) || !near(ps[0].Y, 800-12.5) {
		t.Fatalf("first placement = %+v", ps[0])
	}
	if want := 800 - 0.8*475 - 30; !near(ps[1].Y, want) {
		t.Fatalf("second y = %v, want %v", ps[1].Y, want)
	}
}

func TestBottomSidesAlternatesStartingLeft(t *testing.T) {
	lines := []string{"one", "two words", "three", "four"}
	ps, err := Layout(lines, boxFace{}, BottomSides, canvas500x800)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(ps) != 4 {
		t.Fatalf("got %d placements", len(ps))
	}
	for i, p := range ps {
		if p.Scale != 56 {
			t.Fatalf("line %d scale = %v, want 56", i, p.Scale)
		}
		if i%2 == 0 {
			if !near(p.X, 12.5) {
				t.Fatalf("line %d should be left anchored, x = %v", i, p.X)
			}
			continue
		}
		want := 500 - 12.5 - float64(LineWidth(p.Text, boxFace{}, 56))
		if !near(p.X, want) {
			t.Fatalf("line %d should be right anchored at %v, x = %v", i, want, p.X)
		}
	}
	for i := 1; i < len(ps); i++ {
		if ps[i].Y >= ps[i-1].Y {
			t.Fatalf("line %d (y=%v) is not above line %d (y=%v)", i, ps[i].Y, i-1, ps[i-1].Y)
		}
	}
}

func TestBottomLeftSharesScaleOfLongestLine(t *testing.T) {
	ps, err := Layout([]string{"ab", "abcd", "a"}, boxFace{}, BottomLeft, canvas500x800)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	for i, p := range ps {
		if !near(p.Scale, 475.0/2) || !near(p.X, 12.5) {
			t.Fatalf("line %d = %+v, want scale 237.5 at x 12.5", i, p)
		}
	}
	if ps[2].Text != "A" {
		t.Fatalf("expected uppercase, got %q", ps[2].Text)
	}
}

func TestBottomCenterCentersEachLine(t *testing.T) {
	ps, err := Layout([]string{"abcd", "ab"}, boxFace{}, BottomCenter, canvas500x800)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	scale := 475.0 / 2
	for i, p := range ps {
		want := 250 - float64(LineWidth(p.Text, boxFace{}, scale))/2
		if !near(p.X, want) || !near(p.Scale, scale) {
			t.Fatalf("line %d = %+v, want x %v scale %v", i, p, want, scale)
		}
	}
	if ps[1].X <= ps[0].X {
		t.Fatalf("shorter line should start further right: %v <= %v", ps[1].X, ps[0].X)
	}
}

func TestLayoutRejectsDegenerateLines(t *testing.T) {
	for _, pos := range []Position{BottomStretch, BottomLeft, BottomCenter} {
		_, err := Layout([]string{""}, boxFace{}, pos, canvas500x800)
		if !errors.Is(err, ErrDegenerateInput) {
			t.Fatalf("%s: err = %v, want ErrDegenerateInput", pos, err)
		}
	}
	// narrower than the left padding
	if _, err := Layout([]string{"abc"}, boxFace{}, BottomStretch, image.Point{X: 20, Y: 20}); !errors.Is(err, ErrDegenerateInput) {
		t.Fatalf("narrow canvas: err = %v, want ErrDegenerateInput", err)
	}
	// fixed-scale strategies accept empty lines
	if _, err := Layout([]string{"", "x"}, boxFace{}, BottomSides, canvas500x800); err != nil {
		t.Fatalf("BottomSides with empty line: %v", err)
	}
}

func TestLayoutEmptyBlockAndNilFace(t *testing.T) {
	ps, err := Layout(nil, boxFace{}, BottomLeft, canvas500x800)
	if err != nil || len(ps) != 0 {
		t.Fatalf("empty block: %v %v", ps, err)
	}
	if _, err := Layout([]string{"a"}, nil, TopCenter, canvas500x800); !errors.Is(err, ErrNilFace) {
		t.Fatalf("nil face: err = %v", err)
	}
	if _, err := Layout([]string{"a"}, boxFace{}, Position(42), canvas500x800); err == nil {
		t.Fatalf("expected error for unknown position")
	}
}

func TestParsePositionAcceptsBothSpellings(t *testing.T) {
	for in, want := range map[string]Position{
		"top_center":      TopCenter,
		"BottomSides":     BottomSides,
		"bottom-left":     BottomLeft,
		" BOTTOM_CENTER ": BottomCenter,
		"bottomstretch":   BottomStretch,
	} {
		got, err := ParsePosition(in)
		if err != nil || got != want {
			t.Fatalf("ParsePosition(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParsePosition("middle"); err == nil {
		t.Fatalf("expected error for unknown position")
	}
	var m BlendMode
	if err := m.UnmarshalText([]byte("Overlay")); err != nil || m != BlendOverlay {
		t.Fatalf("UnmarshalText(Overlay) = %v, %v", m, err)
	}
}
