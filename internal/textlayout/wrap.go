/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout prepares text for the overlay engine: it resolves font
// names to faces and breaks raw text into lines.
package textlayout

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Wrap breaks text into lines of at most width grapheme clusters. Words are
// separated by any whitespace and joined with a single space; a word longer
// than width is split across lines. A non-positive width returns the
// whitespace-normalized text as a single line.
func Wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			lines = append(lines, cur.String())
		}
		cur.Reset()
		curLen = 0
	}
	for _, w := range words {
		n := uniseg.GraphemeClusterCount(w)
		if curLen > 0 && curLen+1+n <= width {
			cur.WriteByte(' ')
			cur.WriteString(w)
			curLen += 1 + n
			continue
		}
		flush()
		for n > width {
			head, rest := splitGraphemes(w, width)
			lines = append(lines, head)
			w, n = rest, n-width
		}
		cur.WriteString(w)
		curLen = n
	}
	flush()
	return lines
}

// splitGraphemes cuts s after its first n grapheme clusters.
func splitGraphemes(s string, n int) (string, string) {
	g := uniseg.NewGraphemes(s)
	end := 0
	for i := 0; i < n && g.Next(); i++ {
		_, end = g.Positions()
	}
	return s[:end], s[end:]
}

// Reversed returns a copy of lines in reverse order.
func Reversed(lines []string) []string {
	out := make([]string, len(lines))
	for i, s := range lines {
		out[len(lines)-1-i] = s
	}
	return out
}
