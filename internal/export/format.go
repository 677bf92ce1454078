/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export moves cover images in and out of byte form: decoding the
// source image, encoding the finished canvas as PNG or a single-page PDF,
// and the base64 wrapping used by string-only callers.
package export

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

var (
	// ErrDecode marks source bytes that are not a supported image.
	ErrDecode = errors.New("decode image")
	// ErrEncode marks a failure to produce output bytes.
	ErrEncode = errors.New("encode image")
)

// Format is an output format.
type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts "png" or "pdf" in any case; empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// Encode writes img in format f.
func Encode(img image.Image, f Format, opt PDFOptions) ([]byte, error) {
	switch f {
	case FormatPNG, "":
		return EncodePNG(img)
	case FormatPDF:
		return EncodePDF(img, opt)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrEncode, f)
	}
}
