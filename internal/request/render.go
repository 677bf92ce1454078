/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package request

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bookcover/internal/export"
	applog "bookcover/internal/log"
	"bookcover/internal/overlay"
)

// Options selects the output encoding.
type Options struct {
	Format export.Format
	PDF    export.PDFOptions
}

// Result is an encoded cover plus what is worth recording about it.
type Result struct {
	Data         []byte
	Format       export.Format
	SourceFormat string
	Width        int
	Height       int
	Blocks       int
	Elapsed      time.Duration
}

// Render decodes img, draws every block of r onto it in order and encodes
// the result. The canvas is private to this call.
func Render(ctx context.Context, r CoverRequest, img []byte, fonts FontSource, opt Options) (Result, error) {
	l := applog.WithOperation(applog.WithComponent("request"), "render")
	start := time.Now()

	src, srcFormat, err := export.Decode(img)
	if err != nil {
		return Result{}, err
	}
	blocks, err := Blocks(r, fonts)
	if err != nil {
		return Result{}, err
	}
	canvas := overlay.NewCanvas(src)
	for i, b := range blocks {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := canvas.PutText(b); err != nil {
			return Result{}, fmt.Errorf("block %d: %w", i, err)
		}
	}

	if opt.PDF.Title == "" {
		opt.PDF.Title = r.Title
	}
	if opt.PDF.Author == "" {
		opt.PDF.Author = r.Author
	}
	data, err := export.Encode(canvas.Image(), opt.Format, opt.PDF)
	if err != nil {
		return Result{}, err
	}
	format := opt.Format
	if format == "" {
		format = export.FormatPNG
	}
	res := Result{
		Data:         data,
		Format:       format,
		SourceFormat: srcFormat,
		Width:        canvas.Bounds().Dx(),
		Height:       canvas.Bounds().Dy(),
		Blocks:       len(blocks),
		Elapsed:      time.Since(start),
	}
	l.Info("cover rendered",
		slog.String("format", string(res.Format)),
		slog.String("source", res.SourceFormat),
		slog.Int("width", res.Width),
		slog.Int("height", res.Height),
		slog.Int("blocks", res.Blocks),
		slog.Duration("elapsed", res.Elapsed))
	return res, nil
}
