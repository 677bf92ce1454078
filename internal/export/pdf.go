/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"

	"github.com/jung-kurt/gofpdf"

	"bookcover/internal/version"
)

// PDFOptions controls PDF export behavior.
// The page is exactly the image: DPI maps pixels to points (1pt = 1/72").
// A zero DPI means 72, i.e. one point per pixel.
type PDFOptions struct {
	DPI    float64
	Title  string
	Author string
}

// EncodePDF embeds img as a PNG covering a single page of matching size.
func EncodePDF(img image.Image, opt PDFOptions) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: pdf: empty image", ErrEncode)
	}
	raw, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = 72
	}
	w := float64(b.Dx()) * 72 / dpi
	h := float64(b.Dy()) * 72 / dpi

	// Use points for 1:1 mapping from pixels to PDF at 72 dpi
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	pdf.SetCreator("bookcover "+version.String(), false)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: w, Ht: h})

	iopt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("cover", iopt, bytes.NewReader(raw))
	pdf.ImageOptions("cover", 0, 0, w, h, false, iopt, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("%w: pdf: %v", ErrEncode, err)
	}
	return out.Bytes(), nil
}
