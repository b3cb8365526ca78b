// Package pdfutil wraps the PDF page operations the intake pipeline needs:
// page counting, single-page extraction, text-layer reads, and pulling the
// embedded rasters out of scanned pages. All operations work on in-memory
// byte slices; nothing touches the filesystem.
package pdfutil

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pdfHeader = []byte("%PDF-")

// IsPDF reports whether data starts with a PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfHeader)
}

// relaxedConf returns a pdfcpu configuration tolerant of the slightly
// malformed files scanners tend to produce.
func relaxedConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages in the document.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), relaxedConf())
	if err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}
	return n, nil
}

// ExtractPage returns the 1-based page as a standalone single-page PDF.
func ExtractPage(data []byte, page int) ([]byte, error) {
	if page < 1 {
		return nil, fmt.Errorf("invalid page number %d", page)
	}
	var buf bytes.Buffer
	sel := []string{strconv.Itoa(page)}
	if err := api.Trim(bytes.NewReader(data), &buf, sel, relaxedConf()); err != nil {
		return nil, fmt.Errorf("failed to extract page %d: %w", page, err)
	}
	return buf.Bytes(), nil
}

// PlainText extracts the document's native text layer, if any. A scanned
// document typically yields an empty string here, which is the signal to
// fall back to per-page OCR.
func PlainText(data []byte) (text string, err error) {
	// ledongthuc/pdf panics on some malformed inputs; contain that here so
	// callers see an ordinary error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("text extraction panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF for text extraction: %w", err)
	}
	r, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract text layer: %w", err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted text: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// EmbeddedImages returns the raster images embedded in the document, in
// page order and object order within a page. For a scanned page unit this
// is normally a single full-page image.
func EmbeddedImages(data []byte) ([][]byte, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), relaxedConf())
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for image extraction: %w", err)
	}

	var images [][]byte
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pageImages, err := pdfcpu.ExtractPageImages(ctx, pageNr, false)
		if err != nil {
			return nil, fmt.Errorf("failed to extract images from page %d: %w", pageNr, err)
		}
		objNrs := make([]int, 0, len(pageImages))
		for objNr := range pageImages {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)
		for _, objNr := range objNrs {
			img := pageImages[objNr]
			raw, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("failed to read image object %d on page %d: %w", objNr, pageNr, err)
			}
			images = append(images, raw)
		}
	}
	return images, nil
}
