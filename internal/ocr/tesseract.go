package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/visaflow/docintake/internal/pdfutil"
)

// DefaultMaxInputBytes bounds what a single DetectText call will accept.
// Larger inputs must be split by the caller before submission.
const DefaultMaxInputBytes = 10 * 1024 * 1024

// TesseractDetector implements TextDetector with a local Tesseract engine.
// Raster images are recognized directly; single-page PDF units have their
// embedded page rasters pulled out first, since Tesseract only reads images.
//
// Tesseract must be installed on the host (apt-get install tesseract-ocr).
type TesseractDetector struct {
	// Language is a "+"-separated Tesseract language list, e.g. "eng+fra".
	Language string
	// MaxInputBytes is the synchronous size ceiling; zero means
	// DefaultMaxInputBytes.
	MaxInputBytes int64
}

// NewTesseractDetector returns a detector with English defaults.
func NewTesseractDetector() *TesseractDetector {
	return &TesseractDetector{Language: "eng", MaxInputBytes: DefaultMaxInputBytes}
}

// DetectText runs line-level recognition over one unit's bytes.
func (d *TesseractDetector) DetectText(ctx context.Context, data []byte) ([]Line, error) {
	limit := d.MaxInputBytes
	if limit <= 0 {
		limit = DefaultMaxInputBytes
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("input is %d bytes, limit %d: %w", len(data), limit, ErrDocumentTooLarge)
	}

	mediaType := DetectMediaType(data)
	if mediaType == "" {
		return nil, fmt.Errorf("unrecognized input bytes: %w", ErrUnsupportedFormat)
	}

	if mediaType == "application/pdf" {
		return d.detectInPDF(ctx, data)
	}
	return d.recognizeImage(ctx, data)
}

// detectInPDF extracts the embedded raster of each page and recognizes them
// in page order. A scanned page unit is expected to carry exactly one image.
func (d *TesseractDetector) detectInPDF(ctx context.Context, data []byte) ([]Line, error) {
	images, err := pdfutil.EmbeddedImages(data)
	if err != nil {
		return nil, fmt.Errorf("extracting page rasters: %w: %v", ErrCorruptInput, err)
	}
	if len(images) == 0 {
		// A PDF with neither a text layer nor images has nothing to read.
		return nil, nil
	}

	var lines []Line
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageLines, err := d.recognizeImage(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("raster %d of %d: %w", i+1, len(images), err)
		}
		lines = append(lines, pageLines...)
	}
	return lines, nil
}

func (d *TesseractDetector) recognizeImage(ctx context.Context, data []byte) ([]Line, error) {
	// gosseract clients are not safe for concurrent use; one per call keeps
	// parallel page fan-out simple.
	client := gosseract.NewClient()
	defer client.Close()

	if d.Language != "" {
		if err := client.SetLanguage(strings.Split(d.Language, "+")...); err != nil {
			return nil, fmt.Errorf("setting tesseract language %q: %w", d.Language, err)
		}
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("loading image into tesseract: %w: %v", ErrCorruptInput, err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("tesseract recognition: %w: %v", ErrCorruptInput, err)
	}

	lines := make([]Line, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		lines = append(lines, Line{
			Text:       text,
			Confidence: b.Confidence / 100,
			BoundingBox: Box{
				X:      b.Box.Min.X,
				Y:      b.Box.Min.Y,
				Width:  b.Box.Dx(),
				Height: b.Box.Dy(),
			},
		})
	}
	slog.Debug("Tesseract recognition complete.", "lineCount", len(lines))
	return lines, nil
}
