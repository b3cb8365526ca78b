// Package ocr defines the OCR backend contract used by the intake pipeline
// and the production implementations behind it: a local Tesseract text
// detector and a Gemini-backed form analyzer.
package ocr

import (
	"bytes"
	"context"
	"errors"
)

// Errors every backend implementation maps its provider failures onto.
// Callers distinguish these with errors.Is; each carries a different
// remediation for the uploading user.
var (
	ErrUnsupportedFormat = errors.New("unsupported input format")
	ErrDocumentTooLarge  = errors.New("document exceeds the processing size limit")
	ErrCorruptInput      = errors.New("input is corrupt or unreadable")
)

// Line is one detected line of text with its confidence in [0,1].
type Line struct {
	Text        string
	Confidence  float64
	BoundingBox Box
}

// Box is a detected region in pixel coordinates, origin top-left.
type Box struct {
	X, Y, Width, Height int
}

// BlockType discriminates the entities returned by form analysis.
type BlockType string

const (
	BlockLine  BlockType = "LINE"
	BlockKey   BlockType = "KEY"
	BlockValue BlockType = "VALUE"
)

// Block is one entity from structured form analysis. KEY blocks reference
// their associated VALUE blocks through ValueIDs; LINE blocks carry the
// reading-order text of the page.
type Block struct {
	ID         string
	Type       BlockType
	Text       string
	Confidence float64
	ValueIDs   []string
}

// TextDetector extracts line-level text from one page's worth of bytes.
type TextDetector interface {
	DetectText(ctx context.Context, data []byte) ([]Line, error)
}

// FormAnalyzer detects text blocks plus key/value form associations in one
// call. Implementations that cannot do form analysis return an error so the
// engine falls through to plain text detection.
type FormAnalyzer interface {
	AnalyzeForms(ctx context.Context, data []byte) ([]Block, error)
}

// Backend is the full OCR collaborator contract.
type Backend interface {
	TextDetector
	FormAnalyzer
}

// Client composes independent detector and analyzer implementations into
// one Backend, e.g. local Tesseract for text plus Gemini for forms.
type Client struct {
	TextDetector
	FormAnalyzer
}

// Compose returns a Backend built from the given parts.
func Compose(td TextDetector, fa FormAnalyzer) *Client {
	return &Client{TextDetector: td, FormAnalyzer: fa}
}

var (
	pdfMagic  = []byte("%PDF-")
	pngMagic  = []byte{0x89, 'P', 'N', 'G'}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	tiffLE    = []byte{'I', 'I', 0x2A, 0x00}
	tiffBE    = []byte{'M', 'M', 0x00, 0x2A}
)

// DetectMediaType sniffs the media type of raw input bytes. It recognizes
// only the formats the pipeline supports; anything else returns "".
func DetectMediaType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return "application/pdf"
	case bytes.HasPrefix(data, pngMagic):
		return "image/png"
	case bytes.HasPrefix(data, jpegMagic):
		return "image/jpeg"
	case bytes.HasPrefix(data, tiffLE), bytes.HasPrefix(data, tiffBE):
		return "image/tiff"
	default:
		return ""
	}
}
