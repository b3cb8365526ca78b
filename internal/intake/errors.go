package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/visaflow/docintake/internal/ocr"
)

// Pipeline-level errors. Backend-level errors (unsupported format, too
// large, corrupt input) are defined in the ocr package and pass through
// unchanged.
var (
	// ErrEmptyDocument indicates a PDF with zero pages.
	ErrEmptyDocument = errors.New("document contains no pages")

	// ErrAllPagesFailed indicates every page of a scanned document failed
	// extraction.
	ErrAllPagesFailed = errors.New("every page failed text extraction")
)

// UnsupportedFormatError carries the offending media type so the failure
// message can name it.
type UnsupportedFormatError struct {
	MediaType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported media type %q", e.MediaType)
}

func (e *UnsupportedFormatError) Unwrap() error { return ocr.ErrUnsupportedFormat }

// UserMessage maps a pipeline error to the message stored on the failed
// document, worded for the uploading user. Remediation differs per cause,
// so these must stay distinct rather than collapsing into one generic
// failure string.
func UserMessage(err error) string {
	var ufe *UnsupportedFormatError
	switch {
	case errors.As(err, &ufe):
		return fmt.Sprintf("The file type %q is not supported. Please upload a PDF, JPEG, PNG or TIFF file.", ufe.MediaType)
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return "The file format is not supported. Please convert the document to PDF, JPEG, PNG or TIFF and upload it again."
	case errors.Is(err, ocr.ErrDocumentTooLarge):
		return "The document is too large to process. Please split it into smaller files or compress it and upload again."
	case errors.Is(err, ocr.ErrCorruptInput):
		return "The document could not be read. Please re-scan or re-export the original and upload it again."
	case errors.Is(err, ErrEmptyDocument):
		return "The document contains no pages. Please check the file and upload it again."
	case errors.Is(err, ErrAllPagesFailed):
		return "No readable text was found on any page. Please upload a clearer scan of the document."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Processing was cancelled before it could finish."
	default:
		return fmt.Sprintf("Processing failed: %v", err)
	}
}
