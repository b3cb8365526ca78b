package intake

import "strings"

// Kind is the processing path a document's declared media type selects.
type Kind int

const (
	// KindRasterImage routes straight to the single-unit OCR engine.
	KindRasterImage Kind = iota
	// KindPDF routes to the splitter; whether the PDF is text-native or a
	// raster scan is determined empirically there, not here, because the
	// declared type cannot reveal it.
	KindPDF
)

// supportedMediaTypes is the fixed allow-list. Everything else fails fast
// before any download or OCR cost is spent.
var supportedMediaTypes = map[string]Kind{
	"application/pdf": KindPDF,
	"image/jpeg":      KindRasterImage,
	"image/jpg":       KindRasterImage,
	"image/png":       KindRasterImage,
	"image/tiff":      KindRasterImage,
	"image/tif":       KindRasterImage,
}

// Classify maps a declared media type to its processing path. Matching is
// case-insensitive and ignores media type parameters such as "; charset=".
func Classify(mediaType string) (Kind, error) {
	normalized, _, _ := strings.Cut(mediaType, ";")
	normalized = strings.ToLower(strings.TrimSpace(normalized))
	kind, ok := supportedMediaTypes[normalized]
	if !ok {
		return 0, &UnsupportedFormatError{MediaType: mediaType}
	}
	return kind, nil
}
