package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/visaflow/docintake/internal/models"
	"github.com/visaflow/docintake/internal/ocr"
	"github.com/visaflow/docintake/internal/pdfutil"
)

// nativeTextConfidence is the transcript confidence for a text-native PDF:
// reading an embedded text layer involves no recognition uncertainty.
const nativeTextConfidence = 1.0

// defaultPageConcurrency bounds how many pages are OCR'd at once, to avoid
// overwhelming the OCR backend's rate limits.
const defaultPageConcurrency = 4

// PageTools is the PDF page utilities collaborator.
type PageTools interface {
	// PageCount returns the document's page count.
	PageCount(data []byte) (int, error)
	// ExtractPage returns the 1-based page as a standalone document unit.
	ExtractPage(data []byte, page int) ([]byte, error)
	// PlainText extracts the native text layer, "" when there is none.
	PlainText(data []byte) (string, error)
}

// StdPageTools implements PageTools with pdfcpu and ledongthuc/pdf.
type StdPageTools struct{}

func (StdPageTools) PageCount(data []byte) (int, error) { return pdfutil.PageCount(data) }

func (StdPageTools) ExtractPage(data []byte, page int) ([]byte, error) {
	return pdfutil.ExtractPage(data, page)
}

func (StdPageTools) PlainText(data []byte) (string, error) { return pdfutil.PlainText(data) }

// PageRecognizer is the single-unit engine contract the splitter drives.
// *Engine satisfies it.
type PageRecognizer interface {
	Recognize(ctx context.Context, data []byte) (models.Transcript, error)
}

// Splitter handles whole PDFs: it tries the cheap text-layer read first,
// and otherwise decomposes the document into independently OCR'd pages and
// reassembles the results in page order.
type Splitter struct {
	engine      PageRecognizer
	pages       PageTools
	concurrency int
	log         *slog.Logger
}

// NewSplitter returns a splitter over the given engine and page utilities.
func NewSplitter(engine PageRecognizer, pages PageTools, logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{
		engine:      engine,
		pages:       pages,
		concurrency: defaultPageConcurrency,
		log:         logger,
	}
}

type pageResult struct {
	transcript models.Transcript
	err        error
}

// Process produces one aggregate transcript for a whole PDF.
func (s *Splitter) Process(ctx context.Context, data []byte) (models.Transcript, error) {
	// Cheap path: a text-native PDF needs no splitting at all. This must be
	// attempted before any page-splitting cost is paid.
	text, err := s.pages.PlainText(data)
	if err != nil {
		s.log.Warn("Text layer read failed; treating document as scanned.", "error", err)
	} else if strings.TrimSpace(text) != "" {
		s.log.Info("Document has a native text layer; skipping page OCR.", "chars", len(text))
		return models.Transcript{Text: text, Confidence: nativeTextConfidence}, nil
	}

	pageCount, err := s.pages.PageCount(data)
	if err != nil {
		return models.Transcript{}, fmt.Errorf("reading page count: %w: %v", ocr.ErrCorruptInput, err)
	}
	if pageCount == 0 {
		return models.Transcript{}, ErrEmptyDocument
	}
	s.log.Info("Processing scanned document page by page.", "pageCount", pageCount)

	// Pages fan out through a bounded group; results land in an
	// index-addressed slice so output order is page order regardless of
	// completion order. A page failure is recorded, never propagated: it
	// must not cancel its siblings.
	results := make([]pageResult, pageCount)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)

	for i := 0; i < pageCount; i++ {
		idx := i
		page := i + 1
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[idx] = s.processPage(gctx, data, page)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		// Only cancellation surfaces here; per-page errors are in results.
		return models.Transcript{}, err
	}

	return s.reassemble(results, pageCount)
}

func (s *Splitter) processPage(ctx context.Context, data []byte, page int) pageResult {
	unit, err := s.pages.ExtractPage(data, page)
	if err != nil {
		s.log.Warn("Page extraction failed; skipping page.", "page", page, "error", err)
		return pageResult{err: err}
	}
	transcript, err := s.engine.Recognize(ctx, unit)
	if err != nil {
		s.log.Warn("Page OCR failed; skipping page.", "page", page, "error", err)
		return pageResult{err: err}
	}
	return pageResult{transcript: transcript}
}

// reassemble folds the per-page results into one transcript. Aggregate
// confidence averages only pages that produced non-empty text: a damaged
// page must not silently crater the whole document's reported confidence.
func (s *Splitter) reassemble(results []pageResult, pageCount int) (models.Transcript, error) {
	var (
		texts       []string
		pairs       []models.KeyValuePair
		sum         float64
		failedPages []int
	)
	for i, r := range results {
		if r.err != nil {
			failedPages = append(failedPages, i+1)
			continue
		}
		if r.transcript.Empty() {
			continue
		}
		texts = append(texts, r.transcript.Text)
		pairs = append(pairs, r.transcript.KeyValuePairs...)
		sum += r.transcript.Confidence
	}

	if len(failedPages) == pageCount {
		return models.Transcript{}, fmt.Errorf("all %d pages failed: %w", pageCount, ErrAllPagesFailed)
	}
	if len(failedPages) > 0 {
		s.log.Warn("Some pages failed; transcript is partial.", "failedPages", failedPages, "pageCount", pageCount)
	}
	if len(texts) == 0 {
		// Every surviving page was readable but empty; valid output.
		return models.Transcript{}, nil
	}

	return models.Transcript{
		Text:          strings.Join(texts, "\n"),
		Confidence:    sum / float64(len(texts)),
		KeyValuePairs: pairs,
	}, nil
}
