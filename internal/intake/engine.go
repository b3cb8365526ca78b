package intake

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/visaflow/docintake/internal/models"
	"github.com/visaflow/docintake/internal/ocr"
)

// formAnalysisConfidence is the transcript confidence assigned when
// structured form analysis succeeds. Structured analysis is materially more
// reliable when it succeeds at all, so the value is a fixed high constant
// rather than an aggregate of per-entity confidences.
const formAnalysisConfidence = 0.9

// Engine turns one unit's bytes (a whole raster image or a single-page PDF)
// into a Transcript, trying structured form analysis first and falling back
// to plain text detection.
type Engine struct {
	backend ocr.Backend
	log     *slog.Logger
}

// NewEngine returns an engine over the given OCR backend.
func NewEngine(backend ocr.Backend, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{backend: backend, log: logger}
}

// Recognize runs the strategy chain in order until one applies. A strategy
// error means "try the next"; only when the chain is exhausted does the last
// error surface. A readable-but-empty result is valid output, not an error:
// the caller decides whether "nothing readable found" is fatal.
func (e *Engine) Recognize(ctx context.Context, data []byte) (models.Transcript, error) {
	strategies := []struct {
		name string
		run  func(context.Context, []byte) (models.Transcript, bool, error)
	}{
		{"form_analysis", e.analyzeForms},
		{"text_detection", e.detectText},
	}

	var lastErr error
	for _, s := range strategies {
		transcript, applied, err := s.run(ctx, data)
		if err != nil {
			lastErr = err
			e.log.Warn("OCR strategy failed, trying next.", "strategy", s.name, "error", err)
			continue
		}
		if !applied {
			e.log.Debug("OCR strategy did not apply.", "strategy", s.name)
			continue
		}
		return transcript, nil
	}
	return models.Transcript{}, lastErr
}

// analyzeForms attempts structured form analysis. It applies only when the
// backend returns at least one text line; key/value pairs are derived from
// the explicit KEY→VALUE relationship graph, each pair taking the minimum of
// the two entities' confidences so a weak link is never hidden by a strong
// one.
func (e *Engine) analyzeForms(ctx context.Context, data []byte) (models.Transcript, bool, error) {
	blocks, err := e.backend.AnalyzeForms(ctx, data)
	if err != nil {
		return models.Transcript{}, false, err
	}

	byID := make(map[string]ocr.Block, len(blocks))
	var lines []string
	for _, b := range blocks {
		byID[b.ID] = b
		if b.Type == ocr.BlockLine && strings.TrimSpace(b.Text) != "" {
			lines = append(lines, b.Text)
		}
	}
	if len(lines) == 0 {
		return models.Transcript{}, false, nil
	}

	var pairs []models.KeyValuePair
	for _, b := range blocks {
		if b.Type != ocr.BlockKey {
			continue
		}
		for _, valueID := range b.ValueIDs {
			value, ok := byID[valueID]
			if !ok || value.Type != ocr.BlockValue {
				e.log.Warn("Key references missing or non-value block.", "keyId", b.ID, "valueId", valueID)
				continue
			}
			pairs = append(pairs, models.KeyValuePair{
				Key:        b.Text,
				Value:      value.Text,
				Confidence: math.Min(b.Confidence, value.Confidence),
			})
		}
	}

	return models.Transcript{
		Text:          strings.Join(lines, "\n"),
		Confidence:    formAnalysisConfidence,
		KeyValuePairs: pairs,
	}, true, nil
}

// detectText is the plain fallback: line-level text only, confidence the
// arithmetic mean of line confidences. Zero lines yields a zero-confidence
// empty transcript.
func (e *Engine) detectText(ctx context.Context, data []byte) (models.Transcript, bool, error) {
	lines, err := e.backend.DetectText(ctx, data)
	if err != nil {
		return models.Transcript{}, false, err
	}
	if len(lines) == 0 {
		return models.Transcript{}, true, nil
	}

	texts := make([]string, 0, len(lines))
	var sum float64
	for _, l := range lines {
		texts = append(texts, l.Text)
		sum += l.Confidence
	}
	return models.Transcript{
		Text:       strings.Join(texts, "\n"),
		Confidence: sum / float64(len(lines)),
	}, true, nil
}
