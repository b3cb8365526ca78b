package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/visaflow/docintake/internal/gcp"
)

// GeminiFormAnalyzer implements FormAnalyzer with a JSON-mode Gemini model.
// The model reads the page directly and emits LINE/KEY/VALUE entities with
// the key→value association graph.
type GeminiFormAnalyzer struct {
	vertex *gcp.VertexClient
}

// NewGeminiFormAnalyzer wraps a pre-configured Vertex client.
func NewGeminiFormAnalyzer(vertex *gcp.VertexClient) *GeminiFormAnalyzer {
	return &GeminiFormAnalyzer{vertex: vertex}
}

// geminiBlock mirrors the JSON schema the form analysis prompt demands.
type geminiBlock struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	ValueIDs   []string `json:"valueIds"`
}

// AnalyzeForms submits one unit's bytes for layout analysis.
func (a *GeminiFormAnalyzer) AnalyzeForms(ctx context.Context, data []byte) ([]Block, error) {
	mediaType := DetectMediaType(data)
	if mediaType == "" {
		return nil, fmt.Errorf("unrecognized input bytes: %w", ErrUnsupportedFormat)
	}

	filePart := genai.Blob{MIMEType: mediaType, Data: data}
	prompt := genai.Text(gcp.FormAnalysisUserPrompt)

	resp, err := a.vertex.FormAnalysisModel.GenerateContent(ctx, filePart, prompt)
	if err != nil {
		return nil, fmt.Errorf("form analysis call failed: %w", err)
	}

	raw := strings.TrimSpace(gcp.ResponseText(resp))
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var parsed []geminiBlock
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("form analysis returned malformed JSON: %w", err)
	}

	blocks := make([]Block, 0, len(parsed))
	for _, b := range parsed {
		bt := BlockType(strings.ToUpper(strings.TrimSpace(b.Type)))
		switch bt {
		case BlockLine, BlockKey, BlockValue:
		default:
			slog.Warn("Dropping block with unknown type.", "type", b.Type, "id", b.ID)
			continue
		}
		blocks = append(blocks, Block{
			ID:         b.ID,
			Type:       bt,
			Text:       b.Text,
			Confidence: clamp01(b.Confidence),
			ValueIDs:   b.ValueIDs,
		})
	}
	return blocks, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
