package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/visaflow/docintake/internal/gcp"
)

// VertexService implements Service with a JSON-mode Gemini model.
type VertexService struct {
	vertex *gcp.VertexClient
}

// NewVertexService wraps a pre-configured Vertex client.
func NewVertexService(vertex *gcp.VertexClient) *VertexService {
	return &VertexService{vertex: vertex}
}

// Extract submits the transcript and document context for field extraction.
func (s *VertexService) Extract(ctx context.Context, req Request) ([]Field, error) {
	logCtx := slog.With("documentId", req.DocumentID, "category", req.Category)
	logCtx.Info("Starting structured extraction.")

	prompt := genai.Text(fmt.Sprintf(
		"%s\n\nDocument category: %s\nFilename: %s\nMedia type: %s\n\nTranscript:\n%s",
		gcp.ExtractionUserPrompt, req.Category, req.Filename, req.MediaType, req.TranscriptText,
	))

	resp, err := s.vertex.ExtractionModel.GenerateContent(ctx, prompt)
	if err != nil {
		logCtx.Error("Extraction call failed.", "error", err)
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	raw := strings.TrimSpace(gcp.ResponseText(resp))
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var fields []Field
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		logCtx.Error("Extraction returned malformed JSON.", "error", err)
		return nil, fmt.Errorf("extraction returned malformed JSON: %w", err)
	}

	// Fields with no name are unusable downstream; drop them here rather
	// than persisting rows the auto-fill step cannot address.
	kept := fields[:0]
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			logCtx.Warn("Dropping extracted field with empty name.", "value", f.Value)
			continue
		}
		if f.Category == "" {
			f.Category = req.Category
		}
		kept = append(kept, f)
	}

	logCtx.Info("Structured extraction complete.", "fieldCount", len(kept))
	return kept, nil
}
