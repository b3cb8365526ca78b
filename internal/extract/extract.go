// Package extract defines the structured-extraction collaborator: it takes
// a transcript plus document context and returns typed fields. The model's
// reasoning is a black box to the pipeline; only this contract is owned here.
package extract

import "context"

// Request carries everything the extraction service needs for one document.
type Request struct {
	DocumentID     string
	UserID         string
	Category       string
	Filename       string
	MediaType      string
	TranscriptText string
}

// Field is one typed field returned by the service.
type Field struct {
	Name             string  `json:"name"`
	Value            string  `json:"value"`
	Confidence       float64 `json:"confidence"`
	Category         string  `json:"category"`
	ValidationStatus string  `json:"validationStatus"`
}

// Service is the extraction collaborator contract. Calls may be slow and
// expensive; the pipeline does not retry them.
type Service interface {
	Extract(ctx context.Context, req Request) ([]Field, error)
}
