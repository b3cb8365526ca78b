// Package store defines the record store the pipeline writes its Document,
// ProcessingSession and ExtractedField rows through.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/visaflow/docintake/internal/models"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ConflictError indicates a processing session is already open for the
// document. Callers must not start a second run; the open session owns the
// document's status until it resolves.
type ConflictError struct {
	DocumentID string
	SessionID  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("document %s already has an active processing session %s", e.DocumentID, e.SessionID)
}

// RecordStore is the persistence collaborator of the document processor.
type RecordStore interface {
	// GetDocument loads a document record; ErrNotFound if absent.
	GetDocument(ctx context.Context, documentID string) (*models.Document, error)

	// SetDocumentStatus updates the document's processing status.
	SetDocumentStatus(ctx context.Context, documentID, status string) error

	// CreateSession opens a new processing session. It returns a
	// *ConflictError when the document already has a session in the
	// processing state.
	CreateSession(ctx context.Context, session *models.ProcessingSession) error

	// SaveTranscript writes the OCR result onto the document's open session.
	// This happens before structured extraction so OCR work survives a
	// downstream failure.
	SaveTranscript(ctx context.Context, documentID, text string, confidence float64) error

	// ResolveSession writes the terminal status onto the document's open
	// session. The session is matched by document id; at most one session
	// is ever open per document.
	ResolveSession(ctx context.Context, documentID, status, errorMessage string, endedAt time.Time) error

	// CreateExtractedField writes one extracted field row.
	CreateExtractedField(ctx context.Context, field *models.ExtractedField) error
}
