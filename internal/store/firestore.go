package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/visaflow/docintake/internal/models"
)

// Default Firestore collection names; overridable per environment.
const (
	DefaultDocumentsCollection = "documents"
	DefaultSessionsCollection  = "processingSessions"
	DefaultFieldsCollection    = "extractedFields"
)

// FirestoreStore implements RecordStore on Firestore collections.
type FirestoreStore struct {
	client    *firestore.Client
	documents string
	sessions  string
	fields    string
}

// FirestoreConfig names the collections a store instance works against.
// Empty fields fall back to the defaults.
type FirestoreConfig struct {
	DocumentsCollection string
	SessionsCollection  string
	FieldsCollection    string
}

// NewFirestoreStore returns a RecordStore over the given client.
func NewFirestoreStore(client *firestore.Client, cfg FirestoreConfig) *FirestoreStore {
	if cfg.DocumentsCollection == "" {
		cfg.DocumentsCollection = DefaultDocumentsCollection
	}
	if cfg.SessionsCollection == "" {
		cfg.SessionsCollection = DefaultSessionsCollection
	}
	if cfg.FieldsCollection == "" {
		cfg.FieldsCollection = DefaultFieldsCollection
	}
	return &FirestoreStore{
		client:    client,
		documents: cfg.DocumentsCollection,
		sessions:  cfg.SessionsCollection,
		fields:    cfg.FieldsCollection,
	}
}

func (s *FirestoreStore) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	snap, err := s.client.Collection(s.documents).Doc(documentID).Get(ctx)
	if err != nil {
		if snap != nil && !snap.Exists() {
			return nil, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load document %s: %w", documentID, err)
	}
	var doc models.Document
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", documentID, err)
	}
	return &doc, nil
}

func (s *FirestoreStore) SetDocumentStatus(ctx context.Context, documentID, status string) error {
	updates := []firestore.Update{
		{Path: "processingStatus", Value: status},
	}
	if _, err := s.client.Collection(s.documents).Doc(documentID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update document %s status to %s: %w", documentID, status, err)
	}
	return nil
}

// CreateSession opens a session after checking no other session is open for
// the document. The check-then-write is advisory, not transactional; the
// intake workflow guarantees at most one in-flight run per document and this
// guard surfaces violations instead of racing silently.
func (s *FirestoreStore) CreateSession(ctx context.Context, session *models.ProcessingSession) error {
	open, err := s.openSession(ctx, session.DocumentID)
	if err != nil {
		return err
	}
	if open != nil {
		return &ConflictError{DocumentID: session.DocumentID, SessionID: open.Ref.ID}
	}
	if _, err := s.client.Collection(s.sessions).Doc(session.SessionID).Set(ctx, session); err != nil {
		return fmt.Errorf("failed to create processing session for document %s: %w", session.DocumentID, err)
	}
	return nil
}

func (s *FirestoreStore) SaveTranscript(ctx context.Context, documentID, text string, confidence float64) error {
	open, err := s.openSession(ctx, documentID)
	if err != nil {
		return err
	}
	if open == nil {
		return fmt.Errorf("no open processing session for document %s: %w", documentID, ErrNotFound)
	}
	updates := []firestore.Update{
		{Path: "transcriptText", Value: text},
		{Path: "transcriptConfidence", Value: confidence},
	}
	if _, err := open.Ref.Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to save transcript for document %s: %w", documentID, err)
	}
	return nil
}

func (s *FirestoreStore) ResolveSession(ctx context.Context, documentID, status, errorMessage string, endedAt time.Time) error {
	open, err := s.openSession(ctx, documentID)
	if err != nil {
		return err
	}
	if open == nil {
		return fmt.Errorf("no open processing session for document %s: %w", documentID, ErrNotFound)
	}
	updates := []firestore.Update{
		{Path: "status", Value: status},
		{Path: "endedAt", Value: endedAt},
	}
	if errorMessage != "" {
		updates = append(updates, firestore.Update{Path: "errorMessage", Value: errorMessage})
	}
	if _, err := open.Ref.Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to resolve session for document %s to %s: %w", documentID, status, err)
	}
	return nil
}

func (s *FirestoreStore) CreateExtractedField(ctx context.Context, field *models.ExtractedField) error {
	if _, _, err := s.client.Collection(s.fields).Add(ctx, field); err != nil {
		return fmt.Errorf("failed to create extracted field %s for document %s: %w", field.FieldName, field.DocumentID, err)
	}
	return nil
}

// openSession returns the document's session in the processing state, or nil.
func (s *FirestoreStore) openSession(ctx context.Context, documentID string) (*firestore.DocumentSnapshot, error) {
	docs, err := s.client.Collection(s.sessions).
		Where("documentId", "==", documentID).
		Where("status", "==", models.StatusProcessing).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions for document %s: %w", documentID, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}
