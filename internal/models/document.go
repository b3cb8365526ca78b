package models

import "time"

// Document processing statuses. A document moves queued → processing →
// (completed | failed); paused is set by operators, never by the pipeline.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusPaused     = "paused"
)

// Document is the master record for one uploaded file in Firestore.
// The pipeline mutates only ProcessingStatus; everything else is written
// once at intake.
type Document struct {
	UserID           string    `firestore:"userId,omitempty"`
	OriginalFilename string    `firestore:"originalFilename,omitempty"`
	MediaType        string    `firestore:"mediaType,omitempty"`
	Category         string    `firestore:"category,omitempty"`
	SizeBytes        int64     `firestore:"sizeBytes,omitempty"`
	StoragePath      string    `firestore:"storagePath,omitempty"`
	FileHash         string    `firestore:"fileHash,omitempty"`
	UploadStatus     string    `firestore:"uploadStatus,omitempty"`
	ProcessingStatus string    `firestore:"processingStatus,omitempty"`
	CreatedAt        time.Time `firestore:"createdAt,omitempty"`
}

// ProcessingSession records a single processing attempt for a document.
// It is written when the attempt starts and once more when it resolves;
// after that it is frozen. Sessions reuse the processing/completed/failed
// status values; a session is never queued or paused.
type ProcessingSession struct {
	SessionID            string    `firestore:"sessionId,omitempty"`
	DocumentID           string    `firestore:"documentId,omitempty"`
	Status               string    `firestore:"status,omitempty"`
	ErrorMessage         string    `firestore:"errorMessage,omitempty"`
	TranscriptText       string    `firestore:"transcriptText,omitempty"`
	TranscriptConfidence float64   `firestore:"transcriptConfidence,omitempty"`
	StartedAt            time.Time `firestore:"startedAt,omitempty"`
	EndedAt              time.Time `firestore:"endedAt,omitempty"`
}

// ExtractedField is one typed field returned by the structured-extraction
// service, owned by the document it was extracted from. The pipeline writes
// these rows verbatim and never interprets field semantics.
type ExtractedField struct {
	DocumentID       string    `firestore:"documentId,omitempty"`
	FieldName        string    `firestore:"fieldName,omitempty"`
	FieldValue       string    `firestore:"fieldValue,omitempty"`
	Confidence       float64   `firestore:"confidence,omitempty"`
	Category         string    `firestore:"category,omitempty"`
	ValidationStatus string    `firestore:"validationStatus,omitempty"`
	CreatedAt        time.Time `firestore:"createdAt,omitempty"`
}
