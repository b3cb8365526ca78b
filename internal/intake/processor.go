package intake

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/visaflow/docintake/internal/blob"
	"github.com/visaflow/docintake/internal/extract"
	"github.com/visaflow/docintake/internal/models"
	"github.com/visaflow/docintake/internal/store"
)

// DocumentRecognizer is the whole-PDF contract the processor dispatches to.
// *Splitter satisfies it.
type DocumentRecognizer interface {
	Process(ctx context.Context, data []byte) (models.Transcript, error)
}

// Processor owns the end-to-end run for one document: classify, dispatch to
// the right OCR path, persist the transcript, invoke structured extraction,
// persist fields, and map every outcome onto the document and session
// status. It is the single place that decides what is fatal for a document.
type Processor struct {
	store     store.RecordStore
	blobs     blob.Downloader
	engine    PageRecognizer
	splitter  DocumentRecognizer
	extractor extract.Service
	log       *slog.Logger
	now       func() time.Time
}

// NewProcessor wires the orchestrator's collaborators. Lifecycle of the
// underlying clients is owned by the caller.
func NewProcessor(
	rs store.RecordStore,
	blobs blob.Downloader,
	engine PageRecognizer,
	splitter DocumentRecognizer,
	extractor extract.Service,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:     rs,
		blobs:     blobs,
		engine:    engine,
		splitter:  splitter,
		extractor: extractor,
		log:       logger,
		now:       time.Now,
	}
}

// Process runs one processing attempt for the document. Ordinary
// per-document failures resolve to a failed status plus message on the
// document and session, and return a response, not an error; callers poll
// status rather than handle exceptions. An error return means no status
// could be recorded: the document does not exist, a session is already open
// (ConflictError), or the status writes themselves failed.
func (p *Processor) Process(ctx context.Context, documentID string) (*models.ProcessDocumentResponse, error) {
	logCtx := p.log.With("documentId", documentID)

	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		logCtx.Error("Failed to load document.", "error", err)
		return nil, err
	}

	session := &models.ProcessingSession{
		SessionID:  uuid.NewString(),
		DocumentID: documentID,
		Status:     models.StatusProcessing,
		StartedAt:  p.now(),
	}
	if err := p.store.CreateSession(ctx, session); err != nil {
		logCtx.Error("Failed to open processing session.", "error", err)
		return nil, err
	}
	logCtx = logCtx.With("sessionId", session.SessionID)
	if err := p.store.SetDocumentStatus(ctx, documentID, models.StatusProcessing); err != nil {
		logCtx.Error("Failed to mark document processing.", "error", err)
		// The session just opened; close it, or every retry of this
		// document hits a ConflictError until an operator intervenes.
		if rerr := p.store.ResolveSession(context.WithoutCancel(ctx), documentID, models.StatusFailed, UserMessage(err), p.now()); rerr != nil {
			logCtx.Error("CRITICAL: Failed to close session after status write failure.", "updateError", rerr)
		}
		return nil, err
	}
	logCtx.Info("Processing started.", "mediaType", doc.MediaType, "category", doc.Category)

	// Classification uses the declared media type and runs before the
	// download: an unsupported upload must fail before any I/O is spent.
	kind, err := Classify(doc.MediaType)
	if err != nil {
		return p.fail(ctx, logCtx, documentID, err)
	}

	data, err := p.blobs.Download(ctx, doc.StoragePath)
	if err != nil {
		return p.fail(ctx, logCtx, documentID, err)
	}

	var transcript models.Transcript
	switch kind {
	case KindRasterImage:
		transcript, err = p.engine.Recognize(ctx, data)
	case KindPDF:
		transcript, err = p.splitter.Process(ctx, data)
	}
	if err != nil {
		return p.fail(ctx, logCtx, documentID, err)
	}
	logCtx.Info("OCR complete.", "confidence", transcript.Confidence, "pairCount", len(transcript.KeyValuePairs))

	// Durability checkpoint: the transcript must survive even if structured
	// extraction fails, so reprocessing can skip OCR.
	if err := p.store.SaveTranscript(ctx, documentID, transcript.Text, transcript.Confidence); err != nil {
		return p.fail(ctx, logCtx, documentID, err)
	}

	fields, err := p.extractor.Extract(ctx, extract.Request{
		DocumentID:     documentID,
		UserID:         doc.UserID,
		Category:       doc.Category,
		Filename:       doc.OriginalFilename,
		MediaType:      doc.MediaType,
		TranscriptText: transcript.Text,
	})
	if err != nil {
		return p.fail(ctx, logCtx, documentID, err)
	}

	createdAt := p.now()
	for _, f := range fields {
		row := &models.ExtractedField{
			DocumentID:       documentID,
			FieldName:        f.Name,
			FieldValue:       f.Value,
			Confidence:       f.Confidence,
			Category:         f.Category,
			ValidationStatus: f.ValidationStatus,
			CreatedAt:        createdAt,
		}
		// A partially persisted field set is worse than none: downstream
		// auto-fill assumes completeness per category, so the first write
		// error aborts the run.
		if err := p.store.CreateExtractedField(ctx, row); err != nil {
			return p.fail(ctx, logCtx, documentID, fmt.Errorf("persisting field %q: %w", f.Name, err))
		}
	}

	if err := p.store.SetDocumentStatus(ctx, documentID, models.StatusCompleted); err != nil {
		logCtx.Error("CRITICAL: Failed to mark document completed.", "error", err)
		return nil, err
	}
	if err := p.store.ResolveSession(ctx, documentID, models.StatusCompleted, "", p.now()); err != nil {
		logCtx.Error("CRITICAL: Failed to resolve session after completion.", "error", err)
		return nil, err
	}
	logCtx.Info("Processing complete.", "fieldCount", len(fields))
	return &models.ProcessDocumentResponse{
		DocumentID: documentID,
		Status:     models.StatusCompleted,
		FieldCount: len(fields),
	}, nil
}

// fail records the terminal failed status on the document and its session.
// Status writes run on a context that survives cancellation so a cancelled
// run resolves to failed instead of staying stuck in processing.
func (p *Processor) fail(ctx context.Context, logCtx *slog.Logger, documentID string, cause error) (*models.ProcessDocumentResponse, error) {
	msg := UserMessage(cause)
	logCtx.Error("Processing failed.", "error", cause, "userMessage", msg)

	writeCtx := context.WithoutCancel(ctx)
	if err := p.store.SetDocumentStatus(writeCtx, documentID, models.StatusFailed); err != nil {
		logCtx.Error("CRITICAL: Failed to record failed document status.", "updateError", err)
		return nil, fmt.Errorf("recording failure for document %s: %w", documentID, err)
	}
	if err := p.store.ResolveSession(writeCtx, documentID, models.StatusFailed, msg, p.now()); err != nil {
		logCtx.Error("CRITICAL: Failed to resolve session after processing error.", "updateError", err)
		return nil, fmt.Errorf("resolving session for document %s: %w", documentID, err)
	}
	return &models.ProcessDocumentResponse{
		DocumentID: documentID,
		Status:     models.StatusFailed,
		Error:      msg,
	}, nil
}
