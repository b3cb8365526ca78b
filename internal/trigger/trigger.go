// Package trigger turns a finalized upload into a queued document and hands
// it to the processing workflow.
package trigger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"

	"github.com/visaflow/docintake/internal/gcp"
	"github.com/visaflow/docintake/internal/models"
)

// Config holds all configuration for the intake trigger.
type Config struct {
	ProjectID        string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
}

// Function holds the dependencies for the intake trigger logic.
type Function struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	config           Config
}

// GCSEvent is the subset of the GCS object-finalize payload the trigger needs.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

// New creates the trigger function from environment configuration.
func New(ctx context.Context) (*Function, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := Config{
		ProjectID:        projectID,
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "documents"),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", "document-processing"),
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}

	f := &Function{
		firestoreClient:  firestoreClient,
		storageClient:    storageClient,
		executionsClient: executionsClient,
		config:           config,
	}
	slog.Info("Intake trigger initialized.", "workflowId", config.WorkflowID)
	return f, nil
}

// Process registers the uploaded object and triggers the processing
// workflow. Duplicate uploads (same content hash) are skipped cleanly.
func (f *Function) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new upload.")

	attrs, err := f.storageClient.Bucket(e.Bucket).Object(e.Name).Attrs(ctx)
	if err != nil {
		logCtx.Error("Failed to read object attributes", "error", err)
		return fmt.Errorf("failed to read attributes for gs://%s/%s: %w", e.Bucket, e.Name, err)
	}
	fileHash := hex.EncodeToString(attrs.MD5)
	logCtx = logCtx.With("fileHash", fileHash)

	isDuplicate, docID, err := f.isDuplicate(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate upload detected. Skipping.", "existingDocId", docID)
		return nil // Clean exit for a duplicate
	}

	mediaType := e.ContentType
	if mediaType == "" {
		mediaType = attrs.ContentType
	}

	// Intentionally no allow-list check here: the document processor is the
	// single place that maps errors to status, and an unsupported upload
	// still needs a failed record the UI can show.
	newDoc := models.Document{
		UserID:           attrs.Metadata["userId"],
		Category:         attrs.Metadata["category"],
		OriginalFilename: e.Name,
		MediaType:        mediaType,
		SizeBytes:        attrs.Size,
		StoragePath:      e.Name,
		FileHash:         fileHash,
		UploadStatus:     "uploaded",
		ProcessingStatus: models.StatusQueued,
		CreatedAt:        time.Now(),
	}
	docRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, newDoc)
	if err != nil {
		logCtx.Error("Failed to create document record", "error", err)
		return fmt.Errorf("failed to create document record: %w", err)
	}
	logCtx = logCtx.With("documentId", docRef.ID)
	logCtx.Info("Created document record.")

	if err := f.triggerWorkflow(ctx, docRef.ID); err != nil {
		logCtx.Error("Failed to trigger workflow execution", "error", err)
		return err
	}

	logCtx.Info("Hand-off to workflow complete.")
	return nil
}

func (f *Function) isDuplicate(ctx context.Context, fileHash string) (bool, string, error) {
	docs, err := f.firestoreClient.Collection(f.config.CollectionName).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return true, docs[0].Ref.ID, nil
	}
	return false, "", nil
}

func (f *Function) triggerWorkflow(ctx context.Context, documentID string) error {
	payload, err := json.Marshal(models.ProcessDocumentRequest{DocumentID: documentID})
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	}
	if _, err := f.executionsClient.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return nil
}
