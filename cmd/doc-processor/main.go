package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/visaflow/docintake/internal/blob"
	"github.com/visaflow/docintake/internal/extract"
	"github.com/visaflow/docintake/internal/gcp"
	"github.com/visaflow/docintake/internal/intake"
	"github.com/visaflow/docintake/internal/models"
	"github.com/visaflow/docintake/internal/ocr"
	"github.com/visaflow/docintake/internal/store"
)

var (
	processorInstance *intake.Processor
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the HTTP function the processing workflow invokes.
	functions.HTTP("HandleProcessDocument", handleProcessDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// newProcessor wires the orchestrator and its collaborators from
// environment configuration.
func newProcessor(ctx context.Context) (*intake.Processor, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	uploadsBucket := gcp.GetEnv("UPLOADS_BUCKET", "")
	if uploadsBucket == "" {
		return nil, fmt.Errorf("UPLOADS_BUCKET environment variable must be set")
	}
	region := gcp.GetEnv("VERTEX_AI_REGION", "us-central1")

	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	backend := ocr.Compose(ocr.NewTesseractDetector(), ocr.NewGeminiFormAnalyzer(vertexClient))
	engine := intake.NewEngine(backend, slog.Default())
	splitter := intake.NewSplitter(engine, intake.StdPageTools{}, slog.Default())

	return intake.NewProcessor(
		store.NewFirestoreStore(firestoreClient, store.FirestoreConfig{
			DocumentsCollection: gcp.GetEnv("FIRESTORE_COLLECTION", ""),
			SessionsCollection:  gcp.GetEnv("SESSIONS_COLLECTION", ""),
			FieldsCollection:    gcp.GetEnv("FIELDS_COLLECTION", ""),
		}),
		blob.NewGCS(storageClient, uploadsBucket),
		engine,
		splitter,
		extract.NewVertexService(vertexClient),
		slog.Default(),
	), nil
}

// handleProcessDocument is the HTTP handler.
func handleProcessDocument(w http.ResponseWriter, r *http.Request) {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		processorInstance, initErr = newProcessor(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.ProcessDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	if req.DocumentID == "" {
		http.Error(w, "Bad Request: documentId is required", http.StatusBadRequest)
		return
	}

	res, err := processorInstance.Process(r.Context(), req.DocumentID)
	if err != nil {
		// Ordinary per-document failures resolve to a failed status and do
		// not land here; this is a missing record, a session conflict, or a
		// status write failure. Returning 500 makes the workflow retry.
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
