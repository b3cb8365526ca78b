// Command docintake runs one document through the intake pipeline from the
// command line, against live collaborators. It exists for operators: spot
// checks and manual reprocessing of documents the workflow gave up on.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/visaflow/docintake/internal/blob"
	"github.com/visaflow/docintake/internal/extract"
	"github.com/visaflow/docintake/internal/gcp"
	"github.com/visaflow/docintake/internal/intake"
	"github.com/visaflow/docintake/internal/ocr"
	"github.com/visaflow/docintake/internal/store"
)

type config struct {
	ProjectID     string
	Region        string
	UploadsBucket string
	Documents     string
	Sessions      string
	Fields        string
	LogLevel      string
}

func loadConfig() (*config, error) {
	pflag.String("project-id", "", "GCP project id")
	pflag.String("region", "us-central1", "Vertex AI region")
	pflag.String("uploads-bucket", "", "GCS bucket holding uploaded documents")
	pflag.String("documents-collection", "", "Firestore documents collection (default: documents)")
	pflag.String("sessions-collection", "", "Firestore sessions collection (default: processingSessions)")
	pflag.String("fields-collection", "", "Firestore extracted fields collection (default: extractedFields)")
	pflag.String("log-level", "info", "log level: debug, info, warn, error")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <document-id>\n\nFlags:\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	v := viper.New()
	v.SetEnvPrefix("DOCINTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	cfg := &config{
		ProjectID:     v.GetString("project-id"),
		Region:        v.GetString("region"),
		UploadsBucket: v.GetString("uploads-bucket"),
		Documents:     v.GetString("documents-collection"),
		Sessions:      v.GetString("sessions-collection"),
		Fields:        v.GetString("fields-collection"),
		LogLevel:      v.GetString("log-level"),
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("--project-id (or DOCINTAKE_PROJECT_ID) is required")
	}
	if cfg.UploadsBucket == "" {
		return nil, fmt.Errorf("--uploads-bucket (or DOCINTAKE_UPLOADS_BUCKET) is required")
	}
	return cfg, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		pflag.Usage()
		os.Exit(2)
	}
	if pflag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one document id is required")
		pflag.Usage()
		os.Exit(2)
	}
	documentID := pflag.Arg(0)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx := context.Background()
	if err := run(ctx, cfg, documentID); err != nil {
		slog.Error("Run failed.", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config, documentID string) error {
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to create firestore client: %w", err)
	}
	defer firestoreClient.Close()

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	defer storageClient.Close()

	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return fmt.Errorf("failed to create vertex client: %w", err)
	}
	defer vertexClient.Close()

	backend := ocr.Compose(ocr.NewTesseractDetector(), ocr.NewGeminiFormAnalyzer(vertexClient))
	engine := intake.NewEngine(backend, slog.Default())
	splitter := intake.NewSplitter(engine, intake.StdPageTools{}, slog.Default())

	processor := intake.NewProcessor(
		store.NewFirestoreStore(firestoreClient, store.FirestoreConfig{
			DocumentsCollection: cfg.Documents,
			SessionsCollection:  cfg.Sessions,
			FieldsCollection:    cfg.Fields,
		}),
		blob.NewGCS(storageClient, cfg.UploadsBucket),
		engine,
		splitter,
		extract.NewVertexService(vertexClient),
		slog.Default(),
	)

	res, err := processor.Process(ctx, documentID)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
