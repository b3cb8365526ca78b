package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/visaflow/docintake/internal/trigger"
)

var (
	triggerInstance *trigger.Function
	once            sync.Once
	initErr         error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The framework routes the GCS
	// object-finalize event here.
	functions.CloudEvent("RegisterUpload", registerUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// registerUpload is the Cloud Function entry point.
func registerUpload(ctx context.Context, e cloudevents.Event) error {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		triggerInstance, initErr = trigger.New(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent trigger.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Delegate the actual processing to the business logic.
	if err := triggerInstance.Process(ctx, gcsEvent); err != nil {
		// The error is already logged with context within Process.
		return err
	}
	return nil
}
