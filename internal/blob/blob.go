// Package blob provides the pipeline's blob store collaborator: one
// download per document run.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Downloader fetches a stored object's bytes by its storage path.
type Downloader interface {
	Download(ctx context.Context, path string) ([]byte, error)
}

// GCS implements Downloader against a single Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS returns a Downloader over the given bucket.
func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{client: client, bucket: bucket}
}

// Download reads the whole object into memory, retrying transient failures
// with exponential backoff. Missing objects fail immediately.
func (g *GCS) Download(ctx context.Context, path string) ([]byte, error) {
	const maxRetries = 4
	var backoff = 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		data, err := g.readObject(ctx, path)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("object %s does not exist: %w", path, err)
		}
		if !isRetryable(err) {
			slog.Error("Download failed with a permanent error.", "gcsObject", path, "error", err)
			return nil, fmt.Errorf("download of %s failed: %w", path, err)
		}

		lastErr = err
		slog.Warn(
			"Download failed, will retry.",
			"gcsObject", path,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", path, "error", ctx.Err())
			return nil, ctx.Err()
		}
	}
	slog.Error("Download failed after all retries.", "gcsObject", path, "error", lastErr)
	return nil, fmt.Errorf("download of %s failed after all retries: %w", path, lastErr)
}

// isRetryable reports whether a failed read is worth another attempt.
// Server-side errors and rate limiting are transient; any other HTTP error
// is permanent, and retrying it would only delay the failure surfacing.
// Failures without an HTTP status are network-level and assumed transient.
func isRetryable(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= http.StatusInternalServerError || gerr.Code == http.StatusTooManyRequests
	}
	return true
}

func (g *GCS) readObject(ctx context.Context, path string) ([]byte, error) {
	readCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	reader, err := g.client.Bucket(g.bucket).Object(path).NewReader(readCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", g.bucket, path, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object gs://%s/%s: %w", g.bucket, path, err)
	}
	return data, nil
}
