package intake

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visaflow/docintake/internal/models"
)

// fakePageTools serves a configurable PDF: a native text layer, a page
// count, and per-page unit bytes of the form "page-N". Call counts are
// atomic because the splitter fans pages out concurrently.
type fakePageTools struct {
	text         string
	textErr      error
	pageCount    int
	pageCountErr error

	plainTextCalls   atomic.Int32
	pageCountCalls   atomic.Int32
	extractPageCalls atomic.Int32
}

func (f *fakePageTools) PlainText(data []byte) (string, error) {
	f.plainTextCalls.Add(1)
	return f.text, f.textErr
}

func (f *fakePageTools) PageCount(data []byte) (int, error) {
	f.pageCountCalls.Add(1)
	return f.pageCount, f.pageCountErr
}

func (f *fakePageTools) ExtractPage(data []byte, page int) ([]byte, error) {
	f.extractPageCalls.Add(1)
	return []byte(fmt.Sprintf("page-%d", page)), nil
}

// fakeRecognizer maps a page unit's bytes to a canned transcript or error.
type fakeRecognizer struct {
	transcripts map[string]models.Transcript
	errs        map[string]error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, data []byte) (models.Transcript, error) {
	if err, ok := f.errs[string(data)]; ok {
		return models.Transcript{}, err
	}
	return f.transcripts[string(data)], nil
}

func TestSplitterTextNativeShortcut(t *testing.T) {
	pages := &fakePageTools{text: "Native text layer content.", pageCount: 5}
	splitter := NewSplitter(&fakeRecognizer{}, pages, nil)

	transcript, err := splitter.Process(context.Background(), []byte("%PDF-"))
	require.NoError(t, err)

	assert.Equal(t, "Native text layer content.", transcript.Text)
	assert.Equal(t, 1.0, transcript.Confidence)
	// The cheap path returned; no page was ever split out.
	assert.Equal(t, int32(0), pages.pageCountCalls.Load())
	assert.Equal(t, int32(0), pages.extractPageCalls.Load())
}

func TestSplitterEmptyDocument(t *testing.T) {
	pages := &fakePageTools{pageCount: 0}
	splitter := NewSplitter(&fakeRecognizer{}, pages, nil)

	_, err := splitter.Process(context.Background(), []byte("%PDF-"))
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestSplitterSkipsFailedPage(t *testing.T) {
	pages := &fakePageTools{pageCount: 3}
	recognizer := &fakeRecognizer{
		transcripts: map[string]models.Transcript{
			"page-1": {Text: "first page", Confidence: 0.8},
			"page-3": {Text: "third page", Confidence: 0.6},
		},
		errs: map[string]error{
			"page-2": errors.New("page damaged"),
		},
	}
	splitter := NewSplitter(recognizer, pages, nil)

	transcript, err := splitter.Process(context.Background(), []byte("%PDF-"))
	require.NoError(t, err)

	// Two surviving pages, ascending page order, damaged page skipped.
	assert.Equal(t, "first page\nthird page", transcript.Text)
	// Mean over succeeding pages only; the failed page is not counted as 0.
	assert.InDelta(t, 0.7, transcript.Confidence, 1e-9)
}

func TestSplitterPreservesPageOrder(t *testing.T) {
	const pageCount = 12
	pages := &fakePageTools{pageCount: pageCount}
	transcripts := make(map[string]models.Transcript, pageCount)
	want := ""
	for i := 1; i <= pageCount; i++ {
		text := fmt.Sprintf("content of page %d", i)
		transcripts[fmt.Sprintf("page-%d", i)] = models.Transcript{Text: text, Confidence: 0.9}
		if i > 1 {
			want += "\n"
		}
		want += text
	}
	splitter := NewSplitter(&fakeRecognizer{transcripts: transcripts}, pages, nil)

	transcript, err := splitter.Process(context.Background(), []byte("%PDF-"))
	require.NoError(t, err)
	assert.Equal(t, want, transcript.Text)
}

func TestSplitterEmptyPagesNotCountedInConfidence(t *testing.T) {
	pages := &fakePageTools{pageCount: 3}
	recognizer := &fakeRecognizer{
		transcripts: map[string]models.Transcript{
			"page-1": {Text: "readable", Confidence: 0.5},
			"page-2": {}, // nothing readable; valid output
			"page-3": {Confidence: 0.0},
		},
	}
	splitter := NewSplitter(recognizer, pages, nil)

	transcript, err := splitter.Process(context.Background(), []byte("%PDF-"))
	require.NoError(t, err)
	assert.Equal(t, "readable", transcript.Text)
	assert.InDelta(t, 0.5, transcript.Confidence, 1e-9)
}

func TestSplitterAllPagesFailed(t *testing.T) {
	pages := &fakePageTools{pageCount: 4}
	recognizer := &fakeRecognizer{
		errs: map[string]error{
			"page-1": errors.New("damaged"),
			"page-2": errors.New("damaged"),
			"page-3": errors.New("damaged"),
			"page-4": errors.New("damaged"),
		},
	}
	splitter := NewSplitter(recognizer, pages, nil)

	_, err := splitter.Process(context.Background(), []byte("%PDF-"))
	assert.ErrorIs(t, err, ErrAllPagesFailed)
}

func TestSplitterAllPagesEmptyIsValidOutput(t *testing.T) {
	pages := &fakePageTools{pageCount: 2}
	recognizer := &fakeRecognizer{
		transcripts: map[string]models.Transcript{
			"page-1": {},
			"page-2": {},
		},
	}
	splitter := NewSplitter(recognizer, pages, nil)

	transcript, err := splitter.Process(context.Background(), []byte("%PDF-"))
	require.NoError(t, err)
	assert.True(t, transcript.Empty())
	assert.Zero(t, transcript.Confidence)
}

func TestSplitterCancelledContext(t *testing.T) {
	pages := &fakePageTools{pageCount: 3}
	splitter := NewSplitter(&fakeRecognizer{}, pages, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := splitter.Process(ctx, []byte("%PDF-"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitterCollectsPairsInPageOrder(t *testing.T) {
	pages := &fakePageTools{pageCount: 2}
	recognizer := &fakeRecognizer{
		transcripts: map[string]models.Transcript{
			"page-1": {
				Text:          "first",
				Confidence:    0.9,
				KeyValuePairs: []models.KeyValuePair{{Key: "Surname", Value: "NGUYEN", Confidence: 0.9}},
			},
			"page-2": {
				Text:          "second",
				Confidence:    0.9,
				KeyValuePairs: []models.KeyValuePair{{Key: "Date of birth", Value: "1990-01-31", Confidence: 0.8}},
			},
		},
	}
	splitter := NewSplitter(recognizer, pages, nil)

	transcript, err := splitter.Process(context.Background(), []byte("%PDF-"))
	require.NoError(t, err)
	require.Len(t, transcript.KeyValuePairs, 2)
	assert.Equal(t, "Surname", transcript.KeyValuePairs[0].Key)
	assert.Equal(t, "Date of birth", transcript.KeyValuePairs[1].Key)
}
