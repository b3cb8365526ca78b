package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visaflow/docintake/internal/ocr"
)

type fakeBackend struct {
	analyze func(ctx context.Context, data []byte) ([]ocr.Block, error)
	detect  func(ctx context.Context, data []byte) ([]ocr.Line, error)
}

func (f *fakeBackend) AnalyzeForms(ctx context.Context, data []byte) ([]ocr.Block, error) {
	if f.analyze == nil {
		return nil, errors.New("analyze not configured")
	}
	return f.analyze(ctx, data)
}

func (f *fakeBackend) DetectText(ctx context.Context, data []byte) ([]ocr.Line, error) {
	if f.detect == nil {
		return nil, errors.New("detect not configured")
	}
	return f.detect(ctx, data)
}

func TestEngineFormAnalysisPath(t *testing.T) {
	backend := &fakeBackend{
		analyze: func(ctx context.Context, data []byte) ([]ocr.Block, error) {
			return []ocr.Block{
				{ID: "l1", Type: ocr.BlockLine, Text: "Surname: NGUYEN", Confidence: 0.97},
				{ID: "l2", Type: ocr.BlockLine, Text: "Passport No: C1234567", Confidence: 0.96},
				{ID: "k1", Type: ocr.BlockKey, Text: "Surname", Confidence: 0.99, ValueIDs: []string{"v1"}},
				{ID: "v1", Type: ocr.BlockValue, Text: "NGUYEN", Confidence: 0.40},
			}, nil
		},
	}
	engine := NewEngine(backend, nil)

	transcript, err := engine.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)

	assert.Equal(t, "Surname: NGUYEN\nPassport No: C1234567", transcript.Text)
	assert.Equal(t, 0.9, transcript.Confidence)
	require.Len(t, transcript.KeyValuePairs, 1)

	// Pair confidence is the minimum of the two entities, never the average:
	// a weak value must not be hidden by a confident key.
	pair := transcript.KeyValuePairs[0]
	assert.Equal(t, "Surname", pair.Key)
	assert.Equal(t, "NGUYEN", pair.Value)
	assert.Equal(t, 0.40, pair.Confidence)
}

func TestEngineSkipsDanglingValueReferences(t *testing.T) {
	backend := &fakeBackend{
		analyze: func(ctx context.Context, data []byte) ([]ocr.Block, error) {
			return []ocr.Block{
				{ID: "l1", Type: ocr.BlockLine, Text: "something", Confidence: 0.9},
				{ID: "k1", Type: ocr.BlockKey, Text: "Surname", Confidence: 0.99, ValueIDs: []string{"missing"}},
				{ID: "k2", Type: ocr.BlockKey, Text: "Given names", Confidence: 0.98, ValueIDs: []string{"l1"}},
			}, nil
		},
	}
	engine := NewEngine(backend, nil)

	transcript, err := engine.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Empty(t, transcript.KeyValuePairs)
}

func TestEngineFallsBackWhenFormAnalysisFails(t *testing.T) {
	tests := []struct {
		name    string
		analyze func(ctx context.Context, data []byte) ([]ocr.Block, error)
	}{
		{
			name: "analysis_throws",
			analyze: func(ctx context.Context, data []byte) ([]ocr.Block, error) {
				return nil, errors.New("backend exploded")
			},
		},
		{
			name: "analysis_returns_no_lines",
			analyze: func(ctx context.Context, data []byte) ([]ocr.Block, error) {
				return []ocr.Block{
					{ID: "k1", Type: ocr.BlockKey, Text: "orphan", Confidence: 0.9},
				}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{
				analyze: tt.analyze,
				detect: func(ctx context.Context, data []byte) ([]ocr.Line, error) {
					return []ocr.Line{
						{Text: "line one", Confidence: 0.8},
						{Text: "line two", Confidence: 0.6},
					}, nil
				},
			}
			engine := NewEngine(backend, nil)

			transcript, err := engine.Recognize(context.Background(), []byte("img"))
			require.NoError(t, err)

			assert.Equal(t, "line one\nline two", transcript.Text)
			// Fallback confidence is the mean of line confidences, never the
			// form-analysis constant.
			assert.InDelta(t, 0.7, transcript.Confidence, 1e-9)
			assert.Empty(t, transcript.KeyValuePairs)
		})
	}
}

func TestEngineNothingReadableIsValidOutput(t *testing.T) {
	backend := &fakeBackend{
		analyze: func(ctx context.Context, data []byte) ([]ocr.Block, error) {
			return nil, nil
		},
		detect: func(ctx context.Context, data []byte) ([]ocr.Line, error) {
			return nil, nil
		},
	}
	engine := NewEngine(backend, nil)

	transcript, err := engine.Recognize(context.Background(), []byte("blank"))
	require.NoError(t, err)
	assert.True(t, transcript.Empty())
	assert.Zero(t, transcript.Confidence)
}

func TestEngineSurfacesErrorWhenAllStrategiesFail(t *testing.T) {
	backend := &fakeBackend{
		analyze: func(ctx context.Context, data []byte) ([]ocr.Block, error) {
			return nil, errors.New("form analysis down")
		},
		detect: func(ctx context.Context, data []byte) ([]ocr.Line, error) {
			return nil, ocr.ErrDocumentTooLarge
		},
	}
	engine := NewEngine(backend, nil)

	_, err := engine.Recognize(context.Background(), []byte("huge"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ocr.ErrDocumentTooLarge)
}
