package models

import "strings"

// KeyValuePair is one detected form field: a label, its associated value,
// and the weaker of the two entities' confidences.
type KeyValuePair struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Transcript is the OCR output for one document or one page: ordered text,
// a scalar confidence in [0,1], and any detected form pairs. Confidence
// reflects the weakest evidence path actually used; a transcript produced
// through a fallback never claims the primary path's quality.
type Transcript struct {
	Text          string         `json:"text"`
	Confidence    float64        `json:"confidence"`
	KeyValuePairs []KeyValuePair `json:"keyValuePairs,omitempty"`
}

// Empty reports whether the transcript carries no readable text.
func (t Transcript) Empty() bool {
	return strings.TrimSpace(t.Text) == ""
}
