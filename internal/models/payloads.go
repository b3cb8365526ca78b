package models

// These structs define the JSON payloads exchanged between the processing
// workflow and the doc-processor function, and the CLI's summary output.

// ProcessDocumentRequest is the input for the doc-processor function.
type ProcessDocumentRequest struct {
	DocumentID  string `json:"documentId"`
	ExecutionID string `json:"executionId,omitempty"`
}

// ProcessDocumentResponse is the output of the doc-processor function.
// Status mirrors the terminal ProcessingStatus written to the document.
type ProcessDocumentResponse struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
	FieldCount int    `json:"fieldCount,omitempty"`
	Error      string `json:"error,omitempty"`
}
