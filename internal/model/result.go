package model

import "github.com/sells-group/agent-cli/internal/fiscal"

// AskResult is the structured outcome of one tabular-agent invocation.
// Text carries the assistant narrative and factual tool output; Tables and
// Images hold rendered tool artifacts in the order they were produced.
type AskResult struct {
	Text   string   `json:"text"`
	Tables []string `json:"tables,omitempty"`
	Images []string `json:"images,omitempty"` // base64-encoded PNG
}

// DocsResult is the structured outcome of one document-agent invocation.
// The stage fields carry whatever the pipeline accumulated before the loop
// terminated, even on round-cap fallback.
type DocsResult struct {
	AssistantMessage string         `json:"assistant_message"`
	OCRText          string         `json:"text_ocr,omitempty"`
	Fields           *fiscal.Fields `json:"fields,omitempty"`
	ValidationReport *fiscal.Report `json:"validation_report,omitempty"`
	SaveResult       *SaveResult    `json:"save_result,omitempty"`
}

// SaveResult reports a completed invoice persistence operation.
type SaveResult struct {
	Status    string `json:"status"`
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}
