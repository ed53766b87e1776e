// Package report writes run results as JSON documents and HTML pages.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/niuniu-server/niuniu-load/internal/engine"
)

// Document is the serialized form of a run.
type Document struct {
	*engine.Result
	Passed  bool     `json:"passed"`
	History []Sample `json:"history,omitempty"`
}

// NewDocument bundles a result with its time series.
func NewDocument(result *engine.Result, history []Sample) *Document {
	return &Document{Result: result, Passed: !result.Failed(), History: history}
}

// WriteJSON writes the document as indented JSON.
func WriteJSON(w io.Writer, doc *Document) error {
	if doc == nil || doc.Result == nil {
		return fmt.Errorf("result cannot be nil")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

// SaveJSON writes the document to path.
func SaveJSON(doc *Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSON report: %w", err)
	}
	if err := WriteJSON(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
