package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"podscribe/internal/fileutil"
)

func (w *Worker) transcriptPath(jobID string) string {
	return filepath.Join(w.transcriptsDir, jobID+".txt")
}

func (w *Worker) summaryPath(jobID string) string {
	return filepath.Join(w.summariesDir, jobID+".json")
}

func writeSummary(path string, doc SummaryDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return fileutil.WriteAtomic(path, append(data, '\n'))
}

// ReadSummary loads a summary document written by a worker.
func ReadSummary(path string) (SummaryDocument, error) {
	var doc SummaryDocument
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read summary: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse summary %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}
