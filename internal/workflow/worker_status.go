package workflow

import (
	"podscribe/internal/queue"
)

// StatusSummary is a snapshot of worker diagnostics.
type StatusSummary struct {
	WorkerID  string
	Running   bool
	Processed int
	Failed    int
	LastError string
	LastJob   *queue.JobRecord
}

// Status returns the latest worker information.
func (w *Worker) Status() StatusSummary {
	w.mu.RLock()
	defer w.mu.RUnlock()
	summary := StatusSummary{
		WorkerID:  w.id,
		Running:   w.running,
		Processed: w.processed,
		Failed:    w.failed,
	}
	if w.lastErr != nil {
		summary.LastError = w.lastErr.Error()
	}
	if w.lastJob != nil {
		cp := w.lastJob.Clone()
		summary.LastJob = &cp
	}
	return summary
}

func (w *Worker) recordResult(job *queue.JobRecord, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.processed++
	if err != nil {
		w.failed++
		w.lastErr = err
	}
	if job != nil {
		cp := job.Clone()
		w.lastJob = &cp
	}
}

func (w *Worker) setLastError(err error) {
	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()
}
