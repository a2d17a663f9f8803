package services_test

import (
	"context"
	"testing"

	"podscribe/internal/services"
)

func TestContextAnnotationsRoundTrip(t *testing.T) {
	ctx := services.WithJobID(context.Background(), "job-42")
	ctx = services.WithStage(ctx, "transcribing")
	ctx = services.WithWorkerID(ctx, "worker-1")
	ctx = services.WithRequestID(ctx, "req-123")

	checks := []struct {
		name string
		get  func(context.Context) (string, bool)
		want string
	}{
		{"job", services.JobIDFromContext, "job-42"},
		{"stage", services.StageFromContext, "transcribing"},
		{"worker", services.WorkerIDFromContext, "worker-1"},
		{"request", services.RequestIDFromContext, "req-123"},
	}
	for _, c := range checks {
		if got, ok := c.get(ctx); !ok || got != c.want {
			t.Fatalf("%s: got %q %v, want %q", c.name, got, ok, c.want)
		}
	}
}

func TestBlankValuesLeaveContextUntouched(t *testing.T) {
	base := context.Background()
	ctx := services.WithStage(services.WithJobID(base, ""), "")
	if ctx != base {
		t.Fatal("blank annotations should return the same context")
	}
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id value")
	}
}
