package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashgrove/chorus/internal/shared"
)

func TestHTTPTransport(t *testing.T) {
	t.Run("submit decodes a job id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/generate" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			var params GenerationParams
			if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			if params.Prompt != "an upbeat synth jam" {
				t.Errorf("unexpected prompt %q", params.Prompt)
			}
			json.NewEncoder(w).Encode(SubmitResult{JobID: "job-7"})
		}))
		defer server.Close()

		tr := NewHTTPTransport(server.URL, time.Second)
		result, err := tr.SubmitGeneration(context.Background(), GenerationParams{Prompt: "an upbeat synth jam"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.JobID != "job-7" {
			t.Errorf("expected job-7, got %q", result.JobID)
		}
	})

	t.Run("legacy inline completion", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(SubmitResult{
				Done:     true,
				Artifact: &Artifact{ID: "artifact-1", Title: "Inline song"},
			})
		}))
		defer server.Close()

		tr := NewHTTPTransport(server.URL, time.Second)
		result, err := tr.SubmitGeneration(context.Background(), GenerationParams{Prompt: "x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Done || result.Artifact == nil {
			t.Errorf("expected inline completion, got %+v", result)
		}
	})

	t.Run("backend error becomes OperationError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"error": "prompt too long"})
		}))
		defer server.Close()

		tr := NewHTTPTransport(server.URL, time.Second)
		_, err := tr.SubmitGeneration(context.Background(), GenerationParams{})
		if !errors.Is(err, shared.ErrOperationFailed) {
			t.Errorf("expected operation error, got %v", err)
		}

		var opErr *shared.OperationError
		if !errors.As(err, &opErr) {
			t.Fatal("expected *shared.OperationError")
		}
		if opErr.Message != "prompt too long" {
			t.Errorf("unexpected message %q", opErr.Message)
		}
	})

	t.Run("non-JSON failure becomes TransportError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>bad gateway</html>"))
		}))
		defer server.Close()

		tr := NewHTTPTransport(server.URL, time.Second)
		_, err := tr.JobStatus(context.Background(), "job-1")
		if !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected transport error, got %v", err)
		}
	})

	t.Run("connection refused becomes TransportError", func(t *testing.T) {
		tr := NewHTTPTransport("http://127.0.0.1:1", 100*time.Millisecond)
		_, err := tr.SharedProgress(context.Background())
		if !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected transport error, got %v", err)
		}
	})

	t.Run("job status hits the namespaced endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/jobs/job-42" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			json.NewEncoder(w).Encode(JobStatus{State: JobQueued, QueuePosition: 3})
		}))
		defer server.Close()

		tr := NewHTTPTransport(server.URL, time.Second)
		status, err := tr.JobStatus(context.Background(), "job-42")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status.State != JobQueued || status.QueuePosition != 3 {
			t.Errorf("unexpected status %+v", status)
		}
	})

	t.Run("invalid training action rejected client side", func(t *testing.T) {
		tr := NewHTTPTransport("http://127.0.0.1:1", time.Second)
		_, err := tr.ControlTraining(context.Background(), TrainingAction("restart"))
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
	})

	t.Run("ensure decodes the ack", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/features/stems/ensure" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			json.NewEncoder(w).Encode(map[string]bool{"ok": false})
		}))
		defer server.Close()

		tr := NewHTTPTransport(server.URL, time.Second)
		err := tr.EnsureFeature(context.Background(), "stems")
		if !errors.Is(err, shared.ErrOperationFailed) {
			t.Errorf("expected operation error on declined install, got %v", err)
		}
	})
}

func TestJobState(t *testing.T) {
	for _, tc := range []struct {
		state    JobState
		terminal bool
	}{
		{JobQueued, false},
		{JobRunning, false},
		{JobSucceeded, true},
		{JobFailed, true},
	} {
		if tc.state.Terminal() != tc.terminal {
			t.Errorf("%s: expected Terminal()=%v", tc.state, tc.terminal)
		}
	}
}
