package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/transport"
)

func TestBackendBridge(t *testing.T) {
	ctx := context.Background()

	t.Run("job lifecycle advances one step per poll", func(t *testing.T) {
		backend := NewBackend(Options{StepsPerJob: 3})
		tr := transport.NewBridgeTransport(backend)

		result, err := tr.SubmitGeneration(ctx, transport.GenerationParams{Prompt: "night drive"})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		if result.JobID == "" {
			t.Fatal("expected a job id")
		}

		status, err := tr.JobStatus(ctx, result.JobID)
		if err != nil {
			t.Fatal(err)
		}
		if status.State != transport.JobQueued || status.QueuePosition != 1 {
			t.Errorf("expected queued at position 1, got %+v", status)
		}

		var sawRunning bool
		for i := 0; i < 10; i++ {
			status, err = tr.JobStatus(ctx, result.JobID)
			if err != nil {
				t.Fatal(err)
			}
			if status.State == transport.JobRunning {
				sawRunning = true
			}
			if status.State.Terminal() {
				break
			}
		}
		if !sawRunning {
			t.Error("never observed the running state")
		}
		if status.State != transport.JobSucceeded {
			t.Fatalf("expected success, got %+v", status)
		}
		if status.Result == nil || status.Result.Title != "night drive" {
			t.Errorf("expected the prompt as artifact title, got %+v", status.Result)
		}

		listing, err := tr.ListArtifacts(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(listing.Artifacts) != 1 || listing.Current != 0 {
			t.Errorf("expected one current artifact, got %+v", listing)
		}
	})

	t.Run("scripted failure", func(t *testing.T) {
		backend := NewBackend(Options{StepsPerJob: 2})
		backend.FailNextSubmit("sampler crashed")
		tr := transport.NewBridgeTransport(backend)

		result, _ := tr.SubmitGeneration(ctx, transport.GenerationParams{Prompt: "doomed"})
		var status *transport.JobStatus
		var err error
		for i := 0; i < 10; i++ {
			status, err = tr.JobStatus(ctx, result.JobID)
			if err != nil {
				t.Fatal(err)
			}
			if status.State.Terminal() {
				break
			}
		}
		if status.State != transport.JobFailed || status.Error != "sampler crashed" {
			t.Errorf("expected scripted failure, got %+v", status)
		}
	})

	t.Run("legacy mode finishes inline", func(t *testing.T) {
		backend := NewBackend(Options{Legacy: true})
		tr := transport.NewBridgeTransport(backend)

		result, err := tr.SubmitGeneration(ctx, transport.GenerationParams{Prompt: "quick one"})
		if err != nil {
			t.Fatal(err)
		}
		if !result.Done || result.Artifact == nil {
			t.Fatalf("expected inline completion, got %+v", result)
		}

		snap, err := tr.SharedProgress(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !snap.Done || snap.Stage != "generate" {
			t.Errorf("expected terminal generate progress, got %+v", snap)
		}
	})

	t.Run("feature install ticks to ready and owns the progress slot", func(t *testing.T) {
		backend := NewBackend(Options{InstallPolls: 2})
		tr := transport.NewBridgeTransport(backend)

		status, err := tr.FeatureStatus(ctx, "stems")
		if err != nil {
			t.Fatal(err)
		}
		if status.State != transport.FeatureAbsent {
			t.Errorf("expected stems absent initially, got %s", status.State)
		}

		if err := tr.EnsureFeature(ctx, "stems"); err != nil {
			t.Fatal(err)
		}

		for i := 0; i < 5; i++ {
			status, err = tr.FeatureStatus(ctx, "stems")
			if err != nil {
				t.Fatal(err)
			}
			if status.Ready {
				break
			}
		}
		if !status.Ready {
			t.Fatal("feature never became ready")
		}

		snap, err := tr.SharedProgress(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(snap.Stage, "install:stems") {
			t.Errorf("expected install:stems stage, got %q", snap.Stage)
		}
	})

	t.Run("scripted install failure", func(t *testing.T) {
		backend := NewBackend(Options{InstallPolls: 1})
		backend.FailNextInstall("disk full")
		tr := transport.NewBridgeTransport(backend)

		if err := tr.EnsureFeature(ctx, "midi"); err != nil {
			t.Fatal(err)
		}

		var status *transport.FeatureStatus
		var err error
		for i := 0; i < 5; i++ {
			status, err = tr.FeatureStatus(ctx, "midi")
			if err != nil {
				t.Fatal(err)
			}
			if status.State == transport.FeatureError {
				break
			}
		}
		if status.State != transport.FeatureError || status.Message != "disk full" {
			t.Errorf("expected scripted install error, got %+v", status)
		}
	})

	t.Run("training controls", func(t *testing.T) {
		backend := NewBackend(Options{})
		tr := transport.NewBridgeTransport(backend)

		result, err := tr.ControlTraining(ctx, transport.TrainingCancel)
		if err != nil {
			t.Fatal(err)
		}
		if result.OK {
			t.Error("expected cancel to fail while idle")
		}

		backend.StartTraining()
		result, _ = tr.ControlTraining(ctx, transport.TrainingPause)
		if !result.OK {
			t.Errorf("expected pause to succeed, got %+v", result)
		}
		result, _ = tr.ControlTraining(ctx, transport.TrainingResume)
		if !result.OK {
			t.Errorf("expected resume to succeed, got %+v", result)
		}
		result, _ = tr.ControlTraining(ctx, transport.TrainingCancel)
		if !result.OK {
			t.Errorf("expected cancel to succeed, got %+v", result)
		}
	})

	t.Run("unknown job is a transport-level failure", func(t *testing.T) {
		backend := NewBackend(Options{})
		tr := transport.NewBridgeTransport(backend)

		if _, err := tr.JobStatus(ctx, "job-unknown"); err == nil {
			t.Error("expected an error for an unknown job")
		}
	})
}

func TestBackendHTTP(t *testing.T) {
	backend := NewBackend(Options{StepsPerJob: 2})
	handler := NewHTTPHandler(backend, shared.NewLogger(nil))
	server := httptest.NewServer(handler)
	defer server.Close()

	tr := transport.NewHTTPTransport(server.URL, time.Second)
	ctx := context.Background()

	result, err := tr.SubmitGeneration(ctx, transport.GenerationParams{Prompt: "over http"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	var status *transport.JobStatus
	for i := 0; i < 10; i++ {
		status, err = tr.JobStatus(ctx, result.JobID)
		if err != nil {
			t.Fatal(err)
		}
		if status.State.Terminal() {
			break
		}
	}
	if status.State != transport.JobSucceeded {
		t.Fatalf("expected success over HTTP, got %+v", status)
	}

	listing, err := tr.ListArtifacts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(listing.Artifacts) != 1 {
		t.Errorf("expected one artifact, got %d", len(listing.Artifacts))
	}

	t.Run("method filtering", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/generate")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for GET on a POST route, got %d", resp.StatusCode)
		}
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/nonexistent")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("bad json body", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/api/generate", "application/json", strings.NewReader("{not json"))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestBackendCallUnknownOp(t *testing.T) {
	backend := NewBackend(Options{})
	if _, err := backend.Call(context.Background(), "destroyEverything", json.RawMessage(`{}`)); err == nil {
		t.Error("expected an error for an unknown operation")
	}
}
