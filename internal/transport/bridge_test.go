package transport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ashgrove/chorus/internal/shared"
)

// stubBridge records calls and answers from a canned table keyed by op name.
type stubBridge struct {
	answers map[string]json.RawMessage
	err     error
	calls   []string
}

func (b *stubBridge) Call(ctx context.Context, op string, payload json.RawMessage) (json.RawMessage, error) {
	b.calls = append(b.calls, op)
	if b.err != nil {
		return nil, b.err
	}
	answer, ok := b.answers[op]
	if !ok {
		return nil, errors.New("unknown operation: " + op)
	}
	return answer, nil
}

func TestBridgeTransport(t *testing.T) {
	t.Run("dispatches named operations", func(t *testing.T) {
		bridge := &stubBridge{answers: map[string]json.RawMessage{
			"submitGeneration": json.RawMessage(`{"job_id":"job-9"}`),
		}}
		tr := NewBridgeTransport(bridge)

		result, err := tr.SubmitGeneration(context.Background(), GenerationParams{Prompt: "a waltz"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.JobID != "job-9" {
			t.Errorf("expected job-9, got %q", result.JobID)
		}
		if len(bridge.calls) != 1 || bridge.calls[0] != "submitGeneration" {
			t.Errorf("unexpected calls %v", bridge.calls)
		}
	})

	t.Run("bridge failure becomes TransportError", func(t *testing.T) {
		bridge := &stubBridge{err: errors.New("host bridge panicked")}
		tr := NewBridgeTransport(bridge)

		_, err := tr.SharedProgress(context.Background())
		if !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected transport error, got %v", err)
		}
	})

	t.Run("ok:false envelope becomes OperationError", func(t *testing.T) {
		bridge := &stubBridge{answers: map[string]json.RawMessage{
			"controlTraining": json.RawMessage(`{"ok":false,"error":"no training run active"}`),
		}}
		tr := NewBridgeTransport(bridge)

		_, err := tr.ControlTraining(context.Background(), TrainingPause)
		if !errors.Is(err, shared.ErrOperationFailed) {
			t.Errorf("expected operation error, got %v", err)
		}
	})

	t.Run("job status payload carries the id", func(t *testing.T) {
		bridge := &stubBridge{answers: map[string]json.RawMessage{
			"getJobStatus": json.RawMessage(`{"state":"running"}`),
		}}
		tr := NewBridgeTransport(bridge)

		status, err := tr.JobStatus(context.Background(), "job-3")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status.State != JobRunning {
			t.Errorf("expected running, got %s", status.State)
		}
	})

	t.Run("malformed result becomes TransportError", func(t *testing.T) {
		bridge := &stubBridge{answers: map[string]json.RawMessage{
			"listArtifacts": json.RawMessage(`[not json`),
		}}
		tr := NewBridgeTransport(bridge)

		_, err := tr.ListArtifacts(context.Background())
		if !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected transport error, got %v", err)
		}
	})
}

func TestDetect(t *testing.T) {
	t.Run("bridge wins when provided", func(t *testing.T) {
		tr := Detect(&stubBridge{}, "http://127.0.0.1:7260", 0)
		if tr.Name() != "bridge" {
			t.Errorf("expected bridge transport, got %s", tr.Name())
		}
	})

	t.Run("http otherwise", func(t *testing.T) {
		tr := Detect(nil, "", 0)
		if tr.Name() != "http" {
			t.Errorf("expected http transport, got %s", tr.Name())
		}
	})
}
