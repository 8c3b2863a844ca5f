// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/ashgrove/chorus/internal/transport"
)

// MockTransport is a scriptable test double for [transport.Transport].
//
// Each operation delegates to the corresponding Fn field when set and falls
// back to an inert default otherwise. Calls counts every operation by name.
type MockTransport struct {
	mu    sync.Mutex
	calls map[string]int

	SubmitGenerationFn     func(ctx context.Context, params transport.GenerationParams) (*transport.SubmitResult, error)
	SubmitSeparationFn     func(ctx context.Context, params transport.SeparationParams) (*transport.SubmitResult, error)
	SubmitMIDIExtractionFn func(ctx context.Context, params transport.MIDIParams) (*transport.SubmitResult, error)
	SubmitVoiceCloneFn     func(ctx context.Context, params transport.VoiceCloneParams) (*transport.SubmitResult, error)
	JobStatusFn            func(ctx context.Context, jobID string) (*transport.JobStatus, error)
	SharedProgressFn       func(ctx context.Context) (*transport.ProgressSnapshot, error)
	FeatureStatusFn        func(ctx context.Context, featureID string) (*transport.FeatureStatus, error)
	EnsureFeatureFn        func(ctx context.Context, featureID string) error
	ListArtifactsFn        func(ctx context.Context) (*transport.ArtifactListing, error)
	ControlTrainingFn      func(ctx context.Context, action transport.TrainingAction) (*transport.TrainingResult, error)
}

var _ transport.Transport = (*MockTransport)(nil)

func (m *MockTransport) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

// Calls returns how many times the named operation was invoked.
func (m *MockTransport) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockTransport) SubmitGeneration(ctx context.Context, params transport.GenerationParams) (*transport.SubmitResult, error) {
	m.record("submitGeneration")
	if m.SubmitGenerationFn != nil {
		return m.SubmitGenerationFn(ctx, params)
	}
	return &transport.SubmitResult{JobID: "job-mock"}, nil
}

func (m *MockTransport) SubmitSeparation(ctx context.Context, params transport.SeparationParams) (*transport.SubmitResult, error) {
	m.record("submitSeparation")
	if m.SubmitSeparationFn != nil {
		return m.SubmitSeparationFn(ctx, params)
	}
	return &transport.SubmitResult{JobID: "job-mock"}, nil
}

func (m *MockTransport) SubmitMIDIExtraction(ctx context.Context, params transport.MIDIParams) (*transport.SubmitResult, error) {
	m.record("submitMidiExtraction")
	if m.SubmitMIDIExtractionFn != nil {
		return m.SubmitMIDIExtractionFn(ctx, params)
	}
	return &transport.SubmitResult{JobID: "job-mock"}, nil
}

func (m *MockTransport) SubmitVoiceClone(ctx context.Context, params transport.VoiceCloneParams) (*transport.SubmitResult, error) {
	m.record("submitVoiceClone")
	if m.SubmitVoiceCloneFn != nil {
		return m.SubmitVoiceCloneFn(ctx, params)
	}
	return &transport.SubmitResult{JobID: "job-mock"}, nil
}

func (m *MockTransport) JobStatus(ctx context.Context, jobID string) (*transport.JobStatus, error) {
	m.record("getJobStatus")
	if m.JobStatusFn != nil {
		return m.JobStatusFn(ctx, jobID)
	}
	return &transport.JobStatus{State: transport.JobRunning}, nil
}

func (m *MockTransport) SharedProgress(ctx context.Context) (*transport.ProgressSnapshot, error) {
	m.record("getSharedProgress")
	if m.SharedProgressFn != nil {
		return m.SharedProgressFn(ctx)
	}
	return &transport.ProgressSnapshot{}, nil
}

func (m *MockTransport) FeatureStatus(ctx context.Context, featureID string) (*transport.FeatureStatus, error) {
	m.record("getFeatureStatus")
	if m.FeatureStatusFn != nil {
		return m.FeatureStatusFn(ctx, featureID)
	}
	return &transport.FeatureStatus{Ready: true, State: transport.FeatureReady}, nil
}

func (m *MockTransport) EnsureFeature(ctx context.Context, featureID string) error {
	m.record("ensureFeature")
	if m.EnsureFeatureFn != nil {
		return m.EnsureFeatureFn(ctx, featureID)
	}
	return nil
}

func (m *MockTransport) ListArtifacts(ctx context.Context) (*transport.ArtifactListing, error) {
	m.record("listArtifacts")
	if m.ListArtifactsFn != nil {
		return m.ListArtifactsFn(ctx)
	}
	return &transport.ArtifactListing{Current: -1}, nil
}

func (m *MockTransport) ControlTraining(ctx context.Context, action transport.TrainingAction) (*transport.TrainingResult, error) {
	m.record("controlTraining")
	if m.ControlTrainingFn != nil {
		return m.ControlTrainingFn(ctx, action)
	}
	return &transport.TrainingResult{OK: true}, nil
}

func (m *MockTransport) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}
