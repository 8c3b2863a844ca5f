package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ashgrove/chorus/internal/transport"
)

// Options configures the scripted backend.
type Options struct {
	StepsPerJob  int  // JobStatus polls from queued to succeeded (default 3)
	InstallPolls int  // FeatureStatus polls from downloading to ready (default 2)
	Legacy       bool // complete generation inline instead of assigning job ids
}

// Backend is a deterministic stand-in for the studio backend. Job and feature
// state advance one step per poll, so a client polling at any cadence observes
// the full queued → running → terminal lifecycle.
//
// Backend implements [transport.Bridge]; wrap it in a BridgeTransport or serve
// it over HTTP via [NewHTTPHandler] to exercise either hosting mode.
type Backend struct {
	mu   sync.Mutex
	opts Options

	nextJob  int
	jobs     map[string]*stubJob
	queue    []string // ids still queued, in submission order
	features map[string]*stubFeature

	progress  transport.ProgressSnapshot
	artifacts []transport.Artifact
	current   int

	training string // idle, running, paused

	failNextSubmit  string
	failNextInstall string
}

type stubJob struct {
	id    string
	kind  string
	title string
	polls int
	fail  string
	done  bool
}

type stubFeature struct {
	state transport.FeatureState
	polls int
	fail  string
}

// NewBackend creates a scripted backend with every feature absent except the
// generator, which starts ready so plain generation works out of the box.
func NewBackend(opts Options) *Backend {
	if opts.StepsPerJob <= 0 {
		opts.StepsPerJob = 3
	}
	if opts.InstallPolls <= 0 {
		opts.InstallPolls = 2
	}

	features := make(map[string]*stubFeature)
	for _, id := range []string{"generator", "lyricist", "stems", "midi", "voice"} {
		features[id] = &stubFeature{state: transport.FeatureAbsent}
	}
	features["generator"].state = transport.FeatureReady

	return &Backend{
		opts:     opts,
		jobs:     make(map[string]*stubJob),
		features: features,
		current:  -1,
		training: "idle",
	}
}

// FailNextSubmit scripts the next submitted job to fail with msg.
func (b *Backend) FailNextSubmit(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNextSubmit = msg
}

// FailNextInstall scripts the next ensured feature to end in an error state.
func (b *Backend) FailNextInstall(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNextInstall = msg
}

// SetFeatureState overrides a feature's state, e.g. to start a test with a
// ready stems model.
func (b *Backend) SetFeatureState(id string, state transport.FeatureState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if f, ok := b.features[id]; ok {
		f.state = state
		f.polls = 0
	}
}

// SetProgress overrides the shared progress slot, e.g. to plant a stale
// terminal tuple from a previous operation.
func (b *Backend) SetProgress(snap transport.ProgressSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progress = snap
}

func (b *Backend) submit(kind, title string) *transport.SubmitResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.opts.Legacy && kind == "song" {
		artifact := b.appendArtifactLocked(kind, title)
		b.progress = transport.ProgressSnapshot{Stage: "generate", Fraction: 1, Done: true}
		return &transport.SubmitResult{Done: true, Artifact: &artifact}
	}

	b.nextJob++
	id := fmt.Sprintf("job-%d", b.nextJob)
	job := &stubJob{id: id, kind: kind, title: title, fail: b.failNextSubmit}
	b.failNextSubmit = ""
	b.jobs[id] = job
	b.queue = append(b.queue, id)
	return &transport.SubmitResult{JobID: id}
}

func (b *Backend) jobStatus(id string) (*transport.JobStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	job, ok := b.jobs[id]
	if !ok {
		return nil, fmt.Errorf("unknown job: %s", id)
	}

	job.polls++
	switch {
	case job.polls == 1:
		return &transport.JobStatus{State: transport.JobQueued, QueuePosition: b.queuePositionLocked(id)}, nil
	case job.polls <= b.opts.StepsPerJob:
		b.dequeueLocked(id)
		fraction := float64(job.polls-1) / float64(b.opts.StepsPerJob)
		b.progress = transport.ProgressSnapshot{Stage: "generate", Fraction: fraction}
		return &transport.JobStatus{State: transport.JobRunning}, nil
	case job.fail != "":
		b.dequeueLocked(id)
		job.done = true
		return &transport.JobStatus{State: transport.JobFailed, Error: job.fail}, nil
	default:
		b.dequeueLocked(id)
		if !job.done {
			job.done = true
			artifact := b.appendArtifactLocked(job.kind, job.title)
			b.progress = transport.ProgressSnapshot{Stage: "generate", Fraction: 1, Done: true}
			return &transport.JobStatus{State: transport.JobSucceeded, Result: &artifact}, nil
		}
		result := b.artifactForLocked(job)
		return &transport.JobStatus{State: transport.JobSucceeded, Result: result}, nil
	}
}

func (b *Backend) sharedProgress() transport.ProgressSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

func (b *Backend) featureStatus(id string) (*transport.FeatureStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, ok := b.features[id]
	if !ok {
		return nil, fmt.Errorf("unknown feature: %s", id)
	}

	if f.state == transport.FeatureDownloading {
		f.polls++
		fraction := float64(f.polls) / float64(b.opts.InstallPolls)
		if fraction > 1 {
			fraction = 1
		}
		b.progress = transport.ProgressSnapshot{
			Stage:    "install:" + id,
			Fraction: fraction,
		}
		if f.polls >= b.opts.InstallPolls {
			if f.fail != "" {
				f.state = transport.FeatureError
				b.progress.Error = f.fail
				return &transport.FeatureStatus{State: f.state, Message: f.fail}, nil
			}
			f.state = transport.FeatureReady
			b.progress.Done = true
		}
	}

	return &transport.FeatureStatus{
		Ready: f.state == transport.FeatureReady,
		State: f.state,
	}, nil
}

func (b *Backend) ensureFeature(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, ok := b.features[id]
	if !ok {
		return fmt.Errorf("unknown feature: %s", id)
	}

	if f.state != transport.FeatureReady {
		f.state = transport.FeatureDownloading
		f.polls = 0
		f.fail = b.failNextInstall
		b.failNextInstall = ""
		b.progress = transport.ProgressSnapshot{Stage: "install:" + id}
	}
	return nil
}

func (b *Backend) listArtifacts() *transport.ArtifactListing {
	b.mu.Lock()
	defer b.mu.Unlock()

	listing := &transport.ArtifactListing{Current: b.current}
	listing.Artifacts = append(listing.Artifacts, b.artifacts...)
	return listing
}

func (b *Backend) controlTraining(action transport.TrainingAction) *transport.TrainingResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch action {
	case transport.TrainingPause:
		if b.training != "running" {
			return &transport.TrainingResult{OK: false, Message: "no training run active"}
		}
		b.training = "paused"
		return &transport.TrainingResult{OK: true, Message: "training paused"}
	case transport.TrainingResume:
		if b.training != "paused" {
			return &transport.TrainingResult{OK: false, Message: "training is not paused"}
		}
		b.training = "running"
		return &transport.TrainingResult{OK: true, Message: "training resumed"}
	case transport.TrainingCancel:
		if b.training == "idle" {
			return &transport.TrainingResult{OK: false, Message: "no training run active"}
		}
		b.training = "idle"
		return &transport.TrainingResult{OK: true, Message: "training canceled"}
	}
	return &transport.TrainingResult{OK: false, Message: "unknown action"}
}

// StartTraining puts the scripted training run into the running state.
func (b *Backend) StartTraining() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.training = "running"
}

func (b *Backend) appendArtifactLocked(kind, title string) transport.Artifact {
	artifact := transport.Artifact{
		ID:           fmt.Sprintf("artifact-%d", len(b.artifacts)+1),
		Title:        title,
		Kind:         kind,
		Path:         fmt.Sprintf("/outputs/%s-%d.wav", kind, len(b.artifacts)+1),
		DurationSecs: 30,
		CreatedAt:    time.Now(),
	}
	b.artifacts = append(b.artifacts, artifact)
	b.current = len(b.artifacts) - 1
	return artifact
}

func (b *Backend) artifactForLocked(job *stubJob) *transport.Artifact {
	for i := range b.artifacts {
		if b.artifacts[i].Title == job.title {
			return &b.artifacts[i]
		}
	}
	return nil
}

func (b *Backend) queuePositionLocked(id string) int {
	for i, queued := range b.queue {
		if queued == id {
			return i + 1
		}
	}
	return 0
}

func (b *Backend) dequeueLocked(id string) {
	for i, queued := range b.queue {
		if queued == id {
			b.queue = append(b.queue[:i], b.queue[i+1:]...)
			return
		}
	}
}

// Call implements [transport.Bridge] by dispatching named operations to the
// same state machine the HTTP handlers use.
func (b *Backend) Call(ctx context.Context, op string, payload json.RawMessage) (json.RawMessage, error) {
	switch op {
	case "submitGeneration":
		var params transport.GenerationParams
		if err := json.Unmarshal(payload, &params); err != nil {
			return nil, err
		}
		return json.Marshal(b.submit("song", titleOr(params.Prompt, "Untitled song")))
	case "submitSeparation":
		var params transport.SeparationParams
		if err := json.Unmarshal(payload, &params); err != nil {
			return nil, err
		}
		return json.Marshal(b.submit("stems", "Stems of "+params.ArtifactID))
	case "submitMidiExtraction":
		var params transport.MIDIParams
		if err := json.Unmarshal(payload, &params); err != nil {
			return nil, err
		}
		return json.Marshal(b.submit("midi", "MIDI of "+params.ArtifactID))
	case "submitVoiceClone":
		var params transport.VoiceCloneParams
		if err := json.Unmarshal(payload, &params); err != nil {
			return nil, err
		}
		return json.Marshal(b.submit("voice", titleOr(params.Name, "Voice clone")))
	case "getJobStatus":
		var req struct {
			JobID string `json:"job_id"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, err
		}
		status, err := b.jobStatus(req.JobID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(status)
	case "getSharedProgress":
		return json.Marshal(b.sharedProgress())
	case "getFeatureStatus":
		var req struct {
			FeatureID string `json:"feature_id"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, err
		}
		status, err := b.featureStatus(req.FeatureID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(status)
	case "ensureFeature":
		var req struct {
			FeatureID string `json:"feature_id"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, err
		}
		if err := b.ensureFeature(req.FeatureID); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"ok": true})
	case "listArtifacts":
		return json.Marshal(b.listArtifacts())
	case "controlTraining":
		var req struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, err
		}
		return json.Marshal(b.controlTraining(transport.TrainingAction(req.Action)))
	}
	return nil, fmt.Errorf("unknown operation: %s", op)
}

func titleOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
