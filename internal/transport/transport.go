// package transport defines the capability interface for talking to the studio backend.
//
// Two implementations exist: HTTPTransport for a separately hosted backend process and
// BridgeTransport for an in-process host bridge. Both expose identical semantics for
// every operation; callers are never told which one is active.
package transport

import (
	"context"
	"time"
)

// Transport defines the named operations the studio backend exposes.
//
// All transport-level failures are normalized into [shared.TransportError]; a
// backend that answers but reports failure yields [shared.OperationError]. No
// other error type escapes an implementation.
type Transport interface {
	// SubmitGeneration submits a song generation request. In concurrent mode the
	// backend assigns a job id immediately; legacy backends may instead finish
	// inline and return the artifact directly.
	SubmitGeneration(ctx context.Context, params GenerationParams) (*SubmitResult, error)

	// SubmitSeparation submits a stem separation job for an existing artifact.
	SubmitSeparation(ctx context.Context, params SeparationParams) (*SubmitResult, error)

	// SubmitMIDIExtraction submits a MIDI extraction job for an existing artifact.
	SubmitMIDIExtraction(ctx context.Context, params MIDIParams) (*SubmitResult, error)

	// SubmitVoiceClone submits a voice cloning job from a reference recording.
	SubmitVoiceClone(ctx context.Context, params VoiceCloneParams) (*SubmitResult, error)

	// JobStatus reports the current state of a submitted job.
	JobStatus(ctx context.Context, jobID string) (*JobStatus, error)

	// SharedProgress reads the backend's single global progress slot.
	SharedProgress(ctx context.Context) (*ProgressSnapshot, error)

	// FeatureStatus reports readiness of an optional backend capability.
	FeatureStatus(ctx context.Context, featureID string) (*FeatureStatus, error)

	// EnsureFeature asks the backend to download/install a feature's model.
	// Fire-and-forget: completion is observed via FeatureStatus polling.
	EnsureFeature(ctx context.Context, featureID string) error

	// ListArtifacts returns the authoritative ordered artifact list and the
	// index of the currently selected artifact.
	ListArtifacts(ctx context.Context) (*ArtifactListing, error)

	// ControlTraining issues an explicit pause/resume/cancel to a training run.
	ControlTraining(ctx context.Context, action TrainingAction) (*TrainingResult, error)

	// Name returns the transport name for logging (e.g., "http", "bridge")
	Name() string
}

// GenerationParams describes a song generation request.
type GenerationParams struct {
	Prompt       string  `json:"prompt"`
	Lyrics       string  `json:"lyrics,omitempty"`
	Style        string  `json:"style,omitempty"`
	DurationSecs int     `json:"duration_secs,omitempty"`
	Seed         int64   `json:"seed,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

// SeparationParams describes a stem separation request.
type SeparationParams struct {
	ArtifactID string   `json:"artifact_id"`
	Stems      []string `json:"stems,omitempty"` // e.g. vocals, drums, bass; empty = all
}

// MIDIParams describes a MIDI extraction request.
type MIDIParams struct {
	ArtifactID string `json:"artifact_id"`
	Stem       string `json:"stem,omitempty"`
}

// VoiceCloneParams describes a voice cloning request.
type VoiceCloneParams struct {
	ReferencePath string `json:"reference_path"`
	Name          string `json:"name"`
}

// SubmitResult is the immediate response to any submit operation.
//
// Exactly one of JobID or Done is meaningful: concurrent backends return a job
// id and the caller polls JobStatus; legacy backends finish inline and return
// the artifact with Done set.
type SubmitResult struct {
	JobID    string    `json:"job_id,omitempty"`
	Done     bool      `json:"done,omitempty"`
	Artifact *Artifact `json:"artifact,omitempty"`
}

// JobState enumerates the states a backend job reports.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// Terminal reports whether the state ends a job's lifecycle.
func (s JobState) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// JobStatus is the per-job poll response, namespaced by job id.
type JobStatus struct {
	State         JobState  `json:"state"`
	QueuePosition int       `json:"queue_position,omitempty"` // 0 = unknown/running
	Result        *Artifact `json:"result,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// ProgressSnapshot is the backend's single shared progress slot.
//
// One instance exists backend-wide, reused sequentially by unrelated operation
// kinds; readers disambiguate ownership via Stage and must ignore snapshots for
// stages they did not start.
type ProgressSnapshot struct {
	Stage    string  `json:"stage"`
	Fraction float64 `json:"fraction"` // 0..1
	Done     bool    `json:"done"`
	Error    string  `json:"error,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// FeatureState enumerates readiness states for optional backend capabilities.
type FeatureState string

const (
	FeatureAbsent      FeatureState = "absent"
	FeatureDownloading FeatureState = "downloading"
	FeatureReady       FeatureState = "ready"
	FeatureError       FeatureState = "error"
	FeatureUnknown     FeatureState = "unknown"
)

// FeatureStatus is the readiness poll response for one feature.
type FeatureStatus struct {
	Ready   bool         `json:"ready"`
	State   FeatureState `json:"state"`
	Message string       `json:"message,omitempty"`
}

// Artifact represents a generated output the backend can list.
type Artifact struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Kind         string    `json:"kind"` // song, stems, midi, voice
	Path         string    `json:"path,omitempty"`
	DurationSecs int       `json:"duration_secs,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// ArtifactListing is the ordered artifact list plus the current pointer.
type ArtifactListing struct {
	Artifacts []Artifact `json:"artifacts"`
	Current   int        `json:"current"` // index into Artifacts; -1 = none
}

// TrainingAction enumerates the explicit training controls the backend acknowledges.
type TrainingAction string

const (
	TrainingPause  TrainingAction = "pause"
	TrainingResume TrainingAction = "resume"
	TrainingCancel TrainingAction = "cancel"
)

// Valid reports whether the action is one the backend accepts.
func (a TrainingAction) Valid() bool {
	switch a {
	case TrainingPause, TrainingResume, TrainingCancel:
		return true
	}
	return false
}

// TrainingResult is the backend's acknowledgement of a training control.
type TrainingResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Detect selects the transport once at startup: the host bridge when one was
// provided, otherwise HTTP against the configured local backend. The choice is
// never revisited mid-session.
func Detect(bridge Bridge, baseURL string, timeout time.Duration) Transport {
	if bridge != nil {
		return NewBridgeTransport(bridge)
	}
	return NewHTTPTransport(baseURL, timeout)
}
