// package models defines the persistent entities backing local listings and job history
package models

import (
	"fmt"
	"time"

	"github.com/ashgrove/chorus/internal/transport"
)

// Model defines the base interface for all persistent models.
// Implementations include PersistedArtifact and JobRecord.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// record holds the lifecycle fields shared by all persistent entities.
type record struct {
	id        string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

func (r *record) ID() string           { return r.id }
func (r *record) CreatedAt() time.Time { return r.createdAt }
func (r *record) UpdatedAt() time.Time { return r.updatedAt }
func (r *record) DeletedAt() *time.Time {
	return r.deletedAt
}

// SetID sets the entity's identifier; used by repositories on insert.
func (r *record) SetID(id string) { r.id = id }

// Touch updates the modification timestamp.
func (r *record) Touch() { r.updatedAt = time.Now() }

// ArtifactKinds lists the artifact kinds the backend produces.
var ArtifactKinds = []string{"song", "stems", "midi", "voice"}

// PersistedArtifact caches one backend artifact for offline listings.
// The backend listing is authoritative; cached rows are replaced on refresh.
type PersistedArtifact struct {
	record
	sequence     int
	backendID    string
	title        string
	kind         string
	path         string
	durationSecs int
	isCurrent    bool
}

// NewPersistedArtifact creates a cache row from a backend artifact.
func NewPersistedArtifact(sequence int, dto transport.Artifact, isCurrent bool) *PersistedArtifact {
	now := time.Now()
	createdAt := dto.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return &PersistedArtifact{
		record:       record{createdAt: createdAt, updatedAt: now},
		sequence:     sequence,
		backendID:    dto.ID,
		title:        dto.Title,
		kind:         dto.Kind,
		path:         dto.Path,
		durationSecs: dto.DurationSecs,
		isCurrent:    isCurrent,
	}
}

func (a *PersistedArtifact) Sequence() int     { return a.sequence }
func (a *PersistedArtifact) BackendID() string { return a.backendID }
func (a *PersistedArtifact) Title() string     { return a.title }
func (a *PersistedArtifact) Kind() string      { return a.kind }
func (a *PersistedArtifact) Path() string      { return a.path }
func (a *PersistedArtifact) DurationSecs() int { return a.durationSecs }
func (a *PersistedArtifact) IsCurrent() bool   { return a.isCurrent }

// SetCurrent marks whether this artifact is the backend's current pointer.
func (a *PersistedArtifact) SetCurrent(current bool) {
	a.isCurrent = current
	a.Touch()
}

// DTO converts the cache row back into the transport shape.
func (a *PersistedArtifact) DTO() transport.Artifact {
	return transport.Artifact{
		ID:           a.backendID,
		Title:        a.title,
		Kind:         a.kind,
		Path:         a.path,
		DurationSecs: a.durationSecs,
		CreatedAt:    a.createdAt,
	}
}

// Validate checks required fields and the artifact kind.
func (a *PersistedArtifact) Validate() error {
	if a.backendID == "" {
		return fmt.Errorf("artifact backend id is required")
	}
	if a.title == "" {
		return fmt.Errorf("artifact title is required")
	}
	for _, kind := range ArtifactKinds {
		if a.kind == kind {
			return nil
		}
	}
	return fmt.Errorf("invalid artifact kind: %q", a.kind)
}

// Job outcomes recorded in history.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeTimeout   = "timeout"
)

// JobRecord is the terminal outcome of one tracked job, appended exactly once
// when the job leaves the active set.
type JobRecord struct {
	record
	sequence    int
	jobID       string
	kind        string
	outcome     string
	message     string
	submittedAt time.Time
	finishedAt  time.Time
}

// NewJobRecord creates a history row for a finished job.
func NewJobRecord(sequence int, jobID, kind, outcome, message string, submittedAt time.Time) *JobRecord {
	now := time.Now()
	return &JobRecord{
		record:      record{createdAt: now, updatedAt: now},
		sequence:    sequence,
		jobID:       jobID,
		kind:        kind,
		outcome:     outcome,
		message:     message,
		submittedAt: submittedAt,
		finishedAt:  now,
	}
}

func (j *JobRecord) Sequence() int          { return j.sequence }
func (j *JobRecord) JobID() string          { return j.jobID }
func (j *JobRecord) Kind() string           { return j.kind }
func (j *JobRecord) Outcome() string        { return j.outcome }
func (j *JobRecord) Message() string        { return j.message }
func (j *JobRecord) SubmittedAt() time.Time { return j.submittedAt }
func (j *JobRecord) FinishedAt() time.Time  { return j.finishedAt }

// SetFinishedAt overrides the finish timestamp; used when rehydrating rows.
func (j *JobRecord) SetFinishedAt(t time.Time) { j.finishedAt = t }

// Validate checks required fields and the outcome value.
func (j *JobRecord) Validate() error {
	if j.jobID == "" {
		return fmt.Errorf("job id is required")
	}
	switch j.outcome {
	case OutcomeSucceeded, OutcomeFailed, OutcomeTimeout:
		return nil
	}
	return fmt.Errorf("invalid job outcome: %q", j.outcome)
}
