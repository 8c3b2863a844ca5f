// package jobs tracks concurrently running backend jobs by id.
//
// Each tracked job gets a local placeholder entry (visible in listings before
// the backend produces anything) and its own poll loop against the per-job
// status endpoint. Jobs are independent: one job failing or timing out never
// blocks progress or affordance updates for its siblings. This is the
// preferred tracking model for new surfaces; the shared progress slot in
// internal/progress exists for legacy backends only.
package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/transport"
)

// Job is the tracker's view of one outstanding backend job.
type Job struct {
	ID            string    // server-assigned job id
	PlaceholderID string    // locally synthesized listing entry id
	Kind          string    // song, stems, midi, voice
	Title         string    // display title for the placeholder
	State         transport.JobState
	QueuePosition int // 0 = not queued / unknown
	StartedAt     time.Time
	TimeoutAt     time.Time
}

// Event reports a state change for a tracked job. Terminal events carry either
// the resulting artifact or the error (operation failure or client timeout).
type Event struct {
	Job      Job
	Artifact *transport.Artifact
	Err      error
}

// Terminal reports whether the event removed the job from the active set.
func (e Event) Terminal() bool {
	return e.Job.State.Terminal() || e.Err != nil
}

// Options configures a Tracker.
type Options struct {
	Interval time.Duration // per-job poll cadence; default 800ms
	Timeout  time.Duration // liveness ceiling per job; default 10m
	// OnTerminal runs after a job is removed from the active set, exactly once
	// per job. The engine uses it to refresh the authoritative artifact
	// listing; local job state is never treated as a source of truth.
	OnTerminal func(Event)
}

// Tracker manages N independently polled jobs.
type Tracker struct {
	transport transport.Transport
	logger    *log.Logger
	opts      Options

	mu   sync.Mutex
	jobs map[string]*tracked

	events chan Event
}

type tracked struct {
	job    Job
	cancel context.CancelFunc
}

// NewTracker creates a Tracker over the given transport.
func NewTracker(t transport.Transport, logger *log.Logger, opts Options) *Tracker {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.Interval <= 0 {
		opts.Interval = 800 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}

	return &Tracker{
		transport: t,
		logger:    logger,
		opts:      opts,
		jobs:      make(map[string]*tracked),
		events:    make(chan Event, 64),
	}
}

// Events returns the tracker's event stream. Events are dropped rather than
// block a poll loop if the consumer falls behind.
func (t *Tracker) Events() <-chan Event { return t.events }

// Track registers jobID for polling and returns its placeholder entry.
// Tracking an id that is already tracked returns the existing placeholder.
func (t *Tracker) Track(ctx context.Context, jobID, kind, title string) Job {
	t.mu.Lock()
	if existing, ok := t.jobs[jobID]; ok {
		job := existing.job
		t.mu.Unlock()
		return job
	}

	now := time.Now()
	job := Job{
		ID:            jobID,
		PlaceholderID: shared.GenerateID(),
		Kind:          kind,
		Title:         title,
		State:         transport.JobQueued,
		StartedAt:     now,
		TimeoutAt:     now.Add(t.opts.Timeout),
	}

	pollCtx, cancel := context.WithCancel(ctx)
	t.jobs[jobID] = &tracked{job: job, cancel: cancel}
	t.mu.Unlock()

	go t.poll(pollCtx, jobID)
	return job
}

// Remove stops polling jobID and drops its placeholder. Removing an id that is
// not tracked (or was already removed) is a safe no-op.
func (t *Tracker) Remove(jobID string) bool {
	t.mu.Lock()
	entry, ok := t.jobs[jobID]
	if ok {
		delete(t.jobs, jobID)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	entry.cancel()
	return true
}

// Jobs returns a snapshot of the active set ordered by submission time.
func (t *Tracker) Jobs() []Job {
	t.mu.Lock()
	out := make([]Job, 0, len(t.jobs))
	for _, entry := range t.jobs {
		out = append(out, entry.job)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Len returns the number of jobs still being tracked.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Active reports whether anything is still generating. The answer is derived
// from the active set's size, never from any single job's status, so one job
// completing does not re-enable controls while siblings remain.
func (t *Tracker) Active() bool { return t.Len() > 0 }

// poll is the per-job loop. Poll errors log and retry; only a terminal backend
// status or the timeout ceiling ends the loop.
func (t *Tracker) poll(ctx context.Context, jobID string) {
	ticker := time.NewTicker(t.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Parent teardown: drop the entry so Active() does not report a
			// job nothing is polling anymore. After finalize or Remove the
			// id is already gone and this is a no-op.
			t.Remove(jobID)
			return
		case <-ticker.C:
		}

		if t.expired(jobID) {
			t.finalize(jobID, func(job *Job) Event {
				job.State = transport.JobFailed
				return Event{Job: *job, Err: &shared.TimeoutError{JobID: jobID}}
			})
			return
		}

		status, err := t.transport.JobStatus(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				t.Remove(jobID)
				return
			}
			t.logger.Debug("job poll failed", "job", jobID, "err", err)
			continue
		}

		switch status.State {
		case transport.JobSucceeded:
			t.finalize(jobID, func(job *Job) Event {
				job.State = transport.JobSucceeded
				return Event{Job: *job, Artifact: status.Result}
			})
			return
		case transport.JobFailed:
			t.finalize(jobID, func(job *Job) Event {
				job.State = transport.JobFailed
				msg := status.Error
				if msg == "" {
					msg = "backend reported failure"
				}
				return Event{Job: *job, Err: shared.NewOperationError("getJobStatus", jobID, msg)}
			})
			return
		default:
			t.advance(jobID, status)
		}
	}
}

func (t *Tracker) expired(jobID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.jobs[jobID]
	return ok && time.Now().After(entry.job.TimeoutAt)
}

// advance updates queued/running state and emits an event only when something
// visible changed.
func (t *Tracker) advance(jobID string, status *transport.JobStatus) {
	t.mu.Lock()
	entry, ok := t.jobs[jobID]
	if !ok {
		t.mu.Unlock()
		return
	}

	changed := entry.job.State != status.State || entry.job.QueuePosition != status.QueuePosition
	entry.job.State = status.State
	entry.job.QueuePosition = status.QueuePosition
	job := entry.job
	t.mu.Unlock()

	if changed {
		t.emit(Event{Job: job})
	}
}

// finalize removes the job and emits its terminal event exactly once. A late
// backend status arriving after a timeout removal finds the job gone and does
// nothing.
func (t *Tracker) finalize(jobID string, build func(*Job) Event) {
	t.mu.Lock()
	entry, ok := t.jobs[jobID]
	if ok {
		delete(t.jobs, jobID)
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	entry.cancel()

	event := build(&entry.job)
	t.emit(event)
	if t.opts.OnTerminal != nil {
		t.opts.OnTerminal(event)
	}
}

func (t *Tracker) emit(event Event) {
	select {
	case t.events <- event:
	default:
		t.logger.Debug("dropping job event, consumer behind", "job", event.Job.ID)
	}
}
