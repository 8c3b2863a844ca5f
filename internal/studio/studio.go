// package studio implements the high-level client engine for the generation backend.
//
// The core abstraction is Engine, which composes the transport, the feature
// readiness tracker, the single-flight progress watcher, and the concurrent job
// tracker into the operations the CLI and TUI invoke. Operations emit progress
// updates via channels for non-blocking status reporting.
package studio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ashgrove/chorus/internal/features"
	"github.com/ashgrove/chorus/internal/jobs"
	"github.com/ashgrove/chorus/internal/models"
	"github.com/ashgrove/chorus/internal/progress"
	"github.com/ashgrove/chorus/internal/repositories"
	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/transport"
)

// Engine orchestrates backend operations for the CLI and TUI layers.
type Engine struct {
	transport transport.Transport
	features  *features.Tracker
	watcher   *progress.Watcher
	tracker   *jobs.Tracker
	artifacts *repositories.ArtifactRepository
	history   *repositories.JobRecordRepository
	polling   shared.PollingConfig
	logger    *log.Logger
}

// EngineOpts contains configuration options for creating an Engine.
// Artifacts and History are optional; without them listings are never cached
// and job history is not recorded.
type EngineOpts struct {
	Transport transport.Transport
	Polling   shared.PollingConfig
	Artifacts *repositories.ArtifactRepository
	History   *repositories.JobRecordRepository
	Logger    *log.Logger
}

// NewEngine creates an Engine and wires the job tracker's terminal hook to
// history recording and listing refresh.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	e := &Engine{
		transport: opts.Transport,
		features:  features.NewTracker(opts.Transport, opts.Logger, opts.Polling.FeatureInterval()),
		watcher:   progress.NewWatcher(opts.Transport, opts.Logger),
		artifacts: opts.Artifacts,
		history:   opts.History,
		polling:   opts.Polling,
		logger:    opts.Logger,
	}

	e.tracker = jobs.NewTracker(opts.Transport, opts.Logger, jobs.Options{
		Interval:   opts.Polling.JobInterval(),
		Timeout:    opts.Polling.JobTimeout(),
		OnTerminal: e.recordOutcome,
	})

	return e
}

// Features exposes the readiness tracker.
func (e *Engine) Features() *features.Tracker { return e.features }

// Tracker exposes the concurrent job tracker.
func (e *Engine) Tracker() *jobs.Tracker { return e.tracker }

// Transport exposes the active transport; callers must not branch on its name.
func (e *Engine) Transport() transport.Transport { return e.transport }

// GenerateResult is the outcome of a generation request.
//
// Exactly one of the fields is set: InstallStarted when the gate redirected to
// a model install, Job when the backend queued a concurrent job, Artifact when
// a legacy backend finished inline.
type GenerateResult struct {
	InstallStarted *features.Feature
	Job            *jobs.Job
	Artifact       *transport.Artifact
}

// GenerateSong submits a generation request through the feature gate.
//
// The gate is resolved at invocation time from current readiness: a not-ready
// generator turns this call into an install trigger instead of a generation.
func (e *Engine) GenerateSong(ctx context.Context, params transport.GenerationParams, prog chan<- ProgressUpdate) (*GenerateResult, error) {
	if redirected, result, err := e.gate(ctx, features.Generator, prog); redirected {
		return result, err
	}

	e.sendProgress(prog, submittingUpdate("generation"))
	submit, err := e.transport.SubmitGeneration(ctx, params)
	if err != nil {
		e.sendProgress(prog, failedUpdate(err))
		return nil, err
	}

	if submit.Done {
		// Legacy backend finished inline.
		e.sendProgress(prog, finishedUpdate("Generation complete", submit.Artifact))
		return &GenerateResult{Artifact: submit.Artifact}, nil
	}

	title := params.Prompt
	if title == "" {
		title = "Untitled song"
	}
	job := e.tracker.Track(ctx, submit.JobID, "song", title)
	e.sendProgress(prog, queuedUpdate(job))
	return &GenerateResult{Job: &job}, nil
}

// GenerateLegacy runs a generation against the shared single-flight progress
// slot instead of the per-job surface, for backends predating job ids. The
// call blocks until the operation reaches a terminal state or ctx is canceled.
func (e *Engine) GenerateLegacy(ctx context.Context, params transport.GenerationParams, prog chan<- ProgressUpdate) (*transport.Artifact, error) {
	if redirected, _, err := e.gate(ctx, features.Generator, prog); redirected {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: generator model install started", shared.ErrOperationFailed)
	}

	e.sendProgress(prog, submittingUpdate("generation"))
	submit, err := e.transport.SubmitGeneration(ctx, params)
	if err != nil {
		e.sendProgress(prog, failedUpdate(err))
		return nil, err
	}
	if submit.Done {
		e.sendProgress(prog, finishedUpdate("Generation complete", submit.Artifact))
		return submit.Artifact, nil
	}

	want := progress.Expectation{Kind: progress.KindGeneration}
	for update := range e.watcher.Watch(ctx, want, e.polling.ProgressInterval()) {
		if update.Err != nil {
			e.sendProgress(prog, failedUpdate(update.Err))
			return nil, update.Err
		}
		if update.Done {
			e.sendProgress(prog, finishedUpdate("Generation complete", nil))
			break
		}
		e.sendProgress(prog, runningUpdate(Generating, update.Fraction, update.Message))
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	e.sendProgress(prog, refreshListingUpdate())
	listing, err := e.RefreshArtifacts(ctx)
	if err != nil || len(listing.Artifacts) == 0 {
		return nil, err
	}
	latest := listing.Artifacts[len(listing.Artifacts)-1]
	return &latest, nil
}

// SeparateStems submits a stem separation job through the stems feature gate.
func (e *Engine) SeparateStems(ctx context.Context, params transport.SeparationParams, prog chan<- ProgressUpdate) (*GenerateResult, error) {
	return e.submitGated(ctx, features.Stems, "stems", fmt.Sprintf("Stems of %s", params.ArtifactID), prog, func() (*transport.SubmitResult, error) {
		return e.transport.SubmitSeparation(ctx, params)
	})
}

// ExtractMIDI submits a MIDI extraction job through the midi feature gate.
func (e *Engine) ExtractMIDI(ctx context.Context, params transport.MIDIParams, prog chan<- ProgressUpdate) (*GenerateResult, error) {
	return e.submitGated(ctx, features.MIDI, "midi", fmt.Sprintf("MIDI of %s", params.ArtifactID), prog, func() (*transport.SubmitResult, error) {
		return e.transport.SubmitMIDIExtraction(ctx, params)
	})
}

// CloneVoice submits a voice cloning job through the voice feature gate.
func (e *Engine) CloneVoice(ctx context.Context, params transport.VoiceCloneParams, prog chan<- ProgressUpdate) (*GenerateResult, error) {
	return e.submitGated(ctx, features.Voice, "voice", params.Name, prog, func() (*transport.SubmitResult, error) {
		return e.transport.SubmitVoiceClone(ctx, params)
	})
}

// InstallFeature triggers a model download and streams its progress until the
// feature leaves the downloading state. Install progress rides the shared
// slot, disambiguated by the install stage label carrying the feature id.
func (e *Engine) InstallFeature(ctx context.Context, id features.ID, prog chan<- ProgressUpdate) error {
	if err := e.features.Ensure(ctx, id); err != nil {
		e.sendProgress(prog, failedUpdate(err))
		return err
	}

	want := progress.Expectation{Kind: progress.KindInstall, Detail: string(id)}
	for update := range e.watcher.Watch(ctx, want, e.polling.InstallInterval()) {
		if update.Err != nil {
			e.sendProgress(prog, failedUpdate(update.Err))
			return update.Err
		}
		if update.Done {
			break
		}
		e.sendProgress(prog, installingUpdate(id, update.Fraction, update.Message))
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	f, err := e.features.Refresh(ctx, id)
	if err != nil {
		return err
	}
	if f.State == transport.FeatureError {
		err := shared.NewOperationError("ensureFeature", string(id), f.Message)
		e.sendProgress(prog, failedUpdate(err))
		return err
	}

	e.sendProgress(prog, finishedUpdate(fmt.Sprintf("%s model ready", id), f))
	return nil
}

// Training issues an explicit pause/resume/cancel control.
func (e *Engine) Training(ctx context.Context, action transport.TrainingAction) (*transport.TrainingResult, error) {
	return e.transport.ControlTraining(ctx, action)
}

// RefreshArtifacts fetches the authoritative listing and replaces the local
// cache with it.
func (e *Engine) RefreshArtifacts(ctx context.Context) (*transport.ArtifactListing, error) {
	listing, err := e.transport.ListArtifacts(ctx)
	if err != nil {
		return nil, err
	}

	if e.artifacts != nil {
		if err := e.artifacts.ReplaceAll(listing); err != nil {
			// Cache failures never mask a successful backend read.
			e.logger.Warn("failed to update artifact cache", "err", err)
		}
	}
	return listing, nil
}

// CachedArtifacts lists the local artifact cache for offline use.
func (e *Engine) CachedArtifacts() (*transport.ArtifactListing, error) {
	if e.artifacts == nil {
		return nil, fmt.Errorf("%w: no artifact cache configured", shared.ErrMissingConfig)
	}

	rows, err := e.artifacts.List(nil)
	if err != nil {
		return nil, err
	}

	listing := &transport.ArtifactListing{Current: -1}
	for i, row := range rows {
		listing.Artifacts = append(listing.Artifacts, row.DTO())
		if row.IsCurrent() {
			listing.Current = i
		}
	}
	return listing, nil
}

// History lists recorded job outcomes, newest first.
func (e *Engine) History(criteria map[string]any) ([]*models.JobRecord, error) {
	if e.history == nil {
		return nil, fmt.Errorf("%w: no job history configured", shared.ErrMissingConfig)
	}
	return e.history.List(criteria)
}

// gate resolves the feature gate for id at invocation time. When the feature
// is not ready it triggers the install path and reports redirected=true.
func (e *Engine) gate(ctx context.Context, id features.ID, prog chan<- ProgressUpdate) (bool, *GenerateResult, error) {
	// An unknown feature state means readiness was never fetched; resolve it
	// before deciding what the action means.
	if f, err := e.features.Get(id); err == nil && f.State == transport.FeatureUnknown {
		if _, err := e.features.Refresh(ctx, id); err != nil {
			e.logger.Debug("feature refresh failed", "feature", id, "err", err)
		}
	}

	decision := e.features.Resolve(id, "")
	switch decision.Action {
	case features.ActionRun:
		return false, nil, nil
	case features.ActionBusy:
		f, _ := e.features.Get(id)
		return true, &GenerateResult{InstallStarted: &f}, nil
	default:
		if err := e.features.Ensure(ctx, id); err != nil {
			e.sendProgress(prog, failedUpdate(err))
			return true, nil, err
		}
		f, _ := e.features.Get(id)
		e.sendProgress(prog, installingUpdate(id, 0, fmt.Sprintf("Downloading %s model...", id)))
		return true, &GenerateResult{InstallStarted: &f}, nil
	}
}

// submitGated is the shared submit path for feature-gated job kinds.
func (e *Engine) submitGated(ctx context.Context, id features.ID, kind, title string, prog chan<- ProgressUpdate, submit func() (*transport.SubmitResult, error)) (*GenerateResult, error) {
	if redirected, result, err := e.gate(ctx, id, prog); redirected {
		return result, err
	}

	e.sendProgress(prog, submittingUpdate(kind))
	res, err := submit()
	if err != nil {
		e.sendProgress(prog, failedUpdate(err))
		return nil, err
	}

	if res.Done {
		e.sendProgress(prog, finishedUpdate(fmt.Sprintf("%s complete", kind), res.Artifact))
		return &GenerateResult{Artifact: res.Artifact}, nil
	}

	job := e.tracker.Track(ctx, res.JobID, kind, title)
	e.sendProgress(prog, queuedUpdate(job))
	return &GenerateResult{Job: &job}, nil
}

// recordOutcome is the tracker's terminal hook: append history and, on
// success, refresh the authoritative listing. It runs once per job.
func (e *Engine) recordOutcome(event jobs.Event) {
	if e.history != nil {
		outcome := models.OutcomeSucceeded
		message := ""
		if event.Err != nil {
			outcome = models.OutcomeFailed
			message = event.Err.Error()
			// History rows carry the backend's own message; the operation
			// wrapper is poll-loop detail.
			var opErr *shared.OperationError
			if errors.As(event.Err, &opErr) {
				message = opErr.Message
			}
			var timeout *shared.TimeoutError
			if errors.As(event.Err, &timeout) {
				outcome = models.OutcomeTimeout
			}
		}

		record := models.NewJobRecord(0, event.Job.ID, event.Job.Kind, outcome, message, event.Job.StartedAt)
		if err := e.history.Create(record); err != nil {
			e.logger.Warn("failed to record job outcome", "job", event.Job.ID, "err", err)
		}
	}

	if event.Err == nil {
		// Listings come from the backend, never from local job state.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := e.RefreshArtifacts(ctx); err != nil {
			e.logger.Warn("failed to refresh artifacts after job", "job", event.Job.ID, "err", err)
		}
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}
