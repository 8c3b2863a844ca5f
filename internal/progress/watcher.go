package progress

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/transport"
)

// Update is one observation of a tracked single-flight operation.
type Update struct {
	Kind     Kind
	Stage    string
	Fraction float64 // monotone per operation once real progress is observed
	Message  string
	Done     bool  // terminal success
	Err      error // terminal failure (OperationError)
}

// Terminal reports whether this update ends the operation.
func (u Update) Terminal() bool { return u.Done || u.Err != nil }

// Expectation declares which snapshots a watch owns: the operation kind that
// started the slot, and optionally the detail suffix (e.g. the feature id of
// an install). Snapshots resolving to anything else are ignored.
type Expectation struct {
	Kind   Kind
	Detail string
}

func (e Expectation) owns(table StageTable, stage string) bool {
	kind, detail := table.Resolve(stage)
	if kind != e.Kind {
		return false
	}
	return e.Detail == "" || e.Detail == detail
}

// Watcher polls the backend's shared progress slot for one single-flight
// operation at a time. Each Watch mints a fresh guard token, so starting a new
// watch permanently silences the previous one even if its in-flight poll
// resolves later.
type Watcher struct {
	transport transport.Transport
	guard     *Guard
	stages    StageTable
	logger    *log.Logger
}

// NewWatcher creates a Watcher over the given transport.
func NewWatcher(t transport.Transport, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Watcher{
		transport: t,
		guard:     &Guard{},
		stages:    DefaultStages(),
		logger:    logger,
	}
}

// Guard exposes the watcher's staleness guard, mainly for tests and for
// callers that need to invalidate tracking without starting a new watch.
func (w *Watcher) Guard() *Guard { return w.guard }

// Watch starts tracking the operation described by want, polling at interval.
// The returned channel delivers updates until a terminal signal or until the
// watch is superseded or ctx is canceled, then closes. Terminal signals are
// sticky: they are honored only after real progress has been observed, so a
// leftover terminal tuple from the slot's previous occupant is never mistaken
// for this operation finishing early.
func (w *Watcher) Watch(ctx context.Context, want Expectation, interval time.Duration) <-chan Update {
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}

	token := w.guard.Begin()
	out := make(chan Update, 1)

	go w.poll(ctx, token, want, interval, out)
	return out
}

func (w *Watcher) poll(ctx context.Context, token uint64, want Expectation, interval time.Duration, out chan<- Update) {
	defer close(out)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// One-way flag: set after the first snapshot that shows this operation
	// actually running. Until then, done/error readings are leftovers from
	// whatever previously occupied the shared slot.
	realProgress := false
	maxFraction := 0.0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap, err := w.transport.SharedProgress(ctx)

		// The staleness check happens after the call returns, not before it is
		// made: an in-flight response that resolved late must still be dropped.
		if !w.guard.Valid(token) {
			return
		}
		if err != nil {
			// Failed polls log and retry; only supersession or a terminal
			// snapshot ends the loop.
			w.logger.Debug("progress poll failed", "kind", want.Kind.String(), "err", err)
			continue
		}

		if !want.owns(w.stages, snap.Stage) {
			// Another operation kind occupies the slot right now.
			continue
		}

		// Only a non-terminal reading proves this operation is the slot's
		// current occupant; a leftover done/error tuple may carry any fraction.
		if !snap.Done && snap.Error == "" {
			realProgress = true
		}
		if snap.Fraction > maxFraction {
			maxFraction = snap.Fraction
		}

		update := Update{
			Kind:     want.Kind,
			Stage:    snap.Stage,
			Fraction: maxFraction,
			Message:  snap.Message,
		}

		if snap.Error != "" && realProgress {
			update.Err = shared.NewOperationError("getSharedProgress", want.Detail, snap.Error)
		}
		if snap.Done && realProgress {
			update.Done = true
			update.Fraction = 1
		}

		select {
		case out <- update:
		case <-ctx.Done():
			return
		}

		if update.Terminal() {
			// Self-cancel: a forgotten poller could re-apply this terminal
			// tuple to whatever operation reuses the slot next.
			return
		}
	}
}
