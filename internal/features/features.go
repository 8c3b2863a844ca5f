// package features gates capabilities on model readiness.
//
// Each optional backend capability (the main generator, lyrics assist, stem
// separation, MIDI extraction, voice cloning) needs a one-time model download
// before use. The tracker holds one state machine per feature and decides, at
// the moment a gated action is invoked, whether the action runs normally or is
// redirected to an install. There is no separate install control; the primary
// action control is dual-purpose and its label follows the current state.
package features

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/transport"
)

// ID identifies one gated backend capability.
type ID string

const (
	Generator ID = "generator" // main song generation model
	Lyricist  ID = "lyricist"  // lyrics-assist model
	Stems     ID = "stems"     // stem separation model
	MIDI      ID = "midi"      // MIDI extraction model
	Voice     ID = "voice"     // voice cloning model
)

// Known lists every feature the tracker manages. Features are created at
// construction as unknown and live for the whole session.
func Known() []ID {
	return []ID{Generator, Lyricist, Stems, MIDI, Voice}
}

// Feature is one capability's readiness snapshot.
type Feature struct {
	ID      ID
	State   transport.FeatureState
	Message string
}

// Effective returns the state as the UI should treat it: unknown behaves like
// absent.
func (f Feature) Effective() transport.FeatureState {
	if f.State == transport.FeatureUnknown {
		return transport.FeatureAbsent
	}
	return f.State
}

// Action describes what invoking the dual-purpose control should do right now.
type Action int

const (
	ActionRun     Action = iota // feature ready; run the normal action
	ActionInstall               // trigger Ensure instead
	ActionBusy                  // download in flight; control disabled
)

// Decision is the click-time resolution for a gated control.
type Decision struct {
	Action   Action
	Label    string
	Disabled bool // true iff the feature is downloading
}

// Tracker tracks readiness of every known feature.
type Tracker struct {
	transport transport.Transport
	logger    *log.Logger
	interval  time.Duration

	mu       sync.Mutex
	features map[ID]*Feature
	watching map[ID]context.CancelFunc

	updates chan Feature
}

// NewTracker creates a Tracker with every known feature in the unknown state.
func NewTracker(t transport.Transport, logger *log.Logger, interval time.Duration) *Tracker {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if interval <= 0 {
		interval = 4 * time.Second
	}

	features := make(map[ID]*Feature, len(Known()))
	for _, id := range Known() {
		features[id] = &Feature{ID: id, State: transport.FeatureUnknown}
	}

	return &Tracker{
		transport: t,
		logger:    logger,
		interval:  interval,
		features:  features,
		watching:  make(map[ID]context.CancelFunc),
		updates:   make(chan Feature, 16),
	}
}

// Updates returns the stream of readiness changes. Updates are dropped rather
// than block a poll loop if the consumer falls behind.
func (t *Tracker) Updates() <-chan Feature { return t.updates }

// Get returns the current snapshot for id.
func (t *Tracker) Get(id ID) (Feature, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.features[id]
	if !ok {
		return Feature{}, fmt.Errorf("%w: %s", shared.ErrFeatureNotFound, id)
	}
	return *f, nil
}

// All returns snapshots for every feature, ordered by id.
func (t *Tracker) All() []Feature {
	t.mu.Lock()
	out := make([]Feature, 0, len(t.features))
	for _, f := range t.features {
		out = append(out, *f)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Refresh polls the backend once for id's readiness and applies the result.
func (t *Tracker) Refresh(ctx context.Context, id ID) (Feature, error) {
	status, err := t.transport.FeatureStatus(ctx, string(id))
	if err != nil {
		return Feature{}, err
	}
	t.apply(id, status.State, status.Message)
	return t.Get(id)
}

// Ensure triggers the feature's model download. Fire-and-forget: on success
// the state moves to downloading and a poll loop runs until the state leaves
// downloading. On failure the state becomes error with a message and the
// control re-enables for manual retry; there is no automatic retry loop.
func (t *Tracker) Ensure(ctx context.Context, id ID) error {
	if _, err := t.Get(id); err != nil {
		return err
	}

	if err := t.transport.EnsureFeature(ctx, string(id)); err != nil {
		t.apply(id, transport.FeatureError, err.Error())
		return err
	}

	t.apply(id, transport.FeatureDownloading, "")
	t.watch(ctx, id)
	return nil
}

// Resolve decides at invocation time what the gated control for id does.
// verb is the ready-state label (e.g. "Generate").
func (t *Tracker) Resolve(id ID, verb string) Decision {
	f, err := t.Get(id)
	if err != nil {
		return Decision{Action: ActionInstall, Label: "Install"}
	}

	switch f.Effective() {
	case transport.FeatureReady:
		return Decision{Action: ActionRun, Label: verb}
	case transport.FeatureDownloading:
		return Decision{Action: ActionBusy, Label: "Installing…", Disabled: true}
	case transport.FeatureError:
		return Decision{Action: ActionInstall, Label: "Retry install"}
	default: // absent
		return Decision{Action: ActionInstall, Label: "Install"}
	}
}

// watch polls readiness until the state leaves downloading. Readiness polling
// has no ceiling; model downloads may legitimately run for many minutes.
func (t *Tracker) watch(ctx context.Context, id ID) {
	t.mu.Lock()
	if _, running := t.watching[id]; running {
		t.mu.Unlock()
		return
	}
	watchCtx, cancel := context.WithCancel(ctx)
	t.watching[id] = cancel
	t.mu.Unlock()

	go func() {
		defer func() {
			t.mu.Lock()
			delete(t.watching, id)
			t.mu.Unlock()
			cancel()
		}()

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
			}

			status, err := t.transport.FeatureStatus(watchCtx, string(id))
			if err != nil {
				// A failed readiness poll is retried, never terminal.
				t.logger.Debug("feature poll failed", "feature", id, "err", err)
				continue
			}

			t.apply(id, status.State, status.Message)

			// Terminate on the applied state, not the raw reading: a stale
			// "absent" that apply refused to regress on must not end the
			// watch while the install is still in flight.
			if f, err := t.Get(id); err == nil && f.State != transport.FeatureDownloading {
				return
			}
		}
	}()
}

// apply enforces the legal transition paths:
//
//	{absent,error,unknown} → downloading (via Ensure)
//	downloading → ready | error (via polls)
//	any → ready (idempotent)
//
// A ready feature never regresses to absent without an intervening state; a
// stale "absent" while downloading (the backend hasn't registered the install
// yet) is ignored rather than flapping the UI.
func (t *Tracker) apply(id ID, state transport.FeatureState, message string) {
	t.mu.Lock()
	f, ok := t.features[id]
	if !ok {
		t.mu.Unlock()
		return
	}

	prev := f.State
	next := state

	switch {
	case next == transport.FeatureReady:
		// Always legal.
	case prev == transport.FeatureReady && (next == transport.FeatureAbsent || next == transport.FeatureUnknown):
		next = prev
	case prev == transport.FeatureDownloading && (next == transport.FeatureAbsent || next == transport.FeatureUnknown):
		next = prev
	}

	changed := f.State != next || f.Message != message
	f.State = next
	f.Message = message
	snapshot := *f
	t.mu.Unlock()

	if changed {
		select {
		case t.updates <- snapshot:
		default:
			t.logger.Debug("dropping feature update, consumer behind", "feature", id)
		}
	}
}
