// package progress tracks single-flight backend operations observed through the
// shared progress slot.
//
// The backend exposes exactly one progress tuple for whichever operation is
// running, with no per-operation identifier on the wire. Correctness therefore
// depends on two client-side mechanisms: a monotonic staleness token that
// silences poll loops belonging to superseded operations ([Guard]), and a
// stage-label table that rejects snapshots owned by unrelated operation kinds
// ([StageTable]).
package progress

import "sync"

// Guard mints a monotonic token each time a tracked single-flight operation
// (re)starts. A poll loop closes over the token it was started with; once a
// newer operation begins, every response carrying the old token is discarded
// and that loop stops rescheduling. Late responses from a superseded operation
// can therefore never be applied, regardless of arrival order.
type Guard struct {
	mu      sync.Mutex
	current uint64
}

// Begin mints the next token and records it as active.
func (g *Guard) Begin() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
	return g.current
}

// Current returns the currently active token. Zero means no operation has
// ever started.
func (g *Guard) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Valid reports whether tok is still the active token.
func (g *Guard) Valid(tok uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return tok == g.current
}
