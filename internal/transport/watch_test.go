package transport

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// pushBridge is a stubBridge whose host can push progress updates.
type pushBridge struct {
	stubBridge
	ch chan ProgressSnapshot
}

func (b *pushBridge) NotifyProgress(ctx context.Context) (<-chan ProgressSnapshot, error) {
	return b.ch, nil
}

func TestWatchProgress(t *testing.T) {
	t.Run("uses push when the bridge supports it", func(t *testing.T) {
		bridge := &pushBridge{ch: make(chan ProgressSnapshot, 1)}
		tr := NewBridgeTransport(bridge)

		ch := WatchProgress(context.Background(), tr, time.Hour)
		bridge.ch <- ProgressSnapshot{Stage: "generate", Fraction: 0.5}

		select {
		case snap := <-ch:
			if snap.Fraction != 0.5 {
				t.Errorf("expected pushed fraction 0.5, got %v", snap.Fraction)
			}
		case <-time.After(time.Second):
			t.Fatal("pushed update never arrived")
		}
		if len(bridge.calls) != 0 {
			t.Errorf("expected no polling through a push bridge, saw %v", bridge.calls)
		}
	})

	t.Run("polls when no push is available", func(t *testing.T) {
		bridge := &stubBridge{answers: map[string]json.RawMessage{
			"getSharedProgress": json.RawMessage(`{"stage":"generate","fraction":0.25}`),
		}}
		tr := NewBridgeTransport(bridge)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch := WatchProgress(ctx, tr, 5*time.Millisecond)
		select {
		case snap := <-ch:
			if snap.Fraction != 0.25 {
				t.Errorf("expected polled fraction 0.25, got %v", snap.Fraction)
			}
		case <-time.After(time.Second):
			t.Fatal("polled update never arrived")
		}
	})

	t.Run("channel closes on cancel", func(t *testing.T) {
		bridge := &stubBridge{answers: map[string]json.RawMessage{
			"getSharedProgress": json.RawMessage(`{"stage":"generate","fraction":0.1}`),
		}}
		tr := NewBridgeTransport(bridge)

		ctx, cancel := context.WithCancel(context.Background())
		ch := WatchProgress(ctx, tr, 5*time.Millisecond)
		cancel()

		deadline := time.After(time.Second)
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
			case <-deadline:
				t.Fatal("channel never closed after cancel")
			}
		}
	})
}
