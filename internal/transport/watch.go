package transport

import (
	"context"
	"time"
)

// WatchProgress exposes "subscribe to progress" as one capability over both
// hosting modes. When the transport's underlying bridge can push updates it is
// used directly; otherwise SharedProgress is polled at the given interval.
//
// The returned channel closes when ctx is canceled. Failed polls are skipped,
// not surfaced; the poll loop itself never terminates on error.
func WatchProgress(ctx context.Context, t Transport, interval time.Duration) <-chan ProgressSnapshot {
	if bt, ok := t.(*BridgeTransport); ok {
		if notifier, ok := bt.bridge.(ProgressNotifier); ok {
			if ch, err := notifier.NotifyProgress(ctx); err == nil {
				return ch
			}
			// Push setup failed; fall through to polling.
		}
	}

	if interval <= 0 {
		interval = 800 * time.Millisecond
	}

	out := make(chan ProgressSnapshot)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap, err := t.SharedProgress(ctx)
				if err != nil {
					continue
				}
				select {
				case out <- *snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
