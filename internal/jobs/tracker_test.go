package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ashgrove/chorus/internal/shared"
	tu "github.com/ashgrove/chorus/internal/testing"
	"github.com/ashgrove/chorus/internal/transport"
)

const testInterval = 5 * time.Millisecond

func waitTerminal(t *testing.T, tracker *Tracker, want int) []Event {
	t.Helper()
	var terminal []Event
	deadline := time.After(5 * time.Second)
	for len(terminal) < want {
		select {
		case event := <-tracker.Events():
			if event.Terminal() {
				terminal = append(terminal, event)
			}
		case <-deadline:
			t.Fatalf("timed out, got %d of %d terminal events", len(terminal), want)
		}
	}
	return terminal
}

func TestTracker(t *testing.T) {
	t.Run("placeholder is visible immediately", func(t *testing.T) {
		blocked := make(chan struct{})
		mock := &tu.MockTransport{
			JobStatusFn: func(ctx context.Context, jobID string) (*transport.JobStatus, error) {
				<-blocked
				return &transport.JobStatus{State: transport.JobRunning}, nil
			},
		}
		tracker := NewTracker(mock, nil, Options{Interval: testInterval})
		defer close(blocked)

		job := tracker.Track(context.Background(), "job-1", "song", "Test song")

		if job.PlaceholderID == "" {
			t.Error("expected a synthesized placeholder id")
		}
		if job.State != transport.JobQueued {
			t.Errorf("expected initial state queued, got %s", job.State)
		}
		if !tracker.Active() {
			t.Error("expected tracker active with one job")
		}
		if got := len(tracker.Jobs()); got != 1 {
			t.Errorf("expected 1 job in listing, got %d", got)
		}
	})

	t.Run("tracking the same id twice returns the existing entry", func(t *testing.T) {
		mock := &tu.MockTransport{}
		tracker := NewTracker(mock, nil, Options{Interval: time.Hour})

		first := tracker.Track(context.Background(), "job-1", "song", "Test song")
		second := tracker.Track(context.Background(), "job-1", "song", "Test song")

		if first.PlaceholderID != second.PlaceholderID {
			t.Error("expected idempotent tracking to reuse the placeholder")
		}
		if tracker.Len() != 1 {
			t.Errorf("expected 1 tracked job, got %d", tracker.Len())
		}
	})

	t.Run("three jobs poll independently and one failure does not block siblings", func(t *testing.T) {
		var mu sync.Mutex
		polls := map[string]int{}
		mock := &tu.MockTransport{
			JobStatusFn: func(ctx context.Context, jobID string) (*transport.JobStatus, error) {
				mu.Lock()
				polls[jobID]++
				n := polls[jobID]
				mu.Unlock()

				if n < 3 {
					return &transport.JobStatus{State: transport.JobRunning}, nil
				}
				if jobID == "job-2" {
					return &transport.JobStatus{State: transport.JobFailed, Error: "sampler crashed"}, nil
				}
				return &transport.JobStatus{
					State:  transport.JobSucceeded,
					Result: &transport.Artifact{ID: "artifact-" + jobID, Title: jobID},
				}, nil
			},
		}
		tracker := NewTracker(mock, nil, Options{Interval: testInterval})

		ctx := context.Background()
		tracker.Track(ctx, "job-1", "song", "One")
		tracker.Track(ctx, "job-2", "song", "Two")
		tracker.Track(ctx, "job-3", "stems", "Three")

		terminal := waitTerminal(t, tracker, 3)

		failures := 0
		successes := 0
		for _, event := range terminal {
			if event.Err != nil {
				failures++
				if event.Job.ID != "job-2" {
					t.Errorf("unexpected failure for %s", event.Job.ID)
				}
			} else {
				successes++
				if event.Artifact == nil {
					t.Errorf("successful job %s carried no artifact", event.Job.ID)
				}
			}
		}
		if failures != 1 || successes != 2 {
			t.Errorf("expected 1 failure and 2 successes, got %d/%d", failures, successes)
		}
		if tracker.Active() {
			t.Error("expected tracker idle after all jobs finished")
		}
	})

	t.Run("queue position surfaces while queued", func(t *testing.T) {
		var mu sync.Mutex
		polls := 0
		mock := &tu.MockTransport{
			JobStatusFn: func(ctx context.Context, jobID string) (*transport.JobStatus, error) {
				mu.Lock()
				defer mu.Unlock()
				polls++
				if polls == 1 {
					return &transport.JobStatus{State: transport.JobQueued, QueuePosition: 2}, nil
				}
				return &transport.JobStatus{State: transport.JobSucceeded}, nil
			},
		}
		tracker := NewTracker(mock, nil, Options{Interval: testInterval})
		tracker.Track(context.Background(), "job-1", "song", "Queued song")

		deadline := time.After(5 * time.Second)
		sawPosition := false
		for {
			select {
			case event := <-tracker.Events():
				if event.Job.QueuePosition == 2 {
					sawPosition = true
				}
				if event.Terminal() {
					if !sawPosition {
						t.Error("never observed queue position 2")
					}
					return
				}
			case <-deadline:
				t.Fatal("timed out waiting for terminal event")
			}
		}
	})

	t.Run("timeout emits exactly one terminal event", func(t *testing.T) {
		var terminalCalls sync.Map
		var count int32
		var mu sync.Mutex

		mock := &tu.MockTransport{
			JobStatusFn: func(ctx context.Context, jobID string) (*transport.JobStatus, error) {
				return &transport.JobStatus{State: transport.JobRunning}, nil
			},
		}
		tracker := NewTracker(mock, nil, Options{
			Interval: testInterval,
			Timeout:  20 * time.Millisecond,
			OnTerminal: func(event Event) {
				mu.Lock()
				count++
				mu.Unlock()
				terminalCalls.Store(event.Job.ID, event)
			},
		})

		tracker.Track(context.Background(), "job-slow", "song", "Slow song")

		terminal := waitTerminal(t, tracker, 1)
		if !errors.Is(terminal[0].Err, shared.ErrTimeout) {
			t.Errorf("expected timeout error, got %v", terminal[0].Err)
		}

		// Give any straggler poll a chance to misfire.
		time.Sleep(10 * testInterval)
		mu.Lock()
		defer mu.Unlock()
		if count != 1 {
			t.Errorf("expected exactly one terminal hook call, got %d", count)
		}
		if tracker.Len() != 0 {
			t.Errorf("expected timed-out job removed, got %d tracked", tracker.Len())
		}
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		mock := &tu.MockTransport{}
		tracker := NewTracker(mock, nil, Options{Interval: time.Hour})
		tracker.Track(context.Background(), "job-1", "song", "Test song")

		if !tracker.Remove("job-1") {
			t.Error("expected first removal to report true")
		}
		if tracker.Remove("job-1") {
			t.Error("expected second removal to be a no-op")
		}
		if tracker.Remove("job-never-tracked") {
			t.Error("expected removing an unknown id to be a no-op")
		}
		if tracker.Active() {
			t.Error("expected tracker idle after removal")
		}
	})

	t.Run("canceling the parent context drains the active set", func(t *testing.T) {
		mock := &tu.MockTransport{
			JobStatusFn: func(ctx context.Context, jobID string) (*transport.JobStatus, error) {
				return &transport.JobStatus{State: transport.JobRunning}, nil
			},
		}
		tracker := NewTracker(mock, nil, Options{Interval: testInterval})

		ctx, cancel := context.WithCancel(context.Background())
		tracker.Track(ctx, "job-1", "song", "A")
		tracker.Track(ctx, "job-2", "song", "B")

		cancel()

		deadline := time.After(5 * time.Second)
		for tracker.Active() {
			select {
			case <-deadline:
				t.Fatalf("tracker still reports %d active jobs after teardown", tracker.Len())
			case <-time.After(testInterval):
			}
		}
	})

	t.Run("jobs are listed in submission order", func(t *testing.T) {
		mock := &tu.MockTransport{}
		tracker := NewTracker(mock, nil, Options{Interval: time.Hour})

		ctx := context.Background()
		tracker.Track(ctx, "job-a", "song", "A")
		time.Sleep(time.Millisecond)
		tracker.Track(ctx, "job-b", "song", "B")
		time.Sleep(time.Millisecond)
		tracker.Track(ctx, "job-c", "song", "C")

		listed := tracker.Jobs()
		if len(listed) != 3 {
			t.Fatalf("expected 3 jobs, got %d", len(listed))
		}
		for i, want := range []string{"job-a", "job-b", "job-c"} {
			if listed[i].ID != want {
				t.Errorf("position %d: expected %s, got %s", i, want, listed[i].ID)
			}
		}
	})
}
