package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/ashgrove/chorus/internal/formatter"
	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/transport"
)

// JobsList prints the jobs tracked in this session.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	return r.writePlain("%s", formatter.FormatJobs(r.engine.Tracker().Jobs()))
}

// JobsWatch polls one job until it reaches a terminal state.
//
// The per-job timeout ceiling applies; a job that outlives it is reported as
// timed out even if the backend later answers.
func (r *Runner) JobsWatch(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.String("id")
	kind := cmd.String("kind")

	r.logger.Info("watching job", "id", jobID, "kind", kind)
	r.engine.Tracker().Track(ctx, jobID, kind, jobID)

	var lastState transport.JobState
	for r.engine.Tracker().Active() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-r.engine.Tracker().Events():
			if !ok {
				return nil
			}
			if event.Job.ID != jobID {
				continue
			}

			if event.Terminal() {
				if event.Err != nil {
					if errors.Is(event.Err, shared.ErrTimeout) {
						r.writePlain("✗ Job %s timed out; the backend may still be working\n", jobID)
					} else {
						r.writePlain("✗ Job %s failed: %v\n", jobID, event.Err)
					}
					return event.Err
				}
				r.writePlain("✓ Job %s succeeded", jobID)
				if event.Artifact != nil {
					r.writePlain(": %s", event.Artifact.Title)
				}
				r.writePlain("\n")
				return nil
			}

			if event.Job.State != lastState {
				lastState = event.Job.State
				switch event.Job.State {
				case transport.JobQueued:
					r.writePlain("🪑 queued (position %d)\n", event.Job.QueuePosition)
				case transport.JobRunning:
					r.writePlain("▶ running\n")
				}
			}
		}
	}
	return nil
}

// JobsHistory prints recorded job outcomes from the local database.
func (r *Runner) JobsHistory(ctx context.Context, cmd *cli.Command) error {
	criteria := map[string]any{}
	if outcome := cmd.String("outcome"); outcome != "" {
		criteria["outcome"] = outcome
	}
	if kind := cmd.String("kind"); kind != "" {
		criteria["kind"] = kind
	}

	records, err := r.engine.History(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		rows := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			rows = append(rows, map[string]any{
				"job_id":       rec.JobID(),
				"kind":         rec.Kind(),
				"outcome":      rec.Outcome(),
				"message":      rec.Message(),
				"submitted_at": rec.SubmittedAt(),
				"finished_at":  rec.FinishedAt(),
			})
		}
		return r.writeJSON(rows, true)
	}

	return r.writePlain("%s", formatter.FormatHistory(records))
}
