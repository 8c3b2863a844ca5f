package studio

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ashgrove/chorus/internal/features"
	"github.com/ashgrove/chorus/internal/jobs"
	"github.com/ashgrove/chorus/internal/transport"
)

// BatchOpts contains configuration for batch generation submissions.
type BatchOpts struct {
	RateLimit float64 // Submissions per second (default: 2)
}

// BatchSubmission is the per-prompt outcome of a batch run.
type BatchSubmission struct {
	Params transport.GenerationParams // The submitted parameters
	Job    *jobs.Job                  // Tracked job (nil if submission failed)
	Error  error                      // Submission error, if any
}

// BatchResult summarizes a batch generation run.
type BatchResult struct {
	Total       int
	Submitted   int
	Failed      int
	Submissions []BatchSubmission
}

// GenerateBatch submits multiple generation requests with rate limiting.
//
// Submissions are rate limited to avoid flooding the backend's queue; each
// accepted job is handed to the concurrent tracker and polls independently.
// A failed submission is recorded and does not stop the rest of the batch.
func (e *Engine) GenerateBatch(ctx context.Context, batch []transport.GenerationParams, prog chan<- ProgressUpdate, opts BatchOpts) (*BatchResult, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("empty batch")
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	if redirected, _, err := e.gate(ctx, features.Generator, prog); redirected {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("generator model not ready; install started")
	}

	result := &BatchResult{
		Total:       len(batch),
		Submissions: make([]BatchSubmission, 0, len(batch)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	for i, params := range batch {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		e.sendProgress(prog, ProgressUpdate{
			Phase:   Submitting,
			Message: fmt.Sprintf("Submitting %d/%d...", i+1, len(batch)),
		})

		submission := BatchSubmission{Params: params}
		submit, err := e.transport.SubmitGeneration(ctx, params)
		switch {
		case err != nil:
			submission.Error = err
			result.Failed++
		case submit.Done:
			// Legacy inline completion; nothing to track.
			result.Submitted++
		default:
			title := params.Prompt
			if title == "" {
				title = fmt.Sprintf("Batch song %d", i+1)
			}
			job := e.tracker.Track(ctx, submit.JobID, "song", title)
			submission.Job = &job
			result.Submitted++
			e.sendProgress(prog, queuedUpdate(job))
		}

		result.Submissions = append(result.Submissions, submission)
	}

	return result, nil
}
