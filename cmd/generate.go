package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/studio"
	"github.com/ashgrove/chorus/internal/transport"
)

// Generate submits a song generation request.
//
// The default path submits to a concurrent backend and returns once the job is
// tracked; --legacy blocks on the shared progress channel instead, and
// --batch-file submits many requests through the rate-limited batch path.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	if batchFile := cmd.String("batch-file"); batchFile != "" {
		return r.generateBatch(ctx, cmd, batchFile)
	}

	params := transport.GenerationParams{
		Prompt:       cmd.String("prompt"),
		Lyrics:       cmd.String("lyrics"),
		Style:        cmd.String("style"),
		DurationSecs: int(cmd.Int("duration")),
		Seed:         int64(cmd.Int("seed")),
	}
	if params.Prompt == "" && params.Lyrics == "" {
		return fmt.Errorf("%w: either --prompt or --lyrics is required", shared.ErrMissingArgument)
	}

	progressCh := make(chan studio.ProgressUpdate, 50)
	done := r.renderProgress(progressCh)

	if cmd.Bool("legacy") {
		artifact, err := r.engine.GenerateLegacy(ctx, params, progressCh)
		close(progressCh)
		<-done
		if err != nil {
			return err
		}

		r.writePlainHeader("Generation Complete")
		r.writePlain("Title: %s\n", artifact.Title)
		r.writePlain("Duration: %s\n", shared.FormatDuration(artifact.DurationSecs))
		if artifact.Path != "" {
			r.writePlain("Path: %s\n", artifact.Path)
		}
		return nil
	}

	result, err := r.engine.GenerateSong(ctx, params, progressCh)
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	return r.reportSubmission(ctx, cmd, result)
}

// Stems submits a stem separation job for an artifact.
func (r *Runner) Stems(ctx context.Context, cmd *cli.Command) error {
	params := transport.SeparationParams{
		ArtifactID: cmd.String("id"),
		Stems:      cmd.StringSlice("stem"),
	}

	progressCh := make(chan studio.ProgressUpdate, 50)
	done := r.renderProgress(progressCh)

	result, err := r.engine.SeparateStems(ctx, params, progressCh)
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	return r.reportSubmission(ctx, cmd, result)
}

// MIDI submits a MIDI extraction job for an artifact.
func (r *Runner) MIDI(ctx context.Context, cmd *cli.Command) error {
	params := transport.MIDIParams{
		ArtifactID: cmd.String("id"),
		Stem:       cmd.String("stem"),
	}

	progressCh := make(chan studio.ProgressUpdate, 50)
	done := r.renderProgress(progressCh)

	result, err := r.engine.ExtractMIDI(ctx, params, progressCh)
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	return r.reportSubmission(ctx, cmd, result)
}

// Voice submits a voice cloning job from a reference recording.
func (r *Runner) Voice(ctx context.Context, cmd *cli.Command) error {
	reference := cmd.String("reference")
	if _, err := os.Stat(reference); err != nil {
		return fmt.Errorf("%w: reference recording %q not found", shared.ErrInvalidArgument, reference)
	}

	params := transport.VoiceCloneParams{
		ReferencePath: reference,
		Name:          cmd.String("name"),
	}

	progressCh := make(chan studio.ProgressUpdate, 50)
	done := r.renderProgress(progressCh)

	result, err := r.engine.CloneVoice(ctx, params, progressCh)
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	return r.reportSubmission(ctx, cmd, result)
}

func (r *Runner) generateBatch(ctx context.Context, cmd *cli.Command, batchFile string) error {
	data, err := os.ReadFile(batchFile)
	if err != nil {
		return fmt.Errorf("failed to read batch file: %w", err)
	}

	var batch []transport.GenerationParams
	if err := json.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("failed to parse batch file: %w", err)
	}

	progressCh := make(chan studio.ProgressUpdate, 50)
	done := r.renderProgress(progressCh)

	result, err := r.engine.GenerateBatch(ctx, batch, progressCh, studio.BatchOpts{
		RateLimit: cmd.Float("rate"),
	})
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	r.writePlainHeader("Batch Submitted")
	r.writePlain("Submitted: %d/%d\n", result.Submitted, result.Total)
	for _, submission := range result.Submissions {
		if submission.Error != nil {
			r.writePlain("  failed: %s (%v)\n", submission.Params.Prompt, submission.Error)
		}
	}

	if cmd.Bool("wait") {
		return r.waitForTracker(ctx)
	}
	return nil
}

// reportSubmission prints the immediate result of a gated submit and
// optionally blocks until the tracked job finishes.
func (r *Runner) reportSubmission(ctx context.Context, cmd *cli.Command, result *studio.GenerateResult) error {
	switch {
	case result.InstallStarted != nil:
		r.writePlain("Model download started; re-run once the feature is ready.\n")
		r.writePlain("Check readiness with: chorus features list --refresh\n")
		return nil
	case result.Artifact != nil:
		r.writePlain("✓ Finished inline: %s\n", result.Artifact.Title)
		return nil
	case result.Job != nil:
		r.writePlain("✓ Job %s tracked (%s)\n", result.Job.ID, result.Job.Kind)
		if cmd.Bool("wait") {
			return r.waitForTracker(ctx)
		}
		r.writePlain("Watch it with: chorus jobs watch --id %s\n", result.Job.ID)
		return nil
	}
	return nil
}

// waitForTracker drains tracker events until no tracked jobs remain.
func (r *Runner) waitForTracker(ctx context.Context) error {
	var firstErr error
	for r.engine.Tracker().Active() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-r.engine.Tracker().Events():
			if !event.Terminal() {
				continue
			}
			if event.Err != nil {
				r.writePlain("✗ %s failed: %v\n", event.Job.ID, event.Err)
				if firstErr == nil {
					firstErr = event.Err
				}
			} else if event.Artifact != nil {
				r.writePlain("✓ %s finished: %s\n", event.Job.ID, event.Artifact.Title)
			}
		}
	}
	return firstErr
}

// renderProgress consumes progress updates and prints them; the returned
// channel closes when the progress channel does.
func (r *Runner) renderProgress(progressCh <-chan studio.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case studio.Submitting:
				r.writePlain("⏳ %s\n", update.Message)
			case studio.Queued:
				r.writePlain("🪑 %s\n", update.Message)
			case studio.Installing:
				if update.Fraction > 0 {
					r.writePlain("📦 %s (%.0f%%)\n", update.Message, update.Fraction*100)
				} else {
					r.writePlain("📦 %s\n", update.Message)
				}
			case studio.Failed:
				r.writePlain("✗ %s\n", update.Message)
			case studio.Finished:
				r.writePlain("✓ %s\n", update.Message)
			default:
				if update.Fraction > 0 {
					r.writePlain("   %s (%.0f%%)\n", update.Message, update.Fraction*100)
				} else if update.Message != "" {
					r.writePlain("   %s\n", update.Message)
				}
			}
		}
	}()
	return done
}
