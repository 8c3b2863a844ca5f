package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/ashgrove/chorus/internal/features"
	"github.com/ashgrove/chorus/internal/formatter"
	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/studio"
)

// FeaturesList prints readiness of all known features.
func (r *Runner) FeaturesList(ctx context.Context, cmd *cli.Command) error {
	tracker := r.engine.Features()

	if cmd.Bool("refresh") {
		for _, id := range features.Known() {
			if _, err := tracker.Refresh(ctx, id); err != nil {
				r.logger.Warn("feature refresh failed", "feature", id, "error", err)
			}
		}
	}

	return r.writePlain("%s", formatter.FormatFeatures(tracker.All()))
}

// FeaturesInstall triggers a model download for one feature and follows the
// install until it leaves the downloading state.
func (r *Runner) FeaturesInstall(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("feature")
	if name == "" {
		return fmt.Errorf("%w: feature name", shared.ErrMissingArgument)
	}

	id := features.ID(name)
	known := false
	for _, candidate := range features.Known() {
		if candidate == id {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %q", shared.ErrFeatureNotFound, name)
	}

	progressCh := make(chan studio.ProgressUpdate, 50)
	done := r.renderProgress(progressCh)

	err := r.engine.InstallFeature(ctx, id, progressCh)
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("✓ Feature %s is ready\n", id)
	return nil
}
