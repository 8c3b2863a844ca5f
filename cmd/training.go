package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/ashgrove/chorus/internal/transport"
)

// Training issues an explicit pause/resume/cancel control; the subcommand name
// is the action.
func (r *Runner) Training(ctx context.Context, cmd *cli.Command) error {
	action := transport.TrainingAction(cmd.Name)

	result, err := r.engine.Training(ctx, action)
	if err != nil {
		return err
	}

	if result.OK {
		r.writePlain("✓ %s\n", result.Message)
	} else {
		r.writePlain("✗ %s\n", result.Message)
	}
	return nil
}
