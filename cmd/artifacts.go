package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/ashgrove/chorus/internal/formatter"
	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/transport"
)

// ArtifactsList lists artifacts, by default from the backend (source of truth).
func (r *Runner) ArtifactsList(ctx context.Context, cmd *cli.Command) error {
	listing, err := r.fetchListing(ctx, cmd.Bool("cached"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(listing, true)
	}

	text, err := formatter.ExportToText(listing)
	if err != nil {
		return err
	}
	return r.writePlain("%s", text)
}

// ArtifactsExport writes the listing to a file in the configured or requested format.
func (r *Runner) ArtifactsExport(ctx context.Context, cmd *cli.Command) error {
	listing, err := r.fetchListing(ctx, false)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if format == "" {
		format = r.config.Output.Format
	}

	path := cmd.String("output")
	if path == "" && r.config.Output.Directory != "" {
		path = filepath.Join(r.config.Output.Directory, "artifacts")
	}

	written, err := formatter.WriteExport(listing, format, path)
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %d artifacts to %s\n", len(listing.Artifacts), written)
	return nil
}

// ArtifactsOpen opens the current artifact with the system handler.
func (r *Runner) ArtifactsOpen(ctx context.Context, cmd *cli.Command) error {
	listing, err := r.fetchListing(ctx, false)
	if err != nil {
		return err
	}

	if listing.Current < 0 || listing.Current >= len(listing.Artifacts) {
		return fmt.Errorf("%w: no current artifact", shared.ErrInvalidInput)
	}

	current := listing.Artifacts[listing.Current]
	if current.Path == "" {
		return fmt.Errorf("%w: current artifact has no local path", shared.ErrInvalidInput)
	}

	r.logger.Info("opening artifact", "title", current.Title, "path", current.Path)
	return shared.OpenBrowser(current.Path)
}

func (r *Runner) fetchListing(ctx context.Context, cached bool) (*transport.ArtifactListing, error) {
	if cached {
		return r.engine.CachedArtifacts()
	}
	return r.engine.RefreshArtifacts(ctx)
}
