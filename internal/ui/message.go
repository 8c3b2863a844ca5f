package ui

import (
	"time"

	"github.com/ashgrove/chorus/internal/features"
	"github.com/ashgrove/chorus/internal/jobs"
	"github.com/ashgrove/chorus/internal/studio"
	"github.com/ashgrove/chorus/internal/transport"
)

// artifactsMsg delivers a refreshed artifact listing (or the refresh failure).
type artifactsMsg struct {
	listing *transport.ArtifactListing
	err     error
}

// progressMsg re-wraps one engine progress update for the Elm loop.
type progressMsg studio.ProgressUpdate

// progressDoneMsg signals that the engine closed the progress channel.
type progressDoneMsg struct{}

// jobEventMsg re-wraps one tracker event for the Elm loop.
type jobEventMsg jobs.Event

// featureMsg re-wraps one feature readiness change for the Elm loop.
type featureMsg features.Feature

// tickMsg drives periodic redraws of the jobs view.
type tickMsg time.Time
