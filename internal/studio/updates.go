package studio

import (
	"fmt"

	"github.com/ashgrove/chorus/internal/features"
	"github.com/ashgrove/chorus/internal/jobs"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase    Phase   // Operation phase
	Fraction float64 // Completion fraction in [0,1]; 0 when unknown
	Message  string  // Human-readable message for display
	Data     any     // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Submitting Phase = iota
	Queued
	Generating
	Installing
	Separating
	Extracting
	Cloning
	RefreshListing
	Finished
	Failed
)

func (p Phase) String() string {
	switch p {
	case Submitting:
		return "submitting"
	case Queued:
		return "queued"
	case Generating:
		return "generating"
	case Installing:
		return "installing"
	case Separating:
		return "separating"
	case Extracting:
		return "extracting"
	case Cloning:
		return "cloning"
	case RefreshListing:
		return "refresh_listing"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

func submittingUpdate(kind string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Submitting,
		Message: fmt.Sprintf("Submitting %s request...", kind),
	}
}

func queuedUpdate(job jobs.Job) ProgressUpdate {
	msg := fmt.Sprintf("Job %s queued", job.ID)
	if job.QueuePosition > 0 {
		msg = fmt.Sprintf("Job %s queued (position %d)", job.ID, job.QueuePosition)
	}
	return ProgressUpdate{Phase: Queued, Message: msg, Data: job}
}

func runningUpdate(phase Phase, fraction float64, message string) ProgressUpdate {
	if message == "" {
		message = fmt.Sprintf("%s... %.0f%%", phase, fraction*100)
	}
	return ProgressUpdate{Phase: phase, Fraction: fraction, Message: message}
}

func installingUpdate(id features.ID, fraction float64, message string) ProgressUpdate {
	if message == "" {
		message = fmt.Sprintf("Downloading %s model... %.0f%%", id, fraction*100)
	}
	return ProgressUpdate{Phase: Installing, Fraction: fraction, Message: message, Data: id}
}

func refreshListingUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: RefreshListing, Message: "Refreshing artifact listing..."}
}

func finishedUpdate(message string, data any) ProgressUpdate {
	return ProgressUpdate{Phase: Finished, Fraction: 1, Message: message, Data: data}
}

func failedUpdate(err error) ProgressUpdate {
	return ProgressUpdate{Phase: Failed, Message: err.Error(), Data: err}
}
