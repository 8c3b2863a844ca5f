// package formatter renders artifact listings, tracked jobs, feature states,
// and job history for terminal output and file export (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ashgrove/chorus/internal/features"
	"github.com/ashgrove/chorus/internal/jobs"
	"github.com/ashgrove/chorus/internal/models"
	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/transport"
)

// ExportToCSV converts an artifact listing to CSV with columns: ID, Title, Kind, Duration, Created, Current
func ExportToCSV(listing *transport.ArtifactListing) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Kind", "Duration", "Created", "Current"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, artifact := range listing.Artifacts {
		record := []string{
			artifact.ID,
			artifact.Title,
			artifact.Kind,
			shared.FormatDuration(artifact.DurationSecs),
			artifact.CreatedAt.Format("2006-01-02 15:04"),
			strconv.FormatBool(i == listing.Current),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts an artifact listing to Markdown
func ExportToMarkdown(listing *transport.ArtifactListing) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Artifacts\n\n")
	buf.WriteString(fmt.Sprintf("**Count**: %d\n\n", len(listing.Artifacts)))

	for i, artifact := range listing.Artifacts {
		marker := ""
		if i == listing.Current {
			marker = " (current)"
		}
		buf.WriteString(fmt.Sprintf("%d. %s [%s, %s]%s\n",
			i+1, artifact.Title, artifact.Kind,
			shared.FormatDuration(artifact.DurationSecs), marker))
	}

	return buf.Bytes(), nil
}

// ExportToText converts an artifact listing to plain text
func ExportToText(listing *transport.ArtifactListing) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Artifacts: %d\n\n", len(listing.Artifacts)))
	for i, artifact := range listing.Artifacts {
		marker := "  "
		if i == listing.Current {
			marker = "* "
		}
		buf.WriteString(fmt.Sprintf("%s%d. %s - %s [%s]\n",
			marker, i+1, artifact.Title, artifact.Kind,
			shared.FormatDuration(artifact.DurationSecs)))
	}

	return buf.Bytes(), nil
}

// ToJSON marshals v as indented JSON
func ToJSON(v any) ([]byte, error) {
	return shared.MarshalJSON(v, true)
}

// FormatJobs renders tracked jobs as an aligned text table, one job per line
func FormatJobs(list []jobs.Job) string {
	if len(list) == 0 {
		return "No active jobs.\n"
	}

	var buf bytes.Buffer
	for _, job := range list {
		state := string(job.State)
		if job.State == transport.JobQueued && job.QueuePosition > 0 {
			state = fmt.Sprintf("queued (#%d)", job.QueuePosition)
		}
		id := job.ID
		if id == "" {
			id = job.PlaceholderID
		}
		buf.WriteString(fmt.Sprintf("%-12s  %-8s  %-16s  %s\n", id, job.Kind, state, job.Title))
	}
	return buf.String()
}

// FormatFeatures renders feature readiness states, one feature per line
func FormatFeatures(list []features.Feature) string {
	var buf bytes.Buffer
	for _, f := range list {
		line := fmt.Sprintf("%-10s  %s", f.ID, f.Effective())
		if f.Message != "" {
			line += "  (" + f.Message + ")"
		}
		buf.WriteString(line + "\n")
	}
	return buf.String()
}

// FormatHistory renders job history records newest first, one record per line
func FormatHistory(records []*models.JobRecord) string {
	if len(records) == 0 {
		return "No job history.\n"
	}

	var buf bytes.Buffer
	for _, r := range records {
		line := fmt.Sprintf("%s  %-8s  %-9s  %s",
			r.SubmittedAt().Format("2006-01-02 15:04"), r.Kind(), r.Outcome(), r.JobID())
		if r.Message() != "" {
			line += "  " + r.Message()
		}
		buf.WriteString(line + "\n")
	}
	return buf.String()
}

// WriteExport writes an artifact listing to a file in the requested format.
//
// Format is one of csv, markdown, text, or json; path defaults to
// artifacts.{ext} in the current directory.
func WriteExport(listing *transport.ArtifactListing, format, path string) (string, error) {
	var (
		data []byte
		err  error
		ext  string
	)

	switch strings.ToLower(format) {
	case "csv":
		data, err = ExportToCSV(listing)
		ext = "csv"
	case "markdown", "md":
		data, err = ExportToMarkdown(listing)
		ext = "md"
	case "json":
		data, err = ToJSON(listing)
		ext = "json"
	case "text", "txt", "":
		data, err = ExportToText(listing)
		ext = "txt"
	default:
		return "", fmt.Errorf("%w: output format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if path == "" {
		path = "artifacts." + ext
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
