package formatter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashgrove/chorus/internal/features"
	"github.com/ashgrove/chorus/internal/jobs"
	"github.com/ashgrove/chorus/internal/models"
	"github.com/ashgrove/chorus/internal/transport"
)

func testListing() *transport.ArtifactListing {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return &transport.ArtifactListing{
		Artifacts: []transport.Artifact{
			{ID: "a-1", Title: "Night Drive", Kind: "song", DurationSecs: 185, CreatedAt: created},
			{ID: "a-2", Title: "Night Drive stems", Kind: "stems", DurationSecs: 185, CreatedAt: created},
		},
		Current: 0,
	}
}

func TestExportToCSV(t *testing.T) {
	data, err := ExportToCSV(testListing())
	if err != nil {
		t.Fatalf("ExportToCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "ID,Title,Kind,Duration,Created,Current" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "3:05") {
		t.Errorf("expected formatted duration in row: %s", lines[1])
	}
	if !strings.HasSuffix(lines[1], "true") || !strings.HasSuffix(lines[2], "false") {
		t.Errorf("expected only the first row marked current:\n%s\n%s", lines[1], lines[2])
	}
}

func TestExportToMarkdown(t *testing.T) {
	data, err := ExportToMarkdown(testListing())
	if err != nil {
		t.Fatalf("ExportToMarkdown failed: %v", err)
	}

	out := string(data)
	if !strings.HasPrefix(out, "# Artifacts") {
		t.Errorf("expected a heading, got: %s", out)
	}
	if !strings.Contains(out, "**Count**: 2") {
		t.Errorf("expected a count line, got: %s", out)
	}
	if !strings.Contains(out, "1. Night Drive [song, 3:05] (current)") {
		t.Errorf("expected the current artifact marked:\n%s", out)
	}
}

func TestExportToText(t *testing.T) {
	data, err := ExportToText(testListing())
	if err != nil {
		t.Fatalf("ExportToText failed: %v", err)
	}

	out := string(data)
	if !strings.Contains(out, "* 1. Night Drive") {
		t.Errorf("expected the current marker on the first row:\n%s", out)
	}
	if !strings.Contains(out, "  2. Night Drive stems") {
		t.Errorf("expected an unmarked second row:\n%s", out)
	}
}

func TestFormatJobs(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := FormatJobs(nil); got != "No active jobs.\n" {
			t.Errorf("unexpected empty output: %q", got)
		}
	})

	t.Run("queue position shown for queued jobs", func(t *testing.T) {
		out := FormatJobs([]jobs.Job{
			{ID: "job-1", Kind: "song", Title: "one", State: transport.JobQueued, QueuePosition: 2},
			{ID: "job-2", Kind: "stems", Title: "two", State: transport.JobRunning},
		})
		if !strings.Contains(out, "queued (#2)") {
			t.Errorf("expected queue position:\n%s", out)
		}
		if !strings.Contains(out, "running") {
			t.Errorf("expected running state:\n%s", out)
		}
	})

	t.Run("placeholder id before assignment", func(t *testing.T) {
		out := FormatJobs([]jobs.Job{
			{PlaceholderID: "pending-1", Kind: "song", Title: "unassigned", State: transport.JobQueued},
		})
		if !strings.Contains(out, "pending-1") {
			t.Errorf("expected the placeholder id:\n%s", out)
		}
	})
}

func TestFormatFeatures(t *testing.T) {
	out := FormatFeatures([]features.Feature{
		{ID: features.Generator, State: transport.FeatureReady},
		{ID: features.Stems, State: transport.FeatureError, Message: "disk full"},
	})
	if !strings.Contains(out, "generator") || !strings.Contains(out, "ready") {
		t.Errorf("expected the ready generator:\n%s", out)
	}
	if !strings.Contains(out, "(disk full)") {
		t.Errorf("expected the error message in parentheses:\n%s", out)
	}
}

func TestFormatHistory(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := FormatHistory(nil); got != "No job history.\n" {
			t.Errorf("unexpected empty output: %q", got)
		}
	})

	t.Run("rows", func(t *testing.T) {
		submitted := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
		out := FormatHistory([]*models.JobRecord{
			models.NewJobRecord(1, "job-9", "song", models.OutcomeFailed, "sampler crashed", submitted),
		})
		if !strings.Contains(out, "2026-03-14 09:30") {
			t.Errorf("expected the submission time:\n%s", out)
		}
		if !strings.Contains(out, "failed") || !strings.Contains(out, "sampler crashed") {
			t.Errorf("expected outcome and message:\n%s", out)
		}
	})
}

func TestWriteExport(t *testing.T) {
	listing := testListing()

	t.Run("formats and extensions", func(t *testing.T) {
		cases := []struct {
			format string
			ext    string
		}{
			{"csv", ".csv"},
			{"markdown", ".md"},
			{"md", ".md"},
			{"json", ".json"},
			{"text", ".txt"},
			{"", ".txt"},
		}
		for _, tc := range cases {
			path := filepath.Join(t.TempDir(), "export"+tc.ext)
			written, err := WriteExport(listing, tc.format, path)
			if err != nil {
				t.Fatalf("WriteExport(%q) failed: %v", tc.format, err)
			}
			if written != path {
				t.Errorf("WriteExport(%q) wrote to %s, want %s", tc.format, written, path)
			}
			if _, err := os.Stat(path); err != nil {
				t.Errorf("export file missing for %q: %v", tc.format, err)
			}
		}
	})

	t.Run("json export round-trips", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "artifacts.json")
		if _, err := WriteExport(listing, "json", path); err != nil {
			t.Fatal(err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var decoded transport.ArtifactListing
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("exported JSON did not parse: %v", err)
		}
		if len(decoded.Artifacts) != 2 || decoded.Artifacts[0].Title != "Night Drive" {
			t.Errorf("unexpected decoded listing: %+v", decoded)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := WriteExport(listing, "xlsx", ""); err == nil {
			t.Error("expected an error for an unknown format")
		}
	})
}
