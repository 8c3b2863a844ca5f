package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/ashgrove/chorus/internal/features"
	"github.com/ashgrove/chorus/internal/jobs"
	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/studio"
	tu "github.com/ashgrove/chorus/internal/testing"
	"github.com/ashgrove/chorus/internal/transport"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			mock := &tu.MockTransport{}

			runner := NewRunner(RunnerOpts{
				Config:    config,
				Logger:    logger,
				Output:    output,
				Transport: mock,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.transport != transport.Transport(mock) {
				t.Error("expected transport to be set")
			}
			if runner.engine == nil {
				t.Error("expected the engine to be wired")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Transport: &tu.MockTransport{}})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Transport: &tu.MockTransport{}})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Transport: &tu.MockTransport{}})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil transport falls back to HTTP", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.transport == nil {
				t.Fatal("expected a default transport")
			}
			if runner.transport.Name() != "http" {
				t.Errorf("expected the http transport, got %s", runner.transport.Name())
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: "/test/path/config.toml",
				Transport:  &tu.MockTransport{},
			})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output, Transport: &tu.MockTransport{}})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output, Transport: &tu.MockTransport{}})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Transport: &tu.MockTransport{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}, Transport: &tu.MockTransport{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter, Transport: &tu.MockTransport{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output, Transport: &tu.MockTransport{}})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}, Transport: &tu.MockTransport{}})

			if err := runner.writePlain("test"); err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Transport: &tu.MockTransport{}})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})
}

func TestTrainingCommand(t *testing.T) {
	t.Run("reports success", func(t *testing.T) {
		output := &bytes.Buffer{}
		mock := &tu.MockTransport{
			ControlTrainingFn: func(ctx context.Context, action transport.TrainingAction) (*transport.TrainingResult, error) {
				if action != transport.TrainingPause {
					t.Errorf("expected the pause action, got %s", action)
				}
				return &transport.TrainingResult{OK: true, Message: "training paused"}, nil
			},
		}
		runner := NewRunner(RunnerOpts{Output: output, Transport: mock})

		if err := runner.Training(context.Background(), &cli.Command{Name: "pause"}); err != nil {
			t.Fatalf("Training failed: %v", err)
		}
		if !strings.Contains(output.String(), "training paused") {
			t.Errorf("expected the backend message, got %q", output.String())
		}
	})

	t.Run("reports rejection", func(t *testing.T) {
		output := &bytes.Buffer{}
		mock := &tu.MockTransport{
			ControlTrainingFn: func(ctx context.Context, action transport.TrainingAction) (*transport.TrainingResult, error) {
				return &transport.TrainingResult{OK: false, Message: "no training run active"}, nil
			},
		}
		runner := NewRunner(RunnerOpts{Output: output, Transport: mock})

		if err := runner.Training(context.Background(), &cli.Command{Name: "cancel"}); err != nil {
			t.Fatalf("Training failed: %v", err)
		}
		if !strings.Contains(output.String(), "✗") {
			t.Errorf("expected a rejection marker, got %q", output.String())
		}
	})
}

func TestJobsListCommand(t *testing.T) {
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Output: output, Transport: &tu.MockTransport{}})

	if err := runner.JobsList(context.Background(), &cli.Command{}); err != nil {
		t.Fatalf("JobsList failed: %v", err)
	}
	if !strings.Contains(output.String(), "No active jobs") {
		t.Errorf("expected the empty listing message, got %q", output.String())
	}
}

func TestFeaturesListCommand(t *testing.T) {
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Output: output, Transport: &tu.MockTransport{}})

	if err := runner.FeaturesList(context.Background(), &cli.Command{}); err != nil {
		t.Fatalf("FeaturesList failed: %v", err)
	}

	out := output.String()
	for _, id := range []string{"generator", "lyricist", "stems", "midi", "voice"} {
		if !strings.Contains(out, id) {
			t.Errorf("expected feature %s in listing:\n%s", id, out)
		}
	}
}

func TestReportSubmission(t *testing.T) {
	newRunner := func() (*Runner, *bytes.Buffer) {
		output := &bytes.Buffer{}
		return NewRunner(RunnerOpts{Output: output, Transport: &tu.MockTransport{}}), output
	}

	t.Run("install redirect", func(t *testing.T) {
		runner, output := newRunner()
		result := &studio.GenerateResult{
			InstallStarted: &features.Feature{ID: features.Stems, State: transport.FeatureDownloading},
		}

		if err := runner.reportSubmission(context.Background(), &cli.Command{}, result); err != nil {
			t.Fatalf("reportSubmission failed: %v", err)
		}
		if !strings.Contains(output.String(), "Model download started") {
			t.Errorf("expected the install redirect message, got %q", output.String())
		}
	})

	t.Run("tracked job", func(t *testing.T) {
		runner, output := newRunner()
		result := &studio.GenerateResult{
			Job: &jobs.Job{ID: "job-1", Kind: "song"},
		}

		if err := runner.reportSubmission(context.Background(), &cli.Command{}, result); err != nil {
			t.Fatalf("reportSubmission failed: %v", err)
		}
		if !strings.Contains(output.String(), "Job job-1 tracked") {
			t.Errorf("expected the tracked job message, got %q", output.String())
		}
	})

	t.Run("inline artifact", func(t *testing.T) {
		runner, output := newRunner()
		result := &studio.GenerateResult{
			Artifact: &transport.Artifact{Title: "Night Drive"},
		}

		if err := runner.reportSubmission(context.Background(), &cli.Command{}, result); err != nil {
			t.Fatalf("reportSubmission failed: %v", err)
		}
		if !strings.Contains(output.String(), "Finished inline: Night Drive") {
			t.Errorf("expected the inline completion message, got %q", output.String())
		}
	})
}
