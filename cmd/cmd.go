// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize config file and local database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// generateCommand handles song generation
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Generate a song from a prompt",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "prompt",
				Aliases: []string{"p"},
				Usage:   "Text prompt describing the song",
			},
			&cli.StringFlag{
				Name:  "lyrics",
				Usage: "Explicit lyrics to sing",
			},
			&cli.StringFlag{
				Name:  "style",
				Usage: "Style or genre hint",
			},
			&cli.IntFlag{
				Name:  "duration",
				Usage: "Target duration in seconds",
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Generation seed (0 = random)",
			},
			&cli.BoolFlag{
				Name:  "legacy",
				Usage: "Block until completion instead of tracking a background job",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Wait for the tracked job to finish before exiting",
			},
			&cli.StringFlag{
				Name:  "batch-file",
				Usage: "JSON file with an array of generation requests",
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Batch submission rate limit in requests per second",
				Value: 2.0,
			},
		},
		Action: r.Generate,
	}
}

// stemsCommand handles stem separation
func stemsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stems",
		Usage: "Separate an artifact into stems",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Artifact ID to separate",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "stem",
				Usage: "Stems to extract (repeatable); empty = all",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Wait for the job to finish before exiting",
			},
		},
		Action: r.Stems,
	}
}

// midiCommand handles MIDI extraction
func midiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "midi",
		Usage: "Extract MIDI from an artifact",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Artifact ID to extract from",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "stem",
				Usage: "Limit extraction to one stem",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Wait for the job to finish before exiting",
			},
		},
		Action: r.MIDI,
	}
}

// voiceCommand handles voice cloning
func voiceCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "voice",
		Usage: "Clone a voice from a reference recording",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "reference",
				Aliases:  []string{"ref"},
				Usage:    "Path to the reference recording",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Name for the cloned voice",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Wait for the job to finish before exiting",
			},
		},
		Action: r.Voice,
	}
}

// jobsCommand handles job tracking operations
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect tracked jobs and job history",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List jobs tracked in this session",
				Action: r.JobsList,
			},
			{
				Name:  "watch",
				Usage: "Poll a job until it reaches a terminal state",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Job ID to watch",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Job kind label for display",
						Value: "song",
					},
				},
				Action: r.JobsWatch,
			},
			{
				Name:  "history",
				Usage: "Show recorded job outcomes",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "outcome",
						Usage: "Filter by outcome (succeeded, failed, timeout)",
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Filter by job kind",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.JobsHistory,
			},
		},
	}
}

// featuresCommand handles feature readiness operations
func featuresCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "features",
		Aliases: []string{"feat"},
		Usage:   "Inspect and install optional backend features",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show readiness of all known features",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Poll the backend instead of using cached states",
					},
				},
				Action: r.FeaturesList,
			},
			{
				Name:  "install",
				Usage: "Download and install a feature's model",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "feature",
					},
				},
				Action: r.FeaturesInstall,
			},
		},
	}
}

// artifactsCommand handles artifact listing operations
func artifactsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "artifacts",
		Aliases: []string{"art"},
		Usage:   "List and export generated artifacts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List artifacts from the backend (source of truth)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "cached",
						Usage: "Read the local cache instead of the backend",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ArtifactsList,
			},
			{
				Name:  "export",
				Usage: "Write the artifact listing to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: csv, markdown, text, json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.ArtifactsExport,
			},
			{
				Name:  "open",
				Usage: "Open the current artifact with the system handler",
				Action: r.ArtifactsOpen,
			},
		},
	}
}

// trainingCommand handles explicit training controls
func trainingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "training",
		Usage: "Control a running training session",
		Commands: []*cli.Command{
			{Name: "pause", Usage: "Pause the training run", Action: r.Training},
			{Name: "resume", Usage: "Resume a paused training run", Action: r.Training},
			{Name: "cancel", Usage: "Cancel the training run", Action: r.Training},
		},
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive terminal UI",
		Action: r.TUI,
	}
}

// mockdCommand serves the scripted development backend
func mockdCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mockd",
		Usage: "Serve a scripted studio backend for development",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: "127.0.0.1:7260",
			},
			&cli.BoolFlag{
				Name:  "legacy",
				Usage: "Emulate a legacy backend that finishes generation inline",
			},
		},
		Action: r.Mockd,
	}
}
