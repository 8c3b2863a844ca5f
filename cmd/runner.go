package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/ashgrove/chorus/internal/repositories"
	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/studio"
	"github.com/ashgrove/chorus/internal/transport"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	transport  transport.Transport
	db         *sql.DB
	logger     *log.Logger
	output     io.Writer
	engine     *studio.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Transport  transport.Transport
	DB         *sql.DB
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Transport == nil {
		opts.Transport = transport.NewHTTPTransport(opts.Config.Backend.URL, opts.Config.Backend.RequestTimeout())
	}

	var artifacts *repositories.ArtifactRepository
	var history *repositories.JobRecordRepository
	if opts.DB != nil {
		artifacts = repositories.NewArtifactRepository(opts.DB)
		history = repositories.NewJobRecordRepository(opts.DB)
	}

	engine := studio.NewEngine(studio.EngineOpts{
		Transport: opts.Transport,
		Polling:   opts.Config.Polling,
		Artifacts: artifacts,
		History:   history,
		Logger:    opts.Logger,
	})

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		transport:  opts.Transport,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
		engine:     engine,
	}
}

// SetLogger swaps the runner's logger, e.g. to redirect logs to a file while
// the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, generateCommand, stemsCommand, midiCommand, voiceCommand,
		jobsCommand, featuresCommand, artifactsCommand, trainingCommand,
		tuiCommand, mockdCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
