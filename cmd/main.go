package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/transport"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		}
	}

	// No host bridge exists when running standalone; HTTP is selected once here
	// and never revisited mid-session.
	backend := transport.Detect(nil, config.Backend.URL, config.Backend.RequestTimeout())

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Transport:  backend,
		DB:         openDatabase(config, logger),
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "chorus",
		Usage:    "Generate and manage music with a local studio backend",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
