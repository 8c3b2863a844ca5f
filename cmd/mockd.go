package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/urfave/cli/v3"

	"github.com/ashgrove/chorus/internal/server"
)

// Mockd serves the scripted development backend over HTTP.
func (r *Runner) Mockd(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	backend := server.NewBackend(server.Options{Legacy: cmd.Bool("legacy")})

	srv := &http.Server{
		Addr:    addr,
		Handler: server.NewHTTPHandler(backend, r.logger),
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	r.logger.Info("mock backend listening", "addr", addr, "legacy", cmd.Bool("legacy"))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
