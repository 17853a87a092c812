package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	router "IFCompiler/internal"
	"IFCompiler/pkg/config"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(root *rootOpts) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the compile HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(root.configPath)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}

			logger := loggerFromContext(cmd.Context())
			if !root.verbose {
				logger.SetLevel(parseLevel(cfg.LogLevel))
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *charmlog.Logger) error {
	app, err := router.StartRoutes(cfg, logger)
	if err != nil {
		return fmt.Errorf("start routes: %w", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[Init] Server running on port %s", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("[Init] Shutting down, killing live jobs")
	for _, id := range app.CompilerService.LiveJobs() {
		app.CompilerService.Terminate(id)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
