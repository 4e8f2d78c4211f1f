package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/railtonbritomcp/App-agendei/internal/app"
	"github.com/railtonbritomcp/App-agendei/internal/version"
)

func NewServeCmd(deps *Dependencies) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket feed and session manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *deps.Config
			if listen != "" {
				cfg.Listen = listen
			}
			for _, w := range deps.Warnings {
				slog.Warn("config", "warning", w)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, deps.Warnings)
			if err != nil {
				return fmt.Errorf("initializing app: %w", err)
			}

			slog.Info("agendei starting", "version", version.Version, "listen", cfg.Listen, "transcriber", cfg.Transcriber, "report_model", cfg.ReportModel)
			serveErr := a.Serve(ctx)

			slog.Info("agendei shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.Close(shutdownCtx); err != nil {
				slog.Warn("shutdown incomplete", "error", err)
			}
			return serveErr
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "override the listen address (default from config)")
	return cmd
}
