package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/railtonbritomcp/App-agendei/internal/config"
	"github.com/railtonbritomcp/App-agendei/internal/version"
)

// Dependencies is filled in by the root command before any subcommand runs.
type Dependencies struct {
	ConfigPath string
	Config     *config.Config
	Warnings   []string
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "agendei",
		Short:         "Agenda with live meeting transcription and AI reports",
		Long:          "Agendei keeps an agenda of appointments, transcribes meetings live from the microphone and turns each transcript into a structured meeting report.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(deps)
		},
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	defaultPath := os.Getenv(config.EnvPrefix + "CONFIG")
	if defaultPath == "" {
		defaultPath = "agendei.yaml"
	}
	rootCmd.PersistentFlags().StringVar(&deps.ConfigPath, "config", defaultPath, "path to the YAML config file")

	rootCmd.AddCommand(NewServeCmd(deps))
	rootCmd.AddCommand(NewDevicesCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}

func loadConfig(deps *Dependencies) error {
	cfg, warnings, err := config.Load(deps.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	deps.Config = &cfg
	deps.Warnings = warnings

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	return nil
}
