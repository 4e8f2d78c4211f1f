package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/railtonbritomcp/App-agendei/internal/audio"
	"github.com/railtonbritomcp/App-agendei/internal/config"
	"github.com/railtonbritomcp/App-agendei/internal/llm"
	"github.com/railtonbritomcp/App-agendei/internal/output"
)

type check struct {
	name     string
	ok       bool
	detail   string
	required bool
}

type probes struct {
	lookPath func(string) (string, error)
	stat     func(string) error
}

var hostProbes = probes{
	lookPath: exec.LookPath,
	stat: func(path string) error {
		_, err := os.Stat(path)
		return err
	},
}

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(os.Stdout)
			results := append(configChecks(*deps.Config, hostProbes), microphoneCheck())

			ok := true
			for _, c := range results {
				f.SetupCheck(c.name, c.ok, c.detail)
				if c.required && !c.ok {
					ok = false
				}
			}
			for _, w := range deps.Warnings {
				f.Warning(w)
			}

			if ok {
				f.Success("\nAll prerequisites met. Ready to record!")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}

func configChecks(cfg config.Config, p probes) []check {
	var checks []check

	if _, err := p.lookPath("ffmpeg"); err != nil {
		checks = append(checks, check{name: "ffmpeg", detail: "not found, audio archives will be saved as wav"})
	} else {
		checks = append(checks, check{name: "ffmpeg", ok: true, detail: "installed"})
	}

	switch cfg.Transcriber {
	case "google-speech":
		checks = append(checks, credentialsCheck("Google Speech credentials", cfg.GoogleCredentialsFile, true, p))
	default:
		name := fmt.Sprintf("Transcriber %s", cfg.Transcriber)
		if cfg.APIKey(cfg.Transcriber) != "" {
			checks = append(checks, check{name: name, ok: true, detail: "API key configured", required: true})
		} else {
			checks = append(checks, check{name: name, detail: "API key not set", required: true})
		}
	}

	provider, _, err := llm.ParseModel(cfg.ReportModel)
	switch {
	case err != nil:
		checks = append(checks, check{name: "Report model", detail: err.Error(), required: true})
	case cfg.APIKey(provider) == "":
		checks = append(checks, check{name: "Report model", detail: fmt.Sprintf("%s API key not set", provider), required: true})
	default:
		checks = append(checks, check{name: "Report model", ok: true, detail: cfg.ReportModel, required: true})
	}

	if cfg.GDriveFolderID != "" || cfg.GCSBucket != "" {
		checks = append(checks, credentialsCheck("Export credentials", cfg.GoogleCredentialsFile, false, p))
	}

	checks = append(checks, check{name: "Database", ok: true, detail: cfg.DBPath})
	checks = append(checks, check{name: "Reports directory", ok: true, detail: cfg.ReportDir})
	return checks
}

func credentialsCheck(name, path string, required bool, p probes) check {
	if path == "" {
		return check{name: name, detail: "google_credentials_file not set", required: required}
	}
	if err := p.stat(path); err != nil {
		return check{name: name, detail: fmt.Sprintf("%s not readable", path), required: required}
	}
	return check{name: name, ok: true, detail: path, required: required}
}

func microphoneCheck() check {
	mic, err := audio.NewPortAudio()
	if err != nil {
		return check{name: "Microphone", detail: err.Error(), required: true}
	}
	defer func() { _ = mic.Close() }()

	devices, err := mic.ListDevices()
	if err != nil {
		return check{name: "Microphone", detail: err.Error(), required: true}
	}
	for _, d := range devices {
		if d.Default {
			return check{name: "Microphone", ok: true, detail: d.Name, required: true}
		}
	}
	return check{name: "Microphone", detail: "no default input device", required: true}
}
