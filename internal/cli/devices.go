package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/railtonbritomcp/App-agendei/internal/audio"
	"github.com/railtonbritomcp/App-agendei/internal/output"
)

func NewDevicesCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			mic, err := audio.NewPortAudio()
			if err != nil {
				return err
			}
			defer func() { _ = mic.Close() }()

			devices, err := mic.ListDevices()
			if err != nil {
				return err
			}
			output.NewFormatter(os.Stdout).Devices(devices)
			return nil
		},
	}
}
