// Package output formats command-line results for humans.
package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/railtonbritomcp/App-agendei/internal/audio"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

// Devices prints input devices as a table, marking the default one.
func (f *Formatter) Devices(devices []audio.DeviceInfo) {
	if len(devices) == 0 {
		f.Warning("No input devices found.")
		return
	}

	tw := tabwriter.NewWriter(f.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tCHANNELS\tSAMPLE RATE")
	for _, d := range devices {
		marker := ""
		if d.Default {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.0f Hz\n", marker, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}
	_ = tw.Flush()
}
