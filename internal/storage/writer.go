package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Writer renders reports as markdown files under <dir>/<date>/<appointment-id>.md.
type Writer struct {
	dir string
	mu  sync.Mutex
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) Path(a Appointment) string {
	return filepath.Join(w.dir, a.Date, a.ID+".md")
}

// Write replaces any previous rendering of the appointment's report.
func (w *Writer) Write(a Appointment, r Report) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	path := w.Path(a)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(FormatMarkdown(a, r)), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return path, nil
}

func FormatMarkdown(a Appointment, r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", a.Title)
	fmt.Fprintf(&b, "- Date: %s %s (%d min)\n", a.Date, a.Time, a.Duration)
	fmt.Fprintf(&b, "- Generated: %s\n", r.Timestamp.UTC().Format(time.RFC3339))
	if a.Description != "" {
		fmt.Fprintf(&b, "- Description: %s\n", a.Description)
	}

	fmt.Fprintf(&b, "\n## Summary\n\n%s\n", r.Summary)

	b.WriteString("\n## Decisions\n\n")
	writeList(&b, r.Decisions, func(int) string { return "-" })

	b.WriteString("\n## Action items\n\n")
	writeList(&b, r.ActionItems, func(i int) string { return fmt.Sprintf("%d.", i+1) })

	fmt.Fprintf(&b, "\n## Transcript\n\n%s\n", r.FullTranscript)
	return b.String()
}

func writeList(b *strings.Builder, items []string, marker func(int) string) {
	if len(items) == 0 {
		b.WriteString("_None._\n")
		return
	}
	for i, item := range items {
		fmt.Fprintf(b, "%s %s\n", marker(i), item)
	}
}
