package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agendei.yaml")
	if err := os.WriteFile(path, []byte("listen: \":9090\"\nlanguage: en-US\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AGENDEI_LANGUAGE", "es-ES")

	deps := &Dependencies{ConfigPath: path}
	if err := loadConfig(deps); err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if deps.Config.Listen != ":9090" {
		t.Fatalf("listen = %q", deps.Config.Listen)
	}
	if deps.Config.Language != "es-ES" {
		t.Fatalf("language = %q, want env override", deps.Config.Language)
	}
}

func TestLoadConfigRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agendei.yaml")
	if err := os.WriteFile(path, []byte("listen: [unterminated"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := loadConfig(&Dependencies{ConfigPath: path}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCmd(&Dependencies{})
	for _, name := range []string{"serve", "devices", "doctor"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Fatalf("subcommand %s not registered: %v", name, err)
		}
	}
	if f := root.PersistentFlags().Lookup("config"); f == nil {
		t.Fatal("missing --config flag")
	}
}
