package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LISTEN", "LOG_LEVEL", "DB_PATH", "AUDIO_DIR", "REPORT_DIR",
		"MIC_SAMPLE_RATE", "MIC_BLOCK_SIZE",
		"TRANSCRIBER", "TRANSCRIBER_MODEL", "LANGUAGE", "MEETING_INSTRUCTION", "REPORT_MODEL",
		"GDRIVE_FOLDER_ID", "GCS_BUCKET", "GOOGLE_CREDENTIALS_FILE",
		"GEMINI_API_KEY", "DEEPGRAM_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "CONFIG",
	} {
		t.Setenv(EnvPrefix+key, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, _, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DBPath != "data/agendei.db" {
		t.Fatalf("expected default db_path, got %q", cfg.DBPath)
	}
	if cfg.AudioDir != "" {
		t.Fatalf("expected audio archive disabled by default, got %q", cfg.AudioDir)
	}
	if cfg.MicSampleRate != 16000 || cfg.MicBlockSize != 4096 {
		t.Fatalf("expected 16000/4096 capture defaults, got %d/%d", cfg.MicSampleRate, cfg.MicBlockSize)
	}
	if cfg.Transcriber != "gemini" {
		t.Fatalf("expected default transcriber gemini, got %q", cfg.Transcriber)
	}
	if cfg.ReportModel != "gemini/gemini-3-pro-preview" {
		t.Fatalf("expected default report_model, got %q", cfg.ReportModel)
	}
	if cfg.Language != "pt-BR" {
		t.Fatalf("expected default language pt-BR, got %q", cfg.Language)
	}
}

func TestYAMLLoading(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "agendei.yaml")
	yamlContent := `
listen: 127.0.0.1:9000
db_path: /custom/db.sqlite
audio_dir: /custom/audio
mic_sample_rate: 48000
mic_block_size: 2048
transcriber: deepgram
transcriber_model: nova-3
language: en-US
report_model: openai/gpt-4o
gdrive_folder_id: my-folder
gcs_bucket: reports-bucket
google_credentials_file: /path/to/creds.json
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Listen != "127.0.0.1:9000" {
		t.Fatalf("expected yaml listen, got %q", cfg.Listen)
	}
	if cfg.DBPath != "/custom/db.sqlite" || cfg.AudioDir != "/custom/audio" {
		t.Fatalf("expected yaml paths, got %q %q", cfg.DBPath, cfg.AudioDir)
	}
	if cfg.MicSampleRate != 48000 || cfg.MicBlockSize != 2048 {
		t.Fatalf("expected yaml capture settings, got %d/%d", cfg.MicSampleRate, cfg.MicBlockSize)
	}
	if cfg.Transcriber != "deepgram" || cfg.TranscriberModel != "nova-3" {
		t.Fatalf("expected yaml transcriber, got %q %q", cfg.Transcriber, cfg.TranscriberModel)
	}
	if cfg.ReportModel != "openai/gpt-4o" {
		t.Fatalf("expected yaml report_model, got %q", cfg.ReportModel)
	}
	if cfg.GDriveFolderID != "my-folder" || cfg.GCSBucket != "reports-bucket" {
		t.Fatalf("expected yaml export settings, got %q %q", cfg.GDriveFolderID, cfg.GCSBucket)
	}
	if cfg.GoogleCredentialsFile != "/path/to/creds.json" {
		t.Fatalf("expected yaml google_credentials_file, got %q", cfg.GoogleCredentialsFile)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "agendei.yaml")
	yamlContent := `
db_path: /from/yaml
report_model: openai/gpt-yaml
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	clearEnv(t)
	t.Setenv(EnvPrefix+"DB_PATH", "/from/env")
	t.Setenv(EnvPrefix+"REPORT_MODEL", "anthropic/claude-env")
	t.Setenv(EnvPrefix+"MIC_BLOCK_SIZE", "1024")

	cfg, _, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DBPath != "/from/env" {
		t.Fatalf("expected env override for db_path, got %q", cfg.DBPath)
	}
	if cfg.ReportModel != "anthropic/claude-env" {
		t.Fatalf("expected env override for report_model, got %q", cfg.ReportModel)
	}
	if cfg.MicBlockSize != 1024 {
		t.Fatalf("expected env override for mic_block_size, got %d", cfg.MicBlockSize)
	}
}

func TestInvalidNumericEnvIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"MIC_SAMPLE_RATE", "fast")
	t.Setenv(EnvPrefix+"MIC_BLOCK_SIZE", "-5")

	cfg, _, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MicSampleRate != 16000 || cfg.MicBlockSize != 4096 {
		t.Fatalf("expected defaults kept, got %d/%d", cfg.MicSampleRate, cfg.MicBlockSize)
	}
}

func TestSecretsFromEnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"GEMINI_API_KEY", "gm-secret")
	t.Setenv(EnvPrefix+"DEEPGRAM_API_KEY", "dg-secret")
	t.Setenv(EnvPrefix+"ANTHROPIC_API_KEY", "an-secret")

	cfg, _, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIKey("gemini") != "gm-secret" || cfg.APIKey("deepgram") != "dg-secret" || cfg.APIKey("anthropic") != "an-secret" {
		t.Fatalf("unexpected secrets: %+v", cfg)
	}
	if cfg.APIKey("openai") != "" || cfg.APIKey("unknown") != "" {
		t.Fatalf("expected empty keys for unset providers")
	}
}

func TestSecretsIgnoredInYAML(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "agendei.yaml")
	yamlContent := `
gemini_api_key: should-be-ignored
openai_api_key: also-ignored
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.GeminiAPIKey != "" {
		t.Fatalf("expected empty gemini key (yaml should be ignored), got %q", cfg.GeminiAPIKey)
	}
	if cfg.OpenAIAPIKey != "" {
		t.Fatalf("expected empty openai key (yaml should be ignored), got %q", cfg.OpenAIAPIKey)
	}
}

func TestValidationWarnings(t *testing.T) {
	clearEnv(t)

	_, warnings, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var transcription, reports bool
	for _, w := range warnings {
		if strings.Contains(w, "live transcription") {
			transcription = true
		}
		if strings.Contains(w, "meeting reports") {
			reports = true
		}
	}

	if !transcription || !reports {
		t.Fatalf("expected transcription and report warnings, got: %v", warnings)
	}
}

func TestValidationNoWarningsWhenConfigured(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"GEMINI_API_KEY", "key")

	_, warnings, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(warnings) != 0 {
		t.Fatalf("expected no warnings when fully configured, got: %v", warnings)
	}
}

func TestInvalidReportModelWarning(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"GEMINI_API_KEY", "key")
	t.Setenv(EnvPrefix+"REPORT_MODEL", "gpt-4o")

	_, warnings, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "report_model") {
		t.Fatalf("expected report_model warning, got: %v", warnings)
	}
}

func TestUnknownTranscriberWarning(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"GEMINI_API_KEY", "key")
	t.Setenv(EnvPrefix+"TRANSCRIBER", "whisper")

	_, warnings, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "whisper") {
		t.Fatalf("expected unknown transcriber warning, got: %v", warnings)
	}
}

func TestLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"GEMINI_API_KEY", "key")
	t.Setenv(EnvPrefix+"LOG_LEVEL", "debug")

	cfg, warnings, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.SlogLevel())
	}

	cfg.LogLevel = "loud"
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Fatalf("expected info fallback, got %v", cfg.SlogLevel())
	}
}

func TestMissingConfigFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, _, err := Load("/nonexistent/path/agendei.yaml")
	if err != nil {
		t.Fatalf("Load should not fail for missing config file, got: %v", err)
	}

	if cfg.DBPath != "data/agendei.db" {
		t.Fatalf("expected defaults when config file missing, got db_path=%q", cfg.DBPath)
	}
}

func TestInvalidConfigFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte(":::invalid yaml"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	clearEnv(t)

	_, _, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for invalid yaml, got nil")
	}
}
