package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all Agendei environment variables.
const EnvPrefix = "AGENDEI_"

// Config holds all application configuration. Secrets (API keys) are loaded
// exclusively from environment variables and never appear in the config file.
type Config struct {
	Listen    string `yaml:"listen"`
	LogLevel  string `yaml:"log_level"`
	DBPath    string `yaml:"db_path"`
	AudioDir  string `yaml:"audio_dir"`
	ReportDir string `yaml:"report_dir"`

	MicSampleRate int `yaml:"mic_sample_rate"`
	MicBlockSize  int `yaml:"mic_block_size"`

	Transcriber        string `yaml:"transcriber"`
	TranscriberModel   string `yaml:"transcriber_model"`
	Language           string `yaml:"language"`
	MeetingInstruction string `yaml:"meeting_instruction"`
	ReportModel        string `yaml:"report_model"`

	GDriveFolderID        string `yaml:"gdrive_folder_id"`
	GCSBucket             string `yaml:"gcs_bucket"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`

	// Secrets, env vars only.
	GeminiAPIKey    string `yaml:"-"`
	DeepgramAPIKey  string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
}

func defaults() Config {
	return Config{
		Listen:                ":8080",
		LogLevel:              "info",
		DBPath:                "data/agendei.db",
		ReportDir:             "data/reports",
		MicSampleRate:         16000,
		MicBlockSize:          4096,
		Transcriber:           "gemini",
		Language:              "pt-BR",
		MeetingInstruction:    "Faithful transcription of a corporate meeting.",
		ReportModel:           "gemini/gemini-3-pro-preview",
		GoogleCredentialsFile: "./service-account.json",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// APIKey returns the secret for a transcription or LLM provider name.
func (c *Config) APIKey(provider string) string {
	switch provider {
	case "gemini":
		return c.GeminiAPIKey
	case "deepgram":
		return c.DeepgramAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

// SlogLevel parses LogLevel, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func applyEnvOverrides(cfg *Config) {
	strs := map[string]*string{
		"LISTEN":                  &cfg.Listen,
		"LOG_LEVEL":               &cfg.LogLevel,
		"DB_PATH":                 &cfg.DBPath,
		"AUDIO_DIR":               &cfg.AudioDir,
		"REPORT_DIR":              &cfg.ReportDir,
		"TRANSCRIBER":             &cfg.Transcriber,
		"TRANSCRIBER_MODEL":       &cfg.TranscriberModel,
		"LANGUAGE":                &cfg.Language,
		"MEETING_INSTRUCTION":     &cfg.MeetingInstruction,
		"REPORT_MODEL":            &cfg.ReportModel,
		"GDRIVE_FOLDER_ID":        &cfg.GDriveFolderID,
		"GCS_BUCKET":              &cfg.GCSBucket,
		"GOOGLE_CREDENTIALS_FILE": &cfg.GoogleCredentialsFile,
	}
	for key, dst := range strs {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv(EnvPrefix + "MIC_SAMPLE_RATE"); v != "" {
		if rate, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && rate > 0 {
			cfg.MicSampleRate = rate
		}
	}
	if v := os.Getenv(EnvPrefix + "MIC_BLOCK_SIZE"); v != "" {
		if size, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && size > 0 {
			cfg.MicBlockSize = size
		}
	}
}

func loadSecrets(cfg *Config) {
	cfg.GeminiAPIKey = os.Getenv(EnvPrefix + "GEMINI_API_KEY")
	cfg.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv(EnvPrefix + "ANTHROPIC_API_KEY")
}

func validate(cfg *Config) []string {
	var warnings []string

	switch cfg.Transcriber {
	case "gemini", "deepgram":
		if cfg.APIKey(cfg.Transcriber) == "" {
			warnings = append(warnings, fmt.Sprintf("%s API key not configured, live transcription is disabled. Set %s%s_API_KEY.",
				cfg.Transcriber, EnvPrefix, strings.ToUpper(cfg.Transcriber)))
		}
	case "google-speech":
		if _, err := os.Stat(cfg.GoogleCredentialsFile); err != nil {
			warnings = append(warnings, fmt.Sprintf("Google credentials file %q not readable, using application default credentials.", cfg.GoogleCredentialsFile))
		}
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown transcriber %q, live transcription is disabled.", cfg.Transcriber))
	}

	provider, _, ok := strings.Cut(cfg.ReportModel, "/")
	if !ok || provider == "" {
		warnings = append(warnings, fmt.Sprintf("Invalid report_model %q, expected provider/model_name. Reports are disabled.", cfg.ReportModel))
	} else if cfg.APIKey(provider) == "" {
		warnings = append(warnings, fmt.Sprintf("%s API key not configured, meeting reports are disabled. Set %s%s_API_KEY.",
			provider, EnvPrefix, strings.ToUpper(provider)))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid log_level %q, using info.", cfg.LogLevel))
	}

	return warnings
}
