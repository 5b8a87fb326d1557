package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Log struct {
		Level       string `yaml:"level"`
		Dir         string `yaml:"dir"`
		BufferLines int    `yaml:"buffer_lines"`
	} `yaml:"log"`

	Transcription struct {
		Recognizer      string `yaml:"recognizer"` // whisper or assemblyai
		Language        string `yaml:"language"`
		MinSegmentMs    int64  `yaml:"min_segment_ms"`
		Speakers        int    `yaml:"speakers"`
		ShortRunPolicy  string `yaml:"short_run_policy"`
		Concurrency     int    `yaml:"concurrency"`
		RetryInitialMs  int    `yaml:"retry_initial_ms"`
		RetryMaxSeconds int    `yaml:"retry_max_seconds"`
	} `yaml:"transcription"`

	Whisper struct {
		Model     string `yaml:"model"`
		ModelPath string `yaml:"model_path"`
	} `yaml:"whisper"`

	AssemblyAI struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"assemblyai"`

	Diarization struct {
		Command []string `yaml:"command"`
	} `yaml:"diarization"`

	Download struct {
		YtDlpBinary        string `yaml:"ytdlp_binary"`
		HTTPTimeoutSeconds int    `yaml:"http_timeout_seconds"`
		TitleTimeoutSecs   int    `yaml:"title_timeout_seconds"`
	} `yaml:"download"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Storage struct {
		TempDir   string `yaml:"temp_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	ObjectStore struct {
		Enabled   bool   `yaml:"enabled"`
		Endpoint  string `yaml:"endpoint"`
		Bucket    string `yaml:"bucket"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"object_store"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
		LogMaxAgeHours  int `yaml:"log_max_age_hours"`
		RetentionDays   int `yaml:"retention_days"` // 0 keeps metadata forever
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Limits struct {
		MaxFileSizeMB      int `yaml:"max_file_size_mb"`
		MaxDurationMinutes int `yaml:"max_duration_minutes"`
	} `yaml:"limits"`
}

// Load reads .env (if present) and the YAML file at path, then applies
// environment overrides and defaults. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.AssemblyAI.APIKey = getEnv("ASSEMBLYAI_API_KEY", c.AssemblyAI.APIKey)
	c.ObjectStore.AccessKey = getEnv("MINIO_ACCESS_KEY", c.ObjectStore.AccessKey)
	c.ObjectStore.SecretKey = getEnv("MINIO_SECRET_KEY", c.ObjectStore.SecretKey)
	c.ObjectStore.Endpoint = getEnv("MINIO_ENDPOINT", c.ObjectStore.Endpoint)
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("PORT", c.Server.Port)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Transcription.Recognizer = getEnv("RECOGNIZER", c.Transcription.Recognizer)
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	if c.Log.BufferLines == 0 {
		c.Log.BufferLines = 1000
	}
	if c.Transcription.Recognizer == "" {
		c.Transcription.Recognizer = "whisper"
	}
	if c.Transcription.Language == "" {
		c.Transcription.Language = "en"
	}
	if c.Transcription.MinSegmentMs == 0 {
		c.Transcription.MinSegmentMs = 1000
	}
	if c.Transcription.Speakers == 0 {
		c.Transcription.Speakers = 2
	}
	if c.Transcription.ShortRunPolicy == "" {
		c.Transcription.ShortRunPolicy = "drop"
	}
	if c.Transcription.Concurrency == 0 {
		c.Transcription.Concurrency = 1
	}
	if c.Transcription.RetryInitialMs == 0 {
		c.Transcription.RetryInitialMs = 500
	}
	if c.Whisper.Model == "" {
		c.Whisper.Model = "small"
	}
	if c.Download.YtDlpBinary == "" {
		c.Download.YtDlpBinary = "yt-dlp"
	}
	if c.Download.HTTPTimeoutSeconds == 0 {
		c.Download.HTTPTimeoutSeconds = 300
	}
	if c.Download.TitleTimeoutSecs == 0 {
		c.Download.TitleTimeoutSecs = 30
	}
	if c.Workers.Count == 0 {
		c.Workers.Count = 2
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "temp"
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "transcripts"
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "transcripts.db"
	}
	if c.ObjectStore.Bucket == "" {
		c.ObjectStore.Bucket = "transcripts"
	}
	if c.Cleanup.IntervalMinutes == 0 {
		c.Cleanup.IntervalMinutes = 30
	}
	if c.Cleanup.MaxAgeHours == 0 {
		c.Cleanup.MaxAgeHours = 1
	}
	if c.Cleanup.LogMaxAgeHours == 0 {
		c.Cleanup.LogMaxAgeHours = 7 * 24
	}
	if c.GoogleDrive.FolderName == "" {
		c.GoogleDrive.FolderName = "Transcripts"
	}
	if c.Limits.MaxFileSizeMB == 0 {
		c.Limits.MaxFileSizeMB = 500
	}
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	switch c.Transcription.Recognizer {
	case "whisper":
	case "assemblyai":
		if c.AssemblyAI.APIKey == "" {
			return errors.New("assemblyai recognizer requires ASSEMBLYAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown recognizer %q", c.Transcription.Recognizer)
	}
	if len(c.Diarization.Command) == 0 {
		return errors.New("diarization.command must be set")
	}
	if c.Transcription.MinSegmentMs < 0 {
		return errors.New("transcription.min_segment_ms must not be negative")
	}
	if c.Transcription.Speakers < 1 {
		return errors.New("transcription.speakers must be at least 1")
	}
	if c.ObjectStore.Enabled && c.ObjectStore.Endpoint == "" {
		return errors.New("object_store.endpoint must be set when enabled")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
