package config

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/assert"
)

const sampleYAML = `
server:
  port: 9090
transcription:
  recognizer: whisper
  min_segment_ms: 1500
  speakers: 3
diarization:
  command: ["python3", "scripts/diarize.py"]
storage:
  temp_dir: /tmp/st
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NilError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load(writeConfig(t, sampleYAML))
	assert.NilError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(1500), cfg.Transcription.MinSegmentMs)
	assert.Equal(t, 3, cfg.Transcription.Speakers)
	assert.DeepEqual(t, []string{"python3", "scripts/diarize.py"}, cfg.Diarization.Command)
	assert.Equal(t, "/tmp/st", cfg.Storage.TempDir)

	// defaults
	assert.Equal(t, "drop", cfg.Transcription.ShortRunPolicy)
	assert.Equal(t, "transcripts", cfg.Storage.OutputDir)
	assert.Equal(t, 168, cfg.Cleanup.LogMaxAgeHours)
	assert.Equal(t, "yt-dlp", cfg.Download.YtDlpBinary)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("RECOGNIZER", "assemblyai")
	t.Setenv("ASSEMBLYAI_API_KEY", "secret")

	cfg, err := Load(writeConfig(t, sampleYAML))
	assert.NilError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "assemblyai", cfg.Transcription.Recognizer)
	assert.Equal(t, "secret", cfg.AssemblyAI.APIKey)
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("RECOGNIZER", "")
	t.Setenv("ASSEMBLYAI_API_KEY", "")

	_, err := Load(writeConfig(t, "transcription:\n  recognizer: assemblyai\ndiarization:\n  command: [diarize]\n"))
	assert.ErrorContains(t, err, "ASSEMBLYAI_API_KEY")

	_, err = Load(writeConfig(t, "transcription:\n  recognizer: sphinx\ndiarization:\n  command: [diarize]\n"))
	assert.ErrorContains(t, err, "unknown recognizer")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "diarization.command")

	_, err = Load(writeConfig(t, "server: [oops"))
	assert.ErrorContains(t, err, "failed to parse config")
}
