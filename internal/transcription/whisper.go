package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// WhisperRecognizer wraps Python's OpenAI Whisper for segment recognition
type WhisperRecognizer struct {
	modelName string
	language  string
	python    string
	tempDir   string
	logger    *zap.Logger
}

// NewWhisperRecognizer creates a recognizer using Python Whisper
func NewWhisperRecognizer(modelPath, language, tempDir string, logger *zap.Logger) *WhisperRecognizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if language == "" {
		language = "en"
	}

	modelName := ModelName(modelPath)
	logger.Info("Initializing Python Whisper",
		zap.String("model", modelName),
		zap.String("invocation", "python -m whisper"),
	)

	return &WhisperRecognizer{
		modelName: modelName,
		language:  language,
		python:    "python",
		tempDir:   tempDir,
		logger:    logger,
	}
}

// ModelName extracts a Whisper model name from a path such as "ggml-small.bin".
// Defaults to "small".
func ModelName(modelPath string) string {
	for _, name := range []string{"tiny", "base", "small", "medium", "large"} {
		if strings.Contains(modelPath, name) {
			return name
		}
	}
	return "small"
}

// Recognize writes audio to a scratch WAV, runs Whisper on it and returns the text
func (wr *WhisperRecognizer) Recognize(ctx context.Context, audio []byte) (string, error) {
	workDir, err := os.MkdirTemp(wr.tempDir, "whisper-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceError, err)
	}
	defer os.RemoveAll(workDir)

	clipPath := filepath.Join(workDir, "clip.wav")
	if err := os.WriteFile(clipPath, audio, 0644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceError, err)
	}

	cmd := exec.CommandContext(ctx, wr.python, "-m", "whisper",
		clipPath,
		"--model", wr.modelName,
		"--output_dir", workDir,
		"--output_format", "json",
		"--language", wr.language,
		"--fp16", "False", // CPU compatibility
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: whisper transcription failed: %v\nOutput: %s", ErrServiceError, err, string(output))
	}

	jsonData, err := os.ReadFile(filepath.Join(workDir, "clip.json"))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read whisper output: %v", ErrServiceError, err)
	}

	return parseWhisperOutput(jsonData)
}

func parseWhisperOutput(data []byte) (string, error) {
	var out WhisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%w: failed to parse whisper JSON: %v", ErrServiceError, err)
	}

	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", ErrNotUnderstood
	}
	return text, nil
}

// WhisperOutput matches Python Whisper's JSON output format
type WhisperOutput struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []WhisperSegment `json:"segments"`
}

// WhisperSegment represents a timestamped segment from Whisper
type WhisperSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}
