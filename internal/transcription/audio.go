package transcription

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// NormalizeAudio converts any audio file to 16kHz mono WAV format
func NormalizeAudio(ctx context.Context, tempDir, inputPath string) (string, error) {
	outputPath := filepath.Join(tempDir, fmt.Sprintf("normalized_%s.wav", uuid.New().String()))

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inputPath,
		"-ar", "16000", // 16kHz sample rate
		"-ac", "1", // Mono
		"-c:a", "pcm_s16le", // 16-bit PCM
		"-y",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, string(output))
	}

	return outputPath, nil
}

// Normalizer binds NormalizeAudio to a temp directory
func Normalizer(tempDir string) NormalizeFunc {
	return func(ctx context.Context, inputPath string) (string, error) {
		return NormalizeAudio(ctx, tempDir, inputPath)
	}
}

// ValidateAudioFormat checks if the file format is supported
func ValidateAudioFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	supportedFormats := []string{".mp3", ".wav", ".m4a", ".ogg", ".flac", ".webm", ".aac", ".wma", ".opus"}

	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// AudioDuration returns the playing time of a WAV file
func AudioDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to decode wav: %w", err)
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}

// WAVSlicer cuts segments out of a WAV file. Each slice goes through a temp
// file that only lives for the duration of the call.
type WAVSlicer struct {
	tempDir string
}

// NewWAVSlicer creates a slicer writing its scratch files to tempDir
func NewWAVSlicer(tempDir string) *WAVSlicer {
	return &WAVSlicer{tempDir: tempDir}
}

// Slice returns the [startMs, endMs) range of audioPath encoded as WAV
func (ws *WAVSlicer) Slice(ctx context.Context, audioPath string, startMs, endMs int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}
	defer streamer.Close()

	from := format.SampleRate.N(time.Duration(startMs) * time.Millisecond)
	to := format.SampleRate.N(time.Duration(endMs) * time.Millisecond)
	if to > streamer.Len() {
		to = streamer.Len()
	}
	if from >= to {
		return nil, fmt.Errorf("empty slice [%dms, %dms) of %s", startMs, endMs, audioPath)
	}

	if err := streamer.Seek(from); err != nil {
		return nil, fmt.Errorf("failed to seek: %w", err)
	}

	tmp, err := os.CreateTemp(ws.tempDir, "segment-*.wav")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if err := wav.Encode(tmp, beep.Take(to-from, streamer), format); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to encode slice: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	return os.ReadFile(tmp.Name())
}
