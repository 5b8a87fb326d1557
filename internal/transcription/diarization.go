package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"go.uber.org/zap"

	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

// CommandLabeler runs an external diarization program (for example a
// pyAudioAnalysis or pyannote script) and reads its frame labels from stdout.
//
// The program is invoked as `<command...> --speakers N <audio>` and must print
//
//	{"labels": [0, 0, 1, ...], "duration_ms": 123456}
//
// duration_ms may be omitted, in which case it is read from the WAV header.
type CommandLabeler struct {
	command []string
	logger  *zap.Logger
}

// NewCommandLabeler creates a labeler for the given command line
func NewCommandLabeler(command []string, logger *zap.Logger) (*CommandLabeler, error) {
	if len(command) == 0 {
		return nil, errors.New("diarization command is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandLabeler{command: command, logger: logger}, nil
}

// Label diarizes audioPath into expectedSpeakers clusters
func (cl *CommandLabeler) Label(ctx context.Context, audioPath string, expectedSpeakers int) (types.FrameLabeling, error) {
	args := append([]string{}, cl.command[1:]...)
	args = append(args, "--speakers", strconv.Itoa(expectedSpeakers), audioPath)

	cmd := exec.CommandContext(ctx, cl.command[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return types.FrameLabeling{}, fmt.Errorf("diarization command failed: %v\nOutput: %s", err, stderr.String())
	}

	labeling, err := ParseLabeling(output)
	if err != nil {
		return types.FrameLabeling{}, err
	}

	if labeling.DurationMs <= 0 {
		d, err := AudioDuration(audioPath)
		if err != nil {
			return types.FrameLabeling{}, fmt.Errorf("failed to read audio duration: %w", err)
		}
		labeling.DurationMs = d.Milliseconds()
	}

	cl.logger.Debug("Diarization output parsed",
		zap.Int("frames", len(labeling.Labels)),
		zap.Int64("duration_ms", labeling.DurationMs),
	)
	return labeling, nil
}

// ParseLabeling decodes the JSON printed by a diarization command
func ParseLabeling(data []byte) (types.FrameLabeling, error) {
	var labeling types.FrameLabeling
	if err := json.Unmarshal(bytes.TrimSpace(data), &labeling); err != nil {
		return types.FrameLabeling{}, fmt.Errorf("failed to parse diarization output: %w", err)
	}
	if len(labeling.Labels) == 0 {
		return types.FrameLabeling{}, errors.New("diarization output has no labels")
	}
	return labeling, nil
}
