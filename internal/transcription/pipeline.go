package transcription

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/codebuildervaibhav/speaker-transcription/internal/segment"
	"github.com/codebuildervaibhav/speaker-transcription/internal/transcript"
	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

// NormalizeFunc converts an input file into the WAV layout the labeler and
// slicer expect. It returns the path of a new file.
type NormalizeFunc func(ctx context.Context, inputPath string) (string, error)

// FileHolder keeps temp files safe from cleanup sweeps while a request needs them
type FileHolder interface {
	Hold(path string) (release func())
}

// Options control one transcription request
type Options struct {
	MinSegmentMs int64
	Speakers     int
	Policy       segment.ShortRunPolicy
}

// Result is the outcome of a successful transcription request
type Result struct {
	Segments     []types.Segment
	Text         string
	DurationMs   int64
	SpeakerCount int
}

// Pipeline runs download, diarization, segmentation, recognition and formatting
type Pipeline struct {
	downloader  AudioDownloader
	labeler     SpeakerLabeler
	transcriber *Transcriber
	normalize   NormalizeFunc
	maxDuration int64
	holder      FileHolder
	logger      *zap.Logger
}

// NewPipeline wires the collaborators. normalize may be nil when the sources
// already produce mono WAV.
func NewPipeline(
	downloader AudioDownloader,
	labeler SpeakerLabeler,
	transcriber *Transcriber,
	normalize NormalizeFunc,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		downloader:  downloader,
		labeler:     labeler,
		transcriber: transcriber,
		normalize:   normalize,
		logger:      logger,
	}
}

// WithMaxDuration rejects audio longer than d before any segment is
// recognized. Zero disables the limit.
func (p *Pipeline) WithMaxDuration(d time.Duration) *Pipeline {
	p.maxDuration = d.Milliseconds()
	return p
}

// WithFileHolder registers the downloaded and normalized files with h for
// the lifetime of each request
func (p *Pipeline) WithFileHolder(h FileHolder) *Pipeline {
	p.holder = h
	return p
}

func (p *Pipeline) hold(path string) func() {
	if p.holder == nil {
		return func() {}
	}
	return p.holder.Hold(path)
}

// ProduceTranscript downloads url and returns its formatted, speaker-labeled transcript
func (p *Pipeline) ProduceTranscript(ctx context.Context, url string, opts Options) (*Result, error) {
	p.logger.Info("Attempting to download audio", zap.String("url", url))

	audioPath, err := p.downloader.Fetch(ctx, url)
	if err != nil {
		p.logger.Error("Error downloading audio", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer removeFile(p.logger, audioPath)
	defer p.hold(audioPath)()

	p.logger.Info("Successfully downloaded audio", zap.String("path", audioPath))
	return p.ProduceFromFile(ctx, audioPath, opts)
}

// ProduceFromFile runs the pipeline on an audio file that is already local.
// The caller keeps ownership of audioPath.
func (p *Pipeline) ProduceFromFile(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	defer p.hold(audioPath)()

	if p.normalize != nil {
		normalized, err := p.normalize(ctx, audioPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
		}
		defer removeFile(p.logger, normalized)
		defer p.hold(normalized)()
		audioPath = normalized
	}

	p.logger.Info("Starting speaker diarization",
		zap.String("path", audioPath),
		zap.Int("speakers", opts.Speakers),
	)
	labeling, err := p.labeler.Label(ctx, audioPath, opts.Speakers)
	if err != nil {
		p.logger.Error("Speaker diarization failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDiarizationFailed, err)
	}
	if err := labeling.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiarizationFailed, err)
	}
	if p.maxDuration > 0 && labeling.DurationMs > p.maxDuration {
		return nil, fmt.Errorf("%w: %s exceeds limit of %s", ErrAudioTooLong,
			transcript.Timestamp(labeling.DurationMs), transcript.Timestamp(p.maxDuration))
	}

	segments := segment.Build(labeling.Labels, labeling.DurationMs, opts.MinSegmentMs, opts.Policy)
	p.logger.Info("Speaker diarization completed",
		zap.Int("frames", len(labeling.Labels)),
		zap.Int64("duration_ms", labeling.DurationMs),
		zap.Int("segments", len(segments)),
		zap.String("short_run_policy", opts.Policy.String()),
	)

	transcribed, err := p.transcriber.Transcribe(ctx, audioPath, segments)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Segments:     transcribed,
		Text:         transcript.Format(transcribed),
		DurationMs:   labeling.DurationMs,
		SpeakerCount: countSpeakers(transcribed),
	}

	p.logger.Info("Transcription completed successfully",
		zap.Int("segments", len(transcribed)),
		zap.Int("speakers", result.SpeakerCount),
	)
	return result, nil
}

// CleanTranscript strips timestamps and merges consecutive same-speaker lines
func (p *Pipeline) CleanTranscript(formatted string) string {
	return transcript.Clean(formatted)
}

func countSpeakers(segments []types.Segment) int {
	seen := make(map[int]struct{})
	for _, s := range segments {
		seen[s.SpeakerID] = struct{}{}
	}
	return len(seen)
}

func removeFile(logger *zap.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to cleanup temp file", zap.String("path", path), zap.Error(err))
	}
}
