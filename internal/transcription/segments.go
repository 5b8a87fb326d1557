package transcription

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

// Transcriber recognizes the text of every segment of one audio file
type Transcriber struct {
	slicer      AudioSlicer
	recognizer  SpeechRecognizer
	concurrency int
	logger      *zap.Logger
}

// NewTranscriber creates a segment transcriber. A concurrency of 1 or less keeps
// recognition strictly sequential.
func NewTranscriber(slicer AudioSlicer, recognizer SpeechRecognizer, concurrency int, logger *zap.Logger) *Transcriber {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transcriber{
		slicer:      slicer,
		recognizer:  recognizer,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Transcribe fills in the text of each segment and drops those that stay empty.
// Per-segment failures are logged and absorbed.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string, segments []types.Segment) ([]types.Segment, error) {
	if len(segments) == 0 {
		return nil, ErrNoTranscribableContent
	}

	texts := make([]string, len(segments))

	if t.concurrency == 1 {
		for i, seg := range segments {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			texts[i] = t.transcribeSegment(ctx, audioPath, i, seg)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(t.concurrency)
		for i, seg := range segments {
			i, seg := i, seg
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				texts[i] = t.transcribeSegment(gctx, audioPath, i, seg)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	out := make([]types.Segment, 0, len(segments))
	for i, seg := range segments {
		if texts[i] == "" {
			continue
		}
		seg.Text = texts[i]
		out = append(out, seg)
	}

	if len(out) == 0 {
		t.logger.Error("No text was transcribed from the audio",
			zap.String("audio_path", audioPath),
			zap.Int("segments", len(segments)),
		)
		return nil, ErrNoTranscribableContent
	}

	t.logger.Info("Segments transcribed",
		zap.Int("segments", len(segments)),
		zap.Int("kept", len(out)),
	)
	return out, nil
}

// transcribeSegment returns the recognized text or "" when the segment is unusable
func (t *Transcriber) transcribeSegment(ctx context.Context, audioPath string, index int, seg types.Segment) string {
	fields := []zap.Field{
		zap.Int("segment", index),
		zap.Int("speaker", seg.SpeakerID),
		zap.Int64("start_ms", seg.StartMs),
		zap.Int64("end_ms", seg.EndMs),
	}

	clip, err := t.slicer.Slice(ctx, audioPath, seg.StartMs, seg.EndMs)
	if err != nil {
		t.logger.Error("Failed to slice segment audio", append(fields, zap.Error(err))...)
		return ""
	}

	text, err := t.recognizer.Recognize(ctx, clip)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotUnderstood):
		t.logger.Warn("Could not understand audio in segment", fields...)
		return ""
	default:
		t.logger.Error("Could not request results from speech recognition service",
			append(fields, zap.Error(err))...)
		return ""
	}

	text = strings.TrimSpace(text)
	if text != "" {
		t.logger.Debug("Segment transcribed successfully", fields...)
	}
	return text
}
