package app

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/codebuildervaibhav/speaker-transcription/internal/config"
	"github.com/codebuildervaibhav/speaker-transcription/internal/handlers"
	"github.com/codebuildervaibhav/speaker-transcription/internal/segment"
	"github.com/codebuildervaibhav/speaker-transcription/internal/transcription"
)

// NewRecognizer builds the configured speech recognizer wrapped in retries
func NewRecognizer(cfg *config.Config, logger *zap.Logger) (transcription.SpeechRecognizer, string, error) {
	var (
		rec  transcription.SpeechRecognizer
		name string
	)
	switch cfg.Transcription.Recognizer {
	case "whisper":
		model := cfg.Whisper.ModelPath
		if model == "" {
			model = cfg.Whisper.Model
		}
		rec = transcription.NewWhisperRecognizer(model, cfg.Transcription.Language, cfg.Storage.TempDir, logger)
		name = "whisper-" + transcription.ModelName(model)
	case "assemblyai":
		rec = transcription.NewAssemblyAIRecognizer(cfg.AssemblyAI.APIKey, cfg.AssemblyAI.BaseURL, cfg.Transcription.Language, logger)
		name = "assemblyai"
	default:
		return nil, "", fmt.Errorf("unknown recognizer %q", cfg.Transcription.Recognizer)
	}

	retried := transcription.NewRetryRecognizer(rec,
		time.Duration(cfg.Transcription.RetryInitialMs)*time.Millisecond,
		time.Duration(cfg.Transcription.RetryMaxSeconds)*time.Second,
		logger,
	)
	return retried, name, nil
}

// NewPipeline wires downloaders, diarization, slicing and recognition from cfg.
// It also returns the recognizer's display name.
func NewPipeline(cfg *config.Config, logger *zap.Logger) (*transcription.Pipeline, string, error) {
	recognizer, name, err := NewRecognizer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	labeler, err := transcription.NewCommandLabeler(cfg.Diarization.Command, logger)
	if err != nil {
		return nil, "", err
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.Download.HTTPTimeoutSeconds) * time.Second}
	downloader := transcription.NewRouteDownloader(
		transcription.NewHTTPDownloader(httpClient, cfg.Storage.TempDir, logger),
		transcription.NewYtDlpDownloader(cfg.Download.YtDlpBinary, cfg.Storage.TempDir, logger),
	)

	transcriber := transcription.NewTranscriber(
		transcription.NewWAVSlicer(cfg.Storage.TempDir),
		recognizer,
		cfg.Transcription.Concurrency,
		logger,
	)

	pipeline := transcription.NewPipeline(downloader, labeler, transcriber,
		transcription.Normalizer(cfg.Storage.TempDir), logger).
		WithMaxDuration(time.Duration(cfg.Limits.MaxDurationMinutes) * time.Minute)
	return pipeline, name, nil
}

// Options returns the pipeline options configured as defaults
func Options(cfg *config.Config) transcription.Options {
	return transcription.Options{
		MinSegmentMs: cfg.Transcription.MinSegmentMs,
		Speakers:     cfg.Transcription.Speakers,
		Policy:       segment.ParsePolicy(cfg.Transcription.ShortRunPolicy),
	}
}

// Defaults converts the configured options for the HTTP handlers
func Defaults(cfg *config.Config) handlers.Defaults {
	opts := Options(cfg)
	return handlers.Defaults{
		MinSegmentMs: opts.MinSegmentMs,
		Speakers:     opts.Speakers,
		Policy:       opts.Policy,
	}
}
