package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/codebuildervaibhav/speaker-transcription/internal/app"
	"github.com/codebuildervaibhav/speaker-transcription/internal/cleanup"
	"github.com/codebuildervaibhav/speaker-transcription/internal/config"
	"github.com/codebuildervaibhav/speaker-transcription/internal/logging"
	"github.com/codebuildervaibhav/speaker-transcription/internal/segment"
	"github.com/codebuildervaibhav/speaker-transcription/internal/storage"
	"github.com/codebuildervaibhav/speaker-transcription/internal/transcript"
	"github.com/codebuildervaibhav/speaker-transcription/internal/transcription"
)

func main() {
	var (
		configPath     = flag.String("config", "config/config.yaml", "path to the YAML config file")
		url            = flag.String("url", "", "audio or video URL to transcribe")
		file           = flag.String("file", "", "local audio file to transcribe instead of -url")
		minSegmentMs   = flag.Int64("min-segment-ms", -1, "drop speaker turns shorter than this (default from config)")
		speakers       = flag.Int("speakers", 0, "expected number of speakers (default from config)")
		policy         = flag.String("policy", "", "short turn handling: drop or merge (default from config)")
		clean          = flag.Bool("clean", false, "strip timestamps and merge consecutive lines per speaker")
		out            = flag.String("out", "", "write the transcript here instead of stdout")
		authorizeDrive = flag.Bool("authorize-drive", false, "run the Google Drive OAuth flow and cache the token")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logging.New(cfg.Log.Level, nil)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *authorizeDrive {
		err := storage.AuthorizeDrive(ctx, cfg.GoogleDrive.CredentialsFile, cfg.GoogleDrive.TokenFile, promptForCode)
		if err != nil {
			zlog.Fatal("Drive authorization failed", zap.Error(err))
		}
		zlog.Info("Drive token saved", zap.String("path", cfg.GoogleDrive.TokenFile))
		return
	}

	if (*url == "") == (*file == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -url or -file is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := cleanup.EnsureDirs(cfg.Storage.TempDir); err != nil {
		zlog.Fatal("Failed to create temp directory", zap.Error(err))
	}

	pipeline, _, err := app.NewPipeline(cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize pipeline", zap.Error(err))
	}

	opts := app.Options(cfg)
	if *minSegmentMs >= 0 {
		opts.MinSegmentMs = *minSegmentMs
	}
	if *speakers > 0 {
		opts.Speakers = *speakers
	}
	if *policy != "" {
		opts.Policy = segment.ParsePolicy(*policy)
	}

	var result *transcription.Result
	if *url != "" {
		result, err = pipeline.ProduceTranscript(ctx, *url, opts)
	} else {
		result, err = pipeline.ProduceFromFile(ctx, *file, opts)
	}
	if err != nil {
		zlog.Error("Transcription failed",
			zap.String("code", transcription.ErrorCode(err)),
			zap.Error(err),
		)
		if errors.Is(err, transcription.ErrNoTranscribableContent) {
			os.Exit(3)
		}
		os.Exit(1)
	}

	text := result.Text
	if *clean {
		text = transcript.Clean(text)
	}

	if *out == "" {
		fmt.Println(text)
		return
	}
	if err := os.WriteFile(*out, []byte(text+"\n"), 0644); err != nil {
		zlog.Fatal("Failed to write transcript", zap.String("path", *out), zap.Error(err))
	}
	zlog.Info("Transcript written",
		zap.String("path", *out),
		zap.Int("segments", len(result.Segments)),
		zap.Int("speakers", result.SpeakerCount),
	)
}

func promptForCode(authURL string) (string, error) {
	fmt.Printf("Go to the following link in your browser:\n%v\n", authURL)
	fmt.Print("Enter authorization code: ")

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return "", err
	}
	return code, nil
}
