package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/codebuildervaibhav/speaker-transcription/internal/logging"
	"github.com/codebuildervaibhav/speaker-transcription/internal/transcript"
)

func main() {
	in := flag.String("in", "transcription.txt", "formatted transcript to clean")
	out := flag.String("out", "cleaned_transcript.txt", "where to write the cleaned transcript")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	zlog, err := logging.New(*level, nil)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	if err := transcript.CleanFile(*in, *out); err != nil {
		zlog.Fatal("Cleaning failed", zap.String("in", *in), zap.Error(err))
	}
	zlog.Info("Cleaned transcript written", zap.String("in", *in), zap.String("out", *out))
}
