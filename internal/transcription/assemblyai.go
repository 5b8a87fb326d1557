package transcription

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"go.uber.org/zap"
)

// transcriptService is the part of the AssemblyAI SDK the recognizer uses
type transcriptService interface {
	TranscribeFromReader(ctx context.Context, reader io.Reader, params *aai.TranscriptOptionalParams) (aai.Transcript, error)
}

// AssemblyAIRecognizer sends each segment to AssemblyAI's hosted recognizer
type AssemblyAIRecognizer struct {
	transcripts transcriptService
	language    string
	logger      *zap.Logger
}

// NewAssemblyAIRecognizer creates a recognizer using the official SDK.
// baseURL is only set when pointing at a proxy or a test server.
func NewAssemblyAIRecognizer(apiKey, baseURL, language string, logger *zap.Logger) *AssemblyAIRecognizer {
	opts := []aai.ClientOption{aai.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, aai.WithBaseURL(baseURL))
	}
	client := aai.NewClientWithOptions(opts...)
	return newAssemblyAIRecognizer(client.Transcripts, language, logger)
}

func newAssemblyAIRecognizer(transcripts transcriptService, language string, logger *zap.Logger) *AssemblyAIRecognizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if language == "" {
		language = "en"
	}
	return &AssemblyAIRecognizer{transcripts: transcripts, language: language, logger: logger}
}

// Recognize uploads the clip and waits for the transcript
func (ar *AssemblyAIRecognizer) Recognize(ctx context.Context, audio []byte) (string, error) {
	params := &aai.TranscriptOptionalParams{
		LanguageCode: aai.TranscriptLanguageCode(ar.language),
	}

	transcript, err := ar.transcripts.TranscribeFromReader(ctx, bytes.NewReader(audio), params)
	if err != nil {
		return "", fmt.Errorf("%w: assemblyai: %v", ErrServiceError, err)
	}

	if transcript.Status == aai.TranscriptStatusError {
		msg := "unknown error"
		if transcript.Error != nil {
			msg = *transcript.Error
		}
		return "", fmt.Errorf("%w: assemblyai reported error: %s", ErrServiceError, msg)
	}

	var text string
	if transcript.Text != nil {
		text = strings.TrimSpace(*transcript.Text)
	}
	if text == "" {
		return "", ErrNotUnderstood
	}

	if transcript.ID != nil {
		ar.logger.Debug("AssemblyAI transcript received", zap.String("transcript_id", *transcript.ID))
	}
	return text, nil
}
