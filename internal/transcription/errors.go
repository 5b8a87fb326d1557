package transcription

import (
	"context"
	"errors"
)

var (
	// ErrDownloadFailed means the source could not be fetched or extracted.
	ErrDownloadFailed = errors.New("download failed")
	// ErrDiarizationFailed means the speaker labeler errored or returned nothing usable.
	ErrDiarizationFailed = errors.New("diarization failed")
	// ErrNotUnderstood means the recognizer heard no intelligible speech in a segment.
	ErrNotUnderstood = errors.New("speech not understood")
	// ErrServiceError means the recognition backend failed or was unreachable.
	ErrServiceError = errors.New("recognition service error")
	// ErrNoTranscribableContent means no segment produced any text.
	ErrNoTranscribableContent = errors.New("no transcribable content")
	// ErrAudioTooLong means the audio exceeds the configured duration limit.
	ErrAudioTooLong = errors.New("audio too long")
)

// Error codes returned to API clients
const (
	CodeDownloadFailed         = "ERR_DOWNLOAD_FAILED"
	CodeDiarizationFailed      = "ERR_DIARIZATION_FAILED"
	CodeNoTranscribableContent = "ERR_NO_TRANSCRIBABLE_CONTENT"
	CodeAudioTooLong           = "ERR_AUDIO_TOO_LONG"
	CodeTimeout                = "ERR_TIMEOUT"
	CodeInternal               = "ERR_INTERNAL"
)

// ErrorCode maps a pipeline error to its API code
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrDownloadFailed):
		return CodeDownloadFailed
	case errors.Is(err, ErrDiarizationFailed):
		return CodeDiarizationFailed
	case errors.Is(err, ErrNoTranscribableContent):
		return CodeNoTranscribableContent
	case errors.Is(err, ErrAudioTooLong):
		return CodeAudioTooLong
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return CodeTimeout
	default:
		return CodeInternal
	}
}
