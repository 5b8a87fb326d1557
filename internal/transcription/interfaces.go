package transcription

import (
	"context"

	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

// AudioDownloader fetches a remote source and returns the path of a local audio file
type AudioDownloader interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// SpeakerLabeler assigns a speaker cluster to every frame of an audio file
type SpeakerLabeler interface {
	Label(ctx context.Context, audioPath string, expectedSpeakers int) (types.FrameLabeling, error)
}

// AudioSlicer extracts the [startMs, endMs) range of an audio file
type AudioSlicer interface {
	Slice(ctx context.Context, audioPath string, startMs, endMs int64) ([]byte, error)
}

// SpeechRecognizer turns a WAV clip into text. Implementations wrap
// ErrNotUnderstood or ErrServiceError so callers can tell the two apart.
type SpeechRecognizer interface {
	Recognize(ctx context.Context, audio []byte) (string, error)
}
