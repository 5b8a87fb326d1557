package types

import (
	"errors"
	"time"
)

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceUpload  = "upload"
	SourceGDrive  = "gdrive"
	SourceYouTube = "youtube"
	SourceStream  = "stream"
	SourceURL     = "url"
)

// FrameLabeling is the diarizer output: one speaker cluster per equal-width frame.
type FrameLabeling struct {
	Labels     []int `json:"labels"`
	DurationMs int64 `json:"duration_ms"`
}

// Validate checks that the labeling can be turned into segments
func (fl FrameLabeling) Validate() error {
	if len(fl.Labels) == 0 {
		return errors.New("frame labeling has no frames")
	}
	if fl.DurationMs <= 0 {
		return errors.New("frame labeling has no duration")
	}
	return nil
}

// FrameWidthMs returns the duration covered by a single frame
func (fl FrameLabeling) FrameWidthMs() float64 {
	if len(fl.Labels) == 0 {
		return 0
	}
	return float64(fl.DurationMs) / float64(len(fl.Labels))
}

// Segment is a speaker-attributed span of audio and, once transcribed, its text
type Segment struct {
	SpeakerID int    `json:"speaker"`
	StartMs   int64  `json:"start_ms"`
	EndMs     int64  `json:"end_ms"`
	Text      string `json:"text,omitempty"`
}

// DurationMs returns the length of the segment
func (s Segment) DurationMs() int64 {
	return s.EndMs - s.StartMs
}

// TranscriptionResult represents the output of one transcription job
type TranscriptionResult struct {
	JobID        string
	Text         string
	CleanText    string
	Duration     float64
	Segments     []Segment
	SpeakerCount int
	WordCount    int
	ProcessedAt  time.Time
	LocalPath    string
	GDriveURL    string
	ObjectKey    string
}
