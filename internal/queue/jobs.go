package queue

import (
	"time"

	"github.com/codebuildervaibhav/speaker-transcription/internal/segment"
	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

// Job represents a transcription job. Exactly one of URL and FilePath is set;
// a FilePath job owns the file and removes it when done.
type Job struct {
	ID          string
	RequestName string
	SourceType  string
	URL         string
	FilePath    string

	MinSegmentMs int64
	Speakers     int
	Policy       segment.ShortRunPolicy
	Clean        bool

	Status      string
	Error       error
	Result      *types.TranscriptionResult
	CreatedAt   time.Time
	CompletedAt time.Time

	done    chan struct{}
	release func()
}

// NewJob creates a new job with default values
func NewJob(id, requestName, sourceType string) *Job {
	return &Job{
		ID:          id,
		RequestName: requestName,
		SourceType:  sourceType,
		Status:      types.StatusQueued,
		CreatedAt:   time.Now(),
		done:        make(chan struct{}),
	}
}

// Finished reports whether the job reached a terminal status
func (j Job) Finished() bool {
	return j.Status == types.StatusCompleted || j.Status == types.StatusFailed
}

func (j *Job) releaseFile() {
	if j.release != nil {
		j.release()
	}
}
