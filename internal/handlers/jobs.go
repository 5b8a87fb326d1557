package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/speaker-transcription/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcription/internal/transcription"
)

// JobsHandler reports job status
type JobsHandler struct {
	jobs JobQueue
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(jobs JobQueue) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// Handle returns the status of one job, with its transcript once completed
func (h *JobsHandler) Handle(c *fiber.Ctx) error {
	job, err := h.jobs.Get(c.Params("id"))
	if errors.Is(err, queue.ErrJobNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "Job not found", "ERR_NOT_FOUND")
	}
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error(), "ERR_INTERNAL")
	}
	return c.JSON(jobView(job))
}

func jobView(job queue.Job) fiber.Map {
	view := fiber.Map{
		"job_id":     job.ID,
		"name":       job.RequestName,
		"source":     job.SourceType,
		"status":     job.Status,
		"created_at": job.CreatedAt,
	}
	if job.URL != "" {
		view["url"] = job.URL
	}
	if !job.CompletedAt.IsZero() {
		view["completed_at"] = job.CompletedAt
	}
	if job.Error != nil {
		view["error"] = job.Error.Error()
		view["code"] = transcription.ErrorCode(job.Error)
	}
	if r := job.Result; r != nil {
		view["transcript"] = r.Text
		if r.CleanText != "" {
			view["clean_transcript"] = r.CleanText
		}
		view["segments"] = r.Segments
		view["speaker_count"] = r.SpeakerCount
		view["word_count"] = r.WordCount
		view["duration_seconds"] = r.Duration
		view["local_path"] = r.LocalPath
		if r.GDriveURL != "" {
			view["gdrive_url"] = r.GDriveURL
		}
		if r.ObjectKey != "" {
			view["object_key"] = r.ObjectKey
		}
	}
	return view
}
