package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/speaker-transcription/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcription/internal/segment"
	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

// JobQueue accepts jobs and reports on them
type JobQueue interface {
	EnqueueJob(job *queue.Job) error
	Get(id string) (queue.Job, error)
	Wait(ctx context.Context, id string) (queue.Job, error)
}

// Defaults fill request options the client leaves out
type Defaults struct {
	MinSegmentMs int64
	Speakers     int
	Policy       segment.ShortRunPolicy
}

// TranscribeHandler handles direct URL transcription requests
type TranscribeHandler struct {
	jobs        JobQueue
	defaults    Defaults
	waitTimeout time.Duration
}

// NewTranscribeHandler creates a new transcribe handler. waitTimeout bounds
// requests that ask to wait for the transcript.
func NewTranscribeHandler(jobs JobQueue, defaults Defaults, waitTimeout time.Duration) *TranscribeHandler {
	return &TranscribeHandler{
		jobs:        jobs,
		defaults:    defaults,
		waitTimeout: waitTimeout,
	}
}

// TranscribeRequest represents the request body
type TranscribeRequest struct {
	URL            string `json:"url" validate:"required,url"`
	Name           string `json:"name" validate:"omitempty,max=200"`
	MinSegmentMs   *int64 `json:"min_segment_ms" validate:"omitempty,min=0"`
	Speakers       *int   `json:"speakers" validate:"omitempty,min=1,max=10"`
	ShortRunPolicy string `json:"short_run_policy" validate:"omitempty,oneof=drop merge"`
	Clean          bool   `json:"clean"`
	Wait           bool   `json:"wait"`
}

// Handle processes transcription requests
func (h *TranscribeHandler) Handle(c *fiber.Ctx) error {
	var req TranscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", "ERR_INVALID_BODY")
	}
	if err := validate.Struct(req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, validationMessage(err), "ERR_VALIDATION")
	}

	if req.Name == "" {
		req.Name = "transcript"
	}

	job := queue.NewJob(uuid.New().String(), req.Name, types.SourceURL)
	job.URL = req.URL
	job.Clean = req.Clean
	applyOptions(job, h.defaults, req.MinSegmentMs, req.Speakers, req.ShortRunPolicy)

	if ok, err := enqueue(c, h.jobs, job); !ok {
		return err
	}

	if !req.Wait {
		return queuedJSON(c, job.ID, "Transcription started")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.waitTimeout)
	defer cancel()

	done, err := h.jobs.Wait(ctx, job.ID)
	if err != nil {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"job_id":  job.ID,
			"status":  "processing",
			"message": "Transcript not ready yet, poll /jobs/" + job.ID,
		})
	}
	if done.Status == types.StatusFailed {
		return pipelineError(c, done.ID, done.Error)
	}
	return c.JSON(jobView(done))
}

// applyOptions copies request options onto job, falling back to defaults
func applyOptions(job *queue.Job, defaults Defaults, minSegmentMs *int64, speakers *int, policy string) {
	job.MinSegmentMs = defaults.MinSegmentMs
	if minSegmentMs != nil {
		job.MinSegmentMs = *minSegmentMs
	}
	job.Speakers = defaults.Speakers
	if speakers != nil {
		job.Speakers = *speakers
	}
	job.Policy = defaults.Policy
	if policy != "" {
		job.Policy = segment.ParsePolicy(policy)
	}
}

// enqueue queues job. When it reports false the error response has already
// been written and the handler should return the accompanying error.
func enqueue(c *fiber.Ctx, jobs JobQueue, job *queue.Job) (bool, error) {
	err := jobs.EnqueueJob(job)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, queue.ErrQueueFull):
		return false, errorJSON(c, fiber.StatusServiceUnavailable, "Server is busy, try again later", "ERR_QUEUE_FULL")
	default:
		return false, errorJSON(c, fiber.StatusInternalServerError, "Failed to queue job", "ERR_INTERNAL")
	}
}

func queuedJSON(c *fiber.Ctx, jobID, message string) error {
	return c.JSON(fiber.Map{
		"job_id":  jobID,
		"status":  "queued",
		"message": message,
	})
}
