package handlers

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/speaker-transcription/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

// TitleLookup resolves a human readable title for a video page
type TitleLookup interface {
	Resolve(ctx context.Context, url string) (string, error)
}

// YouTubeHandler handles YouTube video transcription
type YouTubeHandler struct {
	jobs     JobQueue
	defaults Defaults
	titles   TitleLookup
	timeout  time.Duration
	logger   *zap.Logger
}

// NewYouTubeHandler creates a new YouTube handler. titles may be nil, in which
// case unnamed requests get a generic name.
func NewYouTubeHandler(jobs JobQueue, defaults Defaults, titles TitleLookup, timeout time.Duration, logger *zap.Logger) *YouTubeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YouTubeHandler{
		jobs:     jobs,
		defaults: defaults,
		titles:   titles,
		timeout:  timeout,
		logger:   logger,
	}
}

// YouTubeRequest represents the request body
type YouTubeRequest struct {
	URL          string `json:"url" validate:"required,url"`
	Name         string `json:"name" validate:"omitempty,max=200"`
	MinSegmentMs *int64 `json:"min_segment_ms" validate:"omitempty,min=0"`
	Speakers     *int   `json:"speakers" validate:"omitempty,min=1,max=10"`
	Clean        bool   `json:"clean"`
}

// Handle processes YouTube video requests
func (h *YouTubeHandler) Handle(c *fiber.Ctx) error {
	var req YouTubeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", "ERR_INVALID_BODY")
	}
	if err := validate.Struct(req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, validationMessage(err), "ERR_VALIDATION")
	}
	if !isYouTubeURL(req.URL) {
		return errorJSON(c, fiber.StatusBadRequest, "Not a YouTube URL", "ERR_INVALID_URL")
	}

	if req.Name == "" {
		req.Name = h.resolveTitle(c.UserContext(), req.URL)
	}

	job := queue.NewJob(uuid.New().String(), req.Name, types.SourceYouTube)
	job.URL = req.URL
	job.Clean = req.Clean
	applyOptions(job, h.defaults, req.MinSegmentMs, req.Speakers, "")

	if ok, err := enqueue(c, h.jobs, job); !ok {
		return err
	}

	return c.JSON(fiber.Map{
		"job_id":  job.ID,
		"name":    job.RequestName,
		"status":  "queued",
		"message": "YouTube audio download started (this may take a few minutes for long videos)",
	})
}

func (h *YouTubeHandler) resolveTitle(ctx context.Context, videoURL string) string {
	const fallback = "youtube_video"
	if h.titles == nil {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	title, err := h.titles.Resolve(ctx, videoURL)
	if err != nil || title == "" {
		h.logger.Warn("Could not resolve video title", zap.String("url", videoURL), zap.Error(err))
		return fallback
	}
	return title
}

func isYouTubeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	return host == "youtube.com" || host == "youtu.be" || host == "music.youtube.com"
}
