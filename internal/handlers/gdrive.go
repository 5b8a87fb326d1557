package handlers

import (
	"fmt"
	"regexp"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/speaker-transcription/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

var (
	// https://drive.google.com/file/d/{ID}/view
	gdrivePathID = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	// https://drive.google.com/open?id={ID}
	gdriveQueryID = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	// bare ID (25-40 characters)
	gdriveBareID = regexp.MustCompile(`^([a-zA-Z0-9_-]{25,40})$`)
)

// GDriveHandler handles Google Drive link processing
type GDriveHandler struct {
	jobs     JobQueue
	defaults Defaults
}

// NewGDriveHandler creates a new Google Drive handler
func NewGDriveHandler(jobs JobQueue, defaults Defaults) *GDriveHandler {
	return &GDriveHandler{
		jobs:     jobs,
		defaults: defaults,
	}
}

// GDriveRequest represents the request body
type GDriveRequest struct {
	URL          string `json:"url" validate:"required"`
	Name         string `json:"name" validate:"omitempty,max=200"`
	MinSegmentMs *int64 `json:"min_segment_ms" validate:"omitempty,min=0"`
	Speakers     *int   `json:"speakers" validate:"omitempty,min=1,max=10"`
	Clean        bool   `json:"clean"`
}

// Handle processes Google Drive link requests. The file is fetched by the
// worker through its direct download URL.
func (h *GDriveHandler) Handle(c *fiber.Ctx) error {
	var req GDriveRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", "ERR_INVALID_BODY")
	}
	if err := validate.Struct(req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "URL is required", "ERR_NO_URL")
	}

	fileID := extractGDriveFileID(req.URL)
	if fileID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid Google Drive URL", "ERR_INVALID_URL")
	}

	if req.Name == "" {
		req.Name = "gdrive_file"
	}

	job := queue.NewJob(uuid.New().String(), req.Name, types.SourceGDrive)
	job.URL = gdriveDownloadURL(fileID)
	job.Clean = req.Clean
	applyOptions(job, h.defaults, req.MinSegmentMs, req.Speakers, "")

	if ok, err := enqueue(c, h.jobs, job); !ok {
		return err
	}

	return queuedJSON(c, job.ID, "Google Drive file queued for processing")
}

func gdriveDownloadURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", fileID)
}

// extractGDriveFileID extracts the file ID from various Google Drive URL formats
func extractGDriveFileID(url string) string {
	for _, re := range []*regexp.Regexp{gdrivePathID, gdriveQueryID, gdriveBareID} {
		if matches := re.FindStringSubmatch(url); len(matches) > 1 {
			return matches[1]
		}
	}
	return ""
}
