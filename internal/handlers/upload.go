package handlers

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/speaker-transcription/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcription/internal/transcription"
	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

// UploadHandler handles file uploads
type UploadHandler struct {
	jobs      JobQueue
	defaults  Defaults
	tempDir   string
	maxSizeMB int
	logger    *zap.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(jobs JobQueue, defaults Defaults, tempDir string, maxSizeMB int, logger *zap.Logger) *UploadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadHandler{
		jobs:      jobs,
		defaults:  defaults,
		tempDir:   tempDir,
		maxSizeMB: maxSizeMB,
		logger:    logger,
	}
}

// Handle processes the upload request
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "No file uploaded", "ERR_NO_FILE")
	}

	requestName := c.FormValue("name")
	if requestName == "" {
		requestName = "untitled"
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB), "ERR_FILE_TOO_LARGE")
	}

	if !transcription.ValidateAudioFormat(file.Filename) {
		return errorJSON(c, fiber.StatusBadRequest, "Unsupported audio format", "ERR_INVALID_FORMAT")
	}

	minSegmentMs, speakers, err := formOptions(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error(), "ERR_VALIDATION")
	}

	jobID := uuid.New().String()
	tempPath := filepath.Join(h.tempDir, jobID+filepath.Ext(file.Filename))

	if err := c.SaveFile(file, tempPath); err != nil {
		h.logger.Error("Failed to save uploaded file", zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to save file", "ERR_SAVE_FAILED")
	}

	job := queue.NewJob(jobID, requestName, types.SourceUpload)
	job.FilePath = tempPath
	job.Clean = c.FormValue("clean") == "true"
	applyOptions(job, h.defaults, minSegmentMs, speakers, c.FormValue("short_run_policy"))

	if ok, err := enqueue(c, h.jobs, job); !ok {
		removeTemp(h.logger, tempPath)
		return err
	}

	return queuedJSON(c, jobID, "File uploaded successfully, processing started")
}

// formOptions parses the optional numeric form fields
func formOptions(c *fiber.Ctx) (*int64, *int, error) {
	var (
		minSegmentMs *int64
		speakers     *int
	)
	if v := c.FormValue("min_segment_ms"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return nil, nil, fmt.Errorf("min_segment_ms must be a non-negative integer")
		}
		minSegmentMs = &n
	}
	if v := c.FormValue("speakers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 10 {
			return nil, nil, fmt.Errorf("speakers must be between 1 and 10")
		}
		speakers = &n
	}
	return minSegmentMs, speakers, nil
}
