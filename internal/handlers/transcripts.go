package handlers

import (
	"errors"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/speaker-transcription/internal/storage"
	"github.com/codebuildervaibhav/speaker-transcription/internal/transcript"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// TranscriptIndex looks up stored transcript metadata
type TranscriptIndex interface {
	GetTranscript(jobID string) (storage.TranscriptRecord, error)
	ListTranscripts(limit int) ([]storage.TranscriptRecord, error)
}

// TranscriptsHandler serves saved transcripts
type TranscriptsHandler struct {
	index TranscriptIndex
}

// NewTranscriptsHandler creates a new transcripts handler
func NewTranscriptsHandler(index TranscriptIndex) *TranscriptsHandler {
	return &TranscriptsHandler{index: index}
}

// List returns the most recent transcripts
func (h *TranscriptsHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}

	transcripts, err := h.index.ListTranscripts(limit)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error(), "ERR_INTERNAL")
	}
	return c.JSON(transcripts)
}

// Text returns the transcript body. With ?clean=true it returns the cleaned
// form, deriving it when no cleaned file was saved.
func (h *TranscriptsHandler) Text(c *fiber.Ctx) error {
	rec, err := h.index.GetTranscript(c.Params("id"))
	if errors.Is(err, storage.ErrTranscriptNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "Transcript not found", "ERR_NOT_FOUND")
	}
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error(), "ERR_INTERNAL")
	}

	clean := c.QueryBool("clean", false)
	if clean && rec.CleanPath != "" {
		if content, err := os.ReadFile(rec.CleanPath); err == nil {
			return c.SendString(string(content))
		}
	}

	if rec.LocalPath == "" {
		return errorJSON(c, fiber.StatusNotFound, "Transcript file path not found", "ERR_NOT_FOUND")
	}
	content, err := os.ReadFile(rec.LocalPath)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to read transcript file", "ERR_READ_FAILED")
	}

	if clean {
		return c.SendString(transcript.Clean(string(content)))
	}
	return c.SendString(string(content))
}
