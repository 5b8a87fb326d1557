package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/speaker-transcription/internal/transcript"
)

// CleanRequest represents a JSON cleaning request
type CleanRequest struct {
	Transcript string `json:"transcript" validate:"required"`
}

// HandleClean strips timestamps from a formatted transcript. JSON bodies get
// a JSON reply; anything else is treated as the raw transcript text.
func HandleClean(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var req CleanRequest
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", "ERR_INVALID_BODY")
		}
		if err := validate.Struct(req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, validationMessage(err), "ERR_VALIDATION")
		}
		return c.JSON(fiber.Map{"transcript": transcript.Clean(req.Transcript)})
	}

	body := string(c.Body())
	if strings.TrimSpace(body) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Transcript is required", "ERR_VALIDATION")
	}
	return c.SendString(transcript.Clean(body))
}
