package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/speaker-transcription/internal/transcription"
)

var validate = validator.New()

func errorJSON(c *fiber.Ctx, status int, message, code string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

// statusForCode maps pipeline error codes to HTTP statuses
func statusForCode(code string) int {
	switch code {
	case transcription.CodeDownloadFailed:
		return fiber.StatusBadGateway
	case transcription.CodeDiarizationFailed, transcription.CodeNoTranscribableContent:
		return fiber.StatusUnprocessableEntity
	case transcription.CodeAudioTooLong:
		return fiber.StatusRequestEntityTooLarge
	case transcription.CodeTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func pipelineError(c *fiber.Ctx, jobID string, err error) error {
	code := transcription.ErrorCode(err)
	return c.Status(statusForCode(code)).JSON(fiber.Map{
		"job_id": jobID,
		"error":  err.Error(),
		"code":   code,
	})
}

// validationMessage turns validator output into "field: rule" pairs
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, strings.ToLower(fe.Field())+": "+rule)
	}
	return "invalid request: " + strings.Join(parts, ", ")
}
