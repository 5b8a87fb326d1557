package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/speaker-transcription/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

// StreamHandler handles WebSocket audio streaming. Binary frames carry audio;
// a text frame names the recording and "END" closes the upload.
type StreamHandler struct {
	jobs      JobQueue
	defaults  Defaults
	tempDir   string
	maxSizeMB int
	logger    *zap.Logger
}

// NewStreamHandler creates a new stream handler. Streams larger than
// maxSizeMB are rejected.
func NewStreamHandler(jobs JobQueue, defaults Defaults, tempDir string, maxSizeMB int, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{
		jobs:      jobs,
		defaults:  defaults,
		tempDir:   tempDir,
		maxSizeMB: maxSizeMB,
		logger:    logger,
	}
}

var errStreamTooLarge = errors.New("stream exceeds size limit")

// streamBuffer collects binary frames up to max bytes. A max of zero or less
// means no limit.
type streamBuffer struct {
	bytes.Buffer
	max int64
}

func (b *streamBuffer) add(frame []byte) error {
	if b.max > 0 && int64(b.Len())+int64(len(frame)) > b.max {
		return errStreamTooLarge
	}
	b.Write(frame)
	return nil
}

// Handle processes WebSocket connections
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	var (
		buffer      = streamBuffer{max: int64(h.maxSizeMB) * 1024 * 1024}
		requestName string
		jobID       = uuid.New().String()
		logger      = h.logger.With(zap.String("job_id", jobID))
	)

	logger.Info("WebSocket connection established")

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			logger.Info("WebSocket read ended", zap.Error(err))
			break
		}

		if messageType == websocket.TextMessage {
			msgStr := string(message)
			if msgStr == "END" {
				logger.Info("Received END signal, processing stream")
				break
			}
			if len(msgStr) > 0 && len(msgStr) < 200 {
				requestName = msgStr
			}
			continue
		}

		if messageType == websocket.BinaryMessage {
			if err := buffer.add(message); err != nil {
				logger.Warn("Stream too large", zap.Int("max_mb", h.maxSizeMB), zap.Int("received_bytes", buffer.Len()))
				h.reply(c, streamReply{
					"job_id": jobID,
					"status": "rejected",
					"code":   "ERR_FILE_TOO_LARGE",
					"error":  fmt.Sprintf("Stream too large (max %dMB)", h.maxSizeMB),
				})
				return
			}
		}
	}

	if buffer.Len() == 0 {
		logger.Warn("No audio data received in stream")
		h.reply(c, streamReply{"job_id": jobID, "status": "rejected", "code": "ERR_NO_AUDIO"})
		return
	}

	if requestName == "" {
		requestName = "stream_recording"
	}

	tempPath := filepath.Join(h.tempDir, jobID+".webm")
	if err := os.WriteFile(tempPath, buffer.Bytes(), 0644); err != nil {
		logger.Error("Failed to save stream buffer", zap.Error(err))
		h.reply(c, streamReply{"job_id": jobID, "status": "failed", "code": "ERR_SAVE_FAILED"})
		return
	}

	logger.Info("Stream saved", zap.String("path", tempPath), zap.Int("bytes", buffer.Len()))

	job := queue.NewJob(jobID, requestName, types.SourceStream)
	job.FilePath = tempPath
	applyOptions(job, h.defaults, nil, nil, "")

	if err := h.jobs.EnqueueJob(job); err != nil {
		logger.Error("Failed to enqueue stream job", zap.Error(err))
		removeTemp(logger, tempPath)
		h.reply(c, streamReply{"job_id": jobID, "status": "failed", "code": "ERR_QUEUE_FULL"})
		return
	}

	h.reply(c, streamReply{"job_id": jobID, "status": "queued"})
}

type streamReply map[string]string

func (h *StreamHandler) reply(c *websocket.Conn, msg streamReply) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.logger.Debug("Failed to send stream reply", zap.Error(err))
	}
}

func removeTemp(logger *zap.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove temp file", zap.String("path", path), zap.Error(err))
	}
}
