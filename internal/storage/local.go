package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

// LocalStorage handles saving transcripts to the local filesystem
type LocalStorage struct {
	outputDir  string
	recognizer string
}

// NewLocalStorage creates a new local storage handler. recognizer is recorded
// in each metadata file.
func NewLocalStorage(outputDir, recognizer string) *LocalStorage {
	return &LocalStorage{
		outputDir:  outputDir,
		recognizer: recognizer,
	}
}

// SavedFiles are the paths written for one transcript
type SavedFiles struct {
	TextPath  string
	CleanPath string
	MetaPath  string
}

// SaveTranscript saves the transcript, its cleaned form and metadata to local disk
func (ls *LocalStorage) SaveTranscript(requestName string, result *types.TranscriptionResult) (SavedFiles, error) {
	// outputs/2025/01/23/
	now := result.ProcessedAt
	if now.IsZero() {
		now = time.Now()
	}
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return SavedFiles{}, fmt.Errorf("failed to create date directory: %w", err)
	}

	baseFilename := transcriptBaseName(now, requestName, result.JobID)

	files := SavedFiles{
		TextPath: filepath.Join(dateDir, baseFilename+".txt"),
		MetaPath: filepath.Join(dateDir, baseFilename+"_meta.json"),
	}

	if err := os.WriteFile(files.TextPath, []byte(result.Text), 0644); err != nil {
		return SavedFiles{}, fmt.Errorf("failed to save transcript: %w", err)
	}

	if result.CleanText != "" {
		files.CleanPath = filepath.Join(dateDir, baseFilename+"_clean.txt")
		if err := os.WriteFile(files.CleanPath, []byte(result.CleanText), 0644); err != nil {
			return SavedFiles{}, fmt.Errorf("failed to save cleaned transcript: %w", err)
		}
	}

	metadata := map[string]interface{}{
		"job_id":           result.JobID,
		"request_name":     requestName,
		"duration_seconds": result.Duration,
		"word_count":       result.WordCount,
		"speaker_count":    result.SpeakerCount,
		"recognizer":       ls.recognizer,
		"created_at":       now,
		"segments":         result.Segments,
		"local_path":       files.TextPath,
		"clean_path":       files.CleanPath,
		"gdrive_url":       result.GDriveURL,
	}

	metaJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return SavedFiles{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(files.MetaPath, metaJSON, 0644); err != nil {
		return SavedFiles{}, fmt.Errorf("failed to save metadata: %w", err)
	}

	return files, nil
}

// transcriptBaseName builds 20250123_143022_podcast_episode_<job id>
func transcriptBaseName(t time.Time, requestName, jobID string) string {
	name := fmt.Sprintf("%s_%s", t.Format("20060102_150405"), sanitizeFilename(requestName))
	if jobID != "" {
		name += "_" + filenameReplacer.Replace(jobID)
	}
	return name
}

var filenameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
)

// sanitizeFilename replaces characters that are invalid in file names
func sanitizeFilename(name string) string {
	result := filenameReplacer.Replace(strings.TrimSpace(name))
	if result == "" {
		result = "transcript"
	}
	return truncateBytes(result, maxFilenameBytes)
}

const maxFilenameBytes = 100

// truncateBytes cuts s to at most n bytes without splitting a rune
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
