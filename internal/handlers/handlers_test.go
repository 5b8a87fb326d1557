package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"gotest.tools/assert"

	"github.com/codebuildervaibhav/speaker-transcription/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcription/internal/segment"
	"github.com/codebuildervaibhav/speaker-transcription/internal/storage"
	"github.com/codebuildervaibhav/speaker-transcription/internal/transcription"
	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

var testDefaults = Defaults{MinSegmentMs: 1000, Speakers: 2, Policy: segment.DropShortRuns}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []*queue.Job
	err      error
	finished map[string]queue.Job
	waitErr  error
}

func (f *fakeQueue) EnqueueJob(job *queue.Job) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, job)
	return nil
}

func (f *fakeQueue) Get(id string) (queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.finished[id]; ok {
		return job, nil
	}
	for _, j := range f.enqueued {
		if j.ID == id {
			return *j, nil
		}
	}
	return queue.Job{}, queue.ErrJobNotFound
}

// Wait completes the most recently enqueued job with the preset outcome
func (f *fakeQueue) Wait(ctx context.Context, id string) (queue.Job, error) {
	if f.waitErr != nil {
		return queue.Job{}, f.waitErr
	}
	job, err := f.Get(id)
	if err != nil {
		return job, err
	}
	if done, ok := f.finished["*"]; ok {
		done.ID = id
		return done, nil
	}
	return job, nil
}

func (f *fakeQueue) last(t *testing.T) *queue.Job {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Assert(t, len(f.enqueued) > 0, "no job enqueued")
	return f.enqueued[len(f.enqueued)-1]
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return decode(t, app, req)
}

func decode(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(req, -1)
	assert.NilError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	assert.NilError(t, err)
	var out map[string]interface{}
	assert.NilError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestTranscribeQueues(t *testing.T) {
	q := &fakeQueue{}
	app := fiber.New()
	app.Post("/transcribe", NewTranscribeHandler(q, testDefaults, time.Second).Handle)

	status, body := doJSON(t, app, "POST", "/transcribe",
		`{"url":"https://www.youtube.com/watch?v=CDZ9REOh2xA","name":"panel","speakers":3,"short_run_policy":"merge","clean":true}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "queued", body["status"])

	job := q.last(t)
	assert.Equal(t, body["job_id"], job.ID)
	assert.Equal(t, "panel", job.RequestName)
	assert.Equal(t, types.SourceURL, job.SourceType)
	assert.Equal(t, "https://www.youtube.com/watch?v=CDZ9REOh2xA", job.URL)
	assert.Equal(t, 3, job.Speakers)
	assert.Equal(t, int64(1000), job.MinSegmentMs)
	assert.Equal(t, segment.MergeShortRuns, job.Policy)
	assert.Assert(t, job.Clean)
}

func TestTranscribeZeroMinSegmentIsKept(t *testing.T) {
	q := &fakeQueue{}
	app := fiber.New()
	app.Post("/transcribe", NewTranscribeHandler(q, testDefaults, time.Second).Handle)

	status, _ := doJSON(t, app, "POST", "/transcribe", `{"url":"https://example.com/a.mp3","min_segment_ms":0}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int64(0), q.last(t).MinSegmentMs)
	assert.Equal(t, "transcript", q.last(t).RequestName)
}

func TestTranscribeRejectsBadInput(t *testing.T) {
	app := fiber.New()
	app.Post("/transcribe", NewTranscribeHandler(&fakeQueue{}, testDefaults, time.Second).Handle)

	cases := []struct {
		body string
		code string
	}{
		{`{"url":`, "ERR_INVALID_BODY"},
		{`{}`, "ERR_VALIDATION"},
		{`{"url":"not a url"}`, "ERR_VALIDATION"},
		{`{"url":"https://example.com/a.mp3","speakers":0}`, "ERR_VALIDATION"},
		{`{"url":"https://example.com/a.mp3","min_segment_ms":-5}`, "ERR_VALIDATION"},
		{`{"url":"https://example.com/a.mp3","short_run_policy":"squash"}`, "ERR_VALIDATION"},
	}
	for _, tc := range cases {
		status, body := doJSON(t, app, "POST", "/transcribe", tc.body)
		assert.Equal(t, fiber.StatusBadRequest, status, tc.body)
		assert.Equal(t, tc.code, body["code"], tc.body)
	}
}

func TestTranscribeQueueFull(t *testing.T) {
	app := fiber.New()
	app.Post("/transcribe", NewTranscribeHandler(&fakeQueue{err: queue.ErrQueueFull}, testDefaults, time.Second).Handle)

	status, body := doJSON(t, app, "POST", "/transcribe", `{"url":"https://example.com/a.mp3"}`)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "ERR_QUEUE_FULL", body["code"])
}

func TestTranscribeWaitReturnsTranscript(t *testing.T) {
	q := &fakeQueue{finished: map[string]queue.Job{"*": {
		Status: types.StatusCompleted,
		Result: &types.TranscriptionResult{
			Text:         "[00:00 - 00:05] Speaker 0:\nhello",
			CleanText:    "Speaker 0 hello",
			SpeakerCount: 1,
			Segments:     []types.Segment{{SpeakerID: 0, StartMs: 0, EndMs: 5000, Text: "hello"}},
		},
	}}}
	app := fiber.New()
	app.Post("/transcribe", NewTranscribeHandler(q, testDefaults, time.Second).Handle)

	status, body := doJSON(t, app, "POST", "/transcribe", `{"url":"https://example.com/a.mp3","wait":true,"clean":true}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, types.StatusCompleted, body["status"])
	assert.Equal(t, "[00:00 - 00:05] Speaker 0:\nhello", body["transcript"])
	assert.Equal(t, "Speaker 0 hello", body["clean_transcript"])
	assert.Equal(t, float64(1), body["speaker_count"])
}

func TestTranscribeWaitMapsPipelineErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: yt-dlp exited 1", transcription.ErrDownloadFailed), fiber.StatusBadGateway, "ERR_DOWNLOAD_FAILED"},
		{fmt.Errorf("%w: empty labels", transcription.ErrDiarizationFailed), fiber.StatusUnprocessableEntity, "ERR_DIARIZATION_FAILED"},
		{transcription.ErrNoTranscribableContent, fiber.StatusUnprocessableEntity, "ERR_NO_TRANSCRIBABLE_CONTENT"},
		{fmt.Errorf("%w: 200:00 exceeds limit of 180:00", transcription.ErrAudioTooLong), fiber.StatusRequestEntityTooLarge, "ERR_AUDIO_TOO_LONG"},
		{errors.New("boom"), fiber.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		q := &fakeQueue{finished: map[string]queue.Job{"*": {Status: types.StatusFailed, Error: tc.err}}}
		app := fiber.New()
		app.Post("/transcribe", NewTranscribeHandler(q, testDefaults, time.Second).Handle)

		status, body := doJSON(t, app, "POST", "/transcribe", `{"url":"https://example.com/a.mp3","wait":true}`)
		assert.Equal(t, tc.status, status, tc.code)
		assert.Equal(t, tc.code, body["code"])
		assert.Equal(t, tc.err.Error(), body["error"])
	}
}

func TestTranscribeWaitTimesOut(t *testing.T) {
	q := &fakeQueue{waitErr: context.DeadlineExceeded}
	app := fiber.New()
	app.Post("/transcribe", NewTranscribeHandler(q, testDefaults, time.Millisecond).Handle)

	status, body := doJSON(t, app, "POST", "/transcribe", `{"url":"https://example.com/a.mp3","wait":true}`)
	assert.Equal(t, fiber.StatusAccepted, status)
	assert.Equal(t, "processing", body["status"])
}

func TestJobsHandler(t *testing.T) {
	q := &fakeQueue{finished: map[string]queue.Job{
		"failed": {
			ID:     "failed",
			Status: types.StatusFailed,
			Error:  fmt.Errorf("%w: no frames", transcription.ErrDiarizationFailed),
		},
	}}
	app := fiber.New()
	app.Get("/jobs/:id", NewJobsHandler(q).Handle)

	status, body := decode(t, app, httptest.NewRequest("GET", "/jobs/failed", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, types.StatusFailed, body["status"])
	assert.Equal(t, "ERR_DIARIZATION_FAILED", body["code"])

	status, body = decode(t, app, httptest.NewRequest("GET", "/jobs/unknown", nil))
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "ERR_NOT_FOUND", body["code"])
}

func TestCleanHandler(t *testing.T) {
	app := fiber.New()
	app.Post("/clean", HandleClean)

	formatted := "[00:00 - 00:05] Speaker 1:\nhi there\n\n[00:05 - 00:09] Speaker 1:\nmore text"
	payload, err := json.Marshal(CleanRequest{Transcript: formatted})
	assert.NilError(t, err)

	status, body := doJSON(t, app, "POST", "/clean", string(payload))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Speaker 1 hi there more text", body["transcript"])

	req := httptest.NewRequest("POST", "/clean", strings.NewReader(formatted))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := app.Test(req, -1)
	assert.NilError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Speaker 1 hi there more text", string(raw))

	status, body = doJSON(t, app, "POST", "/clean", `{"transcript":""}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ERR_VALIDATION", body["code"])
}

func TestExtractGDriveFileID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://drive.google.com/file/d/1AbCdEfGhIjKlMnOpQrStUvWxYz/view?usp=sharing", "1AbCdEfGhIjKlMnOpQrStUvWxYz"},
		{"https://drive.google.com/open?id=1AbCdEfGhIjKlMnOpQrStUvWxYz", "1AbCdEfGhIjKlMnOpQrStUvWxYz"},
		{"1AbCdEfGhIjKlMnOpQrStUvWxYz", "1AbCdEfGhIjKlMnOpQrStUvWxYz"},
		{"https://example.com/podcast.mp3", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, extractGDriveFileID(tc.url), tc.url)
	}
}

func TestGDriveHandler(t *testing.T) {
	q := &fakeQueue{}
	app := fiber.New()
	app.Post("/gdrive", NewGDriveHandler(q, testDefaults).Handle)

	status, _ := doJSON(t, app, "POST", "/gdrive", `{"url":"https://drive.google.com/file/d/1AbCdEfGhIjKlMnOpQrStUvWxYz/view"}`)
	assert.Equal(t, fiber.StatusOK, status)

	job := q.last(t)
	assert.Equal(t, "https://drive.google.com/uc?export=download&id=1AbCdEfGhIjKlMnOpQrStUvWxYz", job.URL)
	assert.Equal(t, types.SourceGDrive, job.SourceType)
	assert.Equal(t, "gdrive_file", job.RequestName)
	assert.Assert(t, transcription.IsDirectMediaURL(job.URL))

	status, body := doJSON(t, app, "POST", "/gdrive", `{"url":"https://example.com/x"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ERR_INVALID_URL", body["code"])

	status, body = doJSON(t, app, "POST", "/gdrive", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ERR_NO_URL", body["code"])
}

type fakeTitles struct {
	title string
	err   error
}

func (f fakeTitles) Resolve(ctx context.Context, url string) (string, error) {
	return f.title, f.err
}

func TestYouTubeHandler(t *testing.T) {
	q := &fakeQueue{}
	app := fiber.New()
	app.Post("/youtube", NewYouTubeHandler(q, testDefaults, fakeTitles{title: "Weekly Standup"}, time.Second, nil).Handle)

	status, body := doJSON(t, app, "POST", "/youtube", `{"url":"https://youtu.be/CDZ9REOh2xA"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Weekly Standup", body["name"])
	assert.Equal(t, types.SourceYouTube, q.last(t).SourceType)

	status, body = doJSON(t, app, "POST", "/youtube", `{"url":"https://vimeo.com/123"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ERR_INVALID_URL", body["code"])
}

func TestYouTubeHandlerTitleFallback(t *testing.T) {
	q := &fakeQueue{}
	app := fiber.New()
	app.Post("/youtube", NewYouTubeHandler(q, testDefaults, fakeTitles{err: errors.New("chrome not found")}, time.Second, nil).Handle)

	status, body := doJSON(t, app, "POST", "/youtube", `{"url":"https://www.youtube.com/watch?v=abc"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "youtube_video", body["name"])
}

func multipartUpload(t *testing.T, filename string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	assert.NilError(t, err)
	_, err = part.Write([]byte("RIFF....WAVE"))
	assert.NilError(t, err)
	for k, v := range fields {
		assert.NilError(t, w.WriteField(k, v))
	}
	assert.NilError(t, w.Close())

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadHandler(t *testing.T) {
	dir := t.TempDir()
	q := &fakeQueue{}
	app := fiber.New()
	app.Post("/upload", NewUploadHandler(q, testDefaults, dir, 10, nil).Handle)

	status, body := decode(t, app, multipartUpload(t, "meeting.wav", map[string]string{
		"name":           "board meeting",
		"speakers":       "4",
		"min_segment_ms": "500",
		"clean":          "true",
	}))
	assert.Equal(t, fiber.StatusOK, status, fmt.Sprint(body))

	job := q.last(t)
	assert.Equal(t, "board meeting", job.RequestName)
	assert.Equal(t, 4, job.Speakers)
	assert.Equal(t, int64(500), job.MinSegmentMs)
	assert.Assert(t, job.Clean)
	assert.Equal(t, dir, filepath.Dir(job.FilePath))

	saved, err := os.ReadFile(job.FilePath)
	assert.NilError(t, err)
	assert.Equal(t, "RIFF....WAVE", string(saved))
}

func TestUploadHandlerRejects(t *testing.T) {
	app := fiber.New()
	app.Post("/upload", NewUploadHandler(&fakeQueue{}, testDefaults, t.TempDir(), 10, nil).Handle)

	status, body := decode(t, app, multipartUpload(t, "slides.pdf", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ERR_INVALID_FORMAT", body["code"])

	status, body = decode(t, app, multipartUpload(t, "a.mp3", map[string]string{"speakers": "zero"}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ERR_VALIDATION", body["code"])

	status, body = decode(t, app, httptest.NewRequest("POST", "/upload", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "ERR_NO_FILE", body["code"])
}

type fakeIndex struct {
	records map[string]storage.TranscriptRecord
}

func (f fakeIndex) GetTranscript(id string) (storage.TranscriptRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return storage.TranscriptRecord{}, storage.ErrTranscriptNotFound
	}
	return rec, nil
}

func (f fakeIndex) ListTranscripts(limit int) ([]storage.TranscriptRecord, error) {
	out := []storage.TranscriptRecord{}
	for _, r := range f.records {
		out = append(out, r)
	}
	return out, nil
}

func TestTranscriptsText(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "t.txt")
	formatted := "[00:00 - 00:03] Speaker 0:\nhello\n\n[00:03 - 00:06] Speaker 1:\nhi"
	assert.NilError(t, os.WriteFile(textPath, []byte(formatted), 0644))

	h := NewTranscriptsHandler(fakeIndex{records: map[string]storage.TranscriptRecord{
		"j1": {JobID: "j1", LocalPath: textPath},
	}})
	app := fiber.New()
	app.Get("/transcripts", h.List)
	app.Get("/transcripts/:id/text", h.Text)

	read := func(path string) (int, string) {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		assert.NilError(t, err)
		raw, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(raw)
	}

	status, text := read("/transcripts/j1/text")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, formatted, text)

	status, text = read("/transcripts/j1/text?clean=true")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Speaker 0 hello\nSpeaker 1 hi", text)

	status, _ = read("/transcripts/nope/text")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, text = read("/transcripts")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Assert(t, strings.Contains(text, `"job_id":"j1"`))
}

func TestStreamBufferLimit(t *testing.T) {
	b := streamBuffer{max: 10}
	assert.NilError(t, b.add([]byte("123456")))
	assert.NilError(t, b.add([]byte("7890")))
	assert.Equal(t, errStreamTooLarge, b.add([]byte("x")))
	assert.Equal(t, "1234567890", b.String())

	unlimited := streamBuffer{}
	assert.NilError(t, unlimited.add(make([]byte, 1<<20)))
	assert.Equal(t, 1<<20, unlimited.Len())
}
