package transcription

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"gotest.tools/assert"
)

type fakeTranscriptService struct {
	transcript aai.Transcript
	err        error
	gotBytes   []byte
	gotLang    aai.TranscriptLanguageCode
}

func (f *fakeTranscriptService) TranscribeFromReader(ctx context.Context, reader io.Reader, params *aai.TranscriptOptionalParams) (aai.Transcript, error) {
	f.gotBytes, _ = io.ReadAll(reader)
	f.gotLang = params.LanguageCode
	return f.transcript, f.err
}

func TestAssemblyAIRecognizer(t *testing.T) {
	svc := &fakeTranscriptService{transcript: aai.Transcript{
		ID:     aai.String("tr_1"),
		Status: aai.TranscriptStatusCompleted,
		Text:   aai.String("  welcome back  "),
	}}
	rec := newAssemblyAIRecognizer(svc, "", nil)

	text, err := rec.Recognize(context.Background(), []byte("wav"))
	assert.NilError(t, err)
	assert.Equal(t, "welcome back", text)
	assert.Equal(t, "wav", string(svc.gotBytes))
	assert.Equal(t, aai.TranscriptLanguageCode("en"), svc.gotLang)
}

func TestAssemblyAIRecognizerEmptyText(t *testing.T) {
	svc := &fakeTranscriptService{transcript: aai.Transcript{Status: aai.TranscriptStatusCompleted, Text: aai.String("")}}

	_, err := newAssemblyAIRecognizer(svc, "en", nil).Recognize(context.Background(), nil)
	assert.Assert(t, errors.Is(err, ErrNotUnderstood))
}

func TestAssemblyAIRecognizerErrors(t *testing.T) {
	failed := &fakeTranscriptService{transcript: aai.Transcript{
		Status: aai.TranscriptStatusError,
		Error:  aai.String("audio too short"),
	}}
	_, err := newAssemblyAIRecognizer(failed, "en", nil).Recognize(context.Background(), nil)
	assert.Assert(t, errors.Is(err, ErrServiceError))
	assert.ErrorContains(t, err, "audio too short")

	unreachable := &fakeTranscriptService{err: errors.New("dial tcp: timeout")}
	_, err = newAssemblyAIRecognizer(unreachable, "en", nil).Recognize(context.Background(), nil)
	assert.Assert(t, errors.Is(err, ErrServiceError))
}

func TestParseWhisperOutput(t *testing.T) {
	text, err := parseWhisperOutput([]byte(`{"text":" Hello there. ","language":"en","segments":[{"id":0,"start":0,"end":1.2,"text":" Hello there."}]}`))
	assert.NilError(t, err)
	assert.Equal(t, "Hello there.", text)

	_, err = parseWhisperOutput([]byte(`{"text":"   ","segments":[]}`))
	assert.Assert(t, errors.Is(err, ErrNotUnderstood))

	_, err = parseWhisperOutput([]byte(`not json`))
	assert.Assert(t, errors.Is(err, ErrServiceError))
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "tiny", ModelName("models/ggml-tiny.en.bin"))
	assert.Equal(t, "medium", ModelName("medium"))
	assert.Equal(t, "small", ModelName(""))
}

func TestParseLabeling(t *testing.T) {
	fl, err := ParseLabeling([]byte("{\"labels\": [0, 0, 1], \"duration_ms\": 1500}\n"))
	assert.NilError(t, err)
	assert.DeepEqual(t, []int{0, 0, 1}, fl.Labels)
	assert.Equal(t, int64(1500), fl.DurationMs)

	_, err = ParseLabeling([]byte(`{"labels": []}`))
	assert.ErrorContains(t, err, "no labels")

	_, err = ParseLabeling([]byte(`garbage`))
	assert.ErrorContains(t, err, "failed to parse diarization output")
}

func TestCommandLabeler(t *testing.T) {
	// sh -c ignores the appended --speakers N <file> arguments
	cl, err := NewCommandLabeler([]string{"sh", "-c", `echo '{"labels":[1,1,0],"duration_ms":900}'`, "diarize"}, nil)
	assert.NilError(t, err)

	fl, err := cl.Label(context.Background(), "audio.wav", 2)
	assert.NilError(t, err)
	assert.DeepEqual(t, []int{1, 1, 0}, fl.Labels)
	assert.Equal(t, int64(900), fl.DurationMs)
}

func TestCommandLabelerReadsDurationFromFile(t *testing.T) {
	path := writeSilence(t, t.TempDir(), 2*time.Second)
	cl, err := NewCommandLabeler([]string{"sh", "-c", `echo '{"labels":[0,1]}'`, "diarize"}, nil)
	assert.NilError(t, err)

	fl, err := cl.Label(context.Background(), path, 2)
	assert.NilError(t, err)
	assert.Equal(t, int64(2000), fl.DurationMs)
}

func TestCommandLabelerFailure(t *testing.T) {
	cl, err := NewCommandLabeler([]string{"sh", "-c", "echo boom >&2; exit 3", "diarize"}, nil)
	assert.NilError(t, err)

	_, err = cl.Label(context.Background(), "audio.wav", 2)
	assert.ErrorContains(t, err, "boom")

	_, err = NewCommandLabeler(nil, nil)
	assert.ErrorContains(t, err, "empty")
}
