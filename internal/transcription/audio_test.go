package transcription

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"gotest.tools/assert"
)

var testFormat = beep.Format{SampleRate: 16000, NumChannels: 1, Precision: 2}

// writeSilence creates a mono 16kHz WAV of the given length
func writeSilence(t *testing.T, dir string, d time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, "silence.wav")
	f, err := os.Create(path)
	assert.NilError(t, err)
	defer f.Close()
	assert.NilError(t, wav.Encode(f, beep.Silence(testFormat.SampleRate.N(d)), testFormat))
	return path
}

func TestAudioDuration(t *testing.T) {
	path := writeSilence(t, t.TempDir(), 3*time.Second)

	d, err := AudioDuration(path)
	assert.NilError(t, err)
	assert.Equal(t, 3*time.Second, d)
}

func TestAudioDurationNotWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	assert.NilError(t, os.WriteFile(path, []byte("not audio"), 0644))

	_, err := AudioDuration(path)
	assert.ErrorContains(t, err, "failed to decode wav")
}

func TestWAVSlicer(t *testing.T) {
	dir := t.TempDir()
	path := writeSilence(t, dir, 3*time.Second)
	slicer := NewWAVSlicer(dir)

	clip, err := slicer.Slice(context.Background(), path, 1000, 2500)
	assert.NilError(t, err)

	streamer, format, err := wav.Decode(bytes.NewReader(clip))
	assert.NilError(t, err)
	assert.Equal(t, testFormat.SampleRate, format.SampleRate)
	assert.Equal(t, format.SampleRate.N(1500*time.Millisecond), streamer.Len())

	entries, err := os.ReadDir(dir)
	assert.NilError(t, err)
	assert.Equal(t, 1, len(entries), "scratch slice file should be removed")
}

func TestWAVSlicerClampsToEnd(t *testing.T) {
	dir := t.TempDir()
	path := writeSilence(t, dir, time.Second)

	clip, err := NewWAVSlicer(dir).Slice(context.Background(), path, 500, 5000)
	assert.NilError(t, err)

	streamer, format, err := wav.Decode(bytes.NewReader(clip))
	assert.NilError(t, err)
	assert.Equal(t, format.SampleRate.N(500*time.Millisecond), streamer.Len())
}

func TestWAVSlicerEmptyRange(t *testing.T) {
	dir := t.TempDir()
	path := writeSilence(t, dir, time.Second)

	_, err := NewWAVSlicer(dir).Slice(context.Background(), path, 2000, 3000)
	assert.ErrorContains(t, err, "empty slice")
}

func TestValidateAudioFormat(t *testing.T) {
	assert.Assert(t, ValidateAudioFormat("talk.MP3"))
	assert.Assert(t, ValidateAudioFormat("clip.opus"))
	assert.Assert(t, !ValidateAudioFormat("slides.pdf"))
	assert.Assert(t, !ValidateAudioFormat("noext"))
}
