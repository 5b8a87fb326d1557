package transcription

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

// fakeSlicer encodes the requested bounds so the recognizer can tell segments apart
type fakeSlicer struct {
	fail map[int64]bool
}

func (s *fakeSlicer) Slice(ctx context.Context, audioPath string, startMs, endMs int64) ([]byte, error) {
	if s.fail[startMs] {
		return nil, fmt.Errorf("cannot slice at %d", startMs)
	}
	return []byte(fmt.Sprintf("%d-%d", startMs, endMs)), nil
}

type recognition struct {
	text string
	err  error
}

// fakeRecognizer answers by clip content
type fakeRecognizer struct {
	mu        sync.Mutex
	responses map[string]recognition
	calls     []string
	inFlight  int32
	maxFlight int32
}

func (r *fakeRecognizer) Recognize(ctx context.Context, audio []byte) (string, error) {
	n := atomic.AddInt32(&r.inFlight, 1)
	defer atomic.AddInt32(&r.inFlight, -1)

	r.mu.Lock()
	defer r.mu.Unlock()
	if n > r.maxFlight {
		r.maxFlight = n
	}
	r.calls = append(r.calls, string(audio))
	resp, ok := r.responses[string(audio)]
	if !ok {
		return "", ErrNotUnderstood
	}
	return resp.text, resp.err
}

type fakeDownloader struct {
	dir  string
	err  error
	path string
}

func (d *fakeDownloader) Fetch(ctx context.Context, url string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	d.path = filepath.Join(d.dir, "downloaded.wav")
	if err := os.WriteFile(d.path, []byte("RIFF"), 0644); err != nil {
		return "", err
	}
	return d.path, nil
}

type fakeLabeler struct {
	labeling types.FrameLabeling
	err      error
	gotPath  string
	speakers int
}

func (l *fakeLabeler) Label(ctx context.Context, audioPath string, expectedSpeakers int) (types.FrameLabeling, error) {
	l.gotPath = audioPath
	l.speakers = expectedSpeakers
	return l.labeling, l.err
}
