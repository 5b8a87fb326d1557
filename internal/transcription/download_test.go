package transcription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/assert"
)

func TestHTTPDownloader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.mp3" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ID3 audio bytes"))
	}))
	defer ts.Close()

	dir := t.TempDir()
	d := NewHTTPDownloader(ts.Client(), dir, nil)

	path, err := d.Fetch(context.Background(), ts.URL+"/episode.m4a")
	assert.NilError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Assert(t, strings.HasSuffix(path, ".m4a"))

	body, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Equal(t, "ID3 audio bytes", string(body))

	_, err = d.Fetch(context.Background(), ts.URL+"/missing.mp3")
	assert.ErrorContains(t, err, "status 404")
}

type recordingDownloader struct {
	name string
	got  []string
}

func (r *recordingDownloader) Fetch(ctx context.Context, url string) (string, error) {
	r.got = append(r.got, url)
	return r.name, nil
}

func TestRouteDownloader(t *testing.T) {
	direct := &recordingDownloader{name: "direct"}
	video := &recordingDownloader{name: "video"}
	d := NewRouteDownloader(direct, video)

	cases := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=CDZ9REOh2xA", "video"},
		{"https://drive.google.com/uc?export=download&id=abc123", "direct"},
		{"https://cdn.example.com/podcast/ep-12.mp3?token=x", "direct"},
		{"https://example.com/podcast/episode-12", "video"},
		{"https://drive.google.com/file/d/1AbCdEfGhIjKlMnOpQrStUvWxYz/view", "video"},
	}
	for _, tc := range cases {
		got, err := d.Fetch(context.Background(), tc.url)
		assert.NilError(t, err)
		assert.Equal(t, tc.want, got, tc.url)
	}
}
