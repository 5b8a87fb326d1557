package transcription

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// YtDlpDownloader extracts the audio track of a video page with yt-dlp
type YtDlpDownloader struct {
	binary  string
	tempDir string
	logger  *zap.Logger
}

// NewYtDlpDownloader creates a downloader. binary defaults to "yt-dlp".
func NewYtDlpDownloader(binary, tempDir string, logger *zap.Logger) *YtDlpDownloader {
	if binary == "" {
		binary = "yt-dlp"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YtDlpDownloader{binary: binary, tempDir: tempDir, logger: logger}
}

// Fetch downloads the best audio stream of rawURL as WAV
func (d *YtDlpDownloader) Fetch(ctx context.Context, rawURL string) (string, error) {
	base := filepath.Join(d.tempDir, uuid.New().String())

	d.logger.Info("Using yt-dlp to download", zap.String("url", rawURL))

	cmd := exec.CommandContext(ctx, d.binary,
		"-f", "bestaudio/best",
		"-x",                    // Extract audio
		"--audio-format", "wav", // WAV for the labeler and slicer
		"--no-playlist",
		"-o", base+".%(ext)s",
		rawURL,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("yt-dlp failed: %v\nOutput: %s", err, string(output))
	}

	outputPath := base + ".wav"
	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("yt-dlp produced no audio file: %w", err)
	}
	return outputPath, nil
}

// HTTPDownloader saves a directly addressable media file
type HTTPDownloader struct {
	client  *http.Client
	tempDir string
	logger  *zap.Logger
}

// NewHTTPDownloader creates a downloader. A nil client gets a 10 minute timeout.
func NewHTTPDownloader(client *http.Client, tempDir string, logger *zap.Logger) *HTTPDownloader {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPDownloader{client: client, tempDir: tempDir, logger: logger}
}

// Fetch streams the body of url to a temp file
func (d *HTTPDownloader) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	d.logger.Info("Downloading media file", zap.String("url", rawURL))

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("file not accessible: status %d", resp.StatusCode)
	}

	ext := mediaExtension(rawURL)
	if ext == "" {
		ext = ".mp3"
	}
	outputPath := filepath.Join(d.tempDir, uuid.New().String()+ext)

	out, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to save downloaded file: %w", err)
	}

	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("failed to write downloaded file: %w", err)
	}

	d.logger.Info("Media file downloaded", zap.String("path", outputPath), zap.Int64("bytes", n))
	return outputPath, nil
}

// RouteDownloader sends direct media links to HTTP and everything else to yt-dlp
type RouteDownloader struct {
	direct AudioDownloader
	video  AudioDownloader
}

// NewRouteDownloader combines a direct-file downloader and a video-page downloader
func NewRouteDownloader(direct, video AudioDownloader) *RouteDownloader {
	return &RouteDownloader{direct: direct, video: video}
}

// Fetch dispatches url to the matching downloader
func (d *RouteDownloader) Fetch(ctx context.Context, rawURL string) (string, error) {
	if IsDirectMediaURL(rawURL) {
		return d.direct.Fetch(ctx, rawURL)
	}
	return d.video.Fetch(ctx, rawURL)
}

// IsDirectMediaURL reports whether rawURL points straight at a file: a Google
// Drive download link or a path with an audio extension.
func IsDirectMediaURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Host == "drive.google.com" && u.Path == "/uc" {
		return true
	}
	return mediaExtension(rawURL) != ""
}

func mediaExtension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext != "" && ValidateAudioFormat("file"+ext) {
		return ext
	}
	return ""
}
