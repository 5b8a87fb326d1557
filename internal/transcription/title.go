package transcription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// playerTitleJS reads the title from YouTube's player payload and falls back to
// the document title for other sites.
const playerTitleJS = `(() => {
	const details = window.ytInitialPlayerResponse && window.ytInitialPlayerResponse.videoDetails;
	return (details && details.title) || document.title || "";
})()`

// TitleResolver loads a video page in headless Chrome to read its title
type TitleResolver struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewTitleResolver creates a resolver that gives up after timeout
func NewTitleResolver(timeout time.Duration, logger *zap.Logger) *TitleResolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TitleResolver{timeout: timeout, logger: logger}
}

// Resolve returns the page title of url
func (tr *TitleResolver) Resolve(ctx context.Context, url string) (string, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, tr.timeout)
	defer cancel()

	var title string
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(playerTitleJS, &title, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}

	title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(title), "- YouTube"))
	tr.logger.Debug("Resolved page title", zap.String("url", url), zap.String("title", title))
	return title, nil
}
