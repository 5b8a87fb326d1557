package transcription

import (
	"context"
	"errors"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryRecognizer retries service errors of the wrapped recognizer with
// exponential backoff. Any error not wrapping ErrServiceError is returned immediately.
type RetryRecognizer struct {
	next           SpeechRecognizer
	initial        time.Duration
	maxInterval    time.Duration
	maxElapsedTime time.Duration
	logger         *zap.Logger
}

// NewRetryRecognizer wraps next. A zero maxElapsed disables retries.
func NewRetryRecognizer(next SpeechRecognizer, initial, maxElapsed time.Duration, logger *zap.Logger) *RetryRecognizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if initial <= 0 {
		initial = time.Second
	}
	return &RetryRecognizer{
		next:           next,
		initial:        initial,
		maxInterval:    10 * initial,
		maxElapsedTime: maxElapsed,
		logger:         logger,
	}
}

// Recognize calls the wrapped recognizer until it succeeds, fails with
// anything but ErrServiceError, or the retry budget runs out
func (rr *RetryRecognizer) Recognize(ctx context.Context, audio []byte) (string, error) {
	if rr.maxElapsedTime <= 0 {
		return rr.next.Recognize(ctx, audio)
	}

	var text string
	attempt := 0
	op := func() error {
		attempt++
		var err error
		text, err = rr.next.Recognize(ctx, audio)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrServiceError) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		rr.logger.Warn("Recognition attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = rr.initial
	bo.MaxInterval = rr.maxInterval
	bo.MaxElapsedTime = rr.maxElapsedTime

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}
	return text, nil
}
