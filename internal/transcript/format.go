// Package transcript renders transcribed segments and cleans the rendered text.
package transcript

import (
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

// Format renders segments as timestamped, speaker-labeled blocks
func Format(segments []types.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		fmt.Fprintf(&b, "[%s - %s] Speaker %d:\n%s\n\n",
			Timestamp(s.StartMs), Timestamp(s.EndMs), s.SpeakerID, s.Text)
	}
	return strings.TrimRightFunc(b.String(), isSpace)
}

// Timestamp renders milliseconds as mm:ss. Minutes are not folded into hours.
func Timestamp(ms int64) string {
	totalSeconds := ms / 1000
	return fmt.Sprintf("%02d:%02d", totalSeconds/60, totalSeconds%60)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
