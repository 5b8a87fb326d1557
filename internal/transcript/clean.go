package transcript

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	timestampPattern = regexp.MustCompile(`\[\d{2,}:\d{2} - \d{2,}:\d{2}\]`)
	// The colon is optional so that already cleaned paragraphs are recognized again.
	speakerPattern = regexp.MustCompile(`^(Speaker \d+):?(?:\s|$)`)
)

// Clean strips timestamps and folds consecutive lines of one speaker into a
// single paragraph.
func Clean(formatted string) string {
	text := timestampPattern.ReplaceAllString(formatted, "")

	var b strings.Builder
	lastSpeaker := ""

	appendText := func(s string) {
		if s == "" {
			return
		}
		if b.Len() > 0 && !strings.HasSuffix(b.String(), " ") && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		m := speakerPattern.FindStringSubmatch(line)
		if m == nil {
			appendText(line)
			continue
		}

		speaker := m[1]
		if speaker != lastSpeaker {
			if prev := b.String(); strings.HasSuffix(prev, " ") {
				b.Reset()
				b.WriteString(strings.TrimRight(prev, " "))
			}
			b.WriteString("\n" + speaker + " ")
			lastSpeaker = speaker
		}
		appendText(strings.TrimSpace(line[len(m[0]):]))
	}

	return strings.TrimSpace(b.String())
}

// CleanFile reads a formatted transcript, cleans it and writes the result
func CleanFile(inputPath, outputPath string) error {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(Clean(string(raw))), 0644); err != nil {
		return fmt.Errorf("failed to write cleaned transcript: %w", err)
	}
	return nil
}
