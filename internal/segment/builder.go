// Package segment turns per-frame speaker labels into time-bounded segments.
package segment

import (
	"math"

	"github.com/codebuildervaibhav/speaker-transcription/internal/types"
)

// ShortRunPolicy decides what happens to runs shorter than the minimum duration
type ShortRunPolicy int

const (
	// DropShortRuns discards short runs; their span is left as a gap.
	DropShortRuns ShortRunPolicy = iota
	// MergeShortRuns hands a short run's span to the neighbouring segment.
	MergeShortRuns
)

// ParsePolicy maps a config value to a policy. Unknown values drop.
func ParsePolicy(name string) ShortRunPolicy {
	if name == "merge" {
		return MergeShortRuns
	}
	return DropShortRuns
}

func (p ShortRunPolicy) String() string {
	if p == MergeShortRuns {
		return "merge"
	}
	return "drop"
}

// Run is a maximal stretch of frames sharing one label. End is exclusive.
type Run struct {
	Label int
	Start int
	End   int
}

// Runs scans labels left to right and returns every run in order
func Runs(labels []int) []Run {
	if len(labels) == 0 {
		return nil
	}

	var runs []Run
	current := Run{Label: labels[0], Start: 0}
	for i := 1; i < len(labels); i++ {
		if labels[i] != current.Label {
			current.End = i
			runs = append(runs, current)
			current = Run{Label: labels[i], Start: i}
		}
	}
	current.End = len(labels)
	return append(runs, current)
}

// Build converts frame labels into segments that are at least minDurationMs long.
func Build(labels []int, totalDurationMs, minDurationMs int64, policy ShortRunPolicy) []types.Segment {
	if len(labels) == 0 || totalDurationMs <= 0 {
		return []types.Segment{}
	}

	width := float64(totalDurationMs) / float64(len(labels))
	toMs := func(frame int) int64 {
		return int64(math.Round(float64(frame) * width))
	}

	segments := make([]types.Segment, 0)
	pendingStart := int64(-1)

	for _, run := range Runs(labels) {
		seg := types.Segment{
			SpeakerID: run.Label,
			StartMs:   toMs(run.Start),
			EndMs:     toMs(run.End),
		}

		if seg.DurationMs() < minDurationMs || seg.DurationMs() <= 0 {
			if policy != MergeShortRuns {
				continue
			}
			if n := len(segments); n > 0 {
				segments[n-1].EndMs = seg.EndMs
			} else if pendingStart < 0 {
				pendingStart = seg.StartMs
			}
			continue
		}

		if policy == MergeShortRuns {
			if pendingStart >= 0 {
				seg.StartMs = pendingStart
				pendingStart = -1
			}
			if n := len(segments); n > 0 && segments[n-1].SpeakerID == seg.SpeakerID {
				segments[n-1].EndMs = seg.EndMs
				continue
			}
		}

		segments = append(segments, seg)
	}

	return segments
}
