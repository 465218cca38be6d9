// Package loopdetect implements the repeated-message loop detector (spec
// §4.9): a task is "stuck" when the same assistant message, normalised for
// case and whitespace, shows up often enough in the recent history.
package loopdetect

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

var fold = cases.Fold()

// Detector flags a run as looping when the last Lookback AI messages
// contain the same normalised message at least Threshold times.
type Detector struct {
	Lookback  int
	Threshold int
}

// New builds a Detector, substituting the documented defaults (L=8, T=4)
// for non-positive values.
func New(lookback, threshold int) *Detector {
	if lookback <= 0 {
		lookback = 8
	}
	if threshold <= 0 {
		threshold = 4
	}
	return &Detector{Lookback: lookback, Threshold: threshold}
}

// normalise trims surrounding whitespace, folds full/half-width variants to
// a canonical form, then case-folds, so "Done!" / "DONE!" / "done! " all
// collapse onto the same key.
func normalise(s string) string {
	s = strings.TrimSpace(s)
	s = width.Fold.String(s)
	return fold.String(s)
}

// Detect reports whether messages (chronological order, typically the
// output of MessageLog.LastAIMessages) contains a loop per the spec's
// definition.
func (d *Detector) Detect(messages []string) bool {
	if d == nil || len(messages) == 0 {
		return false
	}
	window := messages
	if len(window) > d.Lookback {
		window = window[len(window)-d.Lookback:]
	}
	counts := make(map[string]int, len(window))
	for _, m := range window {
		key := normalise(m)
		if key == "" {
			continue
		}
		counts[key]++
		if counts[key] >= d.Threshold {
			return true
		}
	}
	return false
}
