package sanitizer

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

// chain runs detectors in order over one string value and resolves their
// spans into a non-overlapping set.
type chain struct {
	detectors []pii.Detector
	minScore  float64
	logger    zerolog.Logger
}

// detect returns accepted matches ordered by start offset. A detector that
// fails or panics is skipped for this value only; failures counts them.
func (c *chain) detect(ctx context.Context, text string, path pii.FieldPath) (matches []pii.Match, failures int) {
	var all []pii.Match
	for _, d := range c.detectors {
		found, err := call(ctx, d, text, path)
		if err != nil {
			failures++
			c.logger.Warn().
				Err(err).
				Str("detector", d.Name()).
				Str("path", path.String()).
				Msg("detector failed, skipping field")
			detectorFailures.Add(ctx, 1)
			continue
		}
		for _, m := range found {
			if !c.valid(text, m) {
				continue
			}
			m.Text = text[m.Start:m.End]
			m.Path = path
			if m.Detector == "" {
				m.Detector = d.Name()
			}
			all = append(all, m)
		}
	}
	return resolveOverlaps(all), failures
}

func call(ctx context.Context, d pii.Detector, text string, path pii.FieldPath) (found []pii.Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			found, err = nil, fmt.Errorf("detector panicked: %v", r)
		}
	}()
	return d.Detect(ctx, text, path)
}

func (c *chain) valid(text string, m pii.Match) bool {
	if m.Start < 0 || m.End > len(text) || m.Start >= m.End {
		return false
	}
	if !utf8.RuneStart(text[m.Start]) || (m.End < len(text) && !utf8.RuneStart(text[m.End])) {
		return false
	}
	if m.Category.Priority() == len(pii.Categories) {
		return false
	}
	return m.Confidence >= c.minScore
}

// resolveOverlaps keeps the longest span among overlapping ones. Ties go to
// the higher confidence, then the higher-priority category, then the
// detector name.
func resolveOverlaps(ms []pii.Match) []pii.Match {
	if len(ms) < 2 {
		return ms
	}
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		switch {
		case a.Start != b.Start:
			return a.Start < b.Start
		case a.Len() != b.Len():
			return a.Len() > b.Len()
		case a.Confidence != b.Confidence:
			return a.Confidence > b.Confidence
		case a.Category.Priority() != b.Category.Priority():
			return a.Category.Priority() < b.Category.Priority()
		}
		return a.Detector < b.Detector
	})
	out := ms[:1]
	for _, m := range ms[1:] {
		last := &out[len(out)-1]
		if !m.Overlaps(*last) {
			out = append(out, m)
			continue
		}
		if m.Len() > last.Len() {
			*last = m
		}
	}
	return out
}
