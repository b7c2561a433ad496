// Package segment extracts translatable spans from mixed-language text,
// deduplicates and batches them for provider calls, and reassembles the
// translated result at the original byte offsets.
package segment

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrCountMismatch reports a disagreement between segment count and
// translation count. It is an invariant violation, never recovered from.
var ErrCountMismatch = errors.New("translation count mismatch")

// DefaultBatchCeiling bounds the joined character size of one provider call.
const DefaultBatchCeiling = 5000

// Segment is a translatable substring with byte offsets into the original
// text. Segments are non-overlapping and sorted by Start.
type Segment struct {
	Text  string
	Start int
	End   int
}

var (
	// Non-whitespace runs; splitting on whitespace first keeps unrelated
	// script spans on either side of a space from merging.
	runPattern = regexp.MustCompile(`\S+`)
	// A candidate span: Han characters plus adjacent alphanumerics and
	// common punctuation.
	spanPattern = regexp.MustCompile(`[\x{4e00}-\x{9fa5}\w，。！？；：“”‘’（）、\-\\/:%@#&*+=]+`)
	hanPattern  = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]`)
)

// Extract returns translatable segments in order of appearance. A span is
// kept only when it contains at least one Han character. Offsets are byte
// offsets into the full original string.
func Extract(text string) []Segment {
	if text == "" {
		return nil
	}

	var segments []Segment
	for _, run := range runPattern.FindAllStringIndex(text, -1) {
		part := text[run[0]:run[1]]
		if !hanPattern.MatchString(part) {
			continue
		}
		for _, span := range spanPattern.FindAllStringIndex(part, -1) {
			matched := part[span[0]:span[1]]
			if !hanPattern.MatchString(matched) {
				continue
			}
			segments = append(segments, Segment{
				Text:  matched,
				Start: run[0] + span[0],
				End:   run[0] + span[1],
			})
		}
	}
	return segments
}

// ContainsTranslatable reports whether the text holds at least one segment.
func ContainsTranslatable(text string) bool {
	return hanPattern.MatchString(text)
}

// JoinForBatch joins segment texts with newline record separators. The
// extraction character class never matches whitespace, so segment texts
// cannot contain a raw newline and the separator is unambiguous.
func JoinForBatch(segments []Segment) string {
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	return strings.Join(texts, "\n")
}

// SplitBatch splits a translated batch back into records and fails with
// ErrCountMismatch unless exactly want records come back.
func SplitBatch(translated string, want int) ([]string, error) {
	lines := strings.Split(translated, "\n")
	if len(lines) != want {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrCountMismatch, want, len(lines))
	}
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines, nil
}

// Dedupe groups indices by exact text equality, preserving first-seen
// order of the unique texts.
func Dedupe(texts []string) (unique []string, occurrences map[string][]int) {
	occurrences = make(map[string][]int, len(texts))
	for i, text := range texts {
		if _, seen := occurrences[text]; !seen {
			unique = append(unique, text)
		}
		occurrences[text] = append(occurrences[text], i)
	}
	return unique, occurrences
}

// PackBatches packs texts into consecutive batches so that the sum of
// (len+1) per batch never exceeds ceiling, preserving input order and never
// splitting one text across batches. A single text longer than the ceiling
// forms its own batch.
func PackBatches(texts []string, ceiling int) [][]string {
	if ceiling <= 0 {
		ceiling = DefaultBatchCeiling
	}

	var batches [][]string
	var current []string
	size := 0
	for _, text := range texts {
		cost := len([]rune(text)) + 1
		if size+cost > ceiling && len(current) > 0 {
			batches = append(batches, current)
			current = nil
			size = 0
		}
		current = append(current, text)
		size += cost
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// Reassemble substitutes translations into the original text at the
// segments' byte offsets. Substitution proceeds from the last segment to
// the first so earlier offsets stay valid against the shrinking/growing
// result.
func Reassemble(original string, segments []Segment, translations []string) (string, error) {
	if len(translations) != len(segments) {
		return "", fmt.Errorf("%w: expected %d, got %d", ErrCountMismatch, len(segments), len(translations))
	}

	result := original
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		result = result[:seg.Start] + translations[i] + result[seg.End:]
	}
	return result, nil
}

// BatchFunc translates one newline-joined batch and returns the translated
// batch with records in the same order.
type BatchFunc func(ctx context.Context, batchText string) (string, error)

// Cache is the per-request cache view SmartTranslate consults. Both
// methods are best-effort.
type Cache interface {
	Get(ctx context.Context, text string) (string, bool)
	Set(ctx context.Context, text, translated string)
}

// SmartTranslate runs the full pipeline over one text: extract segments,
// satisfy what it can from cache, deduplicate and batch the rest, translate,
// fan results back out to every occurrence, and reassemble. Text without
// translatable segments is returned unchanged without any provider call.
func SmartTranslate(ctx context.Context, text string, translate BatchFunc, cache Cache, ceiling int) (string, error) {
	segments := Extract(text)
	if len(segments) == 0 {
		return text, nil
	}

	translations := make([]string, len(segments))
	var pending []int
	for i, seg := range segments {
		if cache != nil {
			if cached, ok := cache.Get(ctx, seg.Text); ok {
				translations[i] = cached
				continue
			}
		}
		pending = append(pending, i)
	}

	if len(pending) > 0 {
		pendingTexts := make([]string, len(pending))
		for i, idx := range pending {
			pendingTexts[i] = segments[idx].Text
		}
		unique, occurrences := Dedupe(pendingTexts)

		translated := make(map[string]string, len(unique))
		for _, batch := range PackBatches(unique, ceiling) {
			if err := ctx.Err(); err != nil {
				return "", err
			}

			batchText := strings.Join(batch, "\n")
			out, err := translate(ctx, batchText)
			if err != nil {
				return "", err
			}
			lines, err := SplitBatch(out, len(batch))
			if err != nil {
				return "", err
			}
			for i, original := range batch {
				translated[original] = lines[i]
				if cache != nil {
					cache.Set(ctx, original, lines[i])
				}
			}
		}

		for text, indices := range occurrences {
			value := translated[text]
			for _, pendingIdx := range indices {
				translations[pending[pendingIdx]] = value
			}
		}
	}

	return Reassemble(text, segments, translations)
}
