package segment

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestExtractMixedText(t *testing.T) {
	t.Parallel()

	text := "Hello 世界 World"
	segments := Extract(text)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d: %+v", len(segments), segments)
	}
	seg := segments[0]
	if seg.Text != "世界" {
		t.Fatalf("unexpected segment text: %q", seg.Text)
	}
	if text[seg.Start:seg.End] != "世界" {
		t.Fatalf("offsets do not address the segment: %d..%d", seg.Start, seg.End)
	}
}

func TestExtractKeepsAdjacentAlphanumerics(t *testing.T) {
	t.Parallel()

	segments := Extract("API密钥")
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Text != "API密钥" {
		t.Fatalf("expected full run, got %q", segments[0].Text)
	}
}

func TestExtractSkipsNonTargetText(t *testing.T) {
	t.Parallel()

	if segments := Extract("plain English only"); len(segments) != 0 {
		t.Fatalf("expected no segments, got %+v", segments)
	}
	if segments := Extract("   \t\n "); len(segments) != 0 {
		t.Fatalf("expected no segments for whitespace, got %+v", segments)
	}
	if ContainsTranslatable("no target script") {
		t.Fatal("unexpected translatable report")
	}
	if !ContainsTranslatable("有中文") {
		t.Fatal("expected translatable report")
	}
}

func TestExtractOrderedNonOverlapping(t *testing.T) {
	t.Parallel()

	text := "第一段 middle 第二段 end 第三段"
	segments := Extract(text)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	prevEnd := -1
	for _, seg := range segments {
		if seg.Start <= prevEnd {
			t.Fatalf("segments overlap or out of order: %+v", segments)
		}
		if text[seg.Start:seg.End] != seg.Text {
			t.Fatalf("offset mismatch for %q", seg.Text)
		}
		prevEnd = seg.End
	}
}

func TestReassembleRoundTrip(t *testing.T) {
	t.Parallel()

	texts := []string{
		"Hello 世界 World",
		"API密钥 and 配置文件 in mixed，标点。 text",
		"纯中文文本",
		"no segments at all",
		"前缀text后缀",
	}
	for _, text := range texts {
		segments := Extract(text)
		identity := make([]string, len(segments))
		for i, seg := range segments {
			identity[i] = seg.Text
		}
		got, err := Reassemble(text, segments, identity)
		if err != nil {
			t.Fatalf("reassemble %q: %v", text, err)
		}
		if got != text {
			t.Fatalf("round trip failed: %q != %q", got, text)
		}
	}
}

func TestReassembleSubstitutes(t *testing.T) {
	t.Parallel()

	text := "say 你好 then 再见 bye"
	segments := Extract(text)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	got, err := Reassemble(text, segments, []string{"hello", "goodbye"})
	if err != nil {
		t.Fatalf("reassemble: %v", err)
	}
	if got != "say hello then goodbye bye" {
		t.Fatalf("unexpected reassembly: %q", got)
	}
}

func TestReassembleCountMismatch(t *testing.T) {
	t.Parallel()

	text := "你好 world"
	segments := Extract(text)
	if _, err := Reassemble(text, segments, nil); !errors.Is(err, ErrCountMismatch) {
		t.Fatalf("expected ErrCountMismatch, got %v", err)
	}
}

func TestSplitBatchMismatch(t *testing.T) {
	t.Parallel()

	if _, err := SplitBatch("one\ntwo", 3); !errors.Is(err, ErrCountMismatch) {
		t.Fatalf("expected ErrCountMismatch, got %v", err)
	}
	lines, err := SplitBatch(" one \ntwo", 2)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if lines[0] != "one" || lines[1] != "two" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	unique, occurrences := Dedupe([]string{"a", "b", "a", "c", "b", "a"})
	if len(unique) != 3 || unique[0] != "a" || unique[1] != "b" || unique[2] != "c" {
		t.Fatalf("unexpected unique set: %v", unique)
	}
	if got := occurrences["a"]; len(got) != 3 || got[0] != 0 || got[2] != 5 {
		t.Fatalf("unexpected occurrences for a: %v", got)
	}
}

func TestPackBatches(t *testing.T) {
	t.Parallel()

	// Each text costs len+1; ceiling 10 fits two 4-char texts per batch.
	texts := []string{"aaaa", "bbbb", "cccc", "dddd", "eeee"}
	batches := PackBatches(texts, 10)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d: %v", len(batches), batches)
	}
	var flat []string
	for _, batch := range batches {
		flat = append(flat, batch...)
	}
	if strings.Join(flat, ",") != strings.Join(texts, ",") {
		t.Fatalf("order not preserved: %v", flat)
	}
}

func TestPackBatchesOversizedSegment(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("长", 30)
	batches := PackBatches([]string{"短", long, "短"}, 10)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if batches[1][0] != long || len(batches[1]) != 1 {
		t.Fatalf("oversized text must form its own batch: %v", batches[1])
	}
}

type mapCache struct {
	entries map[string]string
	sets    int
}

func (c *mapCache) Get(_ context.Context, text string) (string, bool) {
	v, ok := c.entries[text]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, text, translated string) {
	if c.entries == nil {
		c.entries = map[string]string{}
	}
	c.entries[text] = translated
	c.sets++
}

func TestSmartTranslateDeduplicates(t *testing.T) {
	t.Parallel()

	text := "重复 a 重复 b 重复"
	calls := 0
	var sent []string
	translate := func(_ context.Context, batchText string) (string, error) {
		calls++
		lines := strings.Split(batchText, "\n")
		sent = append(sent, lines...)
		out := make([]string, len(lines))
		for i := range lines {
			out[i] = "X"
		}
		return strings.Join(out, "\n"), nil
	}

	got, err := SmartTranslate(context.Background(), text, translate, nil, 0)
	if err != nil {
		t.Fatalf("smart translate: %v", err)
	}
	if got != "X a X b X" {
		t.Fatalf("unexpected output: %q", got)
	}
	if calls != 1 || len(sent) != 1 || sent[0] != "重复" {
		t.Fatalf("expected one unique record sent once, got calls=%d sent=%v", calls, sent)
	}
}

func TestSmartTranslateUsesCache(t *testing.T) {
	t.Parallel()

	cache := &mapCache{entries: map[string]string{"你好": "hello"}}
	calls := 0
	translate := func(_ context.Context, batchText string) (string, error) {
		calls++
		return strings.ToUpper(batchText), nil
	}

	got, err := SmartTranslate(context.Background(), "你好 and 再见", translate, cache, 0)
	if err != nil {
		t.Fatalf("smart translate: %v", err)
	}
	if !strings.HasPrefix(got, "hello and ") {
		t.Fatalf("cached translation not applied: %q", got)
	}
	if calls != 1 {
		t.Fatalf("expected one provider call for the uncached segment, got %d", calls)
	}
	if _, ok := cache.entries["再见"]; !ok {
		t.Fatal("freshly translated segment not cached")
	}
}

func TestSmartTranslateNoSegments(t *testing.T) {
	t.Parallel()

	translate := func(_ context.Context, _ string) (string, error) {
		t.Fatal("translate must not be called")
		return "", nil
	}
	got, err := SmartTranslate(context.Background(), "plain text", translate, nil, 0)
	if err != nil || got != "plain text" {
		t.Fatalf("unexpected result: %q, %v", got, err)
	}
}

func TestSmartTranslatePropagatesMismatch(t *testing.T) {
	t.Parallel()

	translate := func(_ context.Context, _ string) (string, error) {
		return "one\ntwo\nthree", nil
	}
	_, err := SmartTranslate(context.Background(), "你好", translate, nil, 0)
	if !errors.Is(err, ErrCountMismatch) {
		t.Fatalf("expected ErrCountMismatch, got %v", err)
	}
}
