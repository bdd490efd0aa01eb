package shaper

import (
	"strings"
	"testing"
)

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"hello\r\nworld",
		"a\n\n\n\nb",
		"  leading and trailing  \n",
		"ctrl\x01\x02chars",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestNormalizeCollapsesBlankLines(t *testing.T) {
	got := Normalize("a\n\n\n\n\nb")
	if got != "a\n\nb" {
		t.Errorf("got %q, want %q", got, "a\n\nb")
	}
}

func TestShapeSegmentsWithinBounds(t *testing.T) {
	longText := strings.Repeat("word ", 2000)
	result := Shape(longText, Options{})

	if len(result.Segments) > 20 {
		t.Errorf("segments = %d, want <= 20", len(result.Segments))
	}
	for i, seg := range result.Segments {
		if seg.Index != i {
			t.Errorf("segment[%d].Index = %d, want %d", i, seg.Index, i)
		}
		if len([]rune(seg.Text)) > 500 {
			t.Errorf("segment[%d] length %d exceeds maxSegmentChars", i, len([]rune(seg.Text)))
		}
	}
}

func TestShapeTruncatesOverMaxTotalChars(t *testing.T) {
	longText := strings.Repeat("x", 6000)
	result := Shape(longText, Options{})
	if !result.Truncated {
		t.Fatal("expected truncated=true")
	}
	if len([]rune(result.FullText)) != 5000 {
		t.Errorf("FullText length = %d, want 5000", len([]rune(result.FullText)))
	}
}

func TestShapeShortTextSingleSegment(t *testing.T) {
	result := Shape("hello world", Options{})
	if len(result.Segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(result.Segments))
	}
	if result.Segments[0].Continuation {
		t.Error("first segment must not be a continuation")
	}
	if result.Segments[0].Text != "hello world" {
		t.Errorf("text = %q", result.Segments[0].Text)
	}
}

func TestShapeParagraphsProduceSeparateSegments(t *testing.T) {
	result := Shape("first paragraph\n\nsecond paragraph", Options{})
	if len(result.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(result.Segments))
	}
	if result.Segments[0].Continuation || result.Segments[1].Continuation {
		t.Error("distinct paragraphs must not be marked continuation")
	}
}

func TestShapeContinuationFlagsWithinSplitParagraph(t *testing.T) {
	sentence := "This is a sentence that repeats many times to exceed the limit. "
	longParagraph := strings.Repeat(sentence, 20)
	result := Shape(longParagraph, Options{MaxSegmentChars: 100, MaxSegments: 20, MaxTotalChars: 5000})
	if len(result.Segments) < 2 {
		t.Fatalf("expected paragraph to split into multiple segments, got %d", len(result.Segments))
	}
	if result.Segments[0].Continuation {
		t.Error("first chunk of a split paragraph must not be continuation")
	}
	for _, seg := range result.Segments[1:] {
		if !seg.Continuation {
			t.Error("subsequent chunks of a split paragraph must be continuation")
		}
	}
}
