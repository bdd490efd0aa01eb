// Package shaper normalizes and segments assistant reply text. It is
// a pure function with no I/O, in the spirit of spec §4.3. The
// boundary-search strategy (prefer a sentence break, fall back to
// whitespace, fall back to a hard cut) is grounded on the teacher's
// streaming-text segmentation (internal/openclaw/cli_stream.go's
// nextCLIStreamSegment/boundaryAfterMin/whitespaceCut), adapted from
// a streaming-delta splitter into a one-shot splitter over a
// complete, already-known string.
package shaper

import (
	"regexp"
	"strings"

	"github.com/gideonheart/voicegateway/internal/domain"
)

// Options configures segmentation. Zero-value Options falls back to
// the defaults spec §4.3 names.
type Options struct {
	MaxSegmentChars int
	MaxSegments     int
	MaxTotalChars   int
}

func (o Options) withDefaults() Options {
	if o.MaxSegmentChars <= 0 {
		o.MaxSegmentChars = 500
	}
	if o.MaxSegments <= 0 {
		o.MaxSegments = 20
	}
	if o.MaxTotalChars <= 0 {
		o.MaxTotalChars = 5000
	}
	return o
}

// Result is what Shape returns: the normalized (and possibly
// truncated) full text, its segments, and whether truncation
// occurred.
type Result struct {
	FullText  string
	Segments  []domain.Segment
	Truncated bool
}

var controlBytes = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
var threeOrMoreNewlines = regexp.MustCompile(`\n{3,}`)

// Normalize runs the four-step pipeline from spec §4.3: strip ASCII
// control bytes (except \n \r \t), unify line endings to \n, collapse
// any run of 3+ newlines to exactly two (one blank line), and trim surrounding
// whitespace. Normalize is idempotent: Normalize(Normalize(t)) ==
// Normalize(t).
func Normalize(text string) string {
	text = controlBytes.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = threeOrMoreNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Shape normalizes rawText, truncates it to MaxTotalChars if needed,
// and splits the result into indexed segments.
func Shape(rawText string, opts Options) Result {
	opts = opts.withDefaults()

	normalized := Normalize(rawText)
	truncated := false
	if len([]rune(normalized)) > opts.MaxTotalChars {
		runes := []rune(normalized)
		normalized = string(runes[:opts.MaxTotalChars])
		truncated = true
	}

	var segments []domain.Segment
	paragraphs := splitParagraphs(normalized)
	for _, para := range paragraphs {
		if len(segments) >= opts.MaxSegments {
			break
		}
		chunks := splitParagraphIntoChunks(para, opts.MaxSegmentChars, opts.MaxSegments-len(segments))
		for i, chunk := range chunks {
			segments = append(segments, domain.Segment{
				Index:        len(segments),
				Text:         chunk,
				Continuation: i > 0,
			})
			if len(segments) >= opts.MaxSegments {
				break
			}
		}
	}

	return Result{FullText: normalized, Segments: segments, Truncated: truncated}
}

var paragraphSplit = regexp.MustCompile(`\n\n+`)

func splitParagraphs(text string) []string {
	if text == "" {
		return nil
	}
	parts := paragraphSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var sentenceEnd = map[rune]bool{'.': true, '!': true, '?': true}

// splitParagraphIntoChunks implements the §4.3 chunking rule for one
// paragraph: emit the whole paragraph as one chunk if it already fits
// within limit; otherwise repeatedly cut at, in priority order, a
// sentence boundary in the back half of the window, the last
// whitespace at or after 30% of the window, or a hard cut at the
// limit. Stops once maxChunks chunks have been produced.
func splitParagraphIntoChunks(paragraph string, limit int, maxChunks int) []string {
	runes := []rune(paragraph)
	if len(runes) <= limit {
		return []string{paragraph}
	}

	var chunks []string
	remaining := runes
	for len(remaining) > 0 && len(chunks) < maxChunks {
		if len(remaining) <= limit {
			chunks = append(chunks, strings.TrimSpace(string(remaining)))
			break
		}
		window := remaining[:limit]
		cut := findSentenceBoundary(window, limit/2)
		if cut == -1 {
			cut = findWhitespaceBoundary(window, int(float64(limit)*0.3))
		}
		if cut == -1 {
			cut = limit
		}
		chunks = append(chunks, strings.TrimSpace(string(remaining[:cut])))
		remaining = trimLeadingSpace(remaining[cut:])
	}
	return chunks
}

// findSentenceBoundary looks, from the end of window backward to
// fromIdx, for a '.', '!', or '?' immediately followed by a space or
// end-of-window. Returns the cut index (just after the punctuation)
// or -1 if none is found in range.
func findSentenceBoundary(window []rune, fromIdx int) int {
	for i := len(window) - 1; i >= fromIdx && i >= 0; i-- {
		if sentenceEnd[window[i]] {
			if i+1 == len(window) || window[i+1] == ' ' {
				return i + 1
			}
		}
	}
	return -1
}

// findWhitespaceBoundary looks, from the end of window backward to
// fromIdx, for a whitespace rune to cut at.
func findWhitespaceBoundary(window []rune, fromIdx int) int {
	for i := len(window) - 1; i >= fromIdx && i >= 0; i-- {
		switch window[i] {
		case ' ', '\t', '\n':
			return i
		}
	}
	return -1
}

func trimLeadingSpace(runes []rune) []rune {
	i := 0
	for i < len(runes) && (runes[i] == ' ' || runes[i] == '\t' || runes[i] == '\n') {
		i++
	}
	return runes[i:]
}
