// Package reconcile stitches consecutive final transcripts into a
// non-repeating stream. Segments deliberately carry overlapping audio
// at their boundaries, so the provider transcribes a few words twice;
// the engine subtracts that duplicated run before text reaches
// listeners.
package reconcile

import "strings"

const (
	minOverlapWords = 2
	maxOverlapWords = 15
)

// Engine compares each new final transcript against the immediately
// preceding one only. Not safe for concurrent use; final fragments
// arrive strictly ordered, one caller at a time.
type Engine struct {
	prev []string
}

func New() *Engine {
	return &Engine{}
}

// Advance returns the genuinely new portion of text: the longest
// suffix of the previous transcript that is also a prefix of this one
// is dropped from the front. Words are whitespace-tokenized and
// compared case-sensitively, longest candidate first. When no overlap
// of at least two words exists, the full text is returned unchanged;
// a silence gap or provider anomaly simply produces no subtraction.
func (e *Engine) Advance(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	k := e.overlap(words)
	e.prev = words
	if k == 0 {
		return strings.Join(words, " ")
	}
	return strings.Join(words[k:], " ")
}

// Reset clears boundary state, for use when a stream restarts and the
// next segment no longer overlaps anything already broadcast.
func (e *Engine) Reset() {
	e.prev = nil
}

func (e *Engine) overlap(words []string) int {
	maxK := min(maxOverlapWords, len(e.prev), len(words))
	for k := maxK; k >= minOverlapWords; k-- {
		if wordsEqual(e.prev[len(e.prev)-k:], words[:k]) {
			return k
		}
	}
	return 0
}

func wordsEqual(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
