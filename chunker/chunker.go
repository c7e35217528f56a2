// Package chunker splits corpus text into overlapping chunks for embedding.
package chunker

import (
	"fmt"
	"unicode"

	"github.com/a-h/pdfqa"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultMaxLen  = 1000
	DefaultOverlap = 100
)

var _ textsplitter.TextSplitter = (*Splitter)(nil)

// Splitter cuts text into chunks of at most maxLen characters, where
// consecutive chunks share exactly overlap characters.
type Splitter struct {
	maxLen   int
	overlap  int
	lookback int
}

type Option func(*Splitter)

// WithLookback sets how many characters before a hard cut are searched for a
// natural boundary. Zero disables boundary search.
func WithLookback(n int) Option {
	return func(s *Splitter) {
		s.lookback = n
	}
}

func New(maxLen, overlap int, opts ...Option) (*Splitter, error) {
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", pdfqa.ErrInvalidArgument, overlap)
	}
	if maxLen <= overlap {
		return nil, fmt.Errorf("%w: chunk size %d must be greater than overlap %d", pdfqa.ErrInvalidArgument, maxLen, overlap)
	}
	s := &Splitter{
		maxLen:   maxLen,
		overlap:  overlap,
		lookback: maxLen / 10,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.lookback < 0 {
		s.lookback = 0
	}
	return s, nil
}

// Chunk splits text with a default lookback window.
func Chunk(text string, maxLen, overlap int) ([]string, error) {
	s, err := New(maxLen, overlap)
	if err != nil {
		return nil, err
	}
	return s.Split(text), nil
}

// SplitText implements textsplitter.TextSplitter.
func (s *Splitter) SplitText(text string) ([]string, error) {
	return s.Split(text), nil
}

// Split is a pure function of its input. Lengths are measured in runes, and
// no text is trimmed, so chunk[0] followed by chunk[i][overlap:] for every
// later chunk reproduces text exactly.
func (s *Splitter) Split(text string) (chunks []string) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	var start int
	for {
		end := start + s.maxLen
		if end >= len(runes) {
			return append(chunks, string(runes[start:]))
		}
		end = s.cut(runes, start, end)
		chunks = append(chunks, string(runes[start:end]))
		start = end - s.overlap
	}
}

// cut returns the end of the chunk starting at start. Boundaries are only
// accepted past start+overlap, so the next chunk always starts later.
func (s *Splitter) cut(runes []rune, start, end int) int {
	lo := max(start+s.overlap+1, end-s.lookback)
	if lo > end {
		return end
	}
	for _, isBoundary := range []func(runes []rune, p int) bool{isParagraphEnd, isSentenceEnd, isWordEnd} {
		for p := end; p >= lo; p-- {
			if p-2 < start {
				break
			}
			if isBoundary(runes, p) {
				return p
			}
		}
	}
	return end
}

func isParagraphEnd(runes []rune, p int) bool {
	return runes[p-2] == '\n' && runes[p-1] == '\n'
}

func isSentenceEnd(runes []rune, p int) bool {
	switch runes[p-2] {
	case '.', '!', '?':
		return unicode.IsSpace(runes[p-1])
	}
	return false
}

func isWordEnd(runes []rune, p int) bool {
	return unicode.IsSpace(runes[p-1])
}
