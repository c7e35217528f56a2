package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/a-h/pdfqa"
	"github.com/google/go-cmp/cmp"
)

func TestSplit(t *testing.T) {
	alphabet := strings.Repeat("abcdefghij", 250)
	tests := []struct {
		name     string
		text     string
		maxLen   int
		overlap  int
		opts     []Option
		expected []string
	}{
		{
			name:     "empty text produces no chunks",
			text:     "",
			maxLen:   1000,
			overlap:  100,
			expected: nil,
		},
		{
			name:     "short text is a single chunk",
			text:     "The sky is blue. Grass is green.",
			maxLen:   1000,
			overlap:  100,
			expected: []string{"The sky is blue. Grass is green."},
		},
		{
			name:     "text without boundaries is hard cut",
			text:     alphabet,
			maxLen:   1000,
			overlap:  100,
			expected: []string{alphabet[0:1000], alphabet[900:1900], alphabet[1800:2500]},
		},
		{
			name:     "text exactly max length is a single chunk",
			text:     alphabet[:1000],
			maxLen:   1000,
			overlap:  100,
			expected: []string{alphabet[:1000]},
		},
		{
			name:     "zero overlap",
			text:     "abcdefghij",
			maxLen:   4,
			overlap:  0,
			expected: []string{"abcd", "efgh", "ij"},
		},
		{
			name:     "multibyte characters are counted once",
			text:     "ééééé",
			maxLen:   3,
			overlap:  1,
			expected: []string{"ééé", "ééé"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, err := New(test.maxLen, test.overlap, test.opts...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			actual := s.Split(test.text)
			if diff := cmp.Diff(test.expected, actual); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestSplitPrefersNaturalBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxLen   int
		lookback int
		expected string
	}{
		{
			name:     "paragraphs are preferred over sentences",
			text:     "One. Two.\n\nThree four five six",
			maxLen:   20,
			lookback: 15,
			expected: "One. Two.\n\n",
		},
		{
			name:     "sentences are preferred over words",
			text:     "Alpha beta. Gamma delta epsilon",
			maxLen:   20,
			lookback: 15,
			expected: "Alpha beta. ",
		},
		{
			name:     "words are preferred over a hard cut",
			text:     "aaaa bbbb cccc dddd eeee",
			maxLen:   12,
			lookback: 6,
			expected: "aaaa bbbb ",
		},
		{
			name:     "boundaries outside the lookback window are ignored",
			text:     "aaaa bbbbbbbbbbbbbbbbbbbbb",
			maxLen:   12,
			lookback: 6,
			expected: "aaaa bbbbbbb",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, err := New(test.maxLen, 2, WithLookback(test.lookback))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			actual := s.Split(test.text)
			if len(actual) < 2 {
				t.Fatalf("expected multiple chunks, got %q", actual)
			}
			if actual[0] != test.expected {
				t.Errorf("expected first chunk %q, got %q", test.expected, actual[0])
			}
			assertChunkProperties(t, test.text, actual, test.maxLen, 2)
		})
	}
}

func TestSplitProperties(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. It was not amused!\n\nNor was the cat? ", 40)
	params := []struct {
		maxLen, overlap int
	}{
		{maxLen: 1000, overlap: 100},
		{maxLen: 100, overlap: 10},
		{maxLen: 50, overlap: 49},
		{maxLen: 7, overlap: 3},
		{maxLen: 2, overlap: 1},
		{maxLen: 10000, overlap: 100},
	}
	for _, p := range params {
		s, err := New(p.maxLen, p.overlap)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertChunkProperties(t, text, s.Split(text), p.maxLen, p.overlap)
	}
}

func assertChunkProperties(t *testing.T, text string, chunks []string, maxLen, overlap int) {
	t.Helper()
	var sb strings.Builder
	for i, c := range chunks {
		runes := []rune(c)
		if len(runes) > maxLen {
			t.Errorf("maxLen=%d overlap=%d: chunk %d has length %d", maxLen, overlap, i, len(runes))
		}
		if i == 0 {
			sb.WriteString(c)
			continue
		}
		prev := []rune(chunks[i-1])
		if string(prev[len(prev)-overlap:]) != string(runes[:overlap]) {
			t.Errorf("maxLen=%d overlap=%d: chunks %d and %d do not overlap", maxLen, overlap, i-1, i)
		}
		sb.WriteString(string(runes[overlap:]))
	}
	if sb.String() != text {
		t.Errorf("maxLen=%d overlap=%d: chunks do not reconstruct the text", maxLen, overlap)
	}
}

func TestNewRejectsInvalidArguments(t *testing.T) {
	tests := []struct {
		name    string
		maxLen  int
		overlap int
	}{
		{name: "negative overlap", maxLen: 10, overlap: -1},
		{name: "overlap equal to max length", maxLen: 10, overlap: 10},
		{name: "overlap greater than max length", maxLen: 10, overlap: 20},
		{name: "zero max length", maxLen: 0, overlap: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Chunk("text", test.maxLen, test.overlap)
			if !errors.Is(err, pdfqa.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}
