// Package llmtest provides deterministic embedding and LLM fakes for tests.
package llmtest

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
)

var (
	_ embeddings.Embedder = (*Embedder)(nil)
	_ llms.Model          = (*Model)(nil)
)

// Embedder hashes each word of a text into a bag-of-words vector, so texts
// sharing words are similar.
type Embedder struct {
	Dimension int
	// Err is returned by every call when set.
	Err error
	// FailAfter makes calls fail with Err once this many texts have been embedded.
	FailAfter int

	m        sync.Mutex
	calls    int
	embedded int
}

func NewEmbedder(dimension int) *Embedder {
	return &Embedder{Dimension: dimension}
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e.m.Lock()
	defer e.m.Unlock()
	e.calls++
	if e.Err != nil && e.embedded+len(texts) > e.FailAfter {
		return nil, e.Err
	}
	e.embedded += len(texts)
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = e.vector(t)
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

// Calls returns the number of embedding requests made.
func (e *Embedder) Calls() int {
	e.m.Lock()
	defer e.m.Unlock()
	return e.calls
}

func (e *Embedder) vector(text string) []float32 {
	dim := e.Dimension
	if dim < 2 {
		dim = 2
	}
	v := make([]float32, dim)
	// The last component is constant so that no vector is zero.
	v[dim-1] = 0.01
	for _, w := range Words(text) {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[int(h.Sum32()%uint32(dim-1))]++
	}
	return v
}

// Words lowercases text and splits it into words, dropping punctuation.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Model is a fake llms.Model. Respond computes the reply from the rendered
// prompt; when nil the prompt is echoed.
type Model struct {
	Respond func(prompt string) (string, error)
	// Delay before replying, cut short if the context is cancelled.
	Delay time.Duration

	m       sync.Mutex
	prompts []string
	options []llms.CallOptions
}

func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	var sb strings.Builder
	for _, msg := range messages {
		for _, p := range msg.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				sb.WriteString(tc.Text)
			}
		}
	}
	prompt := sb.String()
	m.m.Lock()
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, opts)
	m.m.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	reply := prompt
	if m.Respond != nil {
		var err error
		if reply, err = m.Respond(prompt); err != nil {
			return nil, err
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply}},
	}, nil
}

func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Prompts returns every prompt the model has received.
func (m *Model) Prompts() []string {
	m.m.Lock()
	defer m.m.Unlock()
	return append([]string(nil), m.prompts...)
}

// Options returns the call options of every request.
func (m *Model) Options() []llms.CallOptions {
	m.m.Lock()
	defer m.m.Unlock()
	return append([]llms.CallOptions(nil), m.options...)
}

// ErrModelUnavailable can be returned by Respond to simulate an outage.
var ErrModelUnavailable = errors.New("model unavailable")

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "do": true, "does": true,
	"how": true, "in": true, "is": true, "it": true, "of": true, "the": true,
	"to": true, "what": true, "which": true, "who": true, "why": true,
}

// Extractive answers by returning the first context sentence that shares a
// content word with the question, or the fallback when none does. It expects
// the prompt to contain "Context:" followed later by "Question:".
func Extractive(fallback string) func(prompt string) (string, error) {
	return func(prompt string) (string, error) {
		_, rest, ok := strings.Cut(prompt, "Context:")
		if !ok {
			return fallback, nil
		}
		passages, rest, ok := strings.Cut(rest, "Question:")
		if !ok {
			return fallback, nil
		}
		question, _, _ := strings.Cut(rest, "Answer:")
		wanted := map[string]bool{}
		for _, w := range Words(question) {
			if !stopWords[w] {
				wanted[w] = true
			}
		}
		for _, sentence := range strings.SplitAfter(passages, ".") {
			for _, w := range Words(sentence) {
				if wanted[w] {
					return strings.TrimSpace(sentence), nil
				}
			}
		}
		return fallback, nil
	}
}
