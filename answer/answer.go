// Package answer asks an LLM to answer a question from retrieved context.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/a-h/pdfqa"
	"github.com/tmc/langchaingo/llms"
)

// NotInText is the answer given when the context does not contain one.
const NotInText = "Answer not in text"

type Answer string

// Found reports whether the answer came from the context.
func (a Answer) Found() bool {
	return a != NotInText
}

type Synthesizer struct {
	log            *slog.Logger
	llm            llms.Model
	template       Template
	temperature    float64
	maxTokens      int
	timeout        time.Duration
	groundingCheck bool
}

type Option func(*Synthesizer)

func WithTemperature(t float64) Option {
	return func(s *Synthesizer) {
		s.temperature = t
	}
}

func WithMaxTokens(n int) Option {
	return func(s *Synthesizer) {
		s.maxTokens = n
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) {
		s.timeout = d
	}
}

// WithGroundingCheck replaces answers that share no content word with the
// context by NotInText.
func WithGroundingCheck(enabled bool) Option {
	return func(s *Synthesizer) {
		s.groundingCheck = enabled
	}
}

func New(log *slog.Logger, llm llms.Model, template Template, opts ...Option) (*Synthesizer, error) {
	if llm == nil {
		return nil, errors.New("answer: llm must not be nil")
	}
	s := &Synthesizer{
		log:         log,
		llm:         llm,
		template:    template,
		temperature: 0.7,
		maxTokens:   2000,
		timeout:     60 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Synthesize answers question from context. An empty context is answered
// with NotInText without calling the model. Model failures are returned as
// errors, never as NotInText.
func (s *Synthesizer) Synthesize(ctx context.Context, question, contextText string) (Answer, error) {
	if strings.TrimSpace(contextText) == "" {
		return NotInText, nil
	}
	prompt, err := s.template.Format(question, contextText)
	if err != nil {
		return "", fmt.Errorf("%w: failed to format prompt: %w", pdfqa.ErrInvalidArgument, err)
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	resp, err := s.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithTemperature(s.temperature), llms.WithMaxTokens(s.maxTokens))
	if err != nil {
		return "", fmt.Errorf("%w: %w", pdfqa.ErrLLMService, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", pdfqa.ErrLLMService)
	}
	a := normalize(resp.Choices[0].Content)
	if s.groundingCheck && a.Found() && !grounded(string(a), contextText) {
		s.log.Info("answer is not grounded in the context, replacing with fallback", slog.String("answer", string(a)))
		return NotInText, nil
	}
	return a, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// normalize maps variations of the fallback such as `"Answer not in text."`
// to NotInText.
func normalize(s string) Answer {
	s = strings.TrimSpace(s)
	trimmed := strings.TrimRight(strings.Trim(s, "\"'`*"), ".")
	if strings.EqualFold(trimmed, NotInText) {
		return NotInText
	}
	return Answer(s)
}

func grounded(answer, contextText string) bool {
	words := map[string]bool{}
	for _, w := range contentWords(contextText) {
		words[w] = true
	}
	for _, w := range contentWords(answer) {
		if words[w] {
			return true
		}
	}
	return false
}

// contentWords returns the lowercased words of s longer than three letters.
func contentWords(s string) (words []string) {
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len([]rune(w)) > 3 {
			words = append(words, w)
		}
	}
	return words
}
