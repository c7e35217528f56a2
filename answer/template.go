package answer

import (
	"fmt"
	"strings"

	"github.com/a-h/pdfqa"
	"github.com/tmc/langchaingo/prompts"
)

// DefaultTemplate asks the model to answer only from the context.
const DefaultTemplate = `Answer the following question from the provided context. Provide the answer in the context of the text. If the answer is not in the text, write "Answer not in text".

Context:
{{.context}}

Question:
{{.question}}

Answer:
`

// Template renders the prompt from named context and question slots.
type Template struct {
	pt prompts.PromptTemplate
}

// NewTemplate parses a Go text/template with {{.context}} and {{.question}}
// slots. The template is rendered once with marker values to check that
// both slots are used and that it names the fallback answer.
func NewTemplate(text string) (t Template, err error) {
	t.pt = prompts.NewPromptTemplate(text, []string{"context", "question"})
	const contextMarker, questionMarker = "\x00context\x00", "\x00question\x00"
	rendered, err := t.Format(questionMarker, contextMarker)
	if err != nil {
		return t, fmt.Errorf("%w: invalid prompt template: %w", pdfqa.ErrConfiguration, err)
	}
	if !strings.Contains(rendered, contextMarker) {
		return t, fmt.Errorf("%w: prompt template does not use {{.context}}", pdfqa.ErrConfiguration)
	}
	if !strings.Contains(rendered, questionMarker) {
		return t, fmt.Errorf("%w: prompt template does not use {{.question}}", pdfqa.ErrConfiguration)
	}
	if !strings.Contains(rendered, NotInText) {
		return t, fmt.Errorf("%w: prompt template must instruct the model to reply %q", pdfqa.ErrConfiguration, NotInText)
	}
	return t, nil
}

// MustNewTemplate is NewTemplate for templates known to be valid.
func MustNewTemplate(text string) Template {
	t, err := NewTemplate(text)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Template) Format(question, contextText string) (string, error) {
	return t.pt.Format(map[string]any{
		"context":  contextText,
		"question": question,
	})
}
