package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/a-h/pdfqa/client"
	"github.com/a-h/pdfqa/models"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type ChatCommand struct {
	ServerURL string `help:"The URL of the pdfqa server." env:"PDFQA_SERVER_URL" default:"http://localhost:9020"`
	Sources   bool   `help:"Show the passages each answer was drawn from." default:"false"`
}

func (c ChatCommand) Run(ctx context.Context) (err error) {
	pc := client.New(c.ServerURL)

	toServer := make(chan string)
	fromServer := make(chan []message)
	errors := make(chan error)

	go func() {
		var conversation []message
		for question := range toServer {
			conversation = append(conversation, message{Role: roleHuman, Content: question})
			resp, err := pc.QueryPost(ctx, models.QueryPostRequest{Text: question})
			if err != nil {
				errors <- err
				continue
			}
			conversation = append(conversation, message{Role: roleAI, Content: formatAnswer(resp, c.Sources)})
			fromServer <- slices.Clone(conversation)
		}
	}()

	p := tea.NewProgram(newModel(ctx, toServer, fromServer, errors))
	if _, err = p.Run(); err != nil {
		return err
	}
	return nil
}

func formatAnswer(resp models.QueryPostResponse, sources bool) string {
	if !sources || !resp.Found {
		return resp.Answer
	}
	var sb strings.Builder
	sb.WriteString(resp.Answer)
	for _, s := range resp.Sources {
		fmt.Fprintf(&sb, "\n\n[%d] %s", s.Position, s.Text)
	}
	return sb.String()
}

type role int

const (
	roleHuman role = iota
	roleAI
	roleError
)

type message struct {
	Role    role
	Content string
}

// Dracula color scheme.
var (
	Background  = lipgloss.Color("#282a36")
	CurrentLine = lipgloss.Color("#44475a")
	Cyan        = lipgloss.Color("#8be9fd")
	Pink        = lipgloss.Color("#ff79c6")
	Purple      = lipgloss.Color("#bd93f9")
	Red         = lipgloss.Color("#ff5555")
)

var headerStyle = lipgloss.NewStyle().Background(CurrentLine).Foreground(Purple).Bold(true).Margin(10).Padding(1).PaddingTop(0)

var header = `
             _  __            
 _ __   __| |/ _| __ _  __ _ 
| '_ \ / _' | |_ / _' |/ _' |
| |_) | (_| |  _| (_| | (_| |
| .__/ \__,_|_|  \__, |\__,_|
|_|                 |_|      

Ask questions about the uploaded documents.
`

type model struct {
	viewport viewport.Model
	textarea textarea.Model
	history  []message
	err      error
	ctx      context.Context

	toServer   chan string
	fromServer chan []message
	errors     chan error
}

func newModel(ctx context.Context, toServer chan string, fromServer chan []message, errors chan error) model {
	ta := textarea.New()
	ta.Placeholder = "Ask a question..."
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 280

	ta.SetHeight(3)

	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)
	vp.SetContent(headerStyle.Render(header))

	ta.KeyMap.InsertNewline.SetEnabled(false)

	return model{
		ctx:        ctx,
		textarea:   ta,
		viewport:   vp,
		toServer:   toServer,
		fromServer: fromServer,
		errors:     errors,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.subscribeToServer(),
		m.subscribeToErrors(),
	)
}

func (m model) subscribeToServer() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.fromServer:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m model) subscribeToErrors() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.errors:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m model) send(question string) tea.Cmd {
	return func() tea.Msg {
		select {
		case m.toServer <- question:
		case <-m.ctx.Done():
		}
		return nil
	}
}

var roleToStyle = map[role]lipgloss.Style{
	roleHuman: lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Pink),
	roleAI:    lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Cyan),
	roleError: lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Red),
}

var roleToIcon = map[role]string{
	roleHuman: "🥷",
	roleAI:    "📄",
	roleError: "⚠️",
}

func formatMessage(msg message) string {
	style, ok := roleToStyle[msg.Role]
	if !ok {
		return msg.Content
	}
	icon, ok := roleToIcon[msg.Role]
	if !ok {
		icon = "🤷"
	}
	wrapped := wordwrap.String(strings.TrimSpace(icon+" "+msg.Content), 80)
	return style.Render(wrapped)
}

func (m model) render() string {
	var sb strings.Builder
	for _, msg := range m.history {
		sb.WriteString(formatMessage(msg))
		sb.WriteString("\n")
	}
	if m.err != nil {
		sb.WriteString(formatMessage(message{Role: roleError, Content: m.err.Error()}))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case error:
		m.err = msg
		m.viewport.SetContent(m.render())
		m.viewport.GotoBottom()
		return m, m.subscribeToErrors()
	case []message:
		m.history = msg
		m.err = nil
		m.viewport.SetContent(m.render())
		m.viewport.GotoBottom()
		return m, m.subscribeToServer()
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.textarea.Height() - 3
		m.textarea.SetWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			v := strings.TrimSpace(m.textarea.Value())
			if v == "" {
				return m, nil
			}
			m.textarea.Reset()
			return m, m.send(v)
		default:
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}

	case cursor.BlinkMsg:
		// Textarea should also process cursor blinks.
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

func (m model) View() string {
	return fmt.Sprintf("%s\n\n%s",
		m.viewport.View(),
		m.textarea.View(),
	) + "\n\n"
}
