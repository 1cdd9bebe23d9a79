// Package tui is the interactive terminal chat over the retrieval service.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
)

// ChatFunc answers one question
type ChatFunc func(ctx context.Context, question string) (*model.ChatResponse, error)

// answerMsg carries a finished chat call back to the model
type answerMsg struct {
	question string
	resp     *model.ChatResponse
	err      error
}

type turn struct {
	question string
	answer   string
	sources  []string
	err      error
}

// Model is the Bubble Tea model for the chat screen
type Model struct {
	ctx      context.Context
	chat     ChatFunc
	title    string
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	history  []turn
	pending  string
	ready    bool
}

// New creates a chat model. title is shown in the header.
func New(ctx context.Context, chat ChatFunc, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = pendingStyle

	return Model{
		ctx:      ctx,
		chat:     chat,
		title:    title,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
	}
}

// Init starts the cursor blink
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, frame := historyBoxStyle.GetFrameSize()
		_, inputFrame := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + inputFrame + 1 // header, status, input line
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-frame)
		m.input.Width = max(10, msg.Width-6)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		t := turn{question: msg.question, err: msg.err}
		if msg.resp != nil {
			t.answer = msg.resp.Answer
			t.sources = msg.resp.Sources
		}
		m.history = append(m.history, t)
		m.pending = ""
		m.input.Focus()
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if m.pending == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	question := strings.TrimSpace(m.input.Value())
	if question == "" || m.pending != "" {
		return m, nil
	}

	m.pending = question
	m.input.Reset()
	m.input.Blur()
	m.refresh()

	return m, tea.Batch(m.spinner.Tick, m.ask(question))
}

func (m Model) ask(question string) tea.Cmd {
	ctx, chat := m.ctx, m.chat
	return func() tea.Msg {
		resp, err := chat(ctx, question)
		return answerMsg{question: question, resp: resp, err: err}
	}
}

// Pending reports whether a question is awaiting its answer
func (m Model) Pending() bool { return m.pending != "" }

// Transcript renders the conversation so far without styling
func (m Model) Transcript() string {
	var b strings.Builder
	for _, t := range m.history {
		fmt.Fprintf(&b, "You: %s\n", t.question)
		if t.err != nil {
			fmt.Fprintf(&b, "Error: %v\n\n", t.err)
			continue
		}
		fmt.Fprintf(&b, "Bot: %s\n", t.answer)
		for _, src := range t.sources {
			fmt.Fprintf(&b, "  - %s\n", src)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 && m.pending == "" {
		return hintStyle.Render("No questions yet.")
	}

	width := max(20, m.viewport.Width-2)
	var b strings.Builder
	for _, t := range m.history {
		b.WriteString(questionStyle.Render("You: "+t.question) + "\n")
		if t.err != nil {
			b.WriteString(errorStyle.Width(width).Render("Error: "+t.err.Error()) + "\n\n")
			continue
		}
		b.WriteString(lipgloss.NewStyle().Width(width).Render(t.answer) + "\n")
		for _, src := range t.sources {
			b.WriteString(sourceStyle.Render("  ↳ "+src) + "\n")
		}
		b.WriteString("\n")
	}
	if m.pending != "" {
		b.WriteString(questionStyle.Render("You: "+m.pending) + "\n")
	}
	return b.String()
}

// View renders the layout
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := titleStyle.Render(m.title)
	status := hintStyle.Render("Enter to ask, PgUp/PgDn to scroll, Esc to quit")
	if m.pending != "" {
		status = m.spinner.View() + pendingStyle.Render(" Thinking...")
	}

	return header + "\n" +
		historyBoxStyle.Render(m.viewport.View()) + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		status
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	sourceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	pendingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Run starts the full-screen chat program and blocks until the user quits
func Run(ctx context.Context, chat ChatFunc, title string) error {
	p := tea.NewProgram(New(ctx, chat, title), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
