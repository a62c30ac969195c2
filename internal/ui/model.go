// Package ui is the terminal chat surface. It renders the conversation,
// collects questions and keeps a single request in flight at a time; all
// answer shaping happens in the usecase layer.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sermon-agent/internal/domain"
	"sermon-agent/internal/usecase"
)

// Asker is the slice of the ask service the chat view depends on.
type Asker interface {
	Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error)
	Prompts(ctx context.Context) (usecase.PromptsOutput, error)
	FallbackNotice(ctx context.Context) (string, error)
}

type (
	promptsMsg struct {
		out usecase.PromptsOutput
		err error
	}
	replyMsg struct {
		message domain.Message
	}
	failMsg struct {
		notice string
		err    error
	}
)

// Model is the Bubble Tea model for the chat view.
type Model struct {
	asker Asker

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	state   *domain.State
	prompts usecase.PromptsOutput

	ready  bool
	width  int
	height int
}

// NewModel creates the chat view around an ask service.
func NewModel(asker Asker) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about a teaching..."
	ta.CharLimit = 2000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle = ta.FocusedStyle

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = loadingStyle

	return Model{
		asker:    asker,
		textarea: ta,
		spinner:  sp,
		state:    domain.NewState(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.loadPrompts())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 2
		inputHeight := 4
		statusHeight := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight
		if vpHeight < 5 {
			vpHeight = 5
		}
		contentWidth := m.width - 4
		if contentWidth < 20 {
			contentWidth = 20
		}

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth)
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			if !m.state.Loading() {
				return m, tea.Quit
			}

		case "enter":
			if cmd := m.trySubmit(strings.TrimSpace(m.textarea.Value())); cmd != nil {
				m.textarea.Reset()
				return m, tea.Batch(cmd, m.spinner.Tick)
			}

		default:
			// Digit keys pick a starter prompt before the first exchange.
			if text, ok := m.starterFor(msg.String()); ok {
				if cmd := m.trySubmit(text); cmd != nil {
					return m, tea.Batch(cmd, m.spinner.Tick)
				}
			}
		}

	case promptsMsg:
		if msg.err == nil {
			m.prompts = msg.out
			// Seed the transcript so the disclaimer stays visible once
			// dialogue scrolls in.
			if msg.out.Disclaimer != "" && len(m.state.Messages()) == 0 {
				m.state.Append(domain.NewSystemNotice(msg.out.Disclaimer))
			}
		}
		m.refreshViewport()

	case replyMsg:
		m.state.Finish("")
		m.state.Append(msg.message)
		m.refreshViewport()
		m.viewport.GotoBottom()

	case failMsg:
		m.state.Finish(msg.err.Error())
		m.state.Append(domain.NewSystemNotice(msg.notice))
		m.refreshViewport()
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		if m.state.Loading() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if !m.state.Loading() {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Starting...")
	}

	var sections []string
	contentWidth := m.width - 4
	if contentWidth < 20 {
		contentWidth = 20
	}

	header := lipgloss.JoinHorizontal(
		lipgloss.Center,
		titleStyle.Render("Koinonia Archive"),
		hintStyle.Render("  |  "),
		subtitleStyle.Render("teachings of Apostle Joshua Selman"),
	)
	sections = append(sections, header, "")

	if m.state.HasDialogue() {
		sections = append(sections, m.viewport.View())
	} else {
		sections = append(sections, m.renderWelcome())
	}

	if m.state.Loading() {
		sections = append(sections, m.spinner.View()+loadingStyle.Render(" Searching the archive..."))
	} else {
		sections = append(sections, m.textarea.View())
	}

	sections = append(sections, m.renderStatusBar())

	if errText := m.state.Err(); errText != "" {
		sections = append(sections, errorStyle.Render("error: "+errText))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// trySubmit appends the question and starts the request. It returns nil when
// the question is empty or a request is already in flight.
func (m *Model) trySubmit(question string) tea.Cmd {
	if question == "" || !m.state.Begin() {
		return nil
	}
	history := m.state.Messages()
	m.state.Append(domain.NewUserMessage(question))
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m.ask(question, history)
}

// starterFor maps a digit key to a starter prompt. Starters are only offered
// before the first exchange and only while the input is empty.
func (m Model) starterFor(key string) (string, bool) {
	if m.state.HasDialogue() || m.textarea.Value() != "" {
		return "", false
	}
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return "", false
	}
	idx := int(key[0] - '1')
	if idx >= len(m.prompts.Suggestions) {
		return "", false
	}
	return m.prompts.Suggestions[idx].Text, true
}

func (m Model) ask(question string, history []domain.Message) tea.Cmd {
	asker := m.asker
	return func() tea.Msg {
		ctx := context.Background()
		out, err := asker.Ask(ctx, usecase.AskInput{Question: question, History: history})
		if err != nil {
			notice, noticeErr := asker.FallbackNotice(ctx)
			if noticeErr != nil || notice == "" {
				notice = "Something went wrong. Please try again."
			}
			return failMsg{notice: notice, err: err}
		}
		return replyMsg{message: domain.NewAssistantMessage(out.Answer, out.Sources)}
	}
}

func (m Model) loadPrompts() tea.Cmd {
	asker := m.asker
	return func() tea.Msg {
		out, err := asker.Prompts(context.Background())
		return promptsMsg{out: out, err: err}
	}
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderMessages(m.state.Messages()))
}

func (m Model) renderWelcome() string {
	var b strings.Builder
	if m.prompts.Disclaimer != "" {
		b.WriteString(noticeStyle.Render(m.prompts.Disclaimer))
		b.WriteString("\n\n")
	}
	if len(m.prompts.Suggestions) > 0 {
		b.WriteString(hintStyle.Render("Try one of these:"))
		b.WriteString("\n")
		for i, p := range m.prompts.Suggestions {
			b.WriteString(fmt.Sprintf("  %s %s\n", promptKeyStyle.Render(fmt.Sprintf("[%d]", i+1)), p.Title))
		}
	}
	return b.String()
}

func (m Model) renderStatusBar() string {
	shortcuts := []string{
		promptKeyStyle.Render("Enter") + hintStyle.Render(" send"),
		promptKeyStyle.Render("Esc") + hintStyle.Render(" quit"),
	}
	if !m.state.HasDialogue() && len(m.prompts.Suggestions) > 0 {
		shortcuts = append(shortcuts, promptKeyStyle.Render("1-"+fmt.Sprint(len(m.prompts.Suggestions)))+hintStyle.Render(" starter"))
	}
	return hintStyle.Render(strings.Join(shortcuts, "  |  "))
}

// renderMessages formats the transcript for the viewport.
func renderMessages(messages []domain.Message) string {
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case domain.RoleUser:
			b.WriteString(userLabelStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
		case domain.RoleAssistant:
			b.WriteString(assistantLabelStyle.Render("Archive"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
			if lines := sourceLines(msg.Sources); lines != "" {
				b.WriteString("\n")
				b.WriteString(sourceStyle.Render(lines))
			}
		default:
			b.WriteString(noticeStyle.Render(msg.Content))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// sourceLines formats the citation list shown under an answer.
func sourceLines(sources []domain.SourceReference) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Sources:")
	for i, s := range sources {
		b.WriteString(fmt.Sprintf("\n  %d. %s (%s)\n     %s", i+1, s.Title, s.Speaker, s.URI))
	}
	return b.String()
}

// Run starts the chat view in the alternate screen.
func Run(asker Asker) error {
	p := tea.NewProgram(NewModel(asker), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
