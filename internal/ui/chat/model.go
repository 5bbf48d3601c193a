// Package chat is the terminal chat screen: one input line, one send action and
// a display area holding the latest reply or error.
package chat

import (
	"context"

	"github.com/birdlaw/amlazy/internal/services"
	"github.com/birdlaw/amlazy/pkg/logger"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

const (
	Title          = "AI Chat Bot"
	WelcomeMessage = "Welcome to AI Chat Bot. Ask me anything!"
	Placeholder    = "Ask me anything..."

	defaultWidth  = 80
	defaultHeight = 20

	// rows taken by title, input, hint and margins
	chromeHeight = 7
)

type phase int

const (
	phaseIdle phase = iota
	phaseAwaiting
)

// replyMsg carries the outcome of one send action
type replyMsg struct {
	content string
	err     error
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	provider services.RelayProvider
	keys     KeyMap

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	display string
	phase   phase
}

// New builds the chat screen. Every send asks provider for a fresh relay.
func New(provider services.RelayProvider) Model {
	input := textinput.New()
	input.Placeholder = Placeholder
	input.Focus()

	m := Model{
		provider: provider,
		keys:     DefaultKeyMap(),
		input:    input,
		viewport: viewport.New(defaultWidth, defaultHeight),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		display:  WelcomeMessage,
		phase:    phaseIdle,
	}
	m.renderer = newRenderer(defaultWidth)
	m.refreshDisplay()
	return m
}

// Display returns the current display text, before markdown rendering.
func (m Model) Display() string {
	return m.display
}

// Input returns the current input text.
func (m Model) Input() string {
	return m.input.Value()
}

// Awaiting reports whether a send is in flight.
func (m Model) Awaiting() bool {
	return m.phase == phaseAwaiting
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case replyMsg:
		return m.handleReply(msg), nil

	case spinner.TickMsg:
		if m.phase != phaseAwaiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.input.Width = max(msg.Width-4, 1)
		m.renderer = newRenderer(msg.Width)
		m.refreshDisplay()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		if m.phase == phaseAwaiting {
			l := logger.Component(logger.UI)
			l.Debug().Msg("Send ignored while a reply is pending")
			return m, nil
		}
		m.phase = phaseAwaiting
		return m, tea.Batch(m.spinner.Tick, m.send(m.input.Value()))

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleReply(msg replyMsg) Model {
	m.phase = phaseIdle
	if msg.err != nil {
		m.display = "Error: " + msg.err.Error()
	} else {
		m.display = msg.content
		m.input.Reset()
	}
	m.refreshDisplay()
	return m
}

// send relays prompt verbatim, empty or not.
func (m Model) send(prompt string) tea.Cmd {
	provider := m.provider
	return func() tea.Msg {
		relaySvc, err := provider.NewRelay()
		if err != nil {
			return replyMsg{err: err}
		}
		content, err := relaySvc.Ask(context.Background(), prompt)
		if err != nil {
			return replyMsg{err: err}
		}
		return replyMsg{content: content}
	}
}

func (m *Model) refreshDisplay() {
	m.viewport.SetContent(renderMarkdown(m.renderer, m.display))
	m.viewport.GotoTop()
}

func newRenderer(width int) *glamour.TermRenderer {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		l := logger.Component(logger.UI)
		l.Warn().Err(err).Msg("Markdown renderer unavailable, showing plain text")
		return nil
	}
	return renderer
}

// renderMarkdown falls back to the raw text when rendering is unavailable
func renderMarkdown(renderer *glamour.TermRenderer, content string) string {
	if renderer == nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
