package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pulseiq/pulseiq-rag/internal/adapters/driving/tui/keymap"
	"github.com/pulseiq/pulseiq-rag/internal/adapters/driving/tui/styles"
	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// Rows taken by everything except the transcript: header, status line,
// bordered input and help.
const chromeHeight = 7

const emptyTranscript = "Ask a question about your health. Answers draw on your uploaded records when available."

// turn is one question and its outcome.
type turn struct {
	question     string
	answer       string
	personalized bool
	err          error
	saveErr      error
	done         bool
}

// App is the chat session model following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports   *Ports
	session Session
	ctx     context.Context
	styles  *styles.Styles
	keys    *keymap.KeyMap

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model

	turns   []turn
	pending bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a chat session for session.UserID.
func NewApp(ports *Ports, session Session) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if !domain.ValidUserID(session.UserID) {
		return nil, ErrMissingUserID
	}

	ti := textinput.New()
	ti.Placeholder = "Ask a medical question..."
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	a := &App{
		ports:    ports,
		session:  session,
		ctx:      context.Background(),
		styles:   styles.DefaultStyles(),
		keys:     keymap.DefaultKeyMap(),
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		help:     help.New(),
	}
	a.refresh()
	return a, nil
}

// WithContext sets the context used for chat calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tea.SetWindowTitle("PulseIQ"),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Clear):
			a.turns = nil
			a.refresh()
			return a, nil
		case key.Matches(msg, a.keys.ScrollUp), key.Matches(msg, a.keys.ScrollDown):
			a.viewport, cmd = a.viewport.Update(msg)
			return a, cmd
		case key.Matches(msg, a.keys.Send):
			return a, a.submit()
		}

	case answerReceived:
		a.complete(msg)
		return a, nil

	case spinner.TickMsg:
		if !a.pending {
			return a, nil
		}
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// submit starts a chat call for the typed question.
func (a *App) submit() tea.Cmd {
	question := strings.TrimSpace(a.input.Value())
	if question == "" || a.pending {
		return nil
	}

	a.turns = append(a.turns, turn{question: question})
	a.pending = true
	a.input.Reset()
	a.refresh()

	return tea.Batch(a.ask(question), a.spinner.Tick)
}

// ask returns a command that answers question and records the exchange.
func (a *App) ask(question string) tea.Cmd {
	ctx := a.ctx
	chat, history := a.ports.Chat, a.ports.History
	req := domain.ChatRequest{
		UserID:    a.session.UserID,
		Question:  question,
		Telemetry: a.session.Telemetry,
	}

	return func() tea.Msg {
		answer, err := chat.Chat(ctx, req)
		if err != nil {
			return answerReceived{err: err}
		}

		msg := answerReceived{answer: answer}
		if history != nil {
			_, msg.saveErr = history.SaveChat(ctx, domain.ChatEntry{
				UserID:           answer.UserID,
				Question:         question,
				Response:         answer.Response,
				PersonalizedMode: answer.Personalized,
			})
		}
		return msg
	}
}

// complete fills the pending turn with msg.
func (a *App) complete(msg answerReceived) {
	a.pending = false
	if len(a.turns) == 0 {
		return
	}

	t := &a.turns[len(a.turns)-1]
	t.done = true
	t.err = msg.err
	t.saveErr = msg.saveErr
	if msg.answer != nil {
		t.answer = msg.answer.Response
		t.personalized = msg.answer.Personalized
	}
	a.refresh()
}

// refresh re-renders the transcript and keeps the newest turn in view.
func (a *App) refresh() {
	a.viewport.SetContent(a.renderTranscript())
	a.viewport.GotoBottom()
}

func (a *App) renderTranscript() string {
	if len(a.turns) == 0 {
		return a.styles.Muted.Render(emptyTranscript)
	}

	width := a.viewport.Width - 2
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	for i, t := range a.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(a.styles.Question.Render("You: "))
		b.WriteString(t.question)
		b.WriteString("\n")

		switch {
		case !t.done:
			b.WriteString(a.styles.Muted.Render("  ..."))
		case t.err != nil:
			b.WriteString(a.styles.Error.Render("  Error: " + t.err.Error()))
		default:
			if t.personalized {
				b.WriteString(a.styles.Personalized.Render("  (from your records)"))
				b.WriteString("\n")
			}
			b.WriteString(a.styles.Answer.Width(width).Render(t.answer))
			if t.saveErr != nil {
				b.WriteString("\n")
				b.WriteString(a.styles.Error.Render("  Not saved: " + t.saveErr.Error()))
			}
		}
	}
	return b.String()
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	header := a.styles.Title.Render("PulseIQ") + a.styles.Muted.Render("  user "+a.session.UserID)

	status := ""
	if a.pending {
		status = a.spinner.View() + a.styles.Muted.Render(" thinking...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		a.viewport.View(),
		status,
		a.styles.InputField.Render(a.input.View()),
		a.help.ShortHelpView(a.keys.ShortHelp()),
	)
}

// Run starts the chat session and blocks until the user quits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// SetDimensions sizes the transcript and input to the terminal.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	a.viewport.Width = width
	a.viewport.Height = max(height-chromeHeight, 3)
	a.input.Width = max(width-6, 20)
	a.help.Width = width
	a.refresh()
}

// Pending returns true while a question is awaiting its answer.
func (a *App) Pending() bool {
	return a.pending
}

// Ready returns whether the app has been sized.
func (a *App) Ready() bool {
	return a.ready
}
