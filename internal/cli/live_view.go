package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexanderramin/feedlog/internal/backend"
	"github.com/alexanderramin/feedlog/internal/cli/formatter"
	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/alexanderramin/feedlog/internal/store"
)

type liveKeyMap struct {
	Pause   key.Binding
	Switch  key.Binding
	End     key.Binding
	Discard key.Binding
	Quit    key.Binding
}

func newLiveKeyMap() liveKeyMap {
	return liveKeyMap{
		Pause:   key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause/resume")),
		Switch:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "switch side")),
		End:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "end & save")),
		Discard: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "discard")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit (keeps timing)")),
	}
}

func (k liveKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Switch, k.End, k.Discard, k.Quit}
}

func (k liveKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// tickMsg carries the id of the tick chain that produced it. Ticks from a
// cancelled chain are dropped, so at most one chain is ever live.
type tickMsg struct {
	id int
	at time.Time
}

type liveChangedMsg struct {
	live *domain.LiveSession
	err  error
}

type liveEndedMsg struct {
	session domain.FeedingSession
	err     error
}

type liveDiscardedMsg struct{ err error }

// liveModel is the full-screen live feeding timer.
type liveModel struct {
	ctx   context.Context
	store *store.Store
	now   func() time.Time
	loc   *time.Location

	live   *domain.LiveSession
	tickID int
	// schedule returns the command delivering the next tick of chain id.
	schedule func(id int) tea.Cmd

	keys liveKeyMap
	help help.Model

	confirmDiscard bool
	status         string
	err            error
	saved          *domain.FeedingSession
	discarded      bool
	width          int
}

func newLiveModel(ctx context.Context, app *App, live *domain.LiveSession) liveModel {
	return liveModel{
		ctx:      ctx,
		store:    app.Store,
		now:      app.Now,
		loc:      app.Location,
		live:     live,
		schedule: everySecond,
		keys:     newLiveKeyMap(),
		help:     help.New(),
	}
}

func everySecond(id int) tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg{id: id, at: t}
	})
}

func (m liveModel) done() bool {
	return m.saved != nil || m.discarded
}

func (m liveModel) Init() tea.Cmd {
	if m.live.Paused {
		return nil
	}
	return m.schedule(m.tickID)
}

// restartTicks cancels the current tick chain and, when the timer is
// running, starts a new one.
func (m *liveModel) restartTicks() tea.Cmd {
	m.tickID++
	if m.done() || m.live.Paused {
		return nil
	}
	return m.schedule(m.tickID)
}

func (m liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if msg.id != m.tickID || m.done() || m.live.Paused {
			return m, nil
		}
		return m, m.schedule(m.tickID)

	case liveChangedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.live = msg.live
		return m, m.restartTicks()

	case liveEndedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.saved = &msg.session
		m.tickID++
		return m, tea.Quit

	case liveDiscardedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.discarded = true
		m.tickID++
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m liveModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmDiscard {
		m.confirmDiscard = false
		if key.Matches(msg, m.keys.Discard) {
			return m, m.discardCmd()
		}
		m.status = "Discard cancelled."
		return m, nil
	}
	m.status = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.tickID++
		return m, tea.Quit
	case key.Matches(msg, m.keys.Pause):
		if m.live.Paused {
			return m, m.mutateCmd(m.store.ResumeLive)
		}
		return m, m.mutateCmd(m.store.PauseLive)
	case key.Matches(msg, m.keys.Switch):
		return m, m.mutateCmd(m.store.SwitchSide)
	case key.Matches(msg, m.keys.End):
		return m, m.endCmd()
	case key.Matches(msg, m.keys.Discard):
		m.confirmDiscard = true
		m.status = "Press d again to discard this feeding, any other key to keep it."
		return m, nil
	}
	return m, nil
}

func (m liveModel) mutateCmd(fn func(context.Context) (*domain.LiveSession, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		l, err := fn(ctx)
		return liveChangedMsg{live: l, err: err}
	}
}

func (m liveModel) endCmd() tea.Cmd {
	ctx, s := m.ctx, m.store
	return func() tea.Msg {
		sess, err := s.EndLive(ctx, store.EndOptions{})
		return liveEndedMsg{session: sess, err: err}
	}
}

func (m liveModel) discardCmd() tea.Cmd {
	ctx, s := m.ctx, m.store
	return func() tea.Msg {
		return liveDiscardedMsg{err: s.DiscardLive(ctx)}
	}
}

func (m liveModel) View() string {
	now := m.now().In(m.loc)
	var b strings.Builder
	b.WriteString(formatter.RenderBox("Live feeding", formatter.LiveStatus(m.live, now)))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(formatter.StyleRed.Render("Error: " + m.err.Error()))
		if hint := liveHint(m.err); hint != "" {
			b.WriteString("\n" + formatter.Dim(hint))
		}
		b.WriteString("\n")
	case m.status != "":
		b.WriteString(formatter.StyleYellow.Render(m.status) + "\n")
	}

	if m.live.Elapsed(now) > time.Duration(domain.MaxDurationMin)*time.Minute {
		b.WriteString(formatter.Warning(fmt.Sprintf(
			"Over %d minutes. End with 'feedlog live end --duration N' or discard.",
			domain.MaxDurationMin)) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func liveHint(err error) string {
	if errors.Is(err, domain.ErrValidation) {
		return ""
	}
	return backend.Hint(err)
}
