// Package tui is the bundled terminal frontend for the triage dashboard
// engine. It renders the ticket list, the metrics header, the decision
// trace pane with its replay animation, and the override form, and maps
// keyboard input onto engine operations.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clearqueue/clearqueue/internal/model"
	"github.com/clearqueue/clearqueue/internal/store"
	"github.com/clearqueue/clearqueue/internal/trace"
)

// Engine is the slice of the dashboard engine the TUI drives. The root
// clearqueue.Engine satisfies it.
type Engine interface {
	Snapshot() store.Snapshot
	Player() *trace.Player
	Refresh(ctx context.Context) error
	SetFilter(ctx context.Context, f model.Filter) error
	Select(ctx context.Context, t model.Ticket)
	SubmitOverride(ctx context.Context, ticketID, responseText, reason string) error
}

// engineChangedMsg is delivered whenever the engine's observable state
// changed (poll completion, replay tick, load transition). The TUI
// re-reads snapshots and redraws.
type engineChangedMsg struct{}

// actionDoneMsg is sent when an asynchronous engine call completes. On
// error the message is displayed in the status bar.
type actionDoneMsg struct {
	err error
}

// noticeFadeMsg clears a transient status bar notice after a delay.
type noticeFadeMsg struct{}

// noticeFadeDelay is how long transient notices stay visible. A variable so
// tests can shorten the fade timer.
var noticeFadeDelay = 4 * time.Second

// overrideField identifies which input in the override form has focus.
type overrideField int

const (
	fieldResponse overrideField = iota
	fieldReason
)

// Model is the bubbletea model for the dashboard. All engine calls that can
// block on the network run inside tea.Cmd goroutines; Update itself only
// reads snapshots and mutates view state.
type Model struct {
	engine  Engine
	changed <-chan struct{}
	keys    KeyMap
	theme   Theme

	width  int
	height int

	cursor     int // index into the current snapshot's ticket slice
	stepCursor int // highlighted step in the trace pane

	overrideOpen  bool
	overrideID    string
	overrideFocus overrideField
	responseInput textinput.Model
	reasonInput   textinput.Model

	notice    string
	noticeErr bool
}

// New constructs the dashboard model. changed must be the channel the
// engine's OnChange callback signals; the model listens on it for the
// lifetime of the program.
func New(engine Engine, changed <-chan struct{}) Model {
	response := textinput.New()
	response.Placeholder = "Replacement response"
	response.CharLimit = 2000

	reason := textinput.New()
	reason.Placeholder = "Reason (optional)"
	reason.CharLimit = 500

	return Model{
		engine:        engine,
		changed:       changed,
		keys:          DefaultKeyMap,
		theme:         DefaultTheme,
		responseInput: response,
		reasonInput:   reason,
	}
}

// Init implements tea.Model. Starts the engine change listener and selects
// the first ticket if the initial fetch already produced one.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForChange(m.changed)}
	if snap := m.engine.Snapshot(); len(snap.Tickets) > 0 {
		cmds = append(cmds, selectTicket(m.engine, snap.Tickets[0]))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case engineChangedMsg:
		m.clampCursor()
		return m, waitForChange(m.changed)

	case actionDoneMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			m.noticeErr = true
			return m, fadeNotice()
		}
		return m, nil

	case noticeFadeMsg:
		m.notice = ""
		m.noticeErr = false
		return m, nil

	case tea.KeyMsg:
		if m.overrideOpen {
			return m.handleOverrideKeys(msg)
		}
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.engine.Snapshot()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.stepCursor = 0
			return m, selectTicket(m.engine, snap.Tickets[m.cursor])
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(snap.Tickets)-1 {
			m.cursor++
			m.stepCursor = 0
			return m, selectTicket(m.engine, snap.Tickets[m.cursor])
		}

	case key.Matches(msg, m.keys.FilterAll):
		return m.applyFilter(model.FilterAll)
	case key.Matches(msg, m.keys.FilterPending):
		return m.applyFilter(model.FilterPending)
	case key.Matches(msg, m.keys.FilterAutoResolved):
		return m.applyFilter(model.FilterAutoResolved)
	case key.Matches(msg, m.keys.FilterEscalated):
		return m.applyFilter(model.FilterEscalated)

	case key.Matches(msg, m.keys.Refresh):
		eng := m.engine
		return m, func() tea.Msg { return actionDoneMsg{err: eng.Refresh(context.Background())} }

	case key.Matches(msg, m.keys.Replay):
		player := m.engine.Player()
		if player.Snapshot().State == trace.StateReplaying {
			player.StopReplay()
		} else if err := player.StartReplay(); err != nil {
			m.notice = err.Error()
			m.noticeErr = true
			return m, fadeNotice()
		}
		return m, nil

	case key.Matches(msg, m.keys.StepUp):
		if m.stepCursor > 0 {
			m.stepCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.StepDown):
		if m.stepCursor < len(m.engine.Player().Snapshot().Steps)-1 {
			m.stepCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleStep):
		m.engine.Player().ToggleStep(m.stepCursor)
		return m, nil

	case key.Matches(msg, m.keys.Override):
		return m.openOverride(snap)
	}
	return m, nil
}

// applyFilter resets the list cursor and issues the filter change. The
// engine refetches under the new filter; results arrive via the change
// listener.
func (m Model) applyFilter(f model.Filter) (tea.Model, tea.Cmd) {
	m.cursor = 0
	m.stepCursor = 0
	eng := m.engine
	return m, func() tea.Msg { return actionDoneMsg{err: eng.SetFilter(context.Background(), f)} }
}

// openOverride opens the override form for the selected ticket. Overrides
// replace an automatic response, so only auto-resolved tickets qualify.
func (m Model) openOverride(snap store.Snapshot) (tea.Model, tea.Cmd) {
	if m.cursor >= len(snap.Tickets) {
		return m, nil
	}
	t := snap.Tickets[m.cursor]
	if t.Status() != model.StatusAutoResolved {
		m.notice = "only auto-resolved tickets can be overridden"
		m.noticeErr = true
		return m, fadeNotice()
	}
	m.overrideOpen = true
	m.overrideID = t.ID
	m.overrideFocus = fieldResponse
	m.responseInput.SetValue("")
	m.reasonInput.SetValue("")
	m.reasonInput.Blur()
	return m, m.responseInput.Focus()
}

func (m Model) handleOverrideKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.overrideOpen = false
		m.responseInput.Blur()
		m.reasonInput.Blur()
		return m, nil

	case msg.Type == tea.KeyTab:
		if m.overrideFocus == fieldResponse {
			m.overrideFocus = fieldReason
			m.responseInput.Blur()
			return m, m.reasonInput.Focus()
		}
		m.overrideFocus = fieldResponse
		m.reasonInput.Blur()
		return m, m.responseInput.Focus()

	case key.Matches(msg, m.keys.Submit):
		response := strings.TrimSpace(m.responseInput.Value())
		if response == "" {
			m.notice = "override response must not be empty"
			m.noticeErr = true
			return m, fadeNotice()
		}
		eng := m.engine
		id := m.overrideID
		reason := strings.TrimSpace(m.reasonInput.Value())
		m.overrideOpen = false
		m.responseInput.Blur()
		m.reasonInput.Blur()
		m.notice = "override submitted for " + id
		m.noticeErr = false
		return m, tea.Batch(
			func() tea.Msg { return actionDoneMsg{err: eng.SubmitOverride(context.Background(), id, response, reason)} },
			fadeNotice(),
		)
	}

	var cmd tea.Cmd
	if m.overrideFocus == fieldResponse {
		m.responseInput, cmd = m.responseInput.Update(msg)
	} else {
		m.reasonInput, cmd = m.reasonInput.Update(msg)
	}
	return m, cmd
}

// clampCursor keeps the list cursor inside the collection after a refresh
// shrinks or reorders it.
func (m *Model) clampCursor() {
	n := len(m.engine.Snapshot().Tickets)
	if n == 0 {
		m.cursor = 0
		return
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return engineChangedMsg{}
	}
}

// selectTicket loads a ticket's trace into the player. Load blocks on the
// trace fetch, so it runs as a command rather than inside Update.
func selectTicket(eng Engine, t model.Ticket) tea.Cmd {
	return func() tea.Msg {
		eng.Select(context.Background(), t)
		return actionDoneMsg{}
	}
}

func fadeNotice() tea.Cmd {
	return tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg { return noticeFadeMsg{} })
}
