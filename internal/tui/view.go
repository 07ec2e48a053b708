package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/clearqueue/clearqueue/internal/model"
	"github.com/clearqueue/clearqueue/internal/store"
	"github.com/clearqueue/clearqueue/internal/trace"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	snap := m.engine.Snapshot()
	player := m.engine.Player().Snapshot()

	header := m.renderHeader(snap)
	tabs := m.renderTabs(snap.Filter)

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(tabs) - 1
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	listWidth := m.width * 45 / 100
	traceWidth := m.width - listWidth

	list := m.renderList(snap, listWidth, bodyHeight)
	var right string
	if m.overrideOpen {
		right = m.renderOverrideForm(traceWidth, bodyHeight)
	} else {
		right = m.renderTrace(player, traceWidth, bodyHeight)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, list, right)
	status := m.renderStatusBar(snap)

	return lipgloss.JoinVertical(lipgloss.Left, header, tabs, body, status)
}

func (m Model) renderHeader(snap store.Snapshot) string {
	title := lipgloss.NewStyle().
		Foreground(m.theme.HeaderForeground).
		Bold(true).
		Render("ClearQueue")

	k := snap.Metrics
	kpis := lipgloss.NewStyle().Foreground(m.theme.NormalText).Render(
		fmt.Sprintf("  total %d · pending %d · auto-resolved %d%% · escalated %d%% · avg conf %.2f",
			k.TotalTickets, k.PendingCount, k.AutoResolvedRate, k.EscalationRate, k.AvgConfidence))

	return lipgloss.NewStyle().Width(m.width).Render(title + kpis)
}

func (m Model) renderTabs(current model.Filter) string {
	active := lipgloss.NewStyle().
		Foreground(m.theme.SelectedForeground).
		Background(m.theme.SelectedBackground).
		Padding(0, 1)
	inactive := lipgloss.NewStyle().
		Foreground(m.theme.FaintText).
		Padding(0, 1)

	tabs := []struct {
		filter model.Filter
		label  string
	}{
		{model.FilterAll, "1:all"},
		{model.FilterPending, "2:pending"},
		{model.FilterAutoResolved, "3:auto-resolved"},
		{model.FilterEscalated, "4:escalated"},
	}

	parts := make([]string, 0, len(tabs))
	for _, tab := range tabs {
		style := inactive
		if tab.filter == current {
			style = active
		}
		parts = append(parts, style.Render(tab.label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderList(snap store.Snapshot, width, height int) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.BorderColor).
		Width(width - 2).
		Height(height - 2)

	if len(snap.Tickets) == 0 {
		empty := lipgloss.NewStyle().Foreground(m.theme.FaintText).Render("no tickets under this filter")
		return border.Render(empty)
	}

	rowWidth := width - 4
	var rows []string
	for i, t := range snap.Tickets {
		rows = append(rows, m.renderTicketRow(t, rowWidth, i == m.cursor))
	}
	// Keep the cursor visible when the list outgrows the pane.
	visible := height - 2
	if len(rows) > visible && visible > 0 {
		start := m.cursor - visible/2
		if start < 0 {
			start = 0
		}
		if start+visible > len(rows) {
			start = len(rows) - visible
		}
		rows = rows[start : start+visible]
	}
	return border.Render(strings.Join(rows, "\n"))
}

func (m Model) renderTicketRow(t model.Ticket, width int, selected bool) string {
	status := t.Status()
	statusPart := lipgloss.NewStyle().
		Foreground(m.theme.StatusColor(status)).
		Render(fmt.Sprintf("%-13s", status))
	priorityPart := lipgloss.NewStyle().
		Foreground(m.theme.PriorityColor(t.Priority)).
		Render(fmt.Sprintf("%-6s", t.Priority))

	conf := "  -  "
	if status != model.StatusPending {
		conf = fmt.Sprintf("%.2f", t.Confidence)
	}

	row := fmt.Sprintf("%-10s %s %s %s %s", t.ID, statusPart, priorityPart, t.Sentiment, conf)
	style := lipgloss.NewStyle().Width(width).MaxWidth(width)
	if selected {
		style = style.
			Foreground(m.theme.SelectedForeground).
			Background(m.theme.SelectedBackground)
	}
	return style.Render(row)
}

func (m Model) renderTrace(player trace.Snapshot, width, height int) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.BorderColor).
		Width(width - 2).
		Height(height - 2)

	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	switch player.State {
	case trace.StateIdle:
		return border.Render(faint.Render("select a ticket to inspect its decision trace"))
	case trace.StateLoading:
		return border.Render(faint.Render("loading trace for " + player.Ticket.ID + "..."))
	}

	title := lipgloss.NewStyle().
		Foreground(m.theme.HeaderForeground).
		Render("Decision trace · " + player.Ticket.ID)
	if player.State == trace.StateReplaying {
		title += faint.Render("  (replaying)")
	}

	lines := []string{title, ""}
	for i, step := range player.Steps {
		lines = append(lines, m.renderStep(player, i, step, width-4)...)
	}
	return border.Render(strings.Join(lines, "\n"))
}

func (m Model) renderStep(player trace.Snapshot, index int, step model.DecisionStep, width int) []string {
	// During replay, steps past the pointer are hidden rather than dimmed
	// so the pipeline appears to execute step by step.
	if player.State == trace.StateReplaying && index > player.ActiveIndex {
		return nil
	}

	marker := "  "
	if index == player.ActiveIndex && player.State == trace.StateReplaying {
		marker = "▶ "
	}

	line := fmt.Sprintf("%s%d. %-18s %-13s conf %.2f  %s", marker, index+1, step.Step, step.Action,
		step.Confidence, step.Timestamp.Format("15:04:05"))
	style := lipgloss.NewStyle().Width(width).MaxWidth(width).Foreground(m.theme.NormalText)
	if index == m.stepCursor {
		style = style.Background(m.theme.ActiveStepBackground)
	}
	lines := []string{style.Render(line)}

	if player.Expanded[index] {
		reasoning := lipgloss.NewStyle().
			Foreground(m.theme.FaintText).
			Width(width).
			Render("     " + step.Reasoning)
		lines = append(lines, reasoning)
	}
	return lines
}

func (m Model) renderOverrideForm(width, height int) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.StatusEscalated).
		Width(width - 2).
		Height(height - 2)

	title := lipgloss.NewStyle().
		Foreground(m.theme.HeaderForeground).
		Render("Override response · " + m.overrideID)
	help := lipgloss.NewStyle().
		Foreground(m.theme.HelpText).
		Render("tab: switch field · ctrl+d: submit · esc: cancel")

	return border.Render(strings.Join([]string{
		title,
		"",
		"Response:",
		m.responseInput.View(),
		"",
		"Reason:",
		m.reasonInput.View(),
		"",
		help,
	}, "\n"))
}

func (m Model) renderStatusBar(snap store.Snapshot) string {
	help := lipgloss.NewStyle().Foreground(m.theme.HelpText).
		Render("j/k: move · 1-4: filter · space: replay · enter: expand · o: override · r: refresh · q: quit")

	var left string
	switch {
	case m.notice != "" && m.noticeErr:
		left = lipgloss.NewStyle().Foreground(m.theme.ErrorForeground).Render(m.notice)
	case m.notice != "":
		left = lipgloss.NewStyle().Foreground(m.theme.NormalText).Render(m.notice)
	case snap.Err != nil:
		left = lipgloss.NewStyle().Foreground(m.theme.ErrorForeground).
			Render("backend unavailable: " + snap.Err.Error())
	case snap.Fallback:
		left = lipgloss.NewStyle().Foreground(m.theme.FallbackForeground).
			Render("backend unavailable · showing demo data")
	case !snap.LastSync.IsZero():
		left = lipgloss.NewStyle().Foreground(m.theme.FaintText).
			Render("synced " + snap.LastSync.Format("15:04:05"))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(help)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + help
}
