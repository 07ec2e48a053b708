package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/clearqueue/clearqueue/internal/model"
)

// Theme defines the color palette for the dashboard TUI. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Outcome colors.
	StatusPending      lipgloss.Color
	StatusInProgress   lipgloss.Color
	StatusAutoResolved lipgloss.Color
	StatusEscalated    lipgloss.Color

	// Priority colors.
	PriorityHigh   lipgloss.Color
	PriorityMedium lipgloss.Color
	PriorityLow    lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Replay: background tint for the active trace step.
	ActiveStepBackground lipgloss.Color

	// Notices.
	ErrorForeground    lipgloss.Color
	FallbackForeground lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText:           lipgloss.Color("252"),
	FaintText:            lipgloss.Color("243"),
	SelectedBackground:   lipgloss.Color("237"),
	SelectedForeground:   lipgloss.Color("255"),
	StatusPending:        lipgloss.Color("243"),
	StatusInProgress:     lipgloss.Color("75"),
	StatusAutoResolved:   lipgloss.Color("77"),
	StatusEscalated:      lipgloss.Color("208"),
	PriorityHigh:         lipgloss.Color("196"),
	PriorityMedium:       lipgloss.Color("220"),
	PriorityLow:          lipgloss.Color("114"),
	HeaderForeground:     lipgloss.Color("39"),
	BorderColor:          lipgloss.Color("240"),
	HelpText:             lipgloss.Color("241"),
	ActiveStepBackground: lipgloss.Color("236"),
	ErrorForeground:      lipgloss.Color("203"),
	FallbackForeground:   lipgloss.Color("179"),
}

// StatusColor returns the color for a ticket status.
func (theme Theme) StatusColor(s model.Status) lipgloss.Color {
	switch s {
	case model.StatusPending:
		return theme.StatusPending
	case model.StatusInProgress:
		return theme.StatusInProgress
	case model.StatusAutoResolved:
		return theme.StatusAutoResolved
	case model.StatusEscalated:
		return theme.StatusEscalated
	}
	return theme.FaintText
}

// PriorityColor returns the color for a priority level.
func (theme Theme) PriorityColor(p model.Priority) lipgloss.Color {
	switch p {
	case model.PriorityHigh:
		return theme.PriorityHigh
	case model.PriorityMedium:
		return theme.PriorityMedium
	case model.PriorityLow:
		return theme.PriorityLow
	}
	return theme.NormalText
}
