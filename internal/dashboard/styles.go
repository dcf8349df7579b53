package dashboard

import "github.com/charmbracelet/lipgloss"

var (
	Accent = lipgloss.Color("#8BC34A")
	Muted  = lipgloss.Color("#6b7280")
	Alert  = lipgloss.Color("#e53935")
)

// Styles groups the lipgloss styles used by the model.
type Styles struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Empty  lipgloss.Style
	Footer lipgloss.Style
	Error  lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(Accent).MarginBottom(1),
		Header: lipgloss.NewStyle().Bold(true).Underline(true),
		Cell:   lipgloss.NewStyle(),
		Empty:  lipgloss.NewStyle().Italic(true).Foreground(Muted),
		Footer: lipgloss.NewStyle().Foreground(Muted).MarginTop(1),
		Error:  lipgloss.NewStyle().Foreground(Alert),
	}
}
