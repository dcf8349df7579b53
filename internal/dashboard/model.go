package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/tramdash/internal/fleet"
	"github.com/danmuck/tramdash/internal/protocol"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TickMsg triggers a snapshot refresh.
type TickMsg time.Time

// FeedEndedMsg tells the model the consumer has stopped.
type FeedEndedMsg struct {
	Err error
}

// Model is the interactive dashboard page.
type Model struct {
	source   SnapshotSource
	interval time.Duration
	styles   Styles
	title    string

	trams     []fleet.TramRecord
	version   uint64
	refreshed time.Time
	status    string
	failed    bool
	width     int
}

func NewModel(source SnapshotSource, interval time.Duration, title string) Model {
	if interval <= 0 {
		interval = time.Second
	}
	m := Model{
		source:   source,
		interval: interval,
		styles:   DefaultStyles(),
		title:    title,
		status:   "receiving",
	}
	m.refresh(time.Now())
	return m
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *Model) refresh(now time.Time) {
	v := m.source.Version()
	if m.trams != nil && v == m.version {
		return
	}
	m.trams = m.source.Snapshot()
	m.version = v
	m.refreshed = now
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case TickMsg:
		m.refresh(time.Time(msg))
		return m, m.tick()
	case FeedEndedMsg:
		m.refresh(time.Now())
		switch {
		case msg.Err == nil:
			m.status = "feed ended"
		case errors.Is(msg.Err, protocol.ErrTruncatedStream):
			m.status = "feed ended mid-record"
		default:
			m.status = fmt.Sprintf("feed failed: %v", msg.Err)
			m.failed = true
		}
	}
	return m, nil
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(m.title))
	sb.WriteString("\n")

	if len(m.trams) == 0 {
		sb.WriteString(m.styles.Empty.Render("No trams reported yet."))
		sb.WriteString("\n")
	} else {
		idW, locW := lipgloss.Width("Tram"), lipgloss.Width("Location")
		for _, t := range m.trams {
			idW = max(idW, lipgloss.Width(sanitize(t.ID)))
			locW = max(locW, lipgloss.Width(orDash(t.Location, t.HasLocation)))
		}
		sb.WriteString(m.styles.Header.Render(padRight("Tram", idW) + "  " + padRight("Location", locW) + "  " + padRight("Passengers", 10) + "  Updated"))
		sb.WriteString("\n")
		for _, t := range m.trams {
			row := padRight(sanitize(t.ID), idW) + "  " +
				padRight(orDash(t.Location, t.HasLocation), locW) + "  " +
				padRight(orDash(t.PassengerCount, t.HasPassengerCount), 10) + "  " +
				t.UpdatedAt.Format("15:04:05")
			sb.WriteString(m.styles.Cell.Render(row))
			sb.WriteString("\n")
		}
	}

	status := m.styles.Footer.Render(fmt.Sprintf("%d trams | %s | refreshed %s | q to quit",
		len(m.trams), sanitize(m.status), m.refreshed.Format("15:04:05")))
	if m.failed {
		status = m.styles.Error.Render(status)
	}
	sb.WriteString(status)
	sb.WriteString("\n")
	return sb.String()
}

// padRight pads s to w display cells.
func padRight(s string, w int) string {
	if gap := w - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
