package dashboard

import (
	"context"
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
)

// TUI owns a running bubbletea program.
type TUI struct {
	program *tea.Program
}

func NewTUI(ctx context.Context, m Model, opts ...tea.ProgramOption) *TUI {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	return &TUI{program: tea.NewProgram(m, opts...)}
}

// Run blocks until the user quits or ctx is cancelled.
func (t *TUI) Run(ctx context.Context) error {
	_, err := t.program.Run()
	if err != nil && ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// Notify forwards msg to the running program.
func (t *TUI) Notify(msg tea.Msg) {
	t.program.Send(msg)
}

// Printer redraws the plain layout whenever the registry changes.
type Printer struct {
	out      io.Writer
	source   SnapshotSource
	interval time.Duration
	printed  bool
	version  uint64
}

func NewPrinter(out io.Writer, source SnapshotSource, interval time.Duration) *Printer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Printer{out: out, source: source, interval: interval}
}

// Run prints on every interval tick until ctx is done, then prints once more.
func (p *Printer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return p.Flush()
		case <-ticker.C:
			if err := p.Flush(); err != nil {
				return err
			}
		}
	}
}

// Flush prints the current snapshot if it changed since the last frame.
func (p *Printer) Flush() error {
	v := p.source.Version()
	if p.printed && v == p.version {
		return nil
	}
	p.printed = true
	p.version = v
	trams := p.source.Snapshot()
	log.Trace().Int("trams", len(trams)).Uint64("version", v).Msg("dashboard: frame")
	return RenderText(p.out, trams)
}
