package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/danmuck/tramdash/internal/config"
	"github.com/danmuck/tramdash/internal/dashboard"
	"github.com/danmuck/tramdash/internal/fleet"
	"github.com/danmuck/tramdash/internal/observability"
	"github.com/danmuck/tramdash/internal/protocol"
	"github.com/danmuck/tramdash/internal/statusapi"
	"github.com/danmuck/tramdash/internal/stream"
	"github.com/danmuck/tramdash/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const dashboardTitle = "Tram Dashboard"

// app wires one feed connection to the registry and its presenters.
type app struct {
	cfg      config.Config
	out      io.Writer
	registry *fleet.Registry
	gatherer *prometheus.Registry
	metrics  *observability.Metrics
	state    atomic.Value
}

func newApp(cfg config.Config, out io.Writer) *app {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a := &app{
		cfg:      cfg,
		out:      out,
		registry: fleet.NewRegistry(),
		gatherer: reg,
		metrics:  observability.NewMetrics(reg),
	}
	a.setState("connecting")
	return a
}

func (a *app) setState(s string) { a.state.Store(s) }

func (a *app) feedState() string { return a.state.Load().(string) }

// run blocks until the feed ends (plain and headless modes), the user quits
// the TUI, or ctx is cancelled. The feed error is returned in every case
// except a user-initiated stop.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var tui *dashboard.TUI
	switch a.cfg.UI {
	case config.UITUI:
		tui = dashboard.NewTUI(gctx, dashboard.NewModel(a.registry, a.cfg.RefreshInterval, dashboardTitle))
		g.Go(func() error {
			defer cancel()
			return tui.Run(gctx)
		})
	case config.UIPlain:
		printer := dashboard.NewPrinter(a.out, a.registry, a.cfg.RefreshInterval)
		g.Go(func() error {
			return printer.Run(gctx)
		})
	}

	if a.cfg.StatusAddr != "" {
		srv := statusapi.New(a.registry, statusapi.Options{
			Addr:        a.cfg.StatusAddr,
			Gatherer:    a.gatherer,
			Metrics:     a.metrics,
			CORSOrigins: a.cfg.CORSOrigins,
			Token:       a.cfg.StatusToken,
			FeedState:   a.feedState,
		})
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	var feedErr error
	g.Go(func() error {
		summary, err := a.consume(gctx)
		feedErr = err
		a.setState(describeEnd(err))
		log.Info().
			Int("trams", a.registry.Len()).
			Int("applied", summary.Applied).
			Bool("truncated", summary.Truncated).
			Msg("tramdash: feed finished")
		if tui != nil {
			tui.Notify(dashboard.FeedEndedMsg{Err: err})
			return nil
		}
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if feedErr != nil && errors.Is(feedErr, context.Canceled) {
		return nil
	}
	return feedErr
}

func (a *app) consume(ctx context.Context) (stream.Summary, error) {
	conn, err := transport.Dial(ctx, a.cfg.Transport)
	if err != nil {
		if ctx.Err() != nil {
			return stream.Summary{}, ctx.Err()
		}
		return stream.Summary{}, fmt.Errorf("%w: dial %s: %w", protocol.ErrTransport, a.cfg.Transport.Address, err)
	}
	defer conn.Close()
	stop := conn.CloseOnDone(ctx)
	defer stop()

	a.setState("receiving")
	consumer := stream.NewConsumer(a.registry, stream.Options{
		ReadBufferSize: a.cfg.ReadBufferSize,
		Metrics:        a.metrics,
	})
	return consumer.Run(ctx, conn)
}

func describeEnd(err error) string {
	switch {
	case err == nil:
		return "ended"
	case errors.Is(err, context.Canceled):
		return "stopped"
	case errors.Is(err, protocol.ErrTruncatedStream):
		return "truncated"
	default:
		return "failed"
	}
}
