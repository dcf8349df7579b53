package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/tramdash/internal/logging"
	"github.com/danmuck/tramdash/internal/simulator"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(serve).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tramsim: %v\n", err)
		os.Exit(1)
	}
}

// serve publishes the simulated feed on addr until ctx ends.
func serve(ctx context.Context, addr string, opts simulator.Options) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return simulator.NewServer(opts).Serve(ctx, ln)
}

type runFunc func(ctx context.Context, addr string, opts simulator.Options) error

func newRootCmd(run runFunc) *cobra.Command {
	var (
		addr string
		opts simulator.Options
	)

	cmd := &cobra.Command{
		Use:   "tramsim",
		Short: "Publish a synthetic tram feed for tramdash",
		Long: `tramsim listens for subscribers and streams random LOCATION and
PASSENGER_COUNT records to each one. Writes are split at random points so
records arrive fragmented and coalesced.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime(os.Stderr)
			return run(cmd.Context(), addr, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&addr, "addr", "a", "127.0.0.1:8081", "listen address")
	f.IntVarP(&opts.Trams, "trams", "t", 5, "number of distinct trams")
	f.DurationVarP(&opts.Interval, "interval", "i", 500*time.Millisecond, "delay between batches")
	f.IntVarP(&opts.Count, "count", "n", 0, "records per subscriber (0 = until stopped)")
	f.IntVar(&opts.MaxChunk, "max-chunk", 7, "largest single write in bytes (0 = whole batches)")
	f.Float64Var(&opts.UnknownRate, "unknown-rate", 0, "fraction of records with an unrecognized MSGTYPE")
	f.Int64Var(&opts.Seed, "seed", 0, "random seed (0 = time based)")
	return cmd
}
