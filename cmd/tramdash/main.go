package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/tramdash/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	os.Exit(exitCode(err))
}

// exitCode maps a run result to the process status. A feed that ends inside
// a segment is reported but is not a failure.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, protocol.ErrTruncatedStream):
		log.Warn().Err(err).Msg("tramdash: feed ended mid-segment")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "tramdash: %v\n", err)
		return 1
	}
}
