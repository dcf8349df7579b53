package transport

import (
	"context"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// Conn is a feed connection. Each Read refreshes the idle deadline when one
// is configured.
type Conn struct {
	net.Conn
	idle time.Duration
}

func (c *Conn) Read(p []byte) (int, error) {
	if c.idle > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.idle)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

// CloseOnDone closes the connection when ctx ends, unblocking a pending
// Read. The returned stop function detaches the hook.
func (c *Conn) CloseOnDone(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		_ = c.Conn.Close()
	})
}

// Dial connects to cfg.Address, retrying up to cfg.ConnectAttempts times.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}

	var attempt int
	for {
		attempt++
		conn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
		if err == nil {
			log.Info().Msgf("transport.Dial connected addr=%q attempt=%d", cfg.Address, attempt)
			return &Conn{Conn: conn, idle: cfg.IdleTimeout}, nil
		}
		log.Warn().Msgf("transport.Dial attempt=%d/%d addr=%q err=%v", attempt, cfg.ConnectAttempts, cfg.Address, err)
		if attempt >= cfg.ConnectAttempts {
			return nil, err
		}
		if err := sleepBackoff(ctx, cfg.Backoff, attempt, rng); err != nil {
			return nil, err
		}
	}
}

func sleepBackoff(ctx context.Context, cfg BackoffConfig, attempt int, rng *rand.Rand) error {
	timer := time.NewTimer(NextBackoffDelay(cfg, attempt, rng))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
