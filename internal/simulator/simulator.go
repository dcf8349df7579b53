// Package simulator publishes a synthetic tram feed for local testing.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/tramdash/internal/protocol/record"
	"github.com/rs/zerolog/log"
)

var DefaultStops = []string{
	"Flinders Street",
	"Southern Cross",
	"Docklands",
	"Southbank",
	"Melbourne Central",
	"Parliament",
	"St Kilda",
	"Depot",
}

type Options struct {
	Trams    int
	Interval time.Duration
	// Count limits records per connection. Zero publishes until cancelled.
	Count int
	// MaxChunk caps each write. Zero writes whole batches.
	MaxChunk int
	// UnknownRate is the probability of emitting an unrecognized MSGTYPE.
	UnknownRate float64
	Seed        int64
	Stops       []string
}

func (o Options) withDefaults() Options {
	if o.Trams <= 0 {
		o.Trams = 5
	}
	if o.Interval <= 0 {
		o.Interval = 500 * time.Millisecond
	}
	if len(o.Stops) == 0 {
		o.Stops = DefaultStops
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	return o
}

// Generator produces random records for a fixed set of tram ids.
type Generator struct {
	rng  *rand.Rand
	opts Options
}

func NewGenerator(opts Options) *Generator {
	opts = opts.withDefaults()
	return &Generator{rng: rand.New(rand.NewSource(opts.Seed)), opts: opts}
}

func (g *Generator) Next() record.Message {
	id := "TRAM" + strconv.Itoa(g.rng.Intn(g.opts.Trams)+1)
	if g.opts.UnknownRate > 0 && g.rng.Float64() < g.opts.UnknownRate {
		return record.Message{
			Kind:       record.KindUnknown,
			Type:       "SPEED",
			TramID:     id,
			PayloadKey: "KMH",
			Payload:    strconv.Itoa(g.rng.Intn(70)),
		}
	}
	if g.rng.Intn(2) == 0 {
		return record.Location(id, g.opts.Stops[g.rng.Intn(len(g.opts.Stops))])
	}
	return record.PassengerCount(id, strconv.Itoa(g.rng.Intn(120)))
}

// Publish writes records to w until Count is reached or ctx ends. Each tick
// appends one to three records to a pending buffer and writes a random
// prefix of it, so writes split and merge records freely.
func (g *Generator) Publish(ctx context.Context, w io.Writer) (int, error) {
	ticker := time.NewTicker(g.opts.Interval)
	defer ticker.Stop()

	var pending []byte
	sent := 0
	for {
		if g.opts.Count > 0 && sent >= g.opts.Count {
			return sent, g.write(w, pending, len(pending))
		}
		batch := g.rng.Intn(3) + 1
		for i := 0; i < batch && (g.opts.Count == 0 || sent < g.opts.Count); i++ {
			var err error
			pending, err = record.AppendMessage(pending, g.Next())
			if err != nil {
				return sent, err
			}
			sent++
		}

		n := len(pending)
		if g.opts.MaxChunk > 0 && n > 1 {
			n = g.rng.Intn(n-1) + 1
		}
		if err := g.write(w, pending, n); err != nil {
			return sent, err
		}
		pending = append(pending[:0], pending[n:]...)

		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		case <-ticker.C:
		}
	}
}

// write sends data[:n] in pieces of at most MaxChunk bytes.
func (g *Generator) write(w io.Writer, data []byte, n int) error {
	data = data[:n]
	for len(data) > 0 {
		size := len(data)
		if g.opts.MaxChunk > 0 && size > g.opts.MaxChunk {
			size = g.rng.Intn(g.opts.MaxChunk) + 1
		}
		if _, err := w.Write(data[:size]); err != nil {
			return err
		}
		data = data[size:]
	}
	return nil
}

// Server accepts feed subscribers and runs one Generator per connection.
type Server struct {
	opts Options
	wg   sync.WaitGroup
	seq  atomic.Int64
}

func NewServer(opts Options) *Server {
	return &Server{opts: opts.withDefaults()}
}

// Serve accepts on ln until ctx ends, then waits for publishers to stop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	log.Info().Str("addr", ln.Addr().String()).Msg("simulator: listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("simulator: accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	unhook := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer unhook()

	opts := s.opts
	opts.Seed += s.seq.Add(1)

	logger := log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	logger.Info().Msg("simulator: subscriber connected")
	sent, err := NewGenerator(opts).Publish(ctx, conn)
	if err != nil && ctx.Err() == nil {
		logger.Warn().Err(err).Int("sent", sent).Msg("simulator: subscriber dropped")
		return
	}
	logger.Info().Int("sent", sent).Msg("simulator: subscriber done")
}
