package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/tramdash/internal/fleet"
	"github.com/danmuck/tramdash/internal/observability"
	"github.com/danmuck/tramdash/internal/protocol"
	"github.com/danmuck/tramdash/internal/protocol/record"
	"github.com/danmuck/tramdash/internal/protocol/segment"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const DefaultReadBufferSize = 4096

// Options configures a Consumer. Zero values select defaults.
type Options struct {
	ConnID         string
	ReadBufferSize int
	Metrics        *observability.Metrics
}

// Summary counts what a Consumer has seen so far.
type Summary struct {
	Bytes        int
	Chunks       int
	Segments     int
	Messages     int
	Applied      int
	Malformed    int
	UnknownKinds int
	Truncated    bool
}

type Consumer struct {
	id      string
	tok     *segment.Tokenizer
	asm     *record.Assembler
	fleet   *fleet.Registry
	metrics *observability.Metrics
	bufSize int
	logger  zerolog.Logger

	malformedLog rate.Sometimes
	summary      Summary
}

func NewConsumer(registry *fleet.Registry, opts Options) *Consumer {
	id := opts.ConnID
	if id == "" {
		id = uuid.NewString()
	}
	size := opts.ReadBufferSize
	if size <= 0 {
		size = DefaultReadBufferSize
	}
	return &Consumer{
		id:           id,
		tok:          segment.NewTokenizer(),
		asm:          record.NewAssembler(),
		fleet:        registry,
		metrics:      opts.Metrics,
		bufSize:      size,
		logger:       log.Logger.With().Str("conn", id).Logger(),
		malformedLog: rate.Sometimes{First: 10, Interval: 5 * time.Second},
	}
}

func (c *Consumer) ID() string {
	return c.id
}

func (c *Consumer) Summary() Summary {
	return c.summary
}

// Run reads r until end-of-stream, a read error, or ctx ends. A clean
// end-of-stream returns nil; a stream cut inside a segment returns an error
// wrapping ErrTruncatedStream; read failures wrap ErrTransport.
func (c *Consumer) Run(ctx context.Context, r io.Reader) (Summary, error) {
	c.logger.Info().Msgf("stream.Consumer start buffer=%d", c.bufSize)
	buf := make([]byte, c.bufSize)
	for {
		if err := ctx.Err(); err != nil {
			return c.summary, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			c.Process(buf[:n])
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			err = c.Finish()
			c.logEnd(err)
			return c.summary, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return c.summary, ctxErr
		}
		c.logger.Error().Msgf("stream.Consumer read err=%v", err)
		return c.summary, fmt.Errorf("%w: %w", protocol.ErrTransport, err)
	}
}

// Process drains one chunk through the pipeline.
func (c *Consumer) Process(chunk []byte) {
	c.summary.Bytes += len(chunk)
	c.summary.Chunks++
	c.metrics.RecordChunk(len(chunk))
	c.logger.Trace().Hex("bytes", chunk).Msgf("stream.Consumer chunk len=%d", len(chunk))

	for seg := range c.tok.Feed(chunk) {
		c.summary.Segments++
		c.metrics.RecordSegment()
		msg, ok, err := c.asm.Push(seg)
		c.handle(msg, ok, err)
	}
}

// Finish signals end-of-stream: the open record is flushed and any partial
// segment is discarded and reported.
func (c *Consumer) Finish() error {
	msg, ok, err := c.asm.Flush()
	c.handle(msg, ok, err)

	if err := c.tok.Close(); err != nil {
		c.summary.Truncated = true
		c.metrics.RecordTruncation()
		return fmt.Errorf("stream: end of feed: %w", err)
	}
	return nil
}

func (c *Consumer) handle(msg record.Message, ok bool, err error) {
	if err != nil {
		c.reportMalformed(err)
		return
	}
	if ok {
		c.apply(msg)
	}
}

func (c *Consumer) apply(msg record.Message) {
	c.summary.Messages++
	c.metrics.RecordMessage(msg.Kind.String())

	res, err := c.fleet.Apply(msg)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownMessageKind) {
			c.summary.UnknownKinds++
			c.metrics.RecordUnknownKind()
			c.logger.Warn().Msgf("stream.Consumer ignored msgtype=%q tram_id=%q", msg.Type, msg.TramID)
			return
		}
		c.logger.Error().Msgf("stream.Consumer apply tram_id=%q err=%v", msg.TramID, err)
		return
	}

	c.summary.Applied++
	if res.Created {
		c.metrics.SetTrams(c.fleet.Len())
		c.logger.Info().Msgf("stream.Consumer new tram tram_id=%q", msg.TramID)
	}
	c.logger.Debug().Msgf("stream.Consumer applied kind=%s tram_id=%q payload=%q", msg.Kind, msg.TramID, msg.Payload)
}

func (c *Consumer) reportMalformed(err error) {
	c.summary.Malformed++
	c.metrics.RecordMalformed()
	c.malformedLog.Do(func() {
		c.logger.Warn().Msgf("stream.Consumer dropped record total=%d err=%v", c.summary.Malformed, err)
	})
}

func (c *Consumer) logEnd(err error) {
	s := c.summary
	event := c.logger.Info()
	if err != nil {
		event = c.logger.Warn().Err(err)
	}
	event.
		Int("bytes", s.Bytes).
		Int("segments", s.Segments).
		Int("messages", s.Messages).
		Int("applied", s.Applied).
		Int("malformed", s.Malformed).
		Int("unknown", s.UnknownKinds).
		Msg("stream.Consumer end of feed")
}
