package statusapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/tramdash/internal/auth"
	"github.com/danmuck/tramdash/internal/fleet"
	"github.com/danmuck/tramdash/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// Source is the read side of the tram registry.
type Source interface {
	Snapshot() []fleet.TramRecord
	Get(id string) (fleet.TramRecord, bool)
	Len() int
	Version() uint64
}

type Options struct {
	Addr        string
	Gatherer    prometheus.Gatherer
	Metrics     *observability.Metrics
	CORSOrigins []string
	// Token, when set, is required as a bearer token on /trams and /metrics.
	Token string
	// FeedState reports the consumer state for /healthz. Optional.
	FeedState func() string
}

type Server struct {
	addr     string
	source   Source
	router   *gin.Engine
	started  time.Time
	gatherer prometheus.Gatherer
	state    func() string
	guard    auth.Validator
}

func New(source Source, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetrics(opts.Metrics))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: opts.CORSOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		addr:     opts.Addr,
		source:   source,
		router:   r,
		started:  time.Now(),
		gatherer: gatherer,
		state:    opts.FeedState,
	}
	if opts.Token != "" {
		s.guard = auth.StaticToken{Token: opts.Token}
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("statusapi: listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("statusapi: shutdown")
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Debug().Msg("statusapi: stopped")
	return nil
}
