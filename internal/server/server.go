// Package server exposes a world over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/tamactl/internal/observability"
	"github.com/danmuck/tamactl/internal/world"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const Version = "0.1.0"

type Options struct {
	ID          string
	Addr        string
	CORSOrigins []string
	// GasLimit is attached to handle frames that do not name one.
	GasLimit uint64
	// AdminToken, when set, guards clock control with a bearer token.
	AdminToken string
}

// Server is the HTTP face of one world.
type Server struct {
	opts    Options
	world   *world.World
	router  *gin.Engine
	started time.Time
}

func New(w *world.World, opts Options) *Server {
	if strings.TrimSpace(opts.ID) == "" {
		opts.ID = "tamactl"
	}
	if opts.GasLimit == 0 {
		opts.GasLimit = w.Runtime.Config().DefaultGasLimit
	}
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(opts.ID))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CORSOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", observability.HeaderActorID},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{opts: opts, world: w, router: r, started: time.Now()}
	s.registerRoutes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("server.Server.Run listening addr=%s id=%s", s.opts.Addr, s.opts.ID)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info().Msgf("server.Server.Run shutting down id=%s", s.opts.ID)
	return srv.Shutdown(shutdownCtx)
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		if v := strings.TrimSpace(origin); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
