package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fundprep/examgen/internal/exam"
)

//go:embed index.html
var indexHTML []byte

// Options configures the HTTP surface.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// DefaultVariant is used when a request names none.
	DefaultVariant string
}

// Server exposes the question form and the generation API over HTTP.
type Server struct {
	app     *fiber.App
	ctrl    *exam.Controller
	catalog *exam.Catalog
	opts    Options
	log     *zap.Logger
}

// New builds the fiber app and registers every route.
func New(ctrl *exam.Controller, catalog *exam.Catalog, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{ctrl: ctrl, catalog: catalog, opts: opts, log: log}

	s.app = fiber.New(fiber.Config{
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		IdleTimeout:           60 * time.Second,
		BodyLimit:             64 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})

	s.app.Use(recover.New())
	s.app.Use(requestLogger(log))
	s.app.Use(sessionMiddleware())

	s.app.Get("/", s.handleIndex)
	s.app.Get("/healthz", s.handleHealth)

	api := s.app.Group("/api")
	api.Get("/variants", s.handleVariants)
	api.Post("/generate", s.handleGenerate)
	api.Post("/generate/stream", s.handleGenerateStream)

	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))
		if err := s.app.Listener(ln); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("http server shutting down")
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
