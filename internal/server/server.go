// Package server exposes the QA service over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"qarag/internal/adapter/cache"
	"qarag/internal/usecase"
)

// Deps are the long-lived components the handlers call into. They are
// built once at startup and shared by every request.
type Deps struct {
	Answers  *usecase.AnswerUseCase
	Feedback *usecase.FeedbackUseCase
	Index    *usecase.EmbeddingIndex
	Cache    *cache.QueryCache // optional
}

type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP server for the QA API.
type Server struct {
	deps    Deps
	opts    Options
	log     *slog.Logger
	handler http.Handler
}

func New(deps Deps, opts Options, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 3 * time.Minute
	}

	s := &Server{deps: deps, opts: opts, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/qa", s.handleAnswer)
	mux.HandleFunc("GET /api/qa/history", s.handleHistory)
	mux.HandleFunc("POST /api/qa/feedback", s.handleFeedback)
	mux.HandleFunc("POST /api/translate", s.handleTranslate)

	s.handler = corsMiddleware(loggingMiddleware(log, recoverMiddleware(log, mux)))
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("qarag server starting", "addr", s.opts.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("qarag server stopped")
	return nil
}
