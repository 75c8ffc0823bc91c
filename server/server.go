// Package server exposes the palette extractor and text detector over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"styleextractor/config"
	"styleextractor/logging"
	"styleextractor/textdetect"

	"golang.org/x/sync/semaphore"
)

// PaletteExtractor returns dominant colours for a base64 payload, or an
// empty list when the payload cannot be analysed
type PaletteExtractor interface {
	DominantColors(payload string, k int) []string
}

// TextDetector reports whether a base64 payload contains legible text
type TextDetector interface {
	Detect(ctx context.Context, payload string) textdetect.Status
	EngineAvailable() bool
}

// Server is the single process-wide HTTP server. Everything it holds is
// fixed at construction; request data never outlives its handler.
type Server struct {
	cfg        *config.Config
	extractor  PaletteExtractor
	detector   TextDetector
	slots      *semaphore.Weighted
	maxSlots   int
	inFlight   atomic.Int64
	started    time.Time
	httpServer *http.Server

	// closed once Shutdown has returned; shutdownErr is its result
	shutdownOnce sync.Once
	shutdownDone chan struct{}
	shutdownErr  error
}

// NewServer wires the routes. cfg.MaxConcurrent bounds how many analyses run
// at once; values below 1 mean one.
func NewServer(cfg *config.Config, extractor PaletteExtractor, detector TextDetector) *Server {
	maxSlots := cfg.MaxConcurrent
	if maxSlots < 1 {
		maxSlots = 1
	}

	s := &Server{
		cfg:       cfg,
		extractor: extractor,
		detector:  detector,
		slots:     semaphore.NewWeighted(int64(maxSlots)),
		maxSlots:  maxSlots,
		started:   time.Now(),

		shutdownDone: make(chan struct{}),
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the routed handler with CORS and request logging applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/extract-styles", s.ExtractStyles)
	mux.HandleFunc("/health", s.Health)

	return logRequests(corsMiddleware(mux))
}

// ListenAndServe blocks until the server stops. After Shutdown it returns
// only once in-flight requests have drained, with Shutdown's result.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln; see ListenAndServe
func (s *Server) Serve(ln net.Listener) error {
	logging.LogInfo("Server listening on http://%s", ln.Addr())
	err := s.httpServer.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-s.shutdownDone
	return s.shutdownErr
}

// Shutdown stops accepting requests and waits for in-flight ones or for
// ctx to expire. Only the first call has any effect.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		logging.LogInfo("Shutting down server, %d analyses in flight", s.inFlight.Load())
		s.shutdownErr = s.httpServer.Shutdown(ctx)
		close(s.shutdownDone)
	})
	<-s.shutdownDone
	return s.shutdownErr
}
