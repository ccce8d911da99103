package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// maxBodySize bounds the webhook payloads read into memory. GitHub caps
// payloads at 25 MB.
const maxBodySize = 25 * 1024 * 1024

const shutdownTimeout = 10 * time.Second

// Dispatcher processes an accepted webhook body. *router.Router implements
// it.
type Dispatcher interface {
	Dispatch(ctx context.Context, deliveryID string, body []byte)
}

type Options struct {
	Port   int
	Secret string
	// ErrorStatus is returned when the request URI lacks the secret.
	// Defaults to 500.
	ErrorStatus int
}

// Server answers webhooks immediately and dispatches them in the
// background.
type Server struct {
	opts       Options
	dispatcher Dispatcher
	logger     *slog.Logger

	wg sync.WaitGroup
}

func New(opts Options, dispatcher Dispatcher, logger *slog.Logger) *Server {
	if opts.ErrorStatus == 0 {
		opts.ErrorStatus = http.StatusInternalServerError
	}
	return &Server{opts: opts, dispatcher: dispatcher, logger: logger}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.HandleFunc("/*", s.webhook)
	return r
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.URL.RequestURI(), s.opts.Secret) {
		s.logger.Warn("rejecting request without secret", "remote_addr", r.RemoteAddr)
		s.fail(w)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.logger.Error("could not read request", "remote_addr", r.RemoteAddr, "err", err)
		s.fail(w)
		return
	}

	deliveryID := r.Header.Get("X-GitHub-Delivery")
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	s.logger.Debug("webhook received", "delivery", deliveryID, "event", r.Header.Get("X-GitHub-Event"), "bytes", len(body))

	_, _ = w.Write([]byte("OK"))

	ctx := context.WithoutCancel(r.Context())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatcher.Dispatch(ctx, deliveryID, body)
	}()
}

func (s *Server) fail(w http.ResponseWriter) {
	w.WriteHeader(s.opts.ErrorStatus)
	_, _ = w.Write([]byte("ERROR"))
}

// Wait blocks until every dispatched webhook has been processed.
func (s *Server) Wait() {
	s.wg.Wait()
}

// ListenAndServe serves until ctx is done, then shuts down and waits for
// in-flight dispatches.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + strconv.Itoa(s.opts.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %d in use, please free it and retry again", s.opts.Port)
		}
		return fmt.Errorf("could not start server on port %d: %w", s.opts.Port, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.wg.Wait()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server, waiting for dispatches")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.wg.Wait()
	s.logger.Info("server stopped")
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
