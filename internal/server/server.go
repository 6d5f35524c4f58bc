// Package server exposes the HTTP surface: the send-email hook, the auth
// callback and a JSON listings endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sokoniarena/sokoni/internal/listings"
	"github.com/sokoniarena/sokoni/internal/model"
)

const shutdownTimeout = 10 * time.Second

// Options wires the handlers served by the router. Nil handlers leave
// their route unregistered.
type Options struct {
	Listings  listings.Fetcher
	Callback  http.Handler
	EmailHook http.Handler
	Logger    *slog.Logger
}

// Server is the SokoniArena HTTP server.
type Server struct {
	opts   Options
	logger *slog.Logger
	router chi.Router
}

// New builds the router.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{opts: opts, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.EmailHook != nil {
		r.Handle("/hooks/send-email", opts.EmailHook)
	}
	if opts.Callback != nil {
		r.Get("/auth/callback", opts.Callback.ServeHTTP)
	}
	if opts.Listings != nil {
		r.Get("/api/listings", s.handleListings)
	}

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("http server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

type listingsResponse struct {
	State string `json:"state"`
	listings.Page
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	catalog, ok := catalogParam(params.Get("type"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown listing type"})
		return
	}

	q := listings.NewQuery(catalog)
	if c := params.Get("category"); c != "" {
		q.Category = c
	}
	q.SearchQuery = strings.TrimSpace(params.Get("q"))
	if sort := params.Get("sort"); sort != "" {
		if !catalog.HasSort(sort) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown sort " + sort})
			return
		}
		q.SortBy = sort
	}

	items, err := s.opts.Listings.Fetch(r.Context(), q)
	page := listings.BuildPage(catalog, q, listings.Result{Listings: items, Error: err})

	status := http.StatusOK
	if err != nil {
		s.logger.Warn("listings fetch failed", "type", catalog.Type, "error", err)
		status = http.StatusBadGateway
	}
	writeJSON(w, status, listingsResponse{State: page.State.String(), Page: page})
}

func catalogParam(v string) (listings.Catalog, bool) {
	switch v {
	case "", "event", "events":
		return listings.Events, true
	case "service", "services":
		return listings.Services, true
	}
	return listings.CatalogFor(model.ListingType(v))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
