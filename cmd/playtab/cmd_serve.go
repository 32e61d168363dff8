package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/tomyan/playtab/internal/logging"
	"github.com/tomyan/playtab/internal/router"
)

const shutdownTimeout = 5 * time.Second

func cmdServe(cfg *Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	if err := serve(ctx, cfg, ln); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

// serve answers HTTP requests on ln until ctx ends, then shuts down and
// waits for shortcuts still running.
func serve(ctx context.Context, cfg *Config, ln net.Listener) error {
	s := &server{cfg: cfg, log: cfg.logger()}
	srv := &http.Server{Handler: s.routes()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("http server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.inflight.Wait()
	return err
}

// server connects to the browser per request, so a browser restart never
// leaves the daemon holding a dead connection.
type server struct {
	cfg      *Config
	log      *slog.Logger
	inflight sync.WaitGroup
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.Recoverer,
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				log := s.log.With("request_id", chiMiddleware.GetReqID(r.Context()))
				next.ServeHTTP(w, r.WithContext(logging.AddToContext(r.Context(), log)))
			})
		},
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Post("/actions", s.handleAction)
		r.Post("/shortcuts/{id}", s.handleShortcut)
	})
	return r
}

func (s *server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req router.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()
	log := logging.FromContext(ctx)

	client, err := connect(ctx, s.cfg)
	if err != nil {
		log.Error("connecting to browser", "err", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	defer client.Close()

	rt, err := newRouter(s.cfg, client)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	res, err := rt.Handle(ctx, req)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err)
	case err != nil:
		log.Error("action failed", "action", req.Action, "err", err)
		writeError(w, http.StatusInternalServerError, err)
	case res == nil:
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *server) handleShortcut(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !lo.Contains(router.ShortcutIDs(), id) {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown shortcut: %s", id))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	client, err := connect(ctx, s.cfg)
	if err != nil {
		logging.FromContext(ctx).Error("connecting to browser", "err", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}

	rt, err := newRouter(s.cfg, client)
	if err != nil {
		client.Close()
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	rt.Shortcut(ctx, id)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		rt.Wait()
		client.Close()
	}()
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
