package devnet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/idilsaglam/weavetodo/internal/logger"
)

// Server is a single-node development gateway.
type Server struct {
	ledger    *Ledger
	metrics   *Metrics
	registry  *prometheus.Registry
	handler   *Handler
	router    *mux.Router
	mineEvery time.Duration
}

type Option func(*Server)

// WithMineEvery mines a block on a fixed interval while Run is active.
func WithMineEvery(d time.Duration) Option { return func(s *Server) { s.mineEvery = d } }

func New(opts ...Option) *Server {
	s := &Server{
		ledger:   NewLedger(),
		registry: prometheus.NewRegistry(),
		router:   mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = NewMetrics(s.registry)
	s.handler = NewHandler(s.ledger, s.metrics)
	s.router.Use(s.observe)
	RegisterRoutes(s.router, s.handler, s.registry)
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Ledger() *Ledger { return s.ledger }

// Mine produces one block and returns the new height.
func (s *Server) Mine() int64 { return s.handler.mine() }

// Run serves on addr until ctx ends.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.mineEvery > 0 {
		go s.autoMine(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Logger.Info("devnet gateway listening", zap.String("addr", addr), zap.Duration("mine_every", s.mineEvery))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) autoMine(ctx context.Context) {
	ticker := time.NewTicker(s.mineEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Mine()
		}
	}
}

// observe logs each request and feeds the request metrics, labelled by
// route template so ids do not explode the label space.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(m.Code)).Inc()
		s.metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(m.Duration.Seconds())
		logger.Logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", m.Code),
			zap.Duration("duration", m.Duration),
			zap.Int64("bytes", m.Written),
		)
	})
}
