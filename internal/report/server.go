// Package report serves stored fits and their curves over HTTP.
package report

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chrissnell/curekinetics/internal/store"
	"github.com/chrissnell/curekinetics/pkg/responseformat"
)

// FitReader is the read side of the fit store
type FitReader interface {
	ListFits(ctx context.Context) ([]store.FitRecord, error)
	GetFit(ctx context.Context, id uuid.UUID) (store.FitRecord, error)
	Curves(ctx context.Context, id uuid.UUID, kind string) ([]store.CurveRecord, error)
}

// Server is the read-only report API
type Server struct {
	fits      FitReader
	formatter *responseformat.Formatter
	logger    *zap.SugaredLogger
	Server    http.Server
}

// NewServer creates a report server listening on listenAddr
func NewServer(fits FitReader, listenAddr string, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		fits:      fits,
		formatter: responseformat.NewFormatter(),
		logger:    logger,
	}
	s.Server.Addr = listenAddr
	s.Server.Handler = s.setupRouter()
	s.Server.ReadHeaderTimeout = 10 * time.Second
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.Server.Handler
}

// Run serves until ctx is cancelled, then shuts the server down
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Infof("report server listening on %s", s.Server.Addr)
		errc <- s.Server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down the report server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.getHealth).Methods("GET")
	api.HandleFunc("/fits", s.listFits).Methods("GET")
	api.HandleFunc("/fits/{id}", s.getFit).Methods("GET")
	api.HandleFunc("/fits/{id}/curves", s.getCurves).Methods("GET")

	return router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debugf("%s %s %s %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}
