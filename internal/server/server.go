// Package server exposes stored feature collections over HTTP as GeoJSON,
// so pipeline outputs can be previewed in a browser map client.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/atlasgrid/geopipe/internal/config"
	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/pipeline"
	"github.com/atlasgrid/geopipe/internal/store"
	"github.com/atlasgrid/geopipe/internal/vector"
)

// Server serves stored collections and accepts job submissions.
type Server struct {
	cfg   *config.Config
	store store.Store
	log   *zap.Logger
}

// New creates a Server backed by the given store.
func New(cfg *config.Config, st store.Store) *Server {
	return &Server{
		cfg:   cfg,
		store: st,
		log:   zap.L().With(zap.String("component", "server")),
	}
}

// Handler builds the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/collections", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/{name}", s.handleGet)
		r.Delete("/{name}", s.handleDelete)
	})
	r.Post("/jobs", s.handleSubmitJob)

	return r
}

// Start runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("starting server", zap.Int("port", s.cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.ListCollections(r.Context())
	if err != nil {
		s.log.Error("list collections failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleGet returns a collection as a GeoJSON FeatureCollection. Collections
// in a projected CRS are reprojected to WGS84 so map clients can display
// them directly.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	c, err := s.store.LoadCollection(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("collection %q not found", name))
		return
	}

	if c.CRS != crs.WGS84 {
		c, err = c.Reproject(crs.WGS84)
		if err != nil {
			s.log.Error("reproject failed",
				zap.String("collection", name), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "reprojection failed")
			return
		}
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := vector.WriteGeoJSON(w, c); err != nil {
		s.log.Error("encode geojson failed",
			zap.String("collection", name), zap.Error(err))
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.DeleteCollection(r.Context(), name); err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("collection %q not found", name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "name": name})
}

// handleSubmitJob accepts a job definition file path and runs it
// asynchronously, mirroring how results land in the store.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	job, err := pipeline.LoadJob(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	go s.runJob(job)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"job":    job.Name,
	})
}

// runJob executes a submitted job on its own runner. Runners hold per-job
// dataset state, so concurrent submissions must not share one.
func (s *Server) runJob(job *pipeline.Job) {
	runner := pipeline.NewRunner(s.cfg, s.store)
	result, err := runner.Run(context.Background(), job)
	if err != nil {
		s.log.Error("job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	s.log.Info("job complete",
		zap.String("job", job.Name),
		zap.String("run_id", result.RunID),
		zap.Duration("duration", result.Duration))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
