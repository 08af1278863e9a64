// Package api exposes flag evaluation and administration over HTTP. The
// transport layer builds evaluation contexts from requests, hands them to
// the engine against the active snapshot, and serializes results; it never
// holds evaluation state of its own.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/variantd/variantd/internal/engine"
	"github.com/variantd/variantd/internal/flags"
	"github.com/variantd/variantd/internal/snapshot"
	"github.com/variantd/variantd/internal/source"
	"github.com/variantd/variantd/internal/telemetry"
)

// Server wires the flag source, evaluator, and HTTP routes together.
type Server struct {
	source      source.Source
	evaluator   *engine.Evaluator
	adminAPIKey string
	rateLimit   int
	log         zerolog.Logger
}

// NewServer creates an API server.
func NewServer(src source.Source, evaluator *engine.Evaluator, adminKey string, rateLimit int, log zerolog.Logger) *Server {
	return &Server{source: src, evaluator: evaluator, adminAPIKey: adminKey, rateLimit: rateLimit, log: log}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)
	if s.rateLimit > 0 {
		r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))
	}

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Evaluation and snapshot routes get a short timeout; the SSE stream is
	// long-lived and mounted outside the timeout group.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))

		// public: snapshot (ETag)
		r.Get("/v1/flags/snapshot", func(w http.ResponseWriter, req *http.Request) {
			snap := snapshot.Load()
			if inm := req.Header.Get("If-None-Match"); inm != "" && inm == snap.ETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("ETag", snap.ETag)
			_ = json.NewEncoder(w).Encode(snap)
		})

		// public: evaluation
		r.Post("/v1/evaluate", s.handleEvaluate)
		r.Get("/v1/evaluate", s.handleEvaluateGET)
		r.Post("/v1/flags/{id}/evaluate", s.handleEvaluateOne)

		// admin (protected): flag administration
		r.Post("/v1/flags", s.authAdmin(s.handleUpsertFlag))
		r.Delete("/v1/flags/{id}", s.authAdmin(s.handleDeleteFlag))
	})

	r.Get("/v1/flags/stream", s.handleStream)

	return r
}

type upsertResponse struct {
	OK   bool   `json:"ok"`
	ETag string `json:"etag"`
}

// handleUpsertFlag validates and stores a full flag definition, then
// republishes the snapshot. Invalid definitions are rejected before they
// reach the source.
func (s *Server) handleUpsertFlag(w http.ResponseWriter, r *http.Request) {
	var flag flags.Flag
	if err := json.NewDecoder(r.Body).Decode(&flag); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if strings.TrimSpace(flag.ID) == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	// Rules submitted without an id get one assigned; clients reference rules
	// by id in evaluation results.
	for i := range flag.Rules {
		if flag.Rules[i].ID == "" {
			flag.Rules[i].ID = uuid.NewString()
		}
	}
	if err := flags.Validate(flag); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.source.UpsertFlag(r.Context(), flag); err != nil {
		s.log.Error().Err(err).Str("flag", flag.ID).Msg("flag upsert failed")
		writeError(w, http.StatusInternalServerError, "flag upsert failed")
		return
	}

	if err := s.RebuildSnapshot(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("snapshot rebuild failed")
		writeError(w, http.StatusInternalServerError, "snapshot rebuild failed")
		return
	}

	writeJSON(w, http.StatusOK, upsertResponse{
		OK:   true,
		ETag: snapshot.Load().ETag,
	})
}

// handleDeleteFlag removes a flag and republishes the snapshot.
func (s *Server) handleDeleteFlag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := s.source.DeleteFlag(r.Context(), id); err != nil {
		s.log.Error().Err(err).Str("flag", id).Msg("flag delete failed")
		writeError(w, http.StatusInternalServerError, "flag delete failed")
		return
	}

	if err := s.RebuildSnapshot(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("snapshot rebuild failed")
		writeError(w, http.StatusInternalServerError, "snapshot rebuild failed")
		return
	}

	writeJSON(w, http.StatusOK, upsertResponse{
		OK:   true,
		ETag: snapshot.Load().ETag,
	})
}

// RebuildSnapshot loads validated flags from the source and swaps the
// atomic snapshot. Flags failing validation are dropped individually; the
// rest of the collection still publishes.
func (s *Server) RebuildSnapshot(ctx context.Context) error {
	valid, err := source.LoadValidated(ctx, s.source, s.log)
	if err != nil {
		return err
	}
	snap := snapshot.Build(valid)
	snapshot.Update(snap)
	telemetry.SnapshotFlags.Set(float64(snap.Collection.Len()))
	return nil
}

// ---- middleware & helpers ----

func (s *Server) authAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
		if got == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		// constant-time compare
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminAPIKey)) != 1 {
			writeError(w, http.StatusForbidden, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	}
}
