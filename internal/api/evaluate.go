package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/variantd/variantd/internal/engine"
	"github.com/variantd/variantd/internal/snapshot"
	"github.com/variantd/variantd/internal/telemetry"
)

// attrQueryPrefix marks query parameters carrying context attributes on
// GET /v1/evaluate, e.g. ?attr.user_group=beta.
const attrQueryPrefix = "attr."

// evaluateRequest is the request body for POST /v1/evaluate.
type evaluateRequest struct {
	Context *contextDTO `json:"context"`
	FlagIDs []string    `json:"flagIds,omitempty"`
}

// contextDTO is the API-layer evaluation context.
type contextDTO struct {
	ID         string         `json:"id,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// evaluateResponse is the response for evaluation endpoints.
type evaluateResponse struct {
	Results     map[string]engine.Result `json:"results"`
	ETag        string                   `json:"etag"`
	EvaluatedAt string                   `json:"evaluatedAt"`
}

// handleEvaluate handles POST /v1/evaluate. POST is used to support complex
// JSON context payloads while keeping evaluation stateless.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Context == nil {
		writeError(w, http.StatusBadRequest, "context is required")
		return
	}

	evalCtx := toEngineContext(req.Context)
	snap := snapshot.Load()
	results := s.evaluator.EvaluateAll(snap.Collection, evalCtx, req.FlagIDs)
	countResults(results)

	writeJSON(w, http.StatusOK, evaluateResponse{
		Results:     results,
		ETag:        snap.ETag,
		EvaluatedAt: evalCtx.EvaluatedAt.Format(time.RFC3339),
	})
}

// handleEvaluateGET handles GET /v1/evaluate with query parameters:
// userId, flags (comma-separated ids), and attr.* attribute pairs.
func (s *Server) handleEvaluateGET(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	userID := strings.TrimSpace(query.Get("userId"))

	var ids []string
	if p := query.Get("flags"); p != "" {
		ids = strings.Split(p, ",")
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
	}

	attributes := make(map[string]any)
	for key, values := range query {
		if !strings.HasPrefix(key, attrQueryPrefix) || len(values) == 0 {
			continue
		}
		attributes[strings.TrimPrefix(key, attrQueryPrefix)] = values[0]
	}

	evalCtx := &engine.Context{
		UserID:      userID,
		Attributes:  attributes,
		EvaluatedAt: time.Now().UTC(),
	}

	snap := snapshot.Load()
	results := s.evaluator.EvaluateAll(snap.Collection, evalCtx, ids)
	countResults(results)

	writeJSON(w, http.StatusOK, evaluateResponse{
		Results:     results,
		ETag:        snap.ETag,
		EvaluatedAt: evalCtx.EvaluatedAt.Format(time.RFC3339),
	})
}

// handleEvaluateOne handles POST /v1/flags/{id}/evaluate.
func (s *Server) handleEvaluateOne(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var ctxDTO contextDTO
	if err := json.NewDecoder(r.Body).Decode(&ctxDTO); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	snap := snapshot.Load()
	flag, ok := snap.Collection.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "flag '"+id+"' not found")
		return
	}

	result := s.evaluator.Evaluate(&flag, toEngineContext(&ctxDTO))
	countResult(result)
	writeJSON(w, http.StatusOK, result)
}

// toEngineContext builds the engine context, stamping the evaluation time
// here so the engine itself stays clock-free.
func toEngineContext(dto *contextDTO) *engine.Context {
	return &engine.Context{
		UserID:      dto.ID,
		Attributes:  dto.Attributes,
		EvaluatedAt: time.Now().UTC(),
	}
}

func countResults(results map[string]engine.Result) {
	for _, res := range results {
		countResult(res)
	}
}

func countResult(res engine.Result) {
	telemetry.Evaluations.WithLabelValues(res.FlagID, string(res.Reason)).Inc()
	if res.Reason == engine.ReasonError {
		telemetry.EvaluationAnomalies.WithLabelValues(res.FlagID).Inc()
	}
}
