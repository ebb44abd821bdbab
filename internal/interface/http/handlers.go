package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/classpulse/insight-hub/internal/application/command"
	"github.com/classpulse/insight-hub/internal/application/query"
	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/domain/shared"
	"github.com/classpulse/insight-hub/pkg/logger"
)

// maxRequestBodyBytes limits write-endpoint request bodies.
const maxRequestBodyBytes = 256 << 10 // 256 KB

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Endpoint not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "ClassPulse Insight Hub API",
		"version": "v1",
		"status":  "operational",
		"uptime":  s.Uptime().String(),
		"endpoints": map[string]string{
			"health":            "/health",
			"dashboard":         "/api/v1/dashboard/attention",
			"student_attention": "/api/v1/students/{id}/attention",
			"badge_suggestions": "/api/v1/students/{id}/badges/suggestions",
		},
	})
}

// handleHealth performs a full health check of all dependencies.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"note":   "no health checker configured",
		})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())

	httpStatus := http.StatusOK
	if !status.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, status)
}

// handleReady checks if the server is ready to accept traffic.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.IsRunning() {
		writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "Server is not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive is a simple liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENTION HANDLERS (Read Side)
// ══════════════════════════════════════════════════════════════════════════════

// handleGetDashboard returns the attention dashboard summary.
// GET /api/v1/dashboard/attention?assignment_ids=a,b&skip_cache=true
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetAttentionDashboard == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Dashboard query is not available")
		return
	}

	q := query.GetAttentionDashboardQuery{
		SkipCache: getQueryParamBool(r, "skip_cache"),
	}
	if raw := r.URL.Query().Get("assignment_ids"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				q.AssignmentIDs = append(q.AssignmentIDs, id)
			}
		}
	}

	result, err := s.deps.GetAttentionDashboard.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetStudentAttention returns the attention status of one student.
// GET /api/v1/students/{id}/attention?assignment_id=...&skip_cache=true
func (s *Server) handleGetStudentAttention(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetStudentAttention == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Student attention query is not available")
		return
	}

	result, err := s.deps.GetStudentAttention.Handle(r.Context(), query.GetStudentAttentionQuery{
		StudentID:    r.PathValue("id"),
		AssignmentID: r.URL.Query().Get("assignment_id"),
		SkipCache:    getQueryParamBool(r, "skip_cache"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetAssignmentAttention returns the attention summary for an assignment.
// GET /api/v1/assignments/{id}/attention?class=...
func (s *Server) handleGetAssignmentAttention(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetAssignmentAttention == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Assignment attention query is not available")
		return
	}

	result, err := s.deps.GetAssignmentAttention.Handle(r.Context(), query.GetAssignmentAttentionQuery{
		AssignmentID: r.PathValue("id"),
		ClassName:    r.URL.Query().Get("class"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetBadgeSuggestions returns the badge suggestion queue for a student.
// GET /api/v1/students/{id}/badges/suggestions?sort=priority
func (s *Server) handleGetBadgeSuggestions(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetBadgeSuggestions == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Badge suggestions query is not available")
		return
	}

	result, err := s.deps.GetBadgeSuggestions.Handle(r.Context(), query.GetBadgeSuggestionsQuery{
		StudentID:      r.PathValue("id"),
		SortByPriority: r.URL.Query().Get("sort") == "priority",
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleEvaluateBadges re-evaluates badge eligibility for a student.
// POST /api/v1/students/{id}/badges/evaluate
func (s *Server) handleEvaluateBadges(w http.ResponseWriter, r *http.Request) {
	if s.deps.EvaluateBadges == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Badge evaluation is not available")
		return
	}

	result, err := s.deps.EvaluateBadges.Handle(r.Context(), command.EvaluateBadgesCommand{
		StudentID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAwardBadge converts a suggestion into an awarded badge.
// POST /api/v1/badges/suggestions/{id}/award
func (s *Server) handleAwardBadge(w http.ResponseWriter, r *http.Request) {
	if s.deps.AwardBadge == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Badge awarding is not available")
		return
	}

	result, err := s.deps.AwardBadge.Handle(r.Context(), command.AwardBadgeCommand{
		SuggestionID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// RECOMMENDATION HANDLERS (Write Side)
// ══════════════════════════════════════════════════════════════════════════════

// createRecommendationRequest is the JSON body for POST /api/v1/recommendations.
type createRecommendationRequest struct {
	ID           string          `json:"id,omitempty"`
	InsightType  string          `json:"insight_type"`
	RuleName     string          `json:"rule_name"`
	Signals      insight.Signals `json:"signals"`
	StudentIDs   []string        `json:"student_ids"`
	AssignmentID string          `json:"assignment_id,omitempty"`
	Priority     int             `json:"priority,omitempty"`
	Summary      string          `json:"summary,omitempty"`
}

// handleCreateRecommendation stores a new recommendation from the rule engine.
// POST /api/v1/recommendations
func (s *Server) handleCreateRecommendation(w http.ResponseWriter, r *http.Request) {
	if s.deps.CreateRecommendation == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Recommendation creation is not available")
		return
	}

	var req createRecommendationRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	result, err := s.deps.CreateRecommendation.Handle(r.Context(), command.CreateRecommendationCommand{
		ID:           req.ID,
		InsightType:  req.InsightType,
		RuleName:     req.RuleName,
		Signals:      req.Signals,
		StudentIDs:   req.StudentIDs,
		AssignmentID: req.AssignmentID,
		Priority:     req.Priority,
		Summary:      req.Summary,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// resolveRecommendationRequest is the JSON body for the status transition endpoint.
type resolveRecommendationRequest struct {
	Status  string `json:"status"`
	ActedBy string `json:"acted_by,omitempty"`
}

// handleResolveRecommendation moves a recommendation to a new lifecycle status.
// POST /api/v1/recommendations/{id}/status
func (s *Server) handleResolveRecommendation(w http.ResponseWriter, r *http.Request) {
	if s.deps.ResolveRecommendation == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Recommendation resolution is not available")
		return
	}

	var req resolveRecommendationRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	result, err := s.deps.ResolveRecommendation.Handle(r.Context(), command.ResolveRecommendationCommand{
		RecommendationID: r.PathValue("id"),
		TargetStatus:     req.Status,
		ActedBy:          req.ActedBy,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST & ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSON decodes a JSON request body, writing a 400 response on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request_body", "Request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}

// writeDomainError maps domain error kinds to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, shared.ErrStateTransition):
		writeJSONError(w, http.StatusConflict, "invalid_transition", err.Error())
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsExternalService(err):
		writeJSONError(w, http.StatusBadGateway, "upstream_error", "Upstream learning platform request failed")
	default:
		s.logger.Error("unhandled request error",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}
