package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/jury-engine/internal/campaign"
	"github.com/terra-clan/jury-engine/internal/health"
	"github.com/terra-clan/jury-engine/internal/models"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondServiceError maps manager errors onto status codes and error codes
func respondServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, campaign.ErrInvalidInput):
		msg := strings.TrimPrefix(err.Error(), campaign.ErrInvalidInput.Error()+": ")
		respondError(w, http.StatusBadRequest, "validation_error", msg)
	case errors.Is(err, campaign.ErrCampaignNotFound):
		respondError(w, http.StatusNotFound, "not_found", "campaign not found")
	case errors.Is(err, campaign.ErrRoundNotFound):
		respondError(w, http.StatusNotFound, "not_found", "round not found")
	case errors.Is(err, models.ErrPreviousRoundIncomplete):
		respondError(w, http.StatusConflict, "previous_round_incomplete", err.Error())
	case errors.Is(err, models.ErrRoundNotActivatable):
		respondError(w, http.StatusConflict, "round_not_activatable", err.Error())
	case errors.Is(err, campaign.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid_transition", err.Error())
	default:
		slog.Error("failed to "+action, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

// decodeBody decodes a JSON request body. Unknown enum values are validation errors.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, models.ErrUnknownVoteMethod) || errors.Is(err, models.ErrUnknownRoundStatus) {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := s.checks.HealthCheckAll(r.Context())

	checks := make(map[string]string, len(results))
	for name, err := range results {
		checks[name] = "ok"
		if err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			checks[name] = err.Error()
		}
	}

	if !health.Healthy(results) {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": checks,
	})
}

// Campaign handlers

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCampaignRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := s.manager.CreateCampaign(r.Context(), req.Name)
	if err != nil {
		respondServiceError(w, err, "create campaign")
		return
	}

	respondJSON(w, http.StatusCreated, campaignResponse(c))
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := s.manager.GetCampaign(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "get campaign")
		return
	}

	respondJSON(w, http.StatusOK, campaignResponse(c))
}

func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.CampaignUpdate
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := s.manager.RenameCampaign(r.Context(), id, req.Name)
	if err != nil {
		respondServiceError(w, err, "update campaign")
		return
	}

	respondJSON(w, http.StatusOK, campaignResponse(c))
}

func campaignResponse(c *models.Campaign) models.CampaignResponse {
	return models.CampaignResponse{Campaign: *c, Slug: c.Slug()}
}

// Round handlers

func (s *Server) handleCreateRound(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")

	var req models.CreateRoundRequest
	if !decodeBody(w, r, &req) {
		return
	}

	round, err := s.manager.CreateRound(r.Context(), campaignID, req)
	if err != nil {
		respondServiceError(w, err, "create round")
		return
	}

	respondJSON(w, http.StatusCreated, round)
}

func (s *Server) handleActivateRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.manager.ActivateRound(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "activate round")
		return
	}

	respondJSON(w, http.StatusOK, round)
}

func (s *Server) handleCompleteRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.manager.CompleteRound(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "complete round")
		return
	}

	respondJSON(w, http.StatusOK, round)
}

func (s *Server) handleCancelRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.manager.CancelRound(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "cancel round")
		return
	}

	respondJSON(w, http.StatusOK, round)
}

func (s *Server) handleSetTasks(w http.ResponseWriter, r *http.Request) {
	var req models.SetTasksRequest
	if !decodeBody(w, r, &req) {
		return
	}

	round, err := s.manager.SetTasks(r.Context(), chi.URLParam(r, "id"), req.TotalTasks)
	if err != nil {
		respondServiceError(w, err, "set round tasks")
		return
	}

	respondJSON(w, http.StatusOK, round)
}

// Listing handlers

func (s *Server) handleListAdminRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := s.manager.ListAdminRounds(r.Context())
	if err != nil {
		respondServiceError(w, err, "list rounds")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rounds": rounds,
		"total":  len(rounds),
	})
}

func (s *Server) handleListJurorRounds(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	rounds, err := s.manager.ListJurorRounds(r.Context(), user.Username)
	if err != nil {
		respondServiceError(w, err, "list juror rounds")
		return
	}

	respondJSON(w, http.StatusOK, models.JurorRounds{
		Rounds: rounds,
		User:   user,
	})
}

// Organizer handlers

func (s *Server) handleAddOrganizer(w http.ResponseWriter, r *http.Request) {
	var req models.AddOrganizerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := s.manager.AddOrganizer(r.Context(), req.Username)
	if err != nil {
		respondServiceError(w, err, "add organizer")
		return
	}

	respondJSON(w, http.StatusCreated, models.OrganizerResponse{User: *user, ApiKey: user.ApiKey})
}
