package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/contesthub/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// HostHandler accepts host-authorization applications.
type HostHandler struct {
	applicantService *services.ApplicantService
}

func NewHostHandler(applicantService *services.ApplicantService) *HostHandler {
	return &HostHandler{applicantService: applicantService}
}

func HostRouter(r chi.Router, applicantService *services.ApplicantService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewHostHandler(applicantService)

	r.With(authMiddleware).Post("/apply", handler.Apply)
}

func (h *HostHandler) Apply(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if identity.Admin {
		writeError(w, http.StatusForbidden, "admins cannot apply for host authorization")
		return
	}

	var req HostApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}

	applicant, err := h.applicantService.Apply(r.Context(), identity.ID, req.Reason)
	if err != nil {
		writeServiceError(w, err, "user not found", "failed to submit application")
		return
	}

	writeJSON(w, http.StatusCreated, applicant)
}

type HostApplyRequest struct {
	Reason string `json:"reason"`
}
