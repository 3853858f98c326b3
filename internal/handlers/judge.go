package handlers

import (
	"context"
	"net/http"

	"github.com/contesthub/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// JudgeHandler manages the judge invitation workflow of a competition.
type JudgeHandler struct {
	judgeService *services.JudgeService
}

func NewJudgeHandler(judgeService *services.JudgeService) *JudgeHandler {
	return &JudgeHandler{judgeService: judgeService}
}

// JudgeRouter registers judge workflow routes under a competition subtree.
func JudgeRouter(r chi.Router, judgeService *services.JudgeService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewJudgeHandler(judgeService)

	r.With(authMiddleware).Get("/eligible", handler.Eligible)
	r.With(authMiddleware).Post("/{userID}", handler.Request)
	r.With(authMiddleware).Post("/accept", handler.Accept)
	r.With(authMiddleware).Post("/reject", handler.Reject)
}

func (h *JudgeHandler) Eligible(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	compID, err := parseIDParam(r, "competitionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := h.judgeService.EligibleFollowers(r.Context(), compID, identity.ID)
	if err != nil {
		writeServiceError(w, err, "competition not found", "failed to list eligible judges")
		return
	}

	writeJSON(w, http.StatusOK, UserListResponse{Items: users, Total: len(users)})
}

func (h *JudgeHandler) Request(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	compID, err := parseIDParam(r, "competitionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	candidateID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.judgeService.Request(r.Context(), compID, identity.ID, candidateID); err != nil {
		writeServiceError(w, err, "competition not found", "failed to send judge request")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "judge request sent"})
}

func (h *JudgeHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.judgeService.Accept, "judge request accepted")
}

func (h *JudgeHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.judgeService.Reject, "judge request rejected")
}

func (h *JudgeHandler) resolve(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, compID, responderID int) error, message string) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	compID, err := parseIDParam(r, "competitionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := fn(r.Context(), compID, identity.ID); err != nil {
		writeServiceError(w, err, "judge request not found", "failed to resolve judge request")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UserListResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}
