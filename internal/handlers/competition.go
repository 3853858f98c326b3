package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/contesthub/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// CompetitionHandler provides HTTP handlers for the competition lifecycle.
type CompetitionHandler struct {
	competitionService *services.CompetitionService
	userService        *services.UserService
}

func NewCompetitionHandler(competitionService *services.CompetitionService, userService *services.UserService) *CompetitionHandler {
	return &CompetitionHandler{
		competitionService: competitionService,
		userService:        userService,
	}
}

// CompetitionRouter registers competition lifecycle routes on the given
// router. The feed and judge routers hang their own subtrees off the same
// mount point.
func CompetitionRouter(r chi.Router, competitionService *services.CompetitionService, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewCompetitionHandler(competitionService, userService)

	r.With(authMiddleware).Get("/", handler.List)
	r.With(authMiddleware).Post("/", handler.Create)
	r.With(authMiddleware).Get("/mine", handler.Mine)
	r.With(authMiddleware).Get("/{competitionID}", handler.Get)
	r.With(authMiddleware).Post("/{competitionID}/join", handler.Join)
	r.With(authMiddleware).Post("/{competitionID}/end", handler.End)
	r.With(authMiddleware).Delete("/{competitionID}", handler.Delete)
}

func (h *CompetitionHandler) List(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	comps, err := h.competitionService.List(r.Context(), search)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list competitions")
		return
	}

	writeJSON(w, http.StatusOK, CompetitionListResponse{Items: comps, Total: len(comps)})
}

func (h *CompetitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	compID, err := parseIDParam(r, "competitionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comp, err := h.competitionService.Get(r.Context(), compID)
	if err != nil {
		writeServiceError(w, err, "competition not found", "failed to fetch competition")
		return
	}

	writeJSON(w, http.StatusOK, comp)
}

func (h *CompetitionHandler) Mine(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	comps, err := h.competitionService.Mine(r.Context(), identity.ID)
	if err != nil {
		writeServiceError(w, err, "user not found", "failed to list competitions")
		return
	}

	writeJSON(w, http.StatusOK, CompetitionListResponse{Items: comps, Total: len(comps)})
}

func (h *CompetitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CompetitionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Genre = strings.TrimSpace(req.Genre)
	req.About = strings.TrimSpace(req.About)
	if req.Title == "" || req.Genre == "" || req.About == "" {
		writeError(w, http.StatusBadRequest, "title, genre, and about are required")
		return
	}

	comp, err := h.competitionService.Create(r.Context(), identity.ID, req.Title, req.Genre, req.About)
	if err != nil {
		writeServiceError(w, err, "user not found", "failed to create competition")
		return
	}

	writeJSON(w, http.StatusCreated, comp)
}

func (h *CompetitionHandler) Join(w http.ResponseWriter, r *http.Request) {
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

	comp, err := h.competitionService.Join(r.Context(), compID, identity.ID)
	if err != nil {
		writeServiceError(w, err, "competition not found", "failed to join competition")
		return
	}

	writeJSON(w, http.StatusOK, comp)
}

func (h *CompetitionHandler) End(w http.ResponseWriter, r *http.Request) {
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

	comp, err := h.competitionService.End(r.Context(), compID, identity.ID)
	if err != nil {
		writeServiceError(w, err, "competition not found", "failed to end competition")
		return
	}

	writeJSON(w, http.StatusOK, comp)
}

func (h *CompetitionHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	isAdmin, err := callerIsAdmin(r, identity, h.userService)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check permissions")
		return
	}

	if err := h.competitionService.Delete(r.Context(), compID, identity.ID, isAdmin); err != nil {
		writeServiceError(w, err, "competition not found", "failed to delete competition")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// callerIsAdmin reports whether the identity may take administrative
// action. Accounts from the admins table always qualify; user accounts
// qualify when flagged.
func callerIsAdmin(r *http.Request, identity Identity, userService *services.UserService) (bool, error) {
	if identity.Admin {
		return true, nil
	}
	user, err := userService.GetByID(r.Context(), identity.ID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

type CompetitionCreateRequest struct {
	Title string `json:"title"`
	Genre string `json:"genre"`
	About string `json:"about"`
}

type CompetitionListResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}
