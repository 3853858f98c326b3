package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/contesthub/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// UserHandler provides HTTP handlers for profiles, the follow graph, and
// host ratings.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.Use(authMiddleware)
	r.Get("/{userID}", handler.GetProfile)
	r.Post("/{userID}/follow", handler.Follow)
	r.Post("/{userID}/unfollow", handler.Unfollow)
	r.Post("/{userID}/rate", handler.RateHost)
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "user not found", "failed to fetch user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.setFollow(w, r, true)
}

func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.setFollow(w, r, false)
}

func (h *UserHandler) setFollow(w http.ResponseWriter, r *http.Request, follow bool) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if identity.Admin {
		writeError(w, http.StatusForbidden, "admin accounts have no follow graph")
		return
	}

	targetID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if targetID == identity.ID {
		writeError(w, http.StatusBadRequest, "cannot follow yourself")
		return
	}

	if follow {
		err = h.userService.Follow(r.Context(), identity.ID, targetID)
	} else {
		err = h.userService.Unfollow(r.Context(), identity.ID, targetID)
	}
	if err != nil {
		writeServiceError(w, err, "user not found", "failed to update follow state")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) RateHost(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	hostID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req RateHostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "review content is required")
		return
	}

	host, err := h.userService.RateHost(r.Context(), hostID, identity.ID, req.Rating, req.Content)
	if err != nil {
		writeServiceError(w, err, "user not found", "failed to rate host")
		return
	}

	writeJSON(w, http.StatusOK, host)
}

type RateHostRequest struct {
	Rating  int    `json:"rating"`
	Content string `json:"content"`
}
