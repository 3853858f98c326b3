package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/contesthub/apiserver/internal/services"
	"github.com/contesthub/apiserver/internal/store"
	"github.com/contesthub/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AdminHandler serves the moderation surface: user listing and removal,
// and host-application review.
type AdminHandler struct {
	userService      *services.UserService
	adminService     *services.AdminService
	applicantService *services.ApplicantService
}

func NewAdminHandler(userService *services.UserService, adminService *services.AdminService, applicantService *services.ApplicantService) *AdminHandler {
	return &AdminHandler{
		userService:      userService,
		adminService:     adminService,
		applicantService: applicantService,
	}
}

// AdminRouter registers moderation routes. Every route requires an
// administrative identity on top of authentication.
func AdminRouter(r chi.Router, userService *services.UserService, adminService *services.AdminService, applicantService *services.ApplicantService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAdminHandler(userService, adminService, applicantService)

	r.Use(authMiddleware)
	r.Use(handler.requireAdmin)

	r.Get("/users", handler.ListUsers)
	r.Delete("/users/{userID}", handler.DeleteUser)
	r.Get("/applicants", handler.ListApplicants)
	r.Post("/applicants/{applicantID}/approve", handler.ApproveApplicant)
	r.Post("/applicants/{applicantID}/reject", handler.RejectApplicant)
}

// requireAdmin re-fetches the caller's record so a revoked flag takes
// effect on the next request rather than at token expiry.
func (h *AdminHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if identity.Admin {
			if _, err := h.adminService.GetByID(r.Context(), identity.ID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to check permissions")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		user, err := h.userService.GetByID(r.Context(), identity.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to check permissions")
			return
		}
		if !user.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, UserListResponse{Items: users, Total: len(users)})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userService.Delete(r.Context(), userID); err != nil {
		writeServiceError(w, err, "user not found", "failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListApplicants(w http.ResponseWriter, r *http.Request) {
	applicants, err := h.applicantService.ListPending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list applicants")
		return
	}

	writeJSON(w, http.StatusOK, ApplicantListResponse{Items: applicants, Total: len(applicants)})
}

func (h *AdminHandler) ApproveApplicant(w http.ResponseWriter, r *http.Request) {
	h.decideApplicant(w, r, h.applicantService.Approve)
}

func (h *AdminHandler) RejectApplicant(w http.ResponseWriter, r *http.Request) {
	h.decideApplicant(w, r, h.applicantService.Reject)
}

func (h *AdminHandler) decideApplicant(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, applicantID int) (types.Applicant, error)) {
	applicantID, err := parseIDParam(r, "applicantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	applicant, err := decide(r.Context(), applicantID)
	if err != nil {
		writeServiceError(w, err, "applicant not found", "failed to decide application")
		return
	}

	writeJSON(w, http.StatusOK, applicant)
}

type ApplicantListResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}
