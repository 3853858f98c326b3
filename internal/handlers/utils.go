package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/contesthub/apiserver/internal/services"
	"github.com/contesthub/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// Identity is the authenticated caller: the token subject plus a marker
// for accounts living in the parallel admins table. Handlers re-fetch the
// current record per request; nothing else is carried over from login.
type Identity struct {
	ID    int
	Admin bool
}

func identityFromContext(ctx context.Context) (Identity, error) {
	identity, ok := ctx.Value(contextIdentityKey).(Identity)
	if !ok || identity.ID < 1 {
		return Identity{}, errors.New("missing subject")
	}
	return identity, nil
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps service-layer sentinels onto the uniform error
// body. fallback describes the operation for unanticipated failures.
func writeServiceError(w http.ResponseWriter, err error, notFoundMsg, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflicting state")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func parseIDParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
