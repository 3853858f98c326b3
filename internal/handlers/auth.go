package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/contesthub/apiserver/internal/services"
	"github.com/contesthub/apiserver/internal/store"
	"github.com/contesthub/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 24 * time.Hour
const dobLayout = "2006-01-02"

// AuthHandler provides JWT authentication endpoints. Login falls back to
// the parallel admins table when no user matches the email.
type AuthHandler struct {
	userService  *services.UserService
	adminService *services.AdminService
	secret       []byte
	tokenTTL     time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, adminService *services.AdminService, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		adminService: adminService,
		secret:       []byte(jwtSecret),
		tokenTTL:     defaultTokenTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, adminService *services.AdminService, jwtSecret string) {
	handler := NewAuthHandler(userService, adminService, jwtSecret)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/reset-password", handler.ResetPassword)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
	r.With(handler.RequireAuth).Put("/me", handler.UpdateMe)
}

// RequireAuth enforces JWT authentication and injects the caller identity
// into the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return requireAuth(h.secret)(next)
}

// RequireAuth constructs auth middleware for other routers.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	return requireAuth([]byte(jwtSecret))
}

func requireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			identity, err := parseToken(tokenString, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextIdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Register creates a new user account and returns a JWT.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Fullname = strings.TrimSpace(req.Fullname)
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.SecurityQuestion = strings.TrimSpace(req.SecurityQuestion)
	req.SecurityAnswer = strings.TrimSpace(req.SecurityAnswer)
	if req.Fullname == "" || req.Username == "" || req.Email == "" || req.Password == "" ||
		req.SecurityQuestion == "" || req.SecurityAnswer == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}

	dob, err := time.Parse(dobLayout, req.DOB)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date of birth")
		return
	}

	if _, err := h.userService.GetByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, "email is already registered")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to check user")
		return
	}
	if _, err := h.userService.GetByUsername(r.Context(), req.Username); err == nil {
		writeError(w, http.StatusConflict, "username already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to check user")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user, err := h.userService.Create(r.Context(), types.User{
		Fullname:         req.Fullname,
		Username:         req.Username,
		Email:            req.Email,
		PasswordHash:     string(hashed),
		DOB:              dob,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   req.SecurityAnswer,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "email is already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := issueToken(user.ID, false, h.secret, h.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login verifies credentials and returns a JWT. Unknown user emails fall
// back to the admins table before failing.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), req.Email)
	if err == nil {
		h.finishLogin(w, user.ID, false, user.PasswordHash, req.Password, user)
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	admin, err := h.adminService.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}
	h.finishLogin(w, admin.ID, true, admin.PasswordHash, req.Password, admin)
}

func (h *AuthHandler) finishLogin(w http.ResponseWriter, id int, admin bool, passwordHash, password string, account any) {
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := issueToken(id, admin, h.secret, h.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: account})
}

// ResetPassword overwrites the password after checking the stored
// security question and answer.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.SecurityQuestion == "" || req.SecurityAnswer == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	if user.SecurityQuestion != strings.TrimSpace(req.SecurityQuestion) ||
		!strings.EqualFold(user.SecurityAnswer, strings.TrimSpace(req.SecurityAnswer)) {
		writeError(w, http.StatusUnauthorized, "incorrect security question or answer")
		return
	}

	if req.NewPassword != req.ConfirmNewPassword {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}
	if err := h.userService.SetPassword(r.Context(), user.ID, string(hashed)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password reset successful"})
}

// Me returns the current authenticated account, re-fetched from the
// store so profile changes are always reflected.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if identity.Admin {
		admin, err := h.adminService.GetByID(r.Context(), identity.ID)
		if err != nil {
			writeServiceError(w, err, "unauthorized", "failed to load account")
			return
		}
		writeJSON(w, http.StatusOK, admin)
		return
	}

	user, err := h.userService.GetByID(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe overwrites the caller's profile fields.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if identity.Admin {
		writeError(w, http.StatusForbidden, "admin profiles cannot be updated here")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Fullname = strings.TrimSpace(req.Fullname)
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Fullname == "" || req.Username == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	var dob time.Time
	if strings.TrimSpace(req.DOB) != "" {
		dob, err = time.Parse(dobLayout, req.DOB)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date of birth")
			return
		}
	}

	user, err := h.userService.UpdateProfile(r.Context(), identity.ID, req.Fullname, req.Username, req.Email, dob)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "username or email already taken")
			return
		}
		writeServiceError(w, err, "user not found", "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type RegisterRequest struct {
	Fullname         string `json:"fullname"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	ConfirmPassword  string `json:"confirm_password"`
	DOB              string `json:"dob"`
	SecurityQuestion string `json:"security_question"`
	SecurityAnswer   string `json:"security_answer"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordRequest struct {
	Email              string `json:"email"`
	SecurityQuestion   string `json:"security_question"`
	SecurityAnswer     string `json:"security_answer"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

type UpdateProfileRequest struct {
	Fullname string `json:"fullname"`
	Username string `json:"username"`
	Email    string `json:"email"`
	DOB      string `json:"dob"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type authClaims struct {
	Admin bool `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

func issueToken(id int, admin bool, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := authClaims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(id),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseToken(tokenString string, secret []byte) (Identity, error) {
	claims := authClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, errors.New("invalid token")
	}
	id, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || id < 1 {
		return Identity{}, errors.New("invalid subject")
	}
	return Identity{ID: id, Admin: claims.Admin}, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
