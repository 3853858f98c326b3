package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/contesthub/apiserver/internal/services"
	"github.com/contesthub/apiserver/internal/store"
	"github.com/contesthub/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

// memUserRepo is a minimal in-memory services.UserRepository.
type memUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*types.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int]*types.User)}
}

func (r *memUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return *user, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return *user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			return *user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUserRepo) GetByIDs(_ context.Context, ids []int) ([]types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]types.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (r *memUserRepo) List(_ context.Context) ([]types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]types.User, 0, len(r.users))
	for id := 1; id <= r.nextID; id++ {
		if user, ok := r.users[id]; ok {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (r *memUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.JoiningDate = time.Now()
	r.users[user.ID] = &user
	return user, nil
}

func (r *memUserRepo) Mutate(_ context.Context, id int, fn func(*types.User) error) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	copied := *user
	if err := fn(&copied); err != nil {
		return types.User{}, err
	}
	r.users[id] = &copied
	return copied, nil
}

func (r *memUserRepo) SetFollow(_ context.Context, _, _ int, _ bool) error { return nil }

func (r *memUserRepo) SetHostAuth(_ context.Context, userID int, hostAuth bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.HostAuth = hostAuth
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// memAdminRepo is a minimal in-memory services.AdminRepository.
type memAdminRepo struct {
	mu     sync.Mutex
	nextID int
	admins map[int]*types.Admin
}

func newMemAdminRepo() *memAdminRepo {
	return &memAdminRepo{admins: make(map[int]*types.Admin)}
}

func (r *memAdminRepo) GetByID(_ context.Context, id int) (types.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin, ok := r.admins[id]
	if !ok {
		return types.Admin{}, store.ErrNotFound
	}
	return *admin, nil
}

func (r *memAdminRepo) GetByEmail(_ context.Context, email string) (types.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, admin := range r.admins {
		if admin.Email == email {
			return *admin, nil
		}
	}
	return types.Admin{}, store.ErrNotFound
}

func (r *memAdminRepo) Create(_ context.Context, admin types.Admin) (types.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	admin.ID = r.nextID
	admin.HostAuth = true
	admin.IsAdmin = true
	r.admins[admin.ID] = &admin
	return admin, nil
}

func newAuthTestRouter(t *testing.T) (*chi.Mux, *memUserRepo, *memAdminRepo) {
	t.Helper()
	users := newMemUserRepo()
	admins := newMemAdminRepo()

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, services.NewUserService(users), services.NewAdminService(admins), testSecret)
	})
	return router, users, admins
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerPayload(username, email string) map[string]string {
	return map[string]string{
		"fullname":          "Test User",
		"username":          username,
		"email":             email,
		"password":          "sup3rsecret!",
		"confirm_password":  "sup3rsecret!",
		"dob":               "1999-04-01",
		"security_question": "first pet",
		"security_answer":   "Rex",
	}
}

func TestRegisterReturnsTokenAndUser(t *testing.T) {
	router, _, _ := newAuthTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", registerPayload("alice", "alice@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token string     `json:"token"`
		User  types.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)

	me := doJSON(t, router, http.MethodGet, "/auth/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, me.Code)
}

func TestRegisterValidation(t *testing.T) {
	router, _, _ := newAuthTestRouter(t)

	payload := registerPayload("alice", "alice@example.com")
	payload["confirm_password"] = "different"
	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	payload = registerPayload("alice", "alice@example.com")
	payload["dob"] = "not-a-date"
	rec = doJSON(t, router, http.MethodPost, "/auth/register", "", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	router, _, _ := newAuthTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", registerPayload("alice", "alice@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/register", "", registerPayload("alice2", "alice@example.com"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/register", "", registerPayload("alice", "alice2@example.com"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin(t *testing.T) {
	router, _, _ := newAuthTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", registerPayload("alice", "alice@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "sup3rsecret!",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "sup3rsecret!",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginFallsBackToAdmins(t *testing.T) {
	router, _, admins := newAuthTestRouter(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("adminpass"), bcrypt.DefaultCost)
	require.NoError(t, err)
	_, err = admins.Create(context.Background(), types.Admin{
		Username:     "root",
		Email:        "root@example.com",
		PasswordHash: string(hash),
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "root@example.com",
		"password": "adminpass",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	me := doJSON(t, router, http.MethodGet, "/auth/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, me.Code)

	var account types.Admin
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &account))
	assert.Equal(t, "root", account.Username)
	assert.True(t, account.IsAdmin)
}

func TestResetPassword(t *testing.T) {
	router, _, _ := newAuthTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", registerPayload("alice", "alice@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"email":                "alice@example.com",
		"security_question":    "first pet",
		"security_answer":      "wrong answer",
		"new_password":         "n3wsecret!",
		"confirm_new_password": "n3wsecret!",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The stored answer is matched case-insensitively.
	rec = doJSON(t, router, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"email":                "alice@example.com",
		"security_question":    "first pet",
		"security_answer":      "rex",
		"new_password":         "n3wsecret!",
		"confirm_new_password": "n3wsecret!",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "n3wsecret!",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "sup3rsecret!",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateMe(t *testing.T) {
	router, _, _ := newAuthTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", registerPayload("alice", "alice@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = doJSON(t, router, http.MethodPut, "/auth/me", resp.Token, map[string]string{
		"fullname": "Alice Brown",
		"username": "aliceb",
		"email":    "alice@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated types.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Alice Brown", updated.Fullname)
	assert.Equal(t, "aliceb", updated.Username)
}

func TestMeWithoutTokenUnauthorized(t *testing.T) {
	router, _, _ := newAuthTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
