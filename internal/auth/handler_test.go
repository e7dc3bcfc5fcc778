package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/billflow/billflow/testing"
)

type handlerFixture struct {
	repo     *memoryRepo
	notifier *recordingNotifier
	router   chi.Router
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	repo := newMemoryRepo()
	notifier := &recordingNotifier{}
	tokens := NewTokenManager("handler-secret", time.Hour)
	svc := NewService(repo, NewHasher(bcrypt.MinCost), tokens, ServiceConfig{Notifier: notifier})
	router := chi.NewRouter()
	NewHandler(nil, svc, Authenticator{Tokens: tokens}).MountRoutes(router)
	return &handlerFixture{repo: repo, notifier: notifier, router: router}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestHandlerRegisterLoginProfile(t *testing.T) {
	f := newHandlerFixture(t)

	rr := f.do(t, http.MethodPost, "/accounts", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	userID, _ := decodeBody(t, rr)["userId"].(string)
	require.NotEmpty(t, userID)

	rr = f.do(t, http.MethodPost, "/sessions/password", map[string]string{
		"email": "alice@example.com", "password": "secret123",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	token, _ := decodeBody(t, rr)["token"].(string)
	require.NotEmpty(t, token)

	rr = f.do(t, http.MethodGet, "/profile", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	user, _ := decodeBody(t, rr)["user"].(map[string]any)
	assert.Equal(t, userID, user["id"])
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, "Alice", user["name"])
}

func TestHandlerRegisterDuplicate(t *testing.T) {
	f := newHandlerFixture(t)
	body := map[string]string{"name": "Alice", "email": "alice@example.com", "password": "secret123"}
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/accounts", body, "").Code)

	rr := f.do(t, http.MethodPost, "/accounts", body, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "User with same e-mail already exists.", decodeBody(t, rr)["detail"])
}

func TestHandlerRegisterValidation(t *testing.T) {
	f := newHandlerFixture(t)

	rr := f.do(t, http.MethodPost, "/accounts", map[string]string{
		"name": "Alice", "email": "not-an-email", "password": "123",
	}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	errs, _ := decodeBody(t, rr)["errors"].(map[string]any)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
	assert.Equal(t, 0, f.repo.userCount())
}

func TestHandlerLoginInvalidCredentials(t *testing.T) {
	f := newHandlerFixture(t)

	rr := f.do(t, http.MethodPost, "/sessions/password", map[string]string{
		"email": "ghost@example.com", "password": "secret123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid credentials.", decodeBody(t, rr)["detail"])
}

func TestHandlerProfileRequiresToken(t *testing.T) {
	f := newHandlerFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/profile", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/profile", nil, "garbage").Code)
}

func TestHandlerRecoverAlwaysCreated(t *testing.T) {
	f := newHandlerFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/accounts", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret123",
	}, "").Code)

	for _, email := range []string{"alice@example.com", "ghost@example.com"} {
		rr := f.do(t, http.MethodPost, "/password/recover", map[string]string{"email": email}, "")
		assert.Equal(t, http.StatusCreated, rr.Code, email)
		assert.Empty(t, rr.Body.String(), email)
	}
	assert.Equal(t, 1, f.repo.tokenCount())
}

func TestHandlerResetPassword(t *testing.T) {
	f := newHandlerFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/accounts", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret123",
	}, "").Code)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/password/recover", map[string]string{"email": "alice@example.com"}, "").Code)
	token, ok := f.notifier.last()
	require.True(t, ok)

	rr := f.do(t, http.MethodPost, "/password/reset", map[string]string{"code": token.ID.String(), "password": "brand-new"}, "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, http.MethodPost, "/password/reset", map[string]string{"token": token.ID.String(), "password": "brand-new"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid or expired token.", decodeBody(t, rr)["detail"])

	rr = f.do(t, http.MethodPost, "/sessions/password", map[string]string{"email": "alice@example.com", "password": "brand-new"}, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandlerMalformedBody(t *testing.T) {
	f := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString("{"))
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
