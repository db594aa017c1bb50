package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/authgreet/authgreet/application/usecase"
	"github.com/authgreet/authgreet/infrastructure/adapter/memory"
	"github.com/authgreet/authgreet/infrastructure/config"
	"github.com/authgreet/authgreet/infrastructure/http/response"
	"github.com/authgreet/authgreet/infrastructure/service/jwt"
	"github.com/authgreet/authgreet/infrastructure/service/logger"
	"github.com/authgreet/authgreet/infrastructure/service/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     5 * time.Minute,
		RefreshTokenTTL:    720 * time.Hour,
		JWTIssuer:          "authgreet",
	}
	tokens, err := jwt.NewJWTService(cfg)
	require.NoError(t, err)
	hasher, err := password.NewBcryptPasswordService(bcrypt.MinCost, "pepper")
	require.NoError(t, err)

	log := logger.NewNopLogger()
	uc := usecase.NewSessionUseCase(memory.NewUserRepository(), tokens, hasher, log, cfg.RefreshTokenTTL)
	return NewRouter(Config{AllowedOrigins: []string{"http://localhost:5173"}}, uc, log)
}

type call struct {
	method  string
	path    string
	body    string
	bearer  string
	cookies []*http.Cookie
}

func do(t *testing.T, h http.Handler, c call) (*httptest.ResponseRecorder, response.Envelope) {
	t.Helper()
	req := httptest.NewRequest(c.method, c.path, bytes.NewBufferString(c.body))
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env response.Envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestRouter_SessionFlow(t *testing.T) {
	h := newTestRouter(t)
	signupBody := `{"email":"a@x.com","name":"Ann","password":"Passw0rd!"}`

	w, env := do(t, h, call{method: http.MethodPost, path: "/authenticate/signup", body: signupBody})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "User registered successfully", env.Message)
	assert.NotEmpty(t, w.Header().Get("X-Session-ID"))

	w, _ = do(t, h, call{method: http.MethodPost, path: "/authenticate/signup", body: signupBody})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = do(t, h, call{method: http.MethodPost, path: "/authenticate/login", body: `{"email":"a@x.com","password":"Passw0rd!"}`})
	require.Equal(t, http.StatusOK, w.Code)
	access := env.Data.(map[string]interface{})["accessToken"].(string)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	refreshCookie := cookies[0]
	assert.Equal(t, "refreshToken", refreshCookie.Name)

	w, _ = do(t, h, call{method: http.MethodPost, path: "/tokens/validate", bearer: access})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, h, call{method: http.MethodGet, path: "/authenticate/me", bearer: access})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ann", env.Data.(map[string]interface{})["name"])

	// A refresh token presented as an access credential is rejected.
	w, _ = do(t, h, call{method: http.MethodPost, path: "/tokens/validate", bearer: refreshCookie.Value})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = do(t, h, call{method: http.MethodPost, path: "/tokens/refresh", cookies: []*http.Cookie{refreshCookie}})
	require.Equal(t, http.StatusOK, w.Code)
	newAccess := env.Data.(map[string]interface{})["accessToken"].(string)

	w, _ = do(t, h, call{method: http.MethodPost, path: "/tokens/validate", bearer: newAccess})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, h, call{method: http.MethodPost, path: "/authenticate/logout", bearer: newAccess})
	require.Equal(t, http.StatusOK, w.Code)
	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestRouter_Failures(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name       string
		c          call
		wantStatus int
	}{
		{"bad login", call{method: http.MethodPost, path: "/authenticate/login", body: `{"email":"nobody@x.com","password":"Passw0rd!"}`}, http.StatusUnauthorized},
		{"invalid signup", call{method: http.MethodPost, path: "/authenticate/signup", body: `{"email":"bad","name":"Ann","password":"Passw0rd!"}`}, http.StatusBadRequest},
		{"refresh without cookie", call{method: http.MethodPost, path: "/tokens/refresh"}, http.StatusUnauthorized},
		{"refresh with garbage", call{method: http.MethodPost, path: "/tokens/refresh", cookies: []*http.Cookie{{Name: "refreshToken", Value: "garbage"}}}, http.StatusUnauthorized},
		{"validate without token", call{method: http.MethodPost, path: "/tokens/validate"}, http.StatusUnauthorized},
		{"logout without token", call{method: http.MethodPost, path: "/authenticate/logout"}, http.StatusUnauthorized},
		{"unknown route", call{method: http.MethodGet, path: "/nope"}, http.StatusNotFound},
		{"wrong method", call{method: http.MethodGet, path: "/tokens/refresh"}, http.StatusMethodNotAllowed},
		{"health", call{method: http.MethodGet, path: "/health"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := do(t, h, tt.c)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/tokens/refresh", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
