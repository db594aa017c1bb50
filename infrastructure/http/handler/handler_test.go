package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/authgreet/authgreet/application/port/inbound"
	"github.com/authgreet/authgreet/application/port/outbound"
	domainerr "github.com/authgreet/authgreet/domain/error"
	"github.com/authgreet/authgreet/infrastructure/http/response"
	"github.com/authgreet/authgreet/infrastructure/service/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSessionUseCase struct {
	mock.Mock
}

func (m *mockSessionUseCase) Signup(ctx context.Context, req inbound.SignupRequest) (*inbound.SignupResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.SignupResponse), args.Error(1)
}

func (m *mockSessionUseCase) Login(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.LoginResponse), args.Error(1)
}

func (m *mockSessionUseCase) Logout(ctx context.Context, req inbound.LogoutRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockSessionUseCase) Refresh(ctx context.Context, req inbound.RefreshRequest) (*inbound.RefreshResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.RefreshResponse), args.Error(1)
}

func (m *mockSessionUseCase) Validate(ctx context.Context, token string) (*outbound.TokenClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbound.TokenClaims), args.Error(1)
}

func (m *mockSessionUseCase) Me(ctx context.Context, userID string) (*inbound.MeResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.MeResponse), args.Error(1)
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Signup(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(m *mockSessionUseCase)
		wantStatus int
	}{
		{
			name: "created",
			body: `{"email":"a@x.com","name":"Ann","password":"Passw0rd!"}`,
			setupMock: func(m *mockSessionUseCase) {
				m.On("Signup", mock.Anything, inbound.SignupRequest{Email: "a@x.com", Name: "Ann", Password: "Passw0rd!"}).
					Return(&inbound.SignupResponse{Message: "User registered successfully"}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "conflict",
			body: `{"email":"a@x.com","name":"Ann","password":"Passw0rd!"}`,
			setupMock: func(m *mockSessionUseCase) {
				m.On("Signup", mock.Anything, mock.Anything).Return(nil, domainerr.ErrConflict)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "validation from core",
			body: `{"email":"a@x.com","name":"An","password":"Passw0rd!"}`,
			setupMock: func(m *mockSessionUseCase) {
				m.On("Signup", mock.Anything, mock.Anything).
					Return(nil, domainerr.NewValidationError("name", "Name must be at least 3 characters"))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"email":"a@x.com","name":"Ann","password":"Passw0rd!","admin":true}`,
			setupMock:  func(m *mockSessionUseCase) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(mockSessionUseCase)
			tt.setupMock(uc)
			h := NewAuthHandler(uc, CookieConfig{}, logger.NewNopLogger())

			req := httptest.NewRequest(http.MethodPost, "/authenticate/signup", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.Signup(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			env := decodeEnvelope(t, w)
			assert.Equal(t, tt.wantStatus < 300, env.Status)
			uc.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_LoginSetsRefreshCookie(t *testing.T) {
	for _, secure := range []bool{false, true} {
		uc := new(mockSessionUseCase)
		uc.On("Login", mock.Anything, inbound.LoginRequest{Email: "a@x.com", Password: "Passw0rd!"}).
			Return(&inbound.LoginResponse{
				Message:          "Login successful",
				AccessToken:      "access.jwt.token",
				RefreshToken:     "refresh.jwt.token",
				ExpiresIn:        300,
				RefreshExpiresIn: 3600,
			}, nil)
		h := NewAuthHandler(uc, CookieConfig{Secure: secure}, logger.NewNopLogger())

		req := httptest.NewRequest(http.MethodPost, "/authenticate/login", bytes.NewBufferString(`{"email":"a@x.com","password":"Passw0rd!"}`))
		w := httptest.NewRecorder()
		h.Login(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "refresh.jwt.token")

		env := decodeEnvelope(t, w)
		data := env.Data.(map[string]interface{})
		assert.Equal(t, "access.jwt.token", data["accessToken"])
		assert.Equal(t, float64(300), data["expiresIn"])

		cookie := findCookie(w, RefreshCookieName)
		require.NotNil(t, cookie)
		assert.Equal(t, "refresh.jwt.token", cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, "/", cookie.Path)
		assert.Equal(t, 3600, cookie.MaxAge)
		assert.Equal(t, secure, cookie.Secure)
		if secure {
			assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
		} else {
			assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		}
	}
}

func TestAuthHandler_LoginInvalidCredentials(t *testing.T) {
	uc := new(mockSessionUseCase)
	uc.On("Login", mock.Anything, mock.Anything).Return(nil, domainerr.ErrInvalidCredentials)
	h := NewAuthHandler(uc, CookieConfig{}, logger.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/authenticate/login", bytes.NewBufferString(`{"email":"a@x.com","password":"nope"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, findCookie(w, RefreshCookieName))
}

func TestAuthHandler_LogoutWithoutClaims(t *testing.T) {
	h := NewAuthHandler(new(mockSessionUseCase), CookieConfig{}, logger.NewNopLogger())
	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/authenticate/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenHandler_Refresh(t *testing.T) {
	t.Run("FromCookie", func(t *testing.T) {
		uc := new(mockSessionUseCase)
		uc.On("Refresh", mock.Anything, inbound.RefreshRequest{RefreshToken: "r.t.k"}).
			Return(&inbound.RefreshResponse{AccessToken: "new.access.token", ExpiresIn: 300}, nil)
		h := NewTokenHandler(uc, logger.NewNopLogger())

		req := httptest.NewRequest(http.MethodPost, "/tokens/refresh", nil)
		req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "r.t.k"})
		w := httptest.NewRecorder()
		h.Refresh(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeEnvelope(t, w).Data.(map[string]interface{})
		assert.Equal(t, "new.access.token", data["accessToken"])
	})

	t.Run("MissingCookie", func(t *testing.T) {
		uc := new(mockSessionUseCase)
		uc.On("Refresh", mock.Anything, inbound.RefreshRequest{}).Return(nil, domainerr.ErrInvalidRefreshToken)
		h := NewTokenHandler(uc, logger.NewNopLogger())

		w := httptest.NewRecorder()
		h.Refresh(w, httptest.NewRequest(http.MethodPost, "/tokens/refresh", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeEnvelope(t, w).Status)
}
