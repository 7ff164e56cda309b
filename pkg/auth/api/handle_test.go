package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wafra-app/wafra-backend/pkg/auth"
	"github.com/wafra-app/wafra-backend/pkg/emailverification"
	"github.com/wafra-app/wafra-backend/pkg/profile"
	"github.com/wafra-app/wafra-backend/pkg/tokengenerator"
)

const testSecret = "test-secret"

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()

	repo := profile.NewInMemoryRepository()
	tokenService := tokengenerator.NewTokenService(
		tokengenerator.NewJwtTokenGenerator(testSecret, "wafra", "wafra-app"),
	)
	verifier := emailverification.NewEmailVerificationService(repo, "http://localhost:3000")
	authService := auth.NewAuthService(repo, tokenService, auth.WithEmailVerifier(verifier))
	handle := NewHandle(authService)

	tokenAuth := jwtauth.New("HS256", []byte(testSecret), nil)

	r := chi.NewRouter()
	r.Route("/api/auth", func(r chi.Router) {
		RegisterRoutes(r, handle)
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator(tokenAuth))
			RegisterProtectedRoutes(r, handle)
		})
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
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
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerBody() RegisterRequest {
	return RegisterRequest{
		Name:     "Sara Alqahtani",
		Email:    "sara@example.com",
		Phone:    "+966501112222",
		Password: "s3cretpass",
		Location: profile.Location{City: "Riyadh"},
	}
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("customer created", func(t *testing.T) {
		router := setupRouter(t)
		rec := doJSON(t, router, http.MethodPost, "/api/auth/register", registerBody(), "")
		require.Equal(t, http.StatusCreated, rec.Code)

		var response AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, "sara@example.com", response.User.Email)
		assert.Equal(t, profile.KindCustomer, response.User.Kind)
		assert.NotEmpty(t, response.Session.Token)
		assert.NotEmpty(t, response.Session.ExpiresAt)

		assert.NotContains(t, strings.ToLower(rec.Body.String()), "password")
	})

	t.Run("shop route forces shop kind", func(t *testing.T) {
		router := setupRouter(t)
		body := registerBody()
		body.Business = &profile.BusinessInfo{
			BusinessName:           "Dates Corner",
			CommercialRegistration: "1010101010",
		}
		rec := doJSON(t, router, http.MethodPost, "/api/auth/register/shop", body, "")
		require.Equal(t, http.StatusCreated, rec.Code)

		var response AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, profile.KindShop, response.User.Kind)
	})

	t.Run("validation error shape", func(t *testing.T) {
		router := setupRouter(t)
		body := registerBody()
		body.Email = "not-an-email"
		rec := doJSON(t, router, http.MethodPost, "/api/auth/register", body, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, "error", response.Status)
		assert.Equal(t, "VALIDATION_FAILED", response.Code)
		fields, ok := response.Details["fields"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, fields, "email")
	})

	t.Run("duplicate email conflict", func(t *testing.T) {
		router := setupRouter(t)
		require.Equal(t, http.StatusCreated,
			doJSON(t, router, http.MethodPost, "/api/auth/register", registerBody(), "").Code)

		rec := doJSON(t, router, http.MethodPost, "/api/auth/register", registerBody(), "")
		require.Equal(t, http.StatusConflict, rec.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, "DUPLICATE_FIELD", response.Code)
		assert.Equal(t, "email", response.Details["field"])
	})

	t.Run("malformed body", func(t *testing.T) {
		router := setupRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginEndpoint(t *testing.T) {
	router := setupRouter(t)
	require.Equal(t, http.StatusCreated,
		doJSON(t, router, http.MethodPost, "/api/auth/register", registerBody(), "").Code)

	t.Run("success", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/login",
			LoginRequest{Email: "sara@example.com", Password: "s3cretpass"}, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var response AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.NotEmpty(t, response.Session.Token)
	})

	t.Run("wrong password and unknown email return identical bodies", func(t *testing.T) {
		wrongPass := doJSON(t, router, http.MethodPost, "/api/auth/login",
			LoginRequest{Email: "sara@example.com", Password: "wrong-password"}, "")
		unknown := doJSON(t, router, http.MethodPost, "/api/auth/login",
			LoginRequest{Email: "nobody@example.com", Password: "s3cretpass"}, "")

		assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, wrongPass.Body.String(), unknown.Body.String())
	})
}

func TestProtectedRoutes(t *testing.T) {
	router := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", registerBody(), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var registered AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	token := registered.Session.Token

	t.Run("me without token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/auth/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("me with garbage token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/auth/me", nil, "not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("me with session token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/auth/me", nil, token)
		require.Equal(t, http.StatusOK, rec.Code)

		var me profile.PublicProfile
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
		assert.Equal(t, registered.User.ID, me.ID)
		assert.Equal(t, "sara@example.com", me.Email)
	})

	t.Run("set password rejected when already set", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/set-password",
			SetPasswordRequest{Password: "anotherpass1"}, token)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, "INVALID_INPUT", response.Code)
	})
}

func TestPasswordResetEndpoints(t *testing.T) {
	router := setupRouter(t)
	require.Equal(t, http.StatusCreated,
		doJSON(t, router, http.MethodPost, "/api/auth/register", registerBody(), "").Code)

	t.Run("forgot password for unknown email", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password",
			ForgotPasswordRequest{Email: "nobody@example.com"}, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("forgot password acknowledges", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password",
			ForgotPasswordRequest{Email: "sara@example.com"}, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var response MessageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, "success", response.Status)
	})

	t.Run("reset with bogus token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPut, "/api/auth/reset-password",
			ResetPasswordRequest{ResetToken: "never-issued", Password: "brandnewpass"}, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, "TOKEN_INVALID", response.Code)
	})

	t.Run("logout acknowledges without a session", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/logout", nil, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
