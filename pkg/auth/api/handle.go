package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/wafra-app/wafra-backend/pkg/auth"
	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
	"github.com/wafra-app/wafra-backend/pkg/profile"
	"github.com/wafra-app/wafra-backend/pkg/tokengenerator"
)

// Handle handles HTTP requests for registration, login and password flows.
type Handle struct {
	authService *auth.AuthService
}

func NewHandle(authService *auth.AuthService) *Handle {
	return &Handle{authService: authService}
}

// RegisterRequest is the body shared by all three registration routes. The
// kind-specific attribute groups are optional at the JSON level; the service
// decides which are required.
type RegisterRequest struct {
	Name     string                `json:"name"`
	Email    string                `json:"email"`
	Phone    string                `json:"phone"`
	Password string                `json:"password"`
	Location profile.Location      `json:"location"`
	Business *profile.BusinessInfo `json:"businessInfo,omitempty"`
	Family   *profile.FamilyInfo   `json:"familyInfo,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	ResetToken string `json:"resetToken"`
	Password   string `json:"password"`
}

type SetPasswordRequest struct {
	Password string `json:"password"`
}

// SessionResponse is the wire form of an issued session.
type SessionResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// AuthResponse pairs a public profile with its session.
type AuthResponse struct {
	User    profile.PublicProfile `json:"user"`
	Session SessionResponse       `json:"session"`
}

type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Status  string                 `json:"status"`
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Register handles customer registration.
// (POST /api/auth/register)
func (h *Handle) Register(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, profile.KindCustomer)
}

// RegisterShop handles shop registration.
// (POST /api/auth/register/shop)
func (h *Handle) RegisterShop(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, profile.KindShop)
}

// RegisterFamily handles productive family registration.
// (POST /api/auth/register/family)
func (h *Handle) RegisterFamily(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, profile.KindProductiveFamily)
}

func (h *Handle) register(w http.ResponseWriter, r *http.Request, kind profile.Kind) {
	var request RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		RenderError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	var params auth.RegisterParams
	if err := copier.Copy(&params, &request); err != nil {
		slog.Error("Failed to map registration request", "err", err)
		RenderError(w, r, apperrors.New(apperrors.ErrCodeInternal, "failed to process request"))
		return
	}
	params.Kind = kind

	result, err := h.authService.Register(r.Context(), params)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toAuthResponse(result))
}

// Login handles password login.
// (POST /api/auth/login)
func (h *Handle) Login(w http.ResponseWriter, r *http.Request) {
	var request LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		RenderError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.authService.Login(r.Context(), request.Email, request.Password)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toAuthResponse(result))
}

// Logout acknowledges a logout. Sessions are stateless JWTs, the client
// discards the token.
// (POST /api/auth/logout)
func (h *Handle) Logout(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Status: "success", Message: "logged out"})
}

// GetMe returns the authenticated profile.
// (GET /api/auth/me)
func (h *Handle) GetMe(w http.ResponseWriter, r *http.Request) {
	profileID, err := ProfileIDFromContext(r)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	me, err := h.authService.GetMe(r.Context(), profileID)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, me)
}

// ForgotPassword starts the password recovery flow.
// (POST /api/auth/forgot-password)
func (h *Handle) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var request ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		RenderError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	if err := h.authService.InitPasswordReset(r.Context(), request.Email); err != nil {
		RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Status: "success", Message: "password reset email sent"})
}

// ResetPassword redeems a reset token and returns a fresh session.
// (PUT /api/auth/reset-password)
func (h *Handle) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var request ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		RenderError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.authService.ResetPassword(r.Context(), request.ResetToken, request.Password)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toAuthResponse(result))
}

// SetPassword sets the first password on a federated profile.
// (POST /api/auth/set-password)
func (h *Handle) SetPassword(w http.ResponseWriter, r *http.Request) {
	profileID, err := ProfileIDFromContext(r)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	var request SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		RenderError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	if err := h.authService.SetPassword(r.Context(), profileID, request.Password); err != nil {
		RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Status: "success", Message: "password set"})
}

// RegisterRoutes mounts the public auth routes on r. Protected routes are
// registered separately via RegisterProtectedRoutes so the caller controls
// the token middleware.
func RegisterRoutes(r chi.Router, h *Handle) {
	r.Post("/register", h.Register)
	r.Post("/register/shop", h.RegisterShop)
	r.Post("/register/family", h.RegisterFamily)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Put("/reset-password", h.ResetPassword)
}

// RegisterProtectedRoutes mounts the routes that require a valid session.
func RegisterProtectedRoutes(r chi.Router, h *Handle) {
	r.Get("/me", h.GetMe)
	r.Post("/set-password", h.SetPassword)
}

func toAuthResponse(result auth.AuthResult) AuthResponse {
	return AuthResponse{
		User:    result.Profile,
		Session: ToSessionResponse(result.Session),
	}
}

func ToSessionResponse(session tokengenerator.Session) SessionResponse {
	return SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ProfileIDFromContext extracts the authenticated profile ID from the
// verified token claims.
func ProfileIDFromContext(r *http.Request) (uuid.UUID, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return uuid.Nil, apperrors.New(apperrors.ErrCodeUnauthorized, "missing or invalid token")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, apperrors.New(apperrors.ErrCodeUnauthorized, "missing or invalid token")
	}
	profileID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, apperrors.New(apperrors.ErrCodeUnauthorized, "missing or invalid token")
	}
	return profileID, nil
}

// RenderError writes an application error as a JSON response with the status
// code mapped from its error code.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		slog.Error("Unexpected error", "err", err)
		appErr = apperrors.New(apperrors.ErrCodeInternal, "internal server error")
	}

	render.Status(r, appErr.HTTPStatusCode())
	render.JSON(w, r, ErrorResponse{
		Status:  "error",
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	})
}
