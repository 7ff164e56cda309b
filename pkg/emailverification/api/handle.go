package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	authapi "github.com/wafra-app/wafra-backend/pkg/auth/api"
	"github.com/wafra-app/wafra-backend/pkg/emailverification"
	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
)

// Handle handles email verification HTTP requests.
type Handle struct {
	service *emailverification.EmailVerificationService
}

func NewHandle(service *emailverification.EmailVerificationService) *Handle {
	return &Handle{service: service}
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// VerifyEmail redeems a token from the emailed link.
// (GET /api/auth/verify-email/{token})
func (h *Handle) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := h.service.VerifyEmail(r.Context(), token); err != nil {
		authapi.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, authapi.MessageResponse{Status: "success", Message: "email verified"})
}

// ResendVerification issues a fresh verification token.
// (POST /api/auth/resend-verification)
func (h *Handle) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var request ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		authapi.RenderError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	if err := h.service.Resend(r.Context(), request.Email); err != nil {
		authapi.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, authapi.MessageResponse{Status: "success", Message: "verification email sent"})
}

// RegisterRoutes mounts the email verification routes on r.
func RegisterRoutes(r chi.Router, h *Handle) {
	r.Get("/verify-email/{token}", h.VerifyEmail)
	r.Post("/resend-verification", h.ResendVerification)
}
