package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	authapi "github.com/wafra-app/wafra-backend/pkg/auth/api"
	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
	"github.com/wafra-app/wafra-backend/pkg/nafath"
)

// Handle handles Nafath identity-federation HTTP requests.
type Handle struct {
	service *nafath.NafathService
}

func NewHandle(service *nafath.NafathService) *Handle {
	return &Handle{service: service}
}

type InitiateRequest struct {
	NafathID      string `json:"nafathId"`
	TransactionID string `json:"transactionId"`
}

type CallbackRequest struct {
	NafathID string          `json:"nafathId"`
	Verified bool            `json:"verified"`
	UserData nafath.UserData `json:"userData"`
}

// Initiate starts an identity verification.
// (POST /api/auth/nafath/auth)
func (h *Handle) Initiate(w http.ResponseWriter, r *http.Request) {
	var request InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		authapi.RenderError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.service.Initiate(r.Context(), request.NafathID, request.TransactionID)
	if err != nil {
		authapi.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// Callback receives the verification outcome from the provider.
// (POST /api/auth/nafath/callback)
func (h *Handle) Callback(w http.ResponseWriter, r *http.Request) {
	var request CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		authapi.RenderError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.service.Callback(r.Context(), request.NafathID, request.Verified, request.UserData)
	if err != nil {
		authapi.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, authapi.AuthResponse{
		User:    result.Profile,
		Session: authapi.ToSessionResponse(result.Session),
	})
}

// RegisterRoutes mounts the Nafath routes on r.
func RegisterRoutes(r chi.Router, h *Handle) {
	r.Post("/nafath/auth", h.Initiate)
	r.Post("/nafath/callback", h.Callback)
}
