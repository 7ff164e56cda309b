package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	authapi "github.com/wafra-app/wafra-backend/pkg/auth/api"
	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
	"github.com/wafra-app/wafra-backend/pkg/profile"
)

// Handle handles profile self-management requests. All routes require a
// valid session.
type Handle struct {
	profileService *profile.ProfileService
}

func NewHandle(profileService *profile.ProfileService) *Handle {
	return &Handle{profileService: profileService}
}

type UpdateProfileRequest struct {
	Name     string            `json:"name,omitempty"`
	Phone    string            `json:"phone,omitempty"`
	Location *profile.Location `json:"location,omitempty"`
}

// GetProfile returns the authenticated profile.
// (GET /api/profile)
func (h *Handle) GetProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := authapi.ProfileIDFromContext(r)
	if err != nil {
		authapi.RenderError(w, r, err)
		return
	}

	p, err := h.profileService.Get(r.Context(), profileID)
	if err != nil {
		authapi.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, p)
}

// UpdateProfile updates contact fields.
// (PUT /api/profile)
func (h *Handle) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := authapi.ProfileIDFromContext(r)
	if err != nil {
		authapi.RenderError(w, r, err)
		return
	}

	var request UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		authapi.RenderError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	p, err := h.profileService.UpdateContact(r.Context(), profileID, profile.ContactUpdate{
		Name:     request.Name,
		Phone:    request.Phone,
		Location: request.Location,
	})
	if err != nil {
		authapi.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, p)
}

// UpdateBusiness replaces business attributes. Shop and productive family
// profiles only.
// (PUT /api/profile/business)
func (h *Handle) UpdateBusiness(w http.ResponseWriter, r *http.Request) {
	profileID, err := authapi.ProfileIDFromContext(r)
	if err != nil {
		authapi.RenderError(w, r, err)
		return
	}

	var info profile.BusinessInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		authapi.RenderError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	p, err := h.profileService.UpdateBusiness(r.Context(), profileID, info)
	if err != nil {
		authapi.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, p)
}

// UpdateFamily replaces family attributes. Productive family profiles only.
// (PUT /api/profile/family)
func (h *Handle) UpdateFamily(w http.ResponseWriter, r *http.Request) {
	profileID, err := authapi.ProfileIDFromContext(r)
	if err != nil {
		authapi.RenderError(w, r, err)
		return
	}

	var info profile.FamilyInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		authapi.RenderError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	p, err := h.profileService.UpdateFamily(r.Context(), profileID, info)
	if err != nil {
		authapi.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, p)
}

// DeactivateProfile soft-deletes the authenticated profile.
// (DELETE /api/profile)
func (h *Handle) DeactivateProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := authapi.ProfileIDFromContext(r)
	if err != nil {
		authapi.RenderError(w, r, err)
		return
	}

	if err := h.profileService.Deactivate(r.Context(), profileID); err != nil {
		authapi.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, authapi.MessageResponse{Status: "success", Message: "profile deactivated"})
}

// RegisterRoutes mounts the profile routes on r. The caller wraps r with
// the token verification middleware.
func RegisterRoutes(r chi.Router, h *Handle) {
	r.Get("/", h.GetProfile)
	r.Put("/", h.UpdateProfile)
	r.Delete("/", h.DeactivateProfile)
	r.With(RequireKinds(profile.KindShop, profile.KindProductiveFamily)).
		Put("/business", h.UpdateBusiness)
	r.With(RequireKinds(profile.KindProductiveFamily)).
		Put("/family", h.UpdateFamily)
}
