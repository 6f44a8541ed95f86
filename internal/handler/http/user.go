package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/internal/service"
	"github.com/utafrali/GymTrack/pkg/httputil"
)

// UserHandler handles the authenticated caller's own profile.
type UserHandler struct {
	service *service.AccountService
	logger  *slog.Logger
}

// NewUserHandler creates a new profile HTTP handler.
func NewUserHandler(svc *service.AccountService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// UpdateProfileRequest is a partial update; omitted fields are unchanged.
type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Email    *string `json:"email" validate:"omitempty,max=255"`
	Password *string `json:"password" validate:"omitempty,max=128"`
}

// ProfileResponse is the full view of the caller's account.
type ProfileResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	IsVerified bool      `json:"is_verified"`
	IsStaff    bool      `json:"is_staff"`
	CreatedAt  time.Time `json:"created_at"`
}

func profileResponse(u *domain.User) ProfileResponse {
	return ProfileResponse{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		IsVerified: u.IsVerified,
		IsStaff:    u.IsPrivileged(),
		CreatedAt:  u.CreatedAt,
	}
}

// GetProfile handles GET /api/v1/user/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, profileResponse(user))
}

// UpdateProfile handles PATCH /api/v1/user/me and PATCH /api/v1/user/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, domain.ProfileChanges{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, userResponse(user))
}
