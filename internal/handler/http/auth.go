package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/internal/service"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
	"github.com/utafrali/GymTrack/pkg/httputil"
)

const resetBodyLimit = 1 << 16

// AuthHandler handles the account lifecycle endpoints.
type AuthHandler struct {
	service *service.AccountService
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration. Email
// format and password length are checked by the service.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=128"`
	Name     string `json:"name" validate:"required,max=255"`
}

// LoginRequest is the JSON request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// EmailRequest carries a single email address.
type EmailRequest struct {
	Email string `json:"email" validate:"required,max=255"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// ResetCompleteRequest is the JSON request body for finishing a password
// reset. It carries no validation tags: every failure on this route is the
// same 401.
type ResetCompleteRequest struct {
	UIDB64   string `json:"uidb64"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

// --- Response types ---

// UserResponse is the public view of a user returned by register and
// profile updates.
type UserResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Email  string           `json:"email"`
	Name   string           `json:"name"`
	Tokens domain.TokenPair `json:"tokens"`
}

// ResetCheckResponse echoes a valid reset link back to the client.
type ResetCheckResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UIDB64  string `json:"uidb64"`
	Token   string `json:"token"`
}

func userResponse(u *domain.User) UserResponse {
	return UserResponse{Email: u.Email, Name: u.Name}
}

// --- Handlers ---

// Register handles POST /api/v1/user/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, userResponse(user))
}

// Login handles POST /api/v1/user/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, LoginResponse{
		Email:  res.User.Email,
		Name:   res.User.Name,
		Tokens: res.Tokens,
	})
}

// VerifyEmail handles GET /api/v1/user/email-verify?token=
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.VerifyEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]string{"email": service.MsgActivated})
}

// ResendVerification handles POST /api/v1/user/email-verify/resend
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]string{"message": service.MsgVerificationResent})
}

// RefreshToken handles POST /api/v1/user/token/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	access, err := h.service.RefreshAccess(r.Context(), req.Refresh)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]string{"access": access})
}

// Logout handles POST /api/v1/user/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.service.Logout(r.Context(), req.Refresh); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RequestPasswordReset handles POST /api/v1/user/password-reset/request
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]string{"success": service.MsgResetEmailSent})
}

// CheckResetToken handles GET /api/v1/user/password-reset/confirm/{uidb64}/{token}
func (h *AuthHandler) CheckResetToken(w http.ResponseWriter, r *http.Request) {
	uidb64 := chi.URLParam(r, "uidb64")
	token := chi.URLParam(r, "token")

	if _, err := h.service.CheckResetToken(r.Context(), uidb64, token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, ResetCheckResponse{
		Success: true,
		Message: "Credentials Valid",
		UIDB64:  uidb64,
		Token:   token,
	})
}

// CompletePasswordReset handles PATCH /api/v1/user/password-reset/complete
func (h *AuthHandler) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetCompleteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, resetBodyLimit)).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.Unauthorized(service.MsgResetTokenInvalid), h.logger)
		return
	}

	err := h.service.ConfirmResetPassword(r.Context(), service.ResetConfirmInput{
		UIDB64:   req.UIDB64,
		Token:    req.Token,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]string{"success": service.MsgPasswordReset})
}
