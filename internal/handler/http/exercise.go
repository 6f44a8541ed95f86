package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/GymTrack/internal/service"
	"github.com/utafrali/GymTrack/pkg/httputil"
	"github.com/utafrali/GymTrack/pkg/pagination"
)

// ExerciseHandler handles the shared exercise catalogue.
type ExerciseHandler struct {
	service *service.ExerciseService
	logger  *slog.Logger
}

// NewExerciseHandler creates a new exercise HTTP handler.
func NewExerciseHandler(svc *service.ExerciseService, logger *slog.Logger) *ExerciseHandler {
	return &ExerciseHandler{service: svc, logger: logger}
}

// CreateExerciseRequest is the JSON request body for adding an exercise.
type CreateExerciseRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

// List handles GET /api/v1/exercises
func (h *ExerciseHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, page)
}

// Create handles POST /api/v1/exercises
func (h *ExerciseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateExerciseRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	exercise, err := h.service.Create(r.Context(), service.CreateExerciseInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, exercise)
}
