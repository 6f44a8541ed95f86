package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/internal/service"
	"github.com/utafrali/GymTrack/pkg/httputil"
	"github.com/utafrali/GymTrack/pkg/pagination"
)

// WorkoutHandler handles the caller's workouts.
type WorkoutHandler struct {
	service *service.WorkoutService
	logger  *slog.Logger
}

// NewWorkoutHandler creates a new workout HTTP handler.
func NewWorkoutHandler(svc *service.WorkoutService, logger *slog.Logger) *WorkoutHandler {
	return &WorkoutHandler{service: svc, logger: logger}
}

// CreateWorkoutRequest is the JSON request body for creating a workout.
type CreateWorkoutRequest struct {
	Name string `json:"name" validate:"max=255"`
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Aim  string `json:"aim" validate:"max=255"`
}

// WorkoutResponse renders a workout with its date as YYYY-MM-DD.
type WorkoutResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Date      string    `json:"date"`
	Aim       string    `json:"aim"`
	CreatedAt time.Time `json:"created_at"`
}

func workoutResponse(w *domain.Workout) WorkoutResponse {
	return WorkoutResponse{
		ID:        w.ID,
		Name:      w.DisplayName(),
		Date:      w.Date.Format(domain.DateLayout),
		Aim:       w.Aim,
		CreatedAt: w.CreatedAt,
	}
}

// List handles GET /api/v1/workouts
func (h *WorkoutHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	params := pagination.FromRequest(r)
	page, err := h.service.List(r.Context(), userID, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	items := make([]WorkoutResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, workoutResponse(&page.Items[i]))
	}
	httputil.WriteData(w, http.StatusOK, pagination.NewResult(items, page.TotalCount, params))
}

// Create handles POST /api/v1/workouts
func (h *WorkoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req CreateWorkoutRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	workout, err := h.service.Create(r.Context(), userID, service.CreateWorkoutInput{
		Name: req.Name,
		Date: req.Date,
		Aim:  req.Aim,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, workoutResponse(workout))
}

// Get handles GET /api/v1/workouts/{id}
func (h *WorkoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	workout, err := h.service.Get(r.Context(), userID, id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, workoutResponse(workout))
}

// Delete handles DELETE /api/v1/workouts/{id}
func (h *WorkoutHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
