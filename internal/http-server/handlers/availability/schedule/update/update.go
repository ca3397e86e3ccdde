package update

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"availability-service/api"
	"availability-service/internal/availability"
	"availability-service/pkg/response"
	"availability-service/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ScheduleUpdater interface {
	PutSchedule(ctx context.Context, trainerID string, req *api.WeeklyScheduleRequest) (*api.WeeklyScheduleResponse, []availability.FieldError, error)
}

type Request struct {
	api.WeeklyScheduleRequest
}

type Response struct {
	response.Response
	Schedule    *api.WeeklyScheduleResponse `json:"schedule,omitempty"`
	FieldErrors []availability.FieldError   `json:"field_errors,omitempty"`
}

func New(log *slog.Logger, updater ScheduleUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.availability.schedule.update.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		log.Info("Request body decoded", slog.Any("request", req))

		if req.TrainerID == "" {
			log.Error("trainer_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "trainer_id is required"))
			return
		}

		schedule, fieldErrs, err := updater.PutSchedule(r.Context(), req.TrainerID, &req.WeeklyScheduleRequest)

		if errors.Is(err, response.ErrValidation) {
			log.Error("Schedule validation failed", slog.Any("field_errors", fieldErrs))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, Response{
				Response:    response.Error(string(response.VALIDATION_FAILED), "schedule validation failed"),
				FieldErrors: fieldErrs,
			})
			return
		}

		if err != nil {
			log.Error("Failed to update schedule", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to update schedule"))
			return
		}

		log.Info("Schedule updated", slog.String("trainer_id", req.TrainerID))
		render.JSON(w, r, Response{
			Schedule: schedule,
		})
	}
}
