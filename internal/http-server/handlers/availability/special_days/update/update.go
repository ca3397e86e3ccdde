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

type SpecialDaysUpdater interface {
	PutSpecialDays(ctx context.Context, trainerID string, req *api.SpecialDaysRequest) (*api.SpecialDaysResponse, []availability.FieldError, error)
}

type Request struct {
	api.SpecialDaysRequest
}

type Response struct {
	response.Response
	SpecialDays *api.SpecialDaysResponse  `json:"special_days,omitempty"`
	FieldErrors []availability.FieldError `json:"field_errors,omitempty"`
}

func New(log *slog.Logger, updater SpecialDaysUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.availability.special_days.update.New"

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

		specialDays, fieldErrs, err := updater.PutSpecialDays(r.Context(), req.TrainerID, &req.SpecialDaysRequest)

		if errors.Is(err, response.ErrValidation) {
			log.Error("Special days validation failed", slog.Any("field_errors", fieldErrs))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, Response{
				Response:    response.Error(string(response.VALIDATION_FAILED), "special days validation failed"),
				FieldErrors: fieldErrs,
			})
			return
		}

		if err != nil {
			log.Error("Failed to update special days", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to update special days"))
			return
		}

		log.Info("Special days updated", slog.String("trainer_id", req.TrainerID))
		render.JSON(w, r, Response{
			SpecialDays: specialDays,
		})
	}
}
