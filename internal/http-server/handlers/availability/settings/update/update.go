package update

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"availability-service/api"
	"availability-service/pkg/response"
	"availability-service/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type SettingsUpdater interface {
	PutSettings(ctx context.Context, trainerID string, req *api.SettingsRequest) (*api.SettingsResponse, error)
}

type Request struct {
	api.SettingsRequest
}

type Response struct {
	response.Response
	Settings *api.SettingsResponse `json:"settings,omitempty"`
}

func New(log *slog.Logger, updater SettingsUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.availability.settings.update.New"

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

		settings, err := updater.PutSettings(r.Context(), req.TrainerID, &req.SettingsRequest)

		if errors.Is(err, response.ErrBadTimezone) || errors.Is(err, response.ErrValidation) {
			log.Error("Settings validation failed", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(string(response.VALIDATION_FAILED), "settings validation failed"))
			return
		}

		if err != nil {
			log.Error("Failed to update settings", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to update settings"))
			return
		}

		log.Info("Settings updated", slog.String("trainer_id", req.TrainerID))
		render.JSON(w, r, Response{
			Settings: settings,
		})
	}
}
