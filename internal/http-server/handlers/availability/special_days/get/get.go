package get

import (
	"context"
	"log/slog"
	"net/http"

	"availability-service/api"
	"availability-service/pkg/response"
	"availability-service/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type SpecialDaysGetter interface {
	GetSpecialDays(ctx context.Context, trainerID string) (*api.SpecialDaysResponse, error)
}

type Response struct {
	response.Response
	SpecialDays *api.SpecialDaysResponse `json:"special_days,omitempty"`
}

func New(log *slog.Logger, getter SpecialDaysGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.availability.special_days.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		trainerID := r.URL.Query().Get("trainer_id")
		if trainerID == "" {
			log.Error("trainer_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "trainer_id is required"))
			return
		}

		specialDays, err := getter.GetSpecialDays(r.Context(), trainerID)
		if err != nil {
			log.Error("Failed to get special days", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to get special days"))
			return
		}

		log.Info("Special days retrieved", slog.String("trainer_id", trainerID))
		render.JSON(w, r, Response{
			SpecialDays: specialDays,
		})
	}
}
