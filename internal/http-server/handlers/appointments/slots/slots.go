package slots

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

type SlotLister interface {
	AvailableSlots(ctx context.Context, req *api.AvailableSlotsRequest) ([]api.Slot, error)
}

type Request struct {
	api.AvailableSlotsRequest
}

type Response struct {
	response.Response
	Slots []api.Slot `json:"slots"`
}

func New(log *slog.Logger, lister SlotLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.slots.New"

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

		if req.Date == "" {
			log.Error("date is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "date is required"))
			return
		}

		slots, err := lister.AvailableSlots(r.Context(), &req.AvailableSlotsRequest)

		if errors.Is(err, response.ErrBadTimezone) {
			log.Error("Unknown timezone", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(string(response.VALIDATION_FAILED), "unknown timezone in settings"))
			return
		}

		if err != nil {
			log.Error("Failed to compute available slots", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to compute available slots"))
			return
		}

		log.Info("Available slots computed", slog.Int("count", len(slots)))
		render.JSON(w, r, Response{
			Slots: slots,
		})
	}
}
