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
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type AppointmentUpdater interface {
	UpdateAppointment(ctx context.Context, id string, req *api.AppointmentRequest) (*api.AppointmentResponse, *api.ConflictCheckResponse, error)
}

type Request struct {
	api.AppointmentRequest
}

type Response struct {
	response.Response
	Appointment *api.AppointmentResponse   `json:"appointment,omitempty"`
	Report      *api.ConflictCheckResponse `json:"report,omitempty"`
}

func New(log *slog.Logger, updater AppointmentUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.update.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			log.Error("id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "id is required"))
			return
		}

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		log.Info("Request body decoded", slog.Any("request", req))

		appointment, report, err := updater.UpdateAppointment(r.Context(), id, &req.AppointmentRequest)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if errors.Is(err, response.ErrLocked) {
			log.Error("trainer calendar is locked")
			w.WriteHeader(http.StatusLocked)
			render.JSON(w, r, response.Error(string(response.LOCKED), "trainer calendar is locked, retry"))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Error("appointment conflicts with existing bookings")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, Response{
				Response: response.Error(string(response.CONFLICT), "appointment conflicts with existing bookings"),
				Report:   report,
			})
			return
		}

		if errors.Is(err, response.ErrValidation) {
			log.Error("Appointment validation failed", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(string(response.VALIDATION_FAILED), "appointment validation failed"))
			return
		}

		if err != nil {
			log.Error("Failed to update appointment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to update appointment"))
			return
		}

		log.Info("Appointment updated", slog.String("id", id))
		render.JSON(w, r, Response{
			Appointment: appointment,
		})
	}
}
