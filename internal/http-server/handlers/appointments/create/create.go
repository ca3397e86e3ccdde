package create

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

type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, req *api.AppointmentRequest) (*api.AppointmentResponse, *api.ConflictCheckResponse, error)
}

type Request struct {
	api.AppointmentRequest
}

type Response struct {
	response.Response
	Appointment *api.AppointmentResponse   `json:"appointment,omitempty"`
	Report      *api.ConflictCheckResponse `json:"report,omitempty"`
}

func New(log *slog.Logger, creator AppointmentCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.create.New"

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

		if len(req.BeneficiaryIDs) == 0 {
			log.Error("beneficiary_ids is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "beneficiary_ids is required"))
			return
		}

		appointment, report, err := creator.CreateAppointment(r.Context(), &req.AppointmentRequest)

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
			log.Error("Failed to create appointment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to create appointment"))
			return
		}

		log.Info("Appointment created", slog.String("id", appointment.ID))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{
			Appointment: appointment,
		})
	}
}
