package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"availability-service/api"
	"availability-service/pkg/response"
	"availability-service/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type AppointmentGetter interface {
	GetAppointment(ctx context.Context, id string) (*api.AppointmentResponse, error)
	ListAppointments(ctx context.Context, trainerID *string, from, to *time.Time, status *string) ([]*api.AppointmentResponse, error)
}

type Response struct {
	response.Response
	Appointments []api.AppointmentResponse `json:"appointments,omitempty"`
	Appointment  *api.AppointmentResponse  `json:"appointment,omitempty"`
}

// parseQueryTime accepts either a bare date or a full RFC3339 instant.
func parseQueryTime(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func New(log *slog.Logger, getter AppointmentGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		if id != "" {
			appointment, err := getter.GetAppointment(r.Context(), id)

			if errors.Is(err, response.ErrNotFound) {
				log.Error("resource not found")
				w.WriteHeader(http.StatusNotFound)
				render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
				return
			}

			if err != nil {
				log.Error("Failed to get appointment", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to get appointment"))
				return
			}

			log.Info("Appointment retrieved", slog.String("id", id))
			render.JSON(w, r, Response{
				Appointment: appointment,
			})
			return
		}

		// List with filters
		var trainerID, status *string
		var from, to *time.Time

		if v := r.URL.Query().Get("trainer_id"); v != "" {
			trainerID = &v
		}

		if v := r.URL.Query().Get("status"); v != "" {
			status = &v
		}

		if fromStr := r.URL.Query().Get("from"); fromStr != "" {
			t, err := parseQueryTime(fromStr)
			if err != nil {
				log.Error("Invalid from filter", sl.Err(err))
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid from, expected 2006-01-02 or RFC3339"))
				return
			}
			from = &t
		}

		if toStr := r.URL.Query().Get("to"); toStr != "" {
			t, err := parseQueryTime(toStr)
			if err != nil {
				log.Error("Invalid to filter", sl.Err(err))
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid to, expected 2006-01-02 or RFC3339"))
				return
			}
			to = &t
		}

		appointments, err := getter.ListAppointments(r.Context(), trainerID, from, to, status)
		if err != nil {
			log.Error("Failed to list appointments", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list appointments"))
			return
		}

		log.Info("Appointments retrieved", slog.Int("count", len(appointments)))
		result := make([]api.AppointmentResponse, len(appointments))
		for i, a := range appointments {
			result[i] = *a
		}
		render.JSON(w, r, Response{
			Appointments: result,
		})
	}
}
