package conflicts

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

type ConflictChecker interface {
	CheckConflicts(ctx context.Context, req *api.ConflictCheckRequest) (*api.ConflictCheckResponse, error)
}

type Request struct {
	api.ConflictCheckRequest
}

type Response struct {
	response.Response
	*api.ConflictCheckResponse
}

func New(log *slog.Logger, checker ConflictChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.conflicts.New"

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

		// Finding conflicts is expected output, not an error: always 200
		// with the full report.
		report, err := checker.CheckConflicts(r.Context(), &req.ConflictCheckRequest)
		if err != nil {
			log.Error("Failed to check conflicts", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to check conflicts"))
			return
		}

		log.Info("Conflicts checked",
			slog.Int("conflicts", len(report.Conflicts)),
			slog.Int("violations", len(report.Violations)),
		)
		render.JSON(w, r, Response{
			ConflictCheckResponse: report,
		})
	}
}
