package get

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"availability-service/api"
)

type stubGetter struct {
	appointments []*api.AppointmentResponse

	gotFrom *time.Time
	gotTo   *time.Time
	called  bool
}

func (s *stubGetter) GetAppointment(ctx context.Context, id string) (*api.AppointmentResponse, error) {
	return nil, nil
}

func (s *stubGetter) ListAppointments(ctx context.Context, trainerID *string, from, to *time.Time, status *string) ([]*api.AppointmentResponse, error) {
	s.called = true
	s.gotFrom = from
	s.gotTo = to
	return s.appointments, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListRejectsMalformedDateFilter(t *testing.T) {
	getter := &stubGetter{}
	handler := New(discardLogger(), getter)

	for _, query := range []string{"?from=yesterday", "?to=2026-13-45", "?from=2026-09-07&to=soon"} {
		req := httptest.NewRequest(http.MethodGet, "/api/appointments"+query, nil)
		rec := httptest.NewRecorder()

		handler(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", query, rec.Code)
		}
	}
	if getter.called {
		t.Fatal("list must not run with a malformed date filter")
	}
}

func TestListParsesDateFilters(t *testing.T) {
	getter := &stubGetter{appointments: []*api.AppointmentResponse{{ID: "appt-1"}}}
	handler := New(discardLogger(), getter)

	req := httptest.NewRequest(http.MethodGet, "/api/appointments?from=2026-09-07&to=2026-09-08T18:00:00Z", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if getter.gotFrom == nil || !getter.gotFrom.Equal(time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from = %v, want 2026-09-07 midnight UTC", getter.gotFrom)
	}
	if getter.gotTo == nil || !getter.gotTo.Equal(time.Date(2026, 9, 8, 18, 0, 0, 0, time.UTC)) {
		t.Fatalf("to = %v, want 2026-09-08T18:00:00Z", getter.gotTo)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Appointments) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(resp.Appointments))
	}
}
