package slots

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"availability-service/api"
	"availability-service/pkg/response"
)

type stubLister struct {
	slots []api.Slot
	err   error

	gotReq *api.AvailableSlotsRequest
}

func (s *stubLister) AvailableSlots(ctx context.Context, req *api.AvailableSlotsRequest) ([]api.Slot, error) {
	s.gotReq = req
	return s.slots, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSlotsHandler(t *testing.T) {
	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	lister := &stubLister{slots: []api.Slot{
		{Start: start, End: start.Add(time.Hour)},
		{Start: start.Add(time.Hour), End: start.Add(2 * time.Hour)},
	}}
	handler := New(discardLogger(), lister)

	body := bytes.NewBufferString(`{"trainer_id":"t1","date":"2026-09-07","duration":60}`)
	req := httptest.NewRequest(http.MethodPost, "/api/appointments/available-slots", body)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(resp.Slots))
	}
	if lister.gotReq == nil || lister.gotReq.TrainerID != "t1" || lister.gotReq.Date != "2026-09-07" {
		t.Fatalf("request not forwarded, got %+v", lister.gotReq)
	}
}

func TestSlotsHandlerMissingTrainerID(t *testing.T) {
	handler := New(discardLogger(), &stubLister{})

	body := bytes.NewBufferString(`{"date":"2026-09-07"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/appointments/available-slots", body)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSlotsHandlerBadTimezone(t *testing.T) {
	lister := &stubLister{err: fmt.Errorf("service: %w", response.ErrBadTimezone)}
	handler := New(discardLogger(), lister)

	body := bytes.NewBufferString(`{"trainer_id":"t1","date":"2026-09-07"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/appointments/available-slots", body)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}
