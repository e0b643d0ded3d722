package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/aeroclub/slotbooking/internal/booking/service"
	"github.com/aeroclub/slotbooking/internal/booking/storage/sqlite"
)

func newTestRouter(t *testing.T) (*gin.Engine, *sqlite.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "booking.sqlite")
	store, err := sqlite.Open(path, sqlite.WithOutboxEnabled(true))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})

	slots := service.NewSlotService(store, nil)
	router := NewRouter(RouterConfig{
		Slots:        NewSlotHandler(slots, nil),
		Participants: NewParticipantHandler(store, nil),
		Outbox:       NewOutboxHandler(store, nil),
	})
	return router, store
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMarkAvailableEndpointCreatesFact(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/slots/S1/availability",
		`{"participant_id":"stu1","participant_type":"STUDENT"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		SlotID string   `json:"slot_id"`
		Seqs   []uint64 `json:"seqs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.SlotID != "S1" || len(body.Seqs) != 1 {
		t.Fatalf("body = %+v, want S1 with one seq", body)
	}
}

func TestUnmarkAvailableEmptySlotConflicts(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodDelete, "/v1/slots/S1/availability",
		`{"participant_id":"stu1","participant_type":"STUDENT"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "SLOT_NOT_INITIALIZED") {
		t.Fatalf("body = %s, want SLOT_NOT_INITIALIZED code", rec.Body.String())
	}
}

func TestBookReservationEndpointGeneratesBookingID(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, mark := range []string{
		`{"participant_id":"stu1","participant_type":"STUDENT"}`,
		`{"participant_id":"ac1","participant_type":"AIRCRAFT"}`,
		`{"participant_id":"ins1","participant_type":"INSTRUCTOR"}`,
	} {
		if rec := doJSON(t, router, http.MethodPost, "/v1/slots/S1/availability", mark); rec.Code != http.StatusCreated {
			t.Fatalf("mark status = %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, router, http.MethodPost, "/v1/slots/S1/bookings",
		`{"student_id":"stu1","aircraft_id":"ac1","instructor_id":"ins1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		BookingID string   `json:"booking_id"`
		Seqs      []uint64 `json:"seqs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.BookingID == "" {
		t.Fatal("expected generated booking id")
	}
	if len(body.Seqs) != 3 {
		t.Fatalf("seqs = %v, want 3 facts", body.Seqs)
	}
}

func TestGetSlotEndpointNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/slots/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestOutboxSummaryEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	if rec := doJSON(t, router, http.MethodPost, "/v1/slots/S1/availability",
		`{"participant_id":"stu1","participant_type":"STUDENT"}`); rec.Code != http.StatusCreated {
		t.Fatalf("mark status = %d: %s", rec.Code, rec.Body.String())
	}

	rec := doJSON(t, router, http.MethodGet, "/internal/outbox", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var summary struct {
		PendingCount int
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.PendingCount != 1 {
		t.Fatalf("pending = %d, want 1", summary.PendingCount)
	}
}
