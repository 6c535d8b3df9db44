package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"daybook/handlers"
	"daybook/models"
	"daybook/services/events"
	"daybook/storage"
)

// --- Helpers ---

func setupRouter(t *testing.T) (*mux.Router, *events.Service) {
	t.Helper()

	store, err := storage.NewFileStore(afero.NewMemMapFs(), "/data")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	svc, err := events.NewService(store, []models.Category{
		{ID: "work", Name: "Work", Color: "#3b82f6"},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	h := handlers.NewEventsHandler(svc)
	export := handlers.NewExportHandler(svc)

	r := mux.NewRouter()
	r.HandleFunc("/api/events/date/{date}", h.GetByDate).Methods(http.MethodGet)
	r.HandleFunc("/api/events/range", h.GetRange).Methods(http.MethodGet)
	r.HandleFunc("/api/events/conflicts", h.CheckConflicts).Methods(http.MethodPost)
	r.HandleFunc("/api/events", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/api/events/{id}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/api/events/{id}", h.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/api/events/{id}/move", h.Move).Methods(http.MethodPost)
	r.HandleFunc("/api/categories", h.GetCategories).Methods(http.MethodGet)
	r.HandleFunc("/api/export/ics", export.ExportICS).Methods(http.MethodGet)

	return r, svc
}

func doJSON(t *testing.T, r *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// --- Tests ---

func TestCreateAndGetByDate(t *testing.T) {
	r, _ := setupRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/events", models.Event{
		Title: "Dentist", Date: "2024-02-01", Time: "10:00", EndTime: "11:00", Category: "work",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created models.Event
	decodeBody(t, rec, &created)
	if created.ID == "" {
		t.Fatal("created event has no id")
	}

	rec = doJSON(t, r, http.MethodGet, "/api/events/date/2024-02-01", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var resp struct {
		Events []models.EventInstance `json:"events"`
		Total  int                    `json:"total"`
	}
	decodeBody(t, rec, &resp)
	if resp.Total != 1 || resp.Events[0].ID != created.ID {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestGetByDate_InvalidDate(t *testing.T) {
	r, _ := setupRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/events/date/not-a-date", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetRange_RequiresParams(t *testing.T) {
	r, _ := setupRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/events/range?start=2024-01-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreate_ConflictReturns409(t *testing.T) {
	r, _ := setupRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/events", models.Event{
		Title: "A", Date: "2024-02-01", Time: "10:00", EndTime: "11:00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/events", models.Event{
		Title: "B", Date: "2024-02-01", Time: "10:30",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second create status = %d, want 409", rec.Code)
	}
	var resp struct {
		Error     string                 `json:"error"`
		Conflicts []models.EventInstance `json:"conflicts"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Conflicts) != 1 || resp.Conflicts[0].Title != "A" {
		t.Errorf("conflicts = %+v", resp.Conflicts)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	r, _ := setupRouter(t)

	rec := doJSON(t, r, http.MethodPut, "/api/events/missing", map[string]string{"title": "X"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUpdate_SingleOccurrence(t *testing.T) {
	r, svc := setupRouter(t)

	series, err := svc.Add(models.Event{
		Title: "Daily", Date: "2024-01-01", Time: "09:00",
		Recurrence: &models.RecurrenceRule{Type: models.RecurrenceDaily},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	path := fmt.Sprintf("/api/events/%s?mode=single&date=2024-01-04", series.ID)
	rec := doJSON(t, r, http.MethodPut, path, map[string]string{"time": "11:00"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var detached models.Event
	decodeBody(t, rec, &detached)
	if detached.ID == series.ID || detached.Date != "2024-01-04" || detached.Time != "11:00" {
		t.Errorf("detached = %+v", detached)
	}

	// The edited date shows only the detached copy.
	instances, err := svc.EventsForDate("2024-01-04")
	if err != nil {
		t.Fatalf("EventsForDate: %v", err)
	}
	if len(instances) != 1 || instances[0].ID != detached.ID {
		t.Errorf("instances on edited date = %+v", instances)
	}
}

func TestDelete_ReturnsNoContent(t *testing.T) {
	r, svc := setupRouter(t)

	created, err := svc.Add(models.Event{Title: "Once", Date: "2024-01-03", Time: "14:00"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	rec := doJSON(t, r, http.MethodDelete, "/api/events/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, r, http.MethodDelete, "/api/events/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestMove_ConflictReturns409(t *testing.T) {
	r, svc := setupRouter(t)

	if _, err := svc.Add(models.Event{Title: "Fixed", Date: "2024-03-01", Time: "10:00", EndTime: "11:00"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	movable, err := svc.Add(models.Event{Title: "Movable", Date: "2024-03-02", Time: "10:30"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	rec := doJSON(t, r, http.MethodPost, "/api/events/"+movable.ID+"/move", map[string]string{"date": "2024-03-01"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/events/"+movable.ID+"/move", map[string]string{"date": "2024-03-05"})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestCheckConflicts_Endpoint(t *testing.T) {
	r, svc := setupRouter(t)

	if _, err := svc.Add(models.Event{Title: "A", Date: "2024-02-01", Time: "10:00", EndTime: "11:00"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	rec := doJSON(t, r, http.MethodPost, "/api/events/conflicts", models.Event{
		Title: "B", Date: "2024-02-01", Time: "10:30",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Conflicts []models.EventInstance `json:"conflicts"`
		Total     int                    `json:"total"`
	}
	decodeBody(t, rec, &resp)
	if resp.Total != 1 || resp.Conflicts[0].Title != "A" {
		t.Errorf("response = %+v", resp)
	}

	// No conflicts yields an empty array, not null.
	rec = doJSON(t, r, http.MethodPost, "/api/events/conflicts", models.Event{
		Title: "C", Date: "2024-06-01", Time: "10:30",
	})
	if !strings.Contains(rec.Body.String(), `"conflicts":[]`) {
		t.Errorf("body = %s, want empty conflicts array", rec.Body.String())
	}
}

func TestGetCategories(t *testing.T) {
	r, _ := setupRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Categories []models.Category `json:"categories"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Categories) != 1 || resp.Categories[0].ID != "work" {
		t.Errorf("categories = %+v", resp.Categories)
	}
}

func TestExportICS(t *testing.T) {
	r, svc := setupRouter(t)

	if _, err := svc.Add(models.Event{Title: "Dentist", Date: "2024-02-01", Time: "10:00", EndTime: "11:00"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := svc.Add(models.Event{
		Title: "Standup", Date: "2024-02-01", Time: "09:00",
		Recurrence: &models.RecurrenceRule{Type: models.RecurrenceDaily},
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	rec := doJSON(t, r, http.MethodGet, "/api/export/ics?start=2024-02-01&end=2024-02-03", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "END:VCALENDAR") {
		t.Error("missing calendar envelope")
	}
	if !strings.Contains(body, "SUMMARY:Dentist") || !strings.Contains(body, "SUMMARY:Standup") {
		t.Errorf("missing event summaries in body:\n%s", body)
	}
	// Three daily occurrences plus the standalone event.
	if got := strings.Count(body, "BEGIN:VEVENT"); got != 4 {
		t.Errorf("VEVENT count = %d, want 4", got)
	}
}

func TestExportICS_RequiresParams(t *testing.T) {
	r, _ := setupRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/export/ics", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
