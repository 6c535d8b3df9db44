package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"daybook/models"
	"daybook/services/events"
)

// EventsHandler exposes the calendar engine over HTTP.
type EventsHandler struct {
	Service *events.Service
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(service *events.Service) *EventsHandler {
	return &EventsHandler{Service: service}
}

// GetByDate returns all instances active on one date.
func (h *EventsHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(mux.Vars(r)["date"])
	instances, err := h.Service.EventsForDate(date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": instances,
		"total":  len(instances),
		"date":   date,
	})
}

// GetRange returns all instances inside an inclusive date range.
func (h *EventsHandler) GetRange(w http.ResponseWriter, r *http.Request) {
	start := strings.TrimSpace(r.URL.Query().Get("start"))
	end := strings.TrimSpace(r.URL.Query().Get("end"))
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "start and end query parameters are required")
		return
	}

	instances, err := h.Service.EventsForRange(start, end)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": instances,
		"total":  len(instances),
		"start":  start,
		"end":    end,
	})
}

// Create adds a new event. Conflicting candidates are rejected with the
// overlapping instances in the response body.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var data models.Event
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Service.Add(data)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Update applies changes to an event. mode=single with a date query
// parameter detaches one occurrence of a recurring series.
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	mode := updateMode(r)

	var patch events.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Service.Update(id, patch, mode, strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes an event, or one occurrence of a recurring series when
// mode=single and a date is given.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := h.Service.Delete(id, updateMode(r), strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Move reschedules an event to a new date.
func (h *EventsHandler) Move(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Date) == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	moved, err := h.Service.Move(id, strings.TrimSpace(body.Date))
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

// CheckConflicts reports which instances a candidate event would overlap
// without writing anything.
func (h *EventsHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	var candidate models.Event
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hits, err := h.Service.CheckConflicts(candidate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if hits == nil {
		hits = []models.EventInstance{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conflicts": hits,
		"total":     len(hits),
	})
}

// GetCategories returns the static category list.
func (h *EventsHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": h.Service.Categories(),
	})
}

func updateMode(r *http.Request) events.UpdateMode {
	if strings.EqualFold(r.URL.Query().Get("mode"), string(events.UpdateSingle)) {
		return events.UpdateSingle
	}
	return events.UpdateAll
}

// writeMutationError maps engine errors onto status codes. Conflicts carry
// the overlapping instances so the caller can display them.
func writeMutationError(w http.ResponseWriter, err error) {
	var conflictErr *models.ConflictError
	if errors.As(err, &conflictErr) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     conflictErr.Error(),
			"conflicts": conflictErr.Conflicts,
		})
		return
	}
	if errors.Is(err, models.ErrEventNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var parseErr *time.ParseError
	if errors.Is(err, models.ErrMalformedRecurrence) ||
		errors.Is(err, models.ErrOccurrenceDateRequired) ||
		errors.As(err, &parseErr) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Persistence failures: the in-memory store already holds the change
	// and stays authoritative for this session.
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
