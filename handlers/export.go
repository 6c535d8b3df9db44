package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"daybook/models"
	"daybook/services/events"
)

// ExportHandler renders a materialized date window as an iCalendar feed so
// the calendar can be subscribed to from other clients.
type ExportHandler struct {
	Service *events.Service
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(service *events.Service) *ExportHandler {
	return &ExportHandler{Service: service}
}

// ExportICS writes all instances in [start, end] as an ICS document.
func (h *ExportHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
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

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//daybook//calendar//EN")
	cal.SetXWRCalName("daybook")

	now := time.Now().UTC()
	for _, inst := range instances {
		day, err := models.ParseDate(inst.Date)
		if err != nil {
			continue
		}

		ev := cal.AddEvent(inst.ID)
		ev.SetDtStampTime(now)
		ev.SetSummary(inst.Title)
		if inst.Description != "" {
			ev.SetDescription(inst.Description)
		}

		if inst.Time == "" {
			ev.SetAllDayStartAt(day)
			ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
			continue
		}

		startMin, err := models.MinuteOfDay(inst.Time)
		if err != nil {
			continue
		}
		endMin := startMin + 60
		if inst.EndTime != "" {
			if m, err := models.MinuteOfDay(inst.EndTime); err == nil && m > startMin {
				endMin = m
			}
		}
		ev.SetStartAt(day.Add(time.Duration(startMin) * time.Minute))
		ev.SetEndAt(day.Add(time.Duration(endMin) * time.Minute))
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=daybook_%s_%s.ics", start, end))
	_, _ = io.WriteString(w, cal.Serialize())
}
