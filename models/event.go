package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the wire format for calendar dates. Dates are naive:
	// no timezone is attached or converted anywhere in the engine.
	DateLayout = "2006-01-02"
	// TimeLayout is the wire format for times of day.
	TimeLayout = "15:04"
)

// RecurrenceType identifies how a recurring event repeats.
type RecurrenceType string

const (
	RecurrenceNone    RecurrenceType = "none"
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceCustom  RecurrenceType = "custom"
)

// KnownRecurrenceType reports whether t is one of the supported types.
func KnownRecurrenceType(t RecurrenceType) bool {
	switch t {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceCustom:
		return true
	}
	return false
}

// RecurrenceRule describes how a master event repeats.
//
// DaysOfWeek is only meaningful for weekly rules (0=Sunday..6=Saturday).
// When DaysOfWeek is non-empty the interval is ignored and the series hits
// every listed weekday; when it is empty the series advances Interval weeks
// at a time. Daily and custom rules advance Interval days, monthly rules
// Interval months. EndDate, if set, is inclusive and bounds generation.
type RecurrenceRule struct {
	Type       RecurrenceType `json:"type"`
	Interval   int            `json:"interval,omitempty"`
	DaysOfWeek []int          `json:"daysOfWeek,omitempty"`
	EndDate    string         `json:"endDate,omitempty"` // YYYY-MM-DD
}

// Step returns the effective interval, defaulting to 1.
func (r *RecurrenceRule) Step() int {
	if r == nil || r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// Category is static reference data looked up by id. The engine never
// mutates categories; they are supplied at initialization.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ExceptionDeleted marks an occurrence date as suppressed. Any other
// exception value is the id of the standalone event replacing that date.
const ExceptionDeleted = "deleted"

// Event is a standalone event or, when Recurrence is set with a type other
// than none, the master record anchoring a recurring series. For masters,
// Date is the first occurrence. Exceptions is the per-date override table:
// the recurrence expander skips any date present in it.
type Event struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Date        string            `json:"date"`              // YYYY-MM-DD
	Time        string            `json:"time"`              // HH:mm, empty = all-day
	EndTime     string            `json:"endTime,omitempty"` // HH:mm
	Category    string            `json:"category"`
	Color       string            `json:"color"`
	Recurrence  *RecurrenceRule   `json:"recurrence,omitempty"`
	Exceptions  map[string]string `json:"exceptions,omitempty"`
}

// IsRecurring reports whether the event is a recurring master.
func (e *Event) IsRecurring() bool {
	return e.Recurrence != nil && e.Recurrence.Type != "" && e.Recurrence.Type != RecurrenceNone
}

// EventInstance is an ephemeral, derived view of an event for one concrete
// date. Instances are recomputed on every query and never persisted. For a
// derived occurrence of a master, ParentID is the master id and the instance
// id is the deterministic composite InstanceID(master, date); for standalone
// events ParentID is empty and the fields mirror the stored record.
type EventInstance struct {
	Event
	ParentID     string `json:"parentId,omitempty"`
	OriginalDate string `json:"originalDate,omitempty"`
}

// IsDerived reports whether the instance was generated from a master.
func (i *EventInstance) IsDerived() bool {
	return i.ParentID != ""
}

// NewInstance derives the instance of a master event on the given date.
func NewInstance(master Event, date string) EventInstance {
	inst := EventInstance{
		Event:        master,
		ParentID:     master.ID,
		OriginalDate: master.Date,
	}
	inst.ID = InstanceID(master.ID, date)
	inst.Date = date
	return inst
}

// StandaloneInstance wraps a non-recurring event as an instance of itself.
func StandaloneInstance(e Event) EventInstance {
	return EventInstance{Event: e}
}

const instanceSeparator = "#"

// InstanceID composes the stable id of a master's occurrence on a date.
// The '#' separator cannot collide with uuid event ids, so the composite
// parses back unambiguously.
func InstanceID(masterID, date string) string {
	return masterID + instanceSeparator + date
}

// SplitInstanceID parses a composite instance id back into the master id
// and occurrence date. ok is false for plain event ids.
func SplitInstanceID(id string) (masterID, date string, ok bool) {
	idx := strings.LastIndex(id, instanceSeparator)
	if idx <= 0 || idx == len(id)-1 {
		return "", "", false
	}
	return id[:idx], id[idx+1:], true
}

// BaseID returns the master id for composite instance ids and the id itself
// otherwise. Two ids with the same base refer to the same stored record.
func BaseID(id string) string {
	if master, _, ok := SplitInstanceID(id); ok {
		return master
	}
	return id
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a calendar date in the wire format.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// MinuteOfDay converts an HH:mm value to minutes since midnight.
func MinuteOfDay(hhmm string) (int, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(hhmm))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
