package events

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"daybook/models"
	"daybook/monitoring"
	"daybook/services/conflict"
	"daybook/services/recurrence"
	"daybook/storage"
)

// UpdateMode selects whether a change to a recurring series applies to the
// whole series or detaches a single occurrence.
type UpdateMode string

const (
	UpdateAll    UpdateMode = "all"
	UpdateSingle UpdateMode = "single"
)

// conflictHorizonDays bounds conflict validation for recurring candidates
// without an end date: occurrences up to a year past the anchor are checked.
const conflictHorizonDays = 365

// Patch carries proposed changes to an event. Nil fields are left untouched.
type Patch struct {
	Title       *string                `json:"title,omitempty"`
	Description *string                `json:"description,omitempty"`
	Date        *string                `json:"date,omitempty"`
	Time        *string                `json:"time,omitempty"`
	EndTime     *string                `json:"endTime,omitempty"`
	Category    *string                `json:"category,omitempty"`
	Color       *string                `json:"color,omitempty"`
	Recurrence  *models.RecurrenceRule `json:"recurrence,omitempty"`
}

// Service owns the collection of standalone events and recurring masters.
// It materializes instances for queries, validates mutations against the
// conflict detector, and saves the full set through the storage
// collaborator after every successful write. A single mutex serializes
// mutations so checking conflicts and committing are atomic; the in-memory
// state is always updated before the persistence write is issued.
type Service struct {
	mu         sync.RWMutex
	events     map[string]models.Event
	categories []models.Category
	store      storage.Store
}

// NewService loads all persisted events and returns a ready service.
func NewService(store storage.Store, categories []models.Category) (*Service, error) {
	snap, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	s := &Service{
		events:     make(map[string]models.Event, len(snap.Events)+len(snap.RecurringEvents)),
		categories: categories,
		store:      store,
	}
	for _, ev := range snap.Events {
		if ev.ID != "" {
			s.events[ev.ID] = ev
		}
	}
	for _, ev := range snap.RecurringEvents {
		if ev.ID != "" {
			s.events[ev.ID] = ev
		}
	}
	log.Printf("[events] loaded %d standalone and %d recurring events", len(snap.Events), len(snap.RecurringEvents))
	return s, nil
}

// Categories returns the static category list supplied at initialization.
func (s *Service) Categories() []models.Category {
	out := make([]models.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// EventsForDate materializes all instances active on one calendar date.
func (s *Service) EventsForDate(date string) ([]models.EventInstance, error) {
	return s.EventsForRange(date, date)
}

// EventsForRange materializes all instances whose date falls inside the
// inclusive range [start, end].
func (s *Service) EventsForRange(start, end string) ([]models.EventInstance, error) {
	startT, err := models.ParseDate(start)
	if err != nil {
		return nil, err
	}
	endT, err := models.ParseDate(end)
	if err != nil {
		return nil, err
	}
	if endT.Before(startT) {
		return nil, fmt.Errorf("invalid range: end %s before start %s", end, start)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	instances := s.materializeLocked(start, end, "")
	monitoring.RecordExpansion(len(instances))
	return instances, nil
}

// CheckConflicts returns every instance the candidate would overlap. The
// candidate itself is never part of the result.
func (s *Service) CheckConflicts(candidate models.Event) ([]models.EventInstance, error) {
	if err := validateEvent(candidate); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := s.conflictsLocked(candidate, "")
	monitoring.RecordConflictCheck(len(hits))
	return hits, nil
}

// Add validates and stores a new standalone event or recurring master. The
// id is assigned only after the conflict check passes. On conflict nothing
// is written and the ConflictError carries the overlapping instances.
func (s *Service) Add(data models.Event) (models.Event, error) {
	candidate := data
	candidate.ID = ""
	candidate.Exceptions = nil
	normalizeRecurrence(&candidate)

	if err := validateEvent(candidate); err != nil {
		monitoring.RecordMutation("create", "invalid")
		return models.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if hits := s.conflictsLocked(candidate, ""); len(hits) > 0 {
		monitoring.RecordMutation("create", "conflict")
		return models.Event{}, &models.ConflictError{Conflicts: hits}
	}

	candidate.ID = uuid.NewString()
	s.events[candidate.ID] = candidate

	if err := s.saveLocked(); err != nil {
		monitoring.RecordMutation("create", "persist_error")
		return candidate, err
	}

	monitoring.RecordMutation("create", "ok")
	log.Printf("[events] created %q id=%s date=%s recurring=%v", candidate.Title, candidate.ID, candidate.Date, candidate.IsRecurring())
	return candidate, nil
}

// Update applies a patch to the event with the given id. In all mode (and
// for non-recurring events) the stored record is replaced after passing the
// conflict check; no occurrence changes if any occurrence would conflict.
// In single mode for a recurring master the occurrence is detached: a new
// standalone event carries the merged fields and an exception recorded on
// the master stops the series from generating that date again.
//
// The id may be a derived instance id; it resolves to the master and
// implies single mode for that occurrence.
func (s *Service) Update(id string, patch Patch, mode UpdateMode, occurrenceDate string) (models.Event, error) {
	return s.update("update", id, patch, mode, occurrenceDate)
}

// Move reschedules an event to a new date. It is a date-only update and
// runs the same conflict validation as any other update.
func (s *Service) Move(id, newDate string) (models.Event, error) {
	return s.update("move", id, Patch{Date: &newDate}, UpdateAll, "")
}

func (s *Service) update(op, id string, patch Patch, mode UpdateMode, occurrenceDate string) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, instanceDate, err := s.resolveLocked(id)
	if err != nil {
		monitoring.RecordMutation(op, "not_found")
		return models.Event{}, err
	}
	if instanceDate != "" {
		mode = UpdateSingle
		if occurrenceDate == "" {
			occurrenceDate = instanceDate
		}
	}

	if mode == UpdateSingle && cur.IsRecurring() {
		ev, err := s.detachOccurrenceLocked(cur, patch, occurrenceDate)
		if err != nil {
			monitoring.RecordMutation(op, statusFor(err))
			return models.Event{}, err
		}
		if err := s.saveLocked(); err != nil {
			monitoring.RecordMutation(op, "persist_error")
			return ev, err
		}
		monitoring.RecordMutation(op, "ok")
		log.Printf("[events] detached occurrence of %s on %s as %s", cur.ID, occurrenceDate, ev.ID)
		return ev, nil
	}

	merged := cur
	applyPatch(&merged, patch, true)
	normalizeRecurrence(&merged)

	if err := validateEvent(merged); err != nil {
		monitoring.RecordMutation(op, "invalid")
		return models.Event{}, err
	}

	if hits := s.conflictsLocked(merged, cur.ID); len(hits) > 0 {
		monitoring.RecordMutation(op, "conflict")
		return models.Event{}, &models.ConflictError{Conflicts: hits}
	}

	s.events[cur.ID] = merged
	if err := s.saveLocked(); err != nil {
		monitoring.RecordMutation(op, "persist_error")
		return merged, err
	}

	monitoring.RecordMutation(op, "ok")
	log.Printf("[events] updated %s date=%s", cur.ID, merged.Date)
	return merged, nil
}

// detachOccurrenceLocked implements single-occurrence edits: a standalone
// replacement anchored at the occurrence date, plus an exception on the
// master so the original occurrence disappears instead of duplicating.
func (s *Service) detachOccurrenceLocked(master models.Event, patch Patch, occurrenceDate string) (models.Event, error) {
	if occurrenceDate == "" {
		return models.Event{}, models.ErrOccurrenceDateRequired
	}
	if _, err := models.ParseDate(occurrenceDate); err != nil {
		return models.Event{}, err
	}

	detached := master
	detached.ID = ""
	detached.Date = occurrenceDate
	detached.Recurrence = nil
	detached.Exceptions = nil
	// A detached occurrence cannot carry its own recurrence rule.
	applyPatch(&detached, patch, false)

	if err := validateEvent(detached); err != nil {
		return models.Event{}, err
	}

	// Exclude the master: its generated occurrence on this date is the one
	// being replaced.
	if hits := s.conflictsLocked(detached, master.ID); len(hits) > 0 {
		return models.Event{}, &models.ConflictError{Conflicts: hits}
	}

	detached.ID = uuid.NewString()

	updated := master
	updated.Exceptions = copyExceptions(master.Exceptions)
	updated.Exceptions[occurrenceDate] = detached.ID

	s.events[detached.ID] = detached
	s.events[updated.ID] = updated
	return detached, nil
}

// Delete removes an event. For a recurring master in single mode the
// occurrence date is recorded as deleted in the exception table and the
// expander stops generating it; in all mode the master disappears and every
// derived instance with it. The id may be a derived instance id, which
// implies single mode for that occurrence.
func (s *Service) Delete(id string, mode UpdateMode, occurrenceDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, instanceDate, err := s.resolveLocked(id)
	if err != nil {
		monitoring.RecordMutation("delete", "not_found")
		return err
	}
	if instanceDate != "" {
		mode = UpdateSingle
		if occurrenceDate == "" {
			occurrenceDate = instanceDate
		}
	}

	if mode == UpdateSingle && cur.IsRecurring() {
		if occurrenceDate == "" {
			monitoring.RecordMutation("delete", "invalid")
			return models.ErrOccurrenceDateRequired
		}
		if _, err := models.ParseDate(occurrenceDate); err != nil {
			monitoring.RecordMutation("delete", "invalid")
			return err
		}
		updated := cur
		updated.Exceptions = copyExceptions(cur.Exceptions)
		updated.Exceptions[occurrenceDate] = models.ExceptionDeleted
		s.events[updated.ID] = updated
	} else {
		delete(s.events, cur.ID)
	}

	if err := s.saveLocked(); err != nil {
		monitoring.RecordMutation("delete", "persist_error")
		return err
	}

	monitoring.RecordMutation("delete", "ok")
	log.Printf("[events] deleted %s mode=%s date=%s", cur.ID, mode, occurrenceDate)
	return nil
}

// resolveLocked finds the stored record for an id. Composite instance ids
// resolve to their master along with the occurrence date they name.
func (s *Service) resolveLocked(id string) (models.Event, string, error) {
	if ev, ok := s.events[id]; ok {
		return ev, "", nil
	}
	if masterID, date, ok := models.SplitInstanceID(id); ok {
		if ev, found := s.events[masterID]; found {
			return ev, date, nil
		}
	}
	return models.Event{}, "", models.ErrEventNotFound
}

// materializeLocked builds the instances active in [start, end], skipping
// the stored record with excludeID. Events are scanned in a stable order so
// results are deterministic.
func (s *Service) materializeLocked(start, end, excludeID string) []models.EventInstance {
	instances := make([]models.EventInstance, 0)
	for _, ev := range s.sortedLocked() {
		if ev.ID == excludeID {
			continue
		}
		if ev.IsRecurring() {
			instances = append(instances, recurrence.Expand(ev, start, end)...)
			continue
		}
		// ISO dates compare correctly as strings.
		if ev.Date >= start && ev.Date <= end {
			instances = append(instances, models.StandaloneInstance(ev))
		}
	}
	sort.SliceStable(instances, func(i, j int) bool {
		if instances[i].Date != instances[j].Date {
			return instances[i].Date < instances[j].Date
		}
		if instances[i].Time != instances[j].Time {
			return instances[i].Time < instances[j].Time
		}
		return instances[i].ID < instances[j].ID
	})
	return instances
}

// conflictsLocked runs the overlap check for a candidate against every date
// it would occupy. Recurring candidates are checked on each occurrence date
// within the bounded horizon.
func (s *Service) conflictsLocked(candidate models.Event, excludeID string) []models.EventInstance {
	var dates []string
	if candidate.IsRecurring() {
		anchor, err := models.ParseDate(candidate.Date)
		if err != nil {
			return nil
		}
		horizon := models.FormatDate(anchor.AddDate(0, 0, conflictHorizonDays))
		for _, inst := range recurrence.Expand(candidate, candidate.Date, horizon) {
			dates = append(dates, inst.Date)
		}
	} else {
		dates = []string{candidate.Date}
	}

	var hits []models.EventInstance
	seen := make(map[string]bool)
	for _, date := range dates {
		day := s.materializeLocked(date, date, excludeID)
		onDate := candidate
		onDate.Date = date
		for _, hit := range conflict.Check(onDate, day) {
			if !seen[hit.ID] {
				seen[hit.ID] = true
				hits = append(hits, hit)
			}
		}
	}
	return hits
}

// sortedLocked returns the stored events ordered by date, time, then id.
func (s *Service) sortedLocked() []models.Event {
	all := make([]models.Event, 0, len(s.events))
	for _, ev := range s.events {
		all = append(all, ev)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Date != all[j].Date {
			return all[i].Date < all[j].Date
		}
		if all[i].Time != all[j].Time {
			return all[i].Time < all[j].Time
		}
		return all[i].ID < all[j].ID
	})
	return all
}

// saveLocked persists the full current store. The in-memory map has
// already been updated by the caller; a failed write leaves it
// authoritative for the session and the error is surfaced unchanged.
func (s *Service) saveLocked() error {
	snap := storage.Snapshot{
		Events:          make([]models.Event, 0),
		RecurringEvents: make([]models.Event, 0),
	}
	for _, ev := range s.sortedLocked() {
		if ev.IsRecurring() {
			snap.RecurringEvents = append(snap.RecurringEvents, ev)
		} else {
			snap.Events = append(snap.Events, ev)
		}
	}
	if err := s.store.Save(snap); err != nil {
		log.Printf("[events] persistence write failed: %v", err)
		return fmt.Errorf("persist events: %w", err)
	}
	return nil
}

func applyPatch(ev *models.Event, patch Patch, allowRecurrence bool) {
	if patch.Title != nil {
		ev.Title = *patch.Title
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.Date != nil {
		ev.Date = *patch.Date
	}
	if patch.Time != nil {
		ev.Time = *patch.Time
	}
	if patch.EndTime != nil {
		ev.EndTime = *patch.EndTime
	}
	if patch.Category != nil {
		ev.Category = *patch.Category
	}
	if patch.Color != nil {
		ev.Color = *patch.Color
	}
	if allowRecurrence && patch.Recurrence != nil {
		rule := *patch.Recurrence
		ev.Recurrence = &rule
	}
}

// normalizeRecurrence drops a rule of type none so IsRecurring stays the
// single source of truth.
func normalizeRecurrence(ev *models.Event) {
	if ev.Recurrence != nil && (ev.Recurrence.Type == "" || ev.Recurrence.Type == models.RecurrenceNone) {
		ev.Recurrence = nil
	}
}

func validateEvent(ev models.Event) error {
	if _, err := models.ParseDate(ev.Date); err != nil {
		return err
	}
	if ev.Time != "" {
		if _, err := models.MinuteOfDay(ev.Time); err != nil {
			return err
		}
	}
	if ev.EndTime != "" {
		if _, err := models.MinuteOfDay(ev.EndTime); err != nil {
			return err
		}
	}
	if ev.Recurrence != nil {
		if !models.KnownRecurrenceType(ev.Recurrence.Type) {
			return models.ErrMalformedRecurrence
		}
		if ev.Recurrence.EndDate != "" {
			if _, err := models.ParseDate(ev.Recurrence.EndDate); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyExceptions(src map[string]string) map[string]string {
	out := make(map[string]string, len(src)+1)
	for k, v := range src {
		out[k] = v
	}
	return out
}

func statusFor(err error) string {
	if _, ok := err.(*models.ConflictError); ok {
		return "conflict"
	}
	return "invalid"
}
