package conflict

import (
	"daybook/models"
)

// impliedDurationMinutes is the assumed length of an event without an end
// time. Both sides of a comparison apply it independently.
const impliedDurationMinutes = 60

// Check returns the instances whose time range overlaps the candidate's on
// the candidate's calendar date. Instances on other dates are ignored, the
// candidate never conflicts with itself (or, for masters, with its own
// derived instances), and results keep the encounter order of the input.
//
// Intervals are half-open [start, end): an event ending at 10:00 does not
// conflict with one starting at 10:00. An event with no time at all
// occupies its whole day and conflicts with everything else on that date.
func Check(candidate models.Event, instances []models.EventInstance) []models.EventInstance {
	candidateBase := models.BaseID(candidate.ID)

	var conflicts []models.EventInstance
	for _, inst := range instances {
		if inst.Date != candidate.Date {
			continue
		}
		if candidate.ID != "" && models.BaseID(inst.ID) == candidateBase {
			continue
		}
		if overlaps(candidate.Time, candidate.EndTime, inst.Time, inst.EndTime) {
			conflicts = append(conflicts, inst)
		}
	}
	return conflicts
}

// overlaps applies the half-open overlap predicate to two same-day time
// ranges expressed as HH:mm strings.
func overlaps(aStart, aEnd, bStart, bEnd string) bool {
	a0, a1, aTimed := bounds(aStart, aEnd)
	b0, b1, bTimed := bounds(bStart, bEnd)
	if !aTimed || !bTimed {
		// All-day events absorb the whole date.
		return true
	}
	return a0 < b1 && a1 > b0
}

// bounds converts an event's times to minute offsets. timed is false when
// the event has no start time (all-day). A missing or unparseable end time
// falls back to the implied one-hour duration.
func bounds(start, end string) (int, int, bool) {
	s, err := models.MinuteOfDay(start)
	if err != nil {
		return 0, 0, false
	}
	e, err := models.MinuteOfDay(end)
	if err != nil || e < s {
		e = s + impliedDurationMinutes
	}
	return s, e, true
}
