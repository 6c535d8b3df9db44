package recurrence

import (
	"time"

	"daybook/models"
)

// maxOccurrencesPerMaster is a safety cap so a misconfigured rule cannot
// produce an effectively unbounded expansion even inside a wide window.
const maxOccurrencesPerMaster = 1000

// Expand materializes the instances of a recurring master that fall inside
// the inclusive window [windowStart, windowEnd], further bounded by the
// rule's end date when one is set. Dates present in the master's exception
// table are skipped. Non-recurring events and unparseable inputs yield no
// instances; an unrecognized recurrence type stops generation after the
// instances emitted so far.
//
// Callers must always supply a bounded window: a rule without an end date
// only terminates because the window does.
func Expand(master models.Event, windowStart, windowEnd string) []models.EventInstance {
	if !master.IsRecurring() {
		return nil
	}

	cursor, err := models.ParseDate(master.Date)
	if err != nil {
		return nil
	}
	start, err := models.ParseDate(windowStart)
	if err != nil {
		return nil
	}
	end, err := models.ParseDate(windowEnd)
	if err != nil {
		return nil
	}

	rule := master.Recurrence
	if rule.EndDate != "" {
		if ruleEnd, err := models.ParseDate(rule.EndDate); err == nil && ruleEnd.Before(end) {
			end = ruleEnd
		}
	}

	var instances []models.EventInstance
	for n := 0; !cursor.After(end) && n < maxOccurrencesPerMaster; n++ {
		if !cursor.Before(start) {
			date := models.FormatDate(cursor)
			if _, overridden := master.Exceptions[date]; !overridden {
				instances = append(instances, models.NewInstance(master, date))
			}
		}

		next, ok := advance(cursor, rule)
		if !ok {
			break
		}
		cursor = next
	}
	return instances
}

// advance steps the cursor to the next occurrence date. ok is false when
// the rule cannot produce one (unrecognized type).
func advance(cursor time.Time, rule *models.RecurrenceRule) (time.Time, bool) {
	switch rule.Type {
	case models.RecurrenceDaily, models.RecurrenceCustom:
		return cursor.AddDate(0, 0, rule.Step()), true

	case models.RecurrenceWeekly:
		if len(rule.DaysOfWeek) == 0 {
			return cursor.AddDate(0, 0, 7*rule.Step()), true
		}
		// Scan forward to the next listed weekday. The interval is not
		// applied on this path: the series hits every listed weekday.
		listed := make(map[int]bool, len(rule.DaysOfWeek))
		for _, d := range rule.DaysOfWeek {
			listed[d] = true
		}
		next := cursor.AddDate(0, 0, 1)
		for i := 0; i < 7; i++ {
			if listed[int(next.Weekday())] {
				return next, true
			}
			next = next.AddDate(0, 0, 1)
		}
		// No listed day is a valid weekday ordinal.
		return time.Time{}, false

	case models.RecurrenceMonthly:
		// Same day-of-month; short-month clamping follows time.AddDate.
		return cursor.AddDate(0, rule.Step(), 0), true

	default:
		return time.Time{}, false
	}
}
