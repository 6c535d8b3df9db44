package models

import "testing"

func TestInstanceID_RoundTrip(t *testing.T) {
	id := InstanceID("4c2d9e1a-7f7b-4d2e-9a8e-2f1b3c4d5e6f", "2024-03-15")

	master, date, ok := SplitInstanceID(id)
	if !ok {
		t.Fatalf("SplitInstanceID(%q) not ok", id)
	}
	if master != "4c2d9e1a-7f7b-4d2e-9a8e-2f1b3c4d5e6f" {
		t.Errorf("master = %q", master)
	}
	if date != "2024-03-15" {
		t.Errorf("date = %q", date)
	}
}

func TestInstanceID_Deterministic(t *testing.T) {
	a := InstanceID("m1", "2024-01-01")
	b := InstanceID("m1", "2024-01-01")
	if a != b {
		t.Errorf("instance ids differ: %q vs %q", a, b)
	}
}

func TestSplitInstanceID_PlainID(t *testing.T) {
	if _, _, ok := SplitInstanceID("4c2d9e1a-7f7b-4d2e"); ok {
		t.Error("plain id should not split")
	}
	if _, _, ok := SplitInstanceID(""); ok {
		t.Error("empty id should not split")
	}
	if _, _, ok := SplitInstanceID("#2024-01-01"); ok {
		t.Error("id with empty master should not split")
	}
	if _, _, ok := SplitInstanceID("m1#"); ok {
		t.Error("id with empty date should not split")
	}
}

func TestBaseID(t *testing.T) {
	if got := BaseID("m1#2024-01-01"); got != "m1" {
		t.Errorf("BaseID = %q, want m1", got)
	}
	if got := BaseID("m1"); got != "m1" {
		t.Errorf("BaseID = %q, want m1", got)
	}
}

func TestNewInstance(t *testing.T) {
	master := Event{
		ID:    "m1",
		Title: "Standup",
		Date:  "2024-01-01",
		Time:  "09:00",
		Recurrence: &RecurrenceRule{
			Type: RecurrenceDaily,
		},
	}

	inst := NewInstance(master, "2024-01-08")

	if inst.ID != "m1#2024-01-08" {
		t.Errorf("ID = %q", inst.ID)
	}
	if inst.Date != "2024-01-08" {
		t.Errorf("Date = %q", inst.Date)
	}
	if inst.ParentID != "m1" {
		t.Errorf("ParentID = %q", inst.ParentID)
	}
	if inst.OriginalDate != "2024-01-01" {
		t.Errorf("OriginalDate = %q", inst.OriginalDate)
	}
	if !inst.IsDerived() {
		t.Error("derived instance should report IsDerived")
	}
}

func TestStandaloneInstance(t *testing.T) {
	inst := StandaloneInstance(Event{ID: "e1", Date: "2024-01-01"})
	if inst.ID != "e1" || inst.IsDerived() {
		t.Errorf("standalone instance should keep its id and not be derived: %+v", inst)
	}
}

func TestIsRecurring(t *testing.T) {
	cases := []struct {
		name string
		rule *RecurrenceRule
		want bool
	}{
		{"nil rule", nil, false},
		{"type none", &RecurrenceRule{Type: RecurrenceNone}, false},
		{"empty type", &RecurrenceRule{}, false},
		{"daily", &RecurrenceRule{Type: RecurrenceDaily}, true},
		{"weekly", &RecurrenceRule{Type: RecurrenceWeekly}, true},
	}
	for _, tc := range cases {
		ev := Event{Recurrence: tc.rule}
		if got := ev.IsRecurring(); got != tc.want {
			t.Errorf("%s: IsRecurring = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMinuteOfDay(t *testing.T) {
	if m, err := MinuteOfDay("09:30"); err != nil || m != 570 {
		t.Errorf("MinuteOfDay(09:30) = %d, %v", m, err)
	}
	if m, err := MinuteOfDay("00:00"); err != nil || m != 0 {
		t.Errorf("MinuteOfDay(00:00) = %d, %v", m, err)
	}
	if _, err := MinuteOfDay("25:00"); err == nil {
		t.Error("MinuteOfDay(25:00) should fail")
	}
	if _, err := MinuteOfDay(""); err == nil {
		t.Error("MinuteOfDay(empty) should fail")
	}
}

func TestRecurrenceRule_Step(t *testing.T) {
	var nilRule *RecurrenceRule
	if nilRule.Step() != 1 {
		t.Error("nil rule step should default to 1")
	}
	if (&RecurrenceRule{Interval: 0}).Step() != 1 {
		t.Error("zero interval should default to 1")
	}
	if (&RecurrenceRule{Interval: 3}).Step() != 3 {
		t.Error("explicit interval should be kept")
	}
}
