package model

import "time"

// Slots is the fixed daily catalog of bookable one-hour windows, in order.
var Slots = [...]string{
	"09:00-10:00",
	"10:00-11:00",
	"11:00-12:00",
	"12:00-13:00",
	"13:00-14:00",
	"14:00-15:00",
	"15:00-16:00",
	"16:00-17:00",
}

// SlotCatalog returns a copy of the catalog so callers cannot mutate it.
func SlotCatalog() []string {
	out := make([]string, len(Slots))
	copy(out, Slots[:])
	return out
}

func IsValidSlot(slot string) bool {
	for _, s := range Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// NormalizeDate truncates t to the start of its calendar day in UTC.
// Every date comparison against stored appointments must go through here.
func NormalizeDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DateLayout is the calendar-day format used in responses and events.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	DateLayout,
}

// ParseDate accepts a plain calendar date or a full timestamp and returns the
// normalized day. ok is false when raw is empty or unparseable.
func ParseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return NormalizeDate(t), true
		}
	}
	return time.Time{}, false
}
