package domain

import "time"

// WeekOf returns the ISO (year, week-number) pair for t, Monday as the first
// day of the week. The pair is the dedup key for "already generated this week".
func WeekOf(t time.Time) (year, week int) {
	return t.ISOWeek()
}

// WeekBounds returns the Monday 00:00 start and Friday 00:00 end of the ISO
// week containing t, in t's location. Reflections cover the working week, so
// the end bound is Friday rather than Sunday.
func WeekBounds(t time.Time) (start, end time.Time) {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -daysSinceMonday).Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 0, 4)
	return start, end
}
