package exifdate

import "time"

// AsUTC reads the wall clock of t as a UTC instant and returns it expressed in
// local.
func AsUTC(t time.Time, local *time.Location) time.Time {
	if local == nil {
		local = time.Local
	}
	return wall(t, time.UTC).In(local)
}

// AsLocal reads the wall clock of t as an instant in local and returns it
// expressed in UTC.
func AsLocal(t time.Time, local *time.Location) time.Time {
	if local == nil {
		local = time.Local
	}
	return wall(t, local).UTC()
}

// Truncate rounds the wall clock of t down to a multiple of d, keeping t's
// Location. A zero d or a zero t is returned unchanged.
func Truncate(t time.Time, d time.Duration) time.Time {
	if d <= 0 || t.IsZero() {
		return t
	}
	return wall(wall(t, time.UTC).Truncate(d), t.Location())
}

func wall(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
