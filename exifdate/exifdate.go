// Package exifdate decodes the textual DateTime encoding used by EXIF tags.
//
// EXIF stores timestamps as "YYYY:MM:DD HH:MM:SS" (or a bare "YYYY:MM:DD") with
// no zone information. When the value is unknown the digits may be replaced by
// blanks, leaving only the colons; such values are reported as invalid rather
// than as errors.
package exifdate

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

const (
	// DateLayout is the 10 character date-only form.
	DateLayout = "2006:01:02"
	// DateTimeLayout is the 19 character full timestamp form.
	DateTimeLayout = "2006:01:02 15:04:05"
)

// ErrMalformedDate is returned for strings that are neither blank nor in one of
// the two recognised layouts.
var ErrMalformedDate = errors.New("malformed exif date")

var blankDate = regexp.MustCompile(`^[\s0]{4}[:\s][\s0]{2}[:\s][\s0]{5}[:\s][\s0]{2}[:\s][\s0]{2}$`)

// IsBlank reports whether s is empty or an "unknown date" placeholder.
func IsBlank(s string) bool {
	return s == "" || blankDate.MatchString(s)
}

// Parse is ParseIn with time.Local as the local zone.
func Parse(s string, assumeUTC bool) (time.Time, bool, error) {
	return ParseIn(s, assumeUTC, time.Local)
}

// ParseIn decodes s. A blank value returns ok == false and a nil error. A 10
// character value is read as a date at midnight in the assumed zone (UTC, or
// local) with no further conversion. Anything else is read as a full timestamp
// in the assumed zone and then converted to that same zone, so the result's
// Location is always UTC or local.
func ParseIn(s string, assumeUTC bool, local *time.Location) (time.Time, bool, error) {
	if IsBlank(s) {
		return time.Time{}, false, nil
	}
	if local == nil {
		local = time.Local
	}

	src := local
	if assumeUTC {
		src = time.UTC
	}

	if len(s) == len(DateLayout) {
		t, err := time.ParseInLocation(DateLayout, s, src)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("%w: %q: %v", ErrMalformedDate, s, err)
		}
		return t, true, nil
	}

	t, err := time.ParseInLocation(DateTimeLayout, s, src)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %q: %v", ErrMalformedDate, s, err)
	}

	if assumeUTC {
		t = t.UTC()
	} else {
		t = t.In(local)
	}
	return t, true, nil
}
