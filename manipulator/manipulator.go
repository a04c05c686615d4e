// Package manipulator writes GPS coordinates into JPEG EXIF blocks and reads
// back the DateTimeDigitized timestamp.
//
// Two readers exist and deliberately disagree on sub-second handling:
// DateTimeDigitized divides SubSecTimeDigitized by 100, while
// DateTimeDigitizedFast reads it as the fraction "0.<digits>". They also differ
// in how a missing file or tag is reported.
package manipulator

import (
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSnapshotPath is where WriteGPS saves the profile-less intermediate
// copy of a source image that had no EXIF block. It is relative to the working
// directory.
const DefaultSnapshotPath = "without_m.jpg"

// Options configures a Manipulator.
type Options struct {
	// Location is the zone used for "local" timestamps. If nil, time.Local is used.
	Location *time.Location

	// SnapshotPath receives the intermediate image written when the source has
	// no EXIF profile. An empty value disables the snapshot.
	SnapshotPath string

	// Logger receives failures that the boolean APIs swallow. If nil, the
	// logrus standard logger is used.
	Logger logrus.FieldLogger
}

// Manipulator carries the options shared by the GPS writer and the decoders.
type Manipulator struct {
	loc      *time.Location
	snapshot string
	log      logrus.FieldLogger
}

// New returns a Manipulator for opts.
func New(opts Options) *Manipulator {
	m := &Manipulator{
		loc:      opts.Location,
		snapshot: opts.SnapshotPath,
		log:      opts.Logger,
	}
	if m.loc == nil {
		m.loc = time.Local
	}
	if m.log == nil {
		m.log = logrus.StandardLogger()
	}
	return m
}

// Default returns a Manipulator using time.Local and DefaultSnapshotPath.
func Default() *Manipulator {
	return New(Options{SnapshotPath: DefaultSnapshotPath})
}

// SaveGPS is Default().SaveGPS.
func SaveGPS(src, dst string, lat, lon, alt float64) bool {
	return Default().SaveGPS(src, dst, lat, lon, alt)
}

// DateTimeDigitized is Default().DateTimeDigitized.
func DateTimeDigitized(path string, assumeUTC bool) (time.Time, bool, error) {
	return Default().DateTimeDigitized(path, assumeUTC)
}

// DateTimeDigitizedFast is Default().DateTimeDigitizedFast.
func DateTimeDigitizedFast(path string, assumeUTC bool) (time.Time, bool, error) {
	return Default().DateTimeDigitizedFast(path, assumeUTC)
}
