package manipulator

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"exifManipulator/exifdate"
	"exifManipulator/exifimage"
)

// DateTimeDigitized fully opens and decodes the image at path and returns its
// DateTimeDigitized tag plus SubSecTimeDigitized/100 seconds.
//
// An empty or missing path, an image without EXIF, and a missing or blank tag
// all return ok == false with a nil error. A tag that is present but malformed,
// or an image that cannot be decoded, returns an error.
func (m *Manipulator) DateTimeDigitized(path string, assumeUTC bool) (time.Time, bool, error) {
	if path == "" {
		return time.Time{}, false, nil
	}
	if _, err := os.Stat(path); err != nil {
		return time.Time{}, false, nil
	}

	img, err := exifimage.Open(path)
	if err != nil {
		return time.Time{}, false, err
	}
	defer img.Close()

	if _, err := img.Decode(); err != nil {
		return time.Time{}, false, err
	}

	p, ok := img.Profile()
	if !ok {
		m.log.WithField("path", path).Debug("image does not contain exif information")
		return time.Time{}, false, nil
	}

	raw, ok := p.String(exifimage.DateTimeDigitized)
	if !ok {
		return time.Time{}, false, nil
	}

	t, ok, err := exifdate.ParseIn(raw, assumeUTC, m.loc)
	if err != nil || !ok {
		return time.Time{}, false, err
	}

	if sub, ok := p.String(exifimage.SubsecTimeDigitized); ok {
		t = t.Add(exifdate.SubsecHundredths(sub))
	}
	return t, true, nil
}

// DateTimeDigitizedFast reads DateTimeDigitized straight from the EXIF stream
// without decoding the image. SubSecTimeDigitized is added as the fraction
// "0.<digits>", then the wall clock is pinned to UTC (assumeUTC) or to the
// local zone.
//
// The tag follows the same date rules as DateTimeDigitized, so a date-only
// value reads as midnight. An empty or missing path returns ErrPathNotExist; a
// file without a usable DateTimeDigitized returns ErrNoDateInfo, which also
// wraps exifdate.ErrMalformedDate when the tag is present but malformed.
func (m *Manipulator) DateTimeDigitizedFast(path string, assumeUTC bool) (time.Time, bool, error) {
	if path == "" {
		return time.Time{}, false, ErrPathNotExist
	}
	if _, err := os.Stat(path); err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %s", ErrPathNotExist, path)
	}

	r, err := exifimage.OpenReader(path)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %s: %v", ErrNoDateInfo, path, err)
	}
	defer r.Close()

	raw, ok := r.String(exifimage.DateTimeDigitized)
	if !ok {
		return time.Time{}, false, fmt.Errorf("%w: %s", ErrNoDateInfo, path)
	}

	// Wall clock only; the zone is pinned below.
	taken, ok, err := exifdate.ParseIn(raw, true, time.UTC)
	if err != nil {
		m.log.WithError(err).WithField("path", path).Debug("unparsable DateTimeDigitized")
		return time.Time{}, false, fmt.Errorf("%w: %s: %w", ErrNoDateInfo, path, err)
	}
	if !ok {
		return time.Time{}, false, fmt.Errorf("%w: %s: %q", ErrNoDateInfo, path, raw)
	}

	if sub, ok := r.String(exifimage.SubsecTimeDigitized); ok {
		taken = taken.Add(exifdate.SubsecFraction(sub))
	}

	if assumeUTC {
		taken = exifdate.AsUTC(taken, m.loc)
	} else {
		taken = exifdate.AsLocal(taken, m.loc)
	}

	m.log.WithFields(logrus.Fields{"path": path, "taken": taken}).Debug("read DateTimeDigitized")
	return taken, true, nil
}
