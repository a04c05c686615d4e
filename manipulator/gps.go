package manipulator

import (
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"github.com/sirupsen/logrus"

	"exifManipulator/exifimage"
	"exifManipulator/geo"
)

// SaveGPS writes the coordinates as WriteGPS does and reports only success.
// Failures are logged with their Kind.
func (m *Manipulator) SaveGPS(src, dst string, lat, lon, alt float64) bool {
	if err := m.WriteGPS(src, dst, lat, lon, alt); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{
			"kind": KindOf(err).String(),
			"src":  src,
			"dst":  dst,
		}).Warn("failed to save gps to image")
		return false
	}
	return true
}

// WriteGPS opens src, stores lat/lon as degree/minute/second rationals with
// their hemisphere references, stores alt with its sea-level reference, resets
// Orientation to 1 and writes the result to dst.
//
// When src has no EXIF profile an empty one is attached and, if a snapshot path
// is configured, the image is written there before any GPS tag is set.
// Nothing is rolled back on failure.
func (m *Manipulator) WriteGPS(src, dst string, lat, lon, alt float64) error {
	latT := geo.DecimalToTriple(lat)
	lonT := geo.DecimalToTriple(lon)

	img, err := exifimage.Open(src)
	if err != nil {
		return &OpError{Kind: KindOpen, Path: src, Err: err}
	}
	defer img.Close()

	p, ok := img.Profile()
	if !ok {
		p, err = exifimage.NewProfile()
		if err != nil {
			return &OpError{Kind: KindProfile, Path: src, Err: err}
		}
		if err := img.SetProfile(p); err != nil {
			return &OpError{Kind: KindProfile, Path: src, Err: err}
		}
		if m.snapshot != "" {
			if err := img.Write(m.snapshot); err != nil {
				return &OpError{Kind: KindSnapshot, Path: m.snapshot, Err: err}
			}
			m.log.WithFields(logrus.Fields{"src": src, "snapshot": m.snapshot}).Debug("image had no exif profile, wrote snapshot")
		}
	}

	// Refs follow the sign of the whole degrees only, so a coordinate in
	// (-1, 0) such as -0.5 is stored as 0°30' N (or E).
	values := []struct {
		tag   exifimage.Tag
		value interface{}
	}{
		{exifimage.GPSLatitude, exifRationals(latT.Rationals()...)},
		{exifimage.GPSLatitudeRef, geo.LatitudeRef(latT)},
		{exifimage.GPSLongitude, exifRationals(lonT.Rationals()...)},
		{exifimage.GPSLongitudeRef, geo.LongitudeRef(lonT)},
		{exifimage.GPSAltitude, exifRationals(geo.NewRational(alt))},
		{exifimage.GPSAltitudeRef, []uint8{geo.AltitudeRef(alt)}},
		{exifimage.Orientation, []uint16{1}},
	}
	for _, v := range values {
		if err := p.SetValue(v.tag, v.value); err != nil {
			return &OpError{Kind: KindTag, Path: src, Err: err}
		}
	}

	if err := img.SetProfile(p); err != nil {
		return &OpError{Kind: KindWrite, Path: dst, Err: err}
	}
	if err := img.Write(dst); err != nil {
		return &OpError{Kind: KindWrite, Path: dst, Err: err}
	}

	m.log.WithFields(logrus.Fields{
		"src": src,
		"dst": dst,
		"lat": latT.String() + geo.LatitudeRef(latT),
		"lon": lonT.String() + geo.LongitudeRef(lonT),
		"alt": alt,
	}).Debug("wrote gps")
	return nil
}

func exifRationals(rs ...geo.Rational) []exifcommon.Rational {
	out := make([]exifcommon.Rational, len(rs))
	for i, r := range rs {
		out[i] = exifcommon.Rational{Numerator: r.Numerator, Denominator: r.Denominator}
	}
	return out
}
