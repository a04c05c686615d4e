package exifimage

import (
	"fmt"
	"os"

	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/rwcarlsen/goexif/tiff"
	"github.com/sirupsen/logrus"
)

func init() {
	// Register manufacturer-specific note parsers so some vendor fields decode correctly.
	goexif.RegisterParsers(mknote.All...)
}

// Reader reads tags straight from a file's EXIF stream without touching the
// image data.
type Reader struct {
	f *os.File
	x *goexif.Exif
}

// OpenReader opens path and decodes its EXIF block. Non-critical decode
// errors (a broken maker note, say) are logged and the readable tags kept.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	x, err := goexif.Decode(f)
	if err != nil {
		if goexif.IsCriticalError(err) || x == nil {
			f.Close()
			return nil, fmt.Errorf("failed to decode exif of %s: %w", path, err)
		}
		logrus.WithError(err).WithField("path", path).Debug("non-critical exif decode error")
	}

	return &Reader{f: f, x: x}, nil
}

// String returns an ASCII tag value.
func (r *Reader) String(tag Tag) (string, bool) {
	t, ok := r.get(tag)
	if !ok {
		return "", false
	}
	s, err := t.StringVal()
	if err != nil {
		return "", false
	}
	return s, true
}

// Int returns the first value of an integer tag.
func (r *Reader) Int(tag Tag) (int, bool) {
	t, ok := r.get(tag)
	if !ok {
		return 0, false
	}
	i, err := t.Int(0)
	if err != nil {
		return 0, false
	}
	return i, true
}

// LatLong returns the signed decimal coordinates stored in the GPS IFD.
func (r *Reader) LatLong() (lat, long float64, ok bool) {
	lat, long, err := r.x.LatLong()
	if err != nil {
		return 0, 0, false
	}
	return lat, long, true
}

// Altitude returns the GPS altitude in metres, negative below sea level.
func (r *Reader) Altitude() (float64, bool) {
	t, ok := r.get(GPSAltitude)
	if !ok {
		return 0, false
	}
	rat, err := t.Rat(0)
	if err != nil {
		return 0, false
	}
	alt, _ := rat.Float64()
	if ref, ok := r.Int(GPSAltitudeRef); ok && ref == 1 {
		alt = -alt
	}
	return alt, true
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

func (r *Reader) get(tag Tag) (*tiff.Tag, bool) {
	info, ok := tag.info()
	if !ok || info.field == "" {
		return nil, false
	}
	t, err := r.x.Get(info.field)
	if err != nil {
		return nil, false
	}
	return t, true
}
