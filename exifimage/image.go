// Package exifimage is the thin image/metadata layer the manipulator works
// against. Image wraps a parsed JPEG segment list and its EXIF profile for
// full read-modify-write, and Reader decodes only the EXIF stream of a file for
// quick tag lookups.
package exifimage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"github.com/disintegration/imaging"
	exif "github.com/dsoprea/go-exif/v3"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
)

var (
	// ErrNotJPEG is returned by Open for files that are not baseline/progressive JPEGs.
	ErrNotJPEG = errors.New("not a jpeg image")
	// ErrClosed is returned by Image methods after Close.
	ErrClosed = errors.New("image is closed")
)

// Image is an opened JPEG held in memory.
type Image struct {
	path    string
	data    []byte
	sl      *jpegstructure.SegmentList
	profile *Profile
}

// Open reads and parses the JPEG at path. A file without an EXIF block opens
// fine; Profile then reports false.
func Open(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if _, err := jpeg.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotJPEG, path, err)
	}

	intfc, err := jpegstructure.NewJpegMediaParser().ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jpeg segments of %s: %w", path, err)
	}
	sl, ok := intfc.(*jpegstructure.SegmentList)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unexpected media context %T", ErrNotJPEG, path, intfc)
	}

	img := &Image{path: path, data: data, sl: sl}

	rootIfd, _, err := sl.Exif()
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return img, nil
		}
		return nil, fmt.Errorf("failed to read exif of %s: %w", path, err)
	}

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		return nil, fmt.Errorf("failed to construct exif builder for %s: %w", path, err)
	}
	img.profile = &Profile{rootIfd: rootIfd, rootIb: rootIb}

	return img, nil
}

// Path is the file the image was opened from.
func (im *Image) Path() string {
	return im.path
}

// Profile returns the image's EXIF profile, or false when it carries none.
func (im *Image) Profile() (*Profile, bool) {
	if im.profile == nil {
		return nil, false
	}
	return im.profile, true
}

// SetProfile encodes p into the image's APP1 segment, adding the segment when
// the image had none.
func (im *Image) SetProfile(p *Profile) error {
	if im.sl == nil {
		return ErrClosed
	}
	if err := im.sl.SetExif(p.rootIb); err != nil {
		return fmt.Errorf("failed to set exif: %w", err)
	}
	im.profile = p
	return nil
}

// Write serialises the image, including any profile set so far, to path.
func (im *Image) Write(path string) error {
	if im.sl == nil {
		return ErrClosed
	}

	b := new(bytes.Buffer)
	if err := im.sl.Write(b); err != nil {
		return fmt.Errorf("failed to encode jpeg: %w", err)
	}

	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Decode fully decodes the pixel data of the image as it was read from disk.
func (im *Image) Decode() (image.Image, error) {
	if im.data == nil {
		return nil, ErrClosed
	}
	img, err := imaging.Decode(bytes.NewReader(im.data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", im.path, err)
	}
	return img, nil
}

// Close releases the buffers held by the image. It is safe to call more than once.
func (im *Image) Close() error {
	im.data = nil
	im.sl = nil
	im.profile = nil
	return nil
}
