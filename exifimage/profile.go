package exifimage

import (
	"errors"
	"fmt"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// Software is written into ProcessingSoftware of profiles created from scratch.
const Software = "exifManipulator"

// ErrTagNotFound is returned when a profile does not carry the requested tag.
var ErrTagNotFound = errors.New("tag not found")

// Profile is an image's EXIF block. Reads see the tags as they were loaded;
// writes go to a builder that is encoded by Image.SetProfile.
type Profile struct {
	rootIfd *exif.Ifd
	rootIb  *exif.IfdBuilder
}

// NewProfile returns an empty profile carrying only ProcessingSoftware.
func NewProfile() (*Profile, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("failed to create ifd mapping: %w", err)
	}

	ti := exif.NewTagIndex()
	if err := exif.LoadStandardTags(ti); err != nil {
		return nil, fmt.Errorf("failed to load standard tags: %w", err)
	}

	p := &Profile{
		rootIb: exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder),
	}
	if err := p.SetValue(ProcessingSoftware, Software); err != nil {
		return nil, err
	}
	return p, nil
}

// Value returns the decoded value of tag. Rational tags come back as
// []exifcommon.Rational, ASCII tags as string and SHORT tags as []uint16.
func (p *Profile) Value(tag Tag) (interface{}, error) {
	info, ok := tag.info()
	if !ok {
		return nil, fmt.Errorf("unknown tag %d", tag)
	}
	if p.rootIfd == nil {
		return nil, fmt.Errorf("%w: %s", ErrTagNotFound, info.name)
	}

	ifd := p.rootIfd
	if info.ifd != exifcommon.IfdStandardIfdIdentity {
		child, err := p.rootIfd.ChildWithIfdPath(info.ifd)
		if err != nil {
			if errors.Is(err, exif.ErrTagNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrTagNotFound, info.name)
			}
			return nil, err
		}
		ifd = child
	}

	entries, err := ifd.FindTagWithName(info.name)
	if err != nil {
		if errors.Is(err, exif.ErrTagNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTagNotFound, info.name)
		}
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTagNotFound, info.name)
	}

	return entries[0].Value()
}

// String returns an ASCII tag without its NUL terminator.
func (p *Profile) String(tag Tag) (string, bool) {
	v, err := p.Value(tag)
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimRight(s, "\x00"), true
}

// SetValue sets tag, creating its IFD when the profile lacks one. The value
// must have the Go type go-exif uses for the tag's EXIF type.
func (p *Profile) SetValue(tag Tag, value interface{}) error {
	info, ok := tag.info()
	if !ok {
		return fmt.Errorf("unknown tag %d", tag)
	}

	ib, err := exif.GetOrCreateIbFromRootIb(p.rootIb, info.ifdPath)
	if err != nil {
		return fmt.Errorf("failed to get or create %s: %w", info.ifdPath, err)
	}

	if err := ib.SetStandardWithName(info.name, value); err != nil {
		return fmt.Errorf("failed to set tag %s: %w", info.name, err)
	}
	return nil
}
