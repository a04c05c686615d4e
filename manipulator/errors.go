package manipulator

import (
	"errors"
	"fmt"
)

// Kind classifies a GPS write failure.
type Kind int

const (
	// KindOpen covers missing, unreadable or non-JPEG sources.
	KindOpen Kind = iota + 1
	// KindProfile covers building a fresh EXIF profile.
	KindProfile
	// KindSnapshot covers writing the intermediate profile-less copy.
	KindSnapshot
	// KindTag covers setting an individual tag.
	KindTag
	// KindWrite covers encoding and writing the destination.
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindProfile:
		return "profile"
	case KindSnapshot:
		return "snapshot"
	case KindTag:
		return "tag"
	case KindWrite:
		return "write"
	}
	return "unknown"
}

// OpError is returned by WriteGPS.
type OpError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("gps %s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *OpError in err's chain, or 0.
func KindOf(err error) Kind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return 0
}

var (
	// ErrPathNotExist is returned by DateTimeDigitizedFast for an empty or missing path.
	ErrPathNotExist = errors.New("path does not exist")
	// ErrNoDateInfo is returned by DateTimeDigitizedFast when the file has no
	// usable DateTimeDigitized tag.
	ErrNoDateInfo = errors.New("no date info in exif")
)
