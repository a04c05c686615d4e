package main

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// BuildMetadataJSON inspects a JPEG and returns its EXIF fields as a JSON
// object string. Never returns empty string; defaults to "{}".
func BuildMetadataJSON(path string) string {
	if !isJPEGExt(strings.ToLower(filepath.Ext(path))) {
		return "{}"
	}
	ed, err := ExtractExif(path)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Debug("no exif metadata")
		return "{}"
	}
	b, err := json.Marshal(ed)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func isJPEGExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".jpe", ".jfif":
		return true
	default:
		return false
	}
}
