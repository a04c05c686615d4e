package main

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"exifManipulator/exifimage"
	"exifManipulator/manipulator"
)

var testZone = time.FixedZone("TEST", 2*60*60)

// writeJPEG writes a 16x8 JPEG to path, creating parent directories. With tags
// it carries an EXIF block holding those tags.
func writeJPEG(t *testing.T, path string, tags map[exifimage.Tag]interface{}) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), os.ModePerm))

	plain := path
	if tags != nil {
		plain = filepath.Join(t.TempDir(), "plain.jpg")
	}

	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for x := 0; x < 16; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	f, err := os.Create(plain)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, nil))
	require.NoError(t, f.Close())

	if tags == nil {
		return
	}

	im, err := exifimage.Open(plain)
	require.NoError(t, err)
	defer im.Close()

	p, err := exifimage.NewProfile()
	require.NoError(t, err)
	for tag, v := range tags {
		require.NoError(t, p.SetValue(tag, v))
	}
	require.NoError(t, im.SetProfile(p))
	require.NoError(t, im.Write(path))
}

func takenTags(date, subsec string) map[exifimage.Tag]interface{} {
	return map[exifimage.Tag]interface{}{
		exifimage.DateTimeDigitized:   date,
		exifimage.SubsecTimeDigitized: subsec,
	}
}

func newTestManipulator(t *testing.T) *manipulator.Manipulator {
	t.Helper()

	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return manipulator.New(manipulator.Options{Location: testZone, Logger: logger})
}

func newTestDB(t *testing.T) (*DB, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := openAndInitDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path
}
