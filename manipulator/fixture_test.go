package manipulator

import (
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"exifManipulator/exifimage"
)

// writeJPEG writes a small JPEG to path. With tags it carries an EXIF block
// holding exactly those tags plus ProcessingSoftware.
func writeJPEG(t *testing.T, path string, tags map[exifimage.Tag]interface{}) {
	t.Helper()

	plain := path
	if tags != nil {
		plain = filepath.Join(t.TempDir(), "plain.jpg")
	}

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 64, A: 255})
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

func newTestManipulator(t *testing.T, opts Options) (*Manipulator, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetOutput(io.Discard)
	opts.Logger = logger
	return New(opts), hook
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
