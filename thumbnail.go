package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// generateThumbnail writes a JPEG of srcPath scaled so its longer side is maxSize.
func generateThumbnail(srcPath, destPath string, maxSize int) error {
	if maxSize <= 0 {
		return errors.New("thumbnail size must be positive")
	}

	srcImg, err := imaging.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	bounds := srcImg.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Calculate thumbnail dimensions maintaining aspect ratio
	var thumbWidth, thumbHeight int
	if width > height {
		thumbWidth = maxSize
		thumbHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		thumbHeight = maxSize
		thumbWidth = int(float64(width) * float64(maxSize) / float64(height))
	}
	if thumbWidth < 1 {
		thumbWidth = 1
	}
	if thumbHeight < 1 {
		thumbHeight = 1
	}

	thumbImg := imaging.Resize(srcImg, thumbWidth, thumbHeight, imaging.Lanczos)

	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	if err := imaging.Save(thumbImg, destPath, imaging.JPEGQuality(85)); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return nil
}

// thumbnailPathFor returns <dir>/.thumbnails/<name>.jpg for an image at <dir>/<name>.<ext>.
func thumbnailPathFor(imagePath string) string {
	base := filepath.Base(imagePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(imagePath), ".thumbnails", name+".jpg")
}

// processThumbnail renders a thumbnail of a geotagged output next to it and
// returns the thumbnail path. An existing thumbnail is overwritten since the
// image it was made from has just been rewritten.
func processThumbnail(imagePath string, size int) (string, error) {
	if !isJPEGExt(strings.ToLower(filepath.Ext(imagePath))) {
		return "", nil
	}

	thumbPath := thumbnailPathFor(imagePath)
	if err := generateThumbnail(imagePath, thumbPath, size); err != nil {
		return "", fmt.Errorf("thumbnail generation failed for %s: %w", filepath.Base(imagePath), err)
	}
	return thumbPath, nil
}
