// Package image provides image loading, Mat conversion and debug compositing.
package image

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"page-recognizer/internal/recognition"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode reads and decodes the image file at path.
func Decode(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// Load decodes the image file at path into a BGR Mat.
func Load(path string) (gocv.Mat, error) {
	img, err := Decode(path)
	if err != nil {
		return gocv.NewMat(), err
	}
	return ToMat(img)
}

// LoadGlob loads every supported image matching pattern, ordered by file
// name. Each image is named after its file name without extension.
func LoadGlob(pattern string) ([]recognition.NamedImage, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	sort.Strings(paths)

	var images []recognition.NamedImage
	for _, p := range paths {
		if !IsSupportedFormat(p) {
			continue
		}
		mat, err := Load(p)
		if err != nil {
			CloseAll(images)
			return nil, err
		}
		images = append(images, recognition.NamedImage{Name: BaseName(p), Image: mat})
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no images match %q", pattern)
	}
	return images, nil
}

// CloseAll releases the Mats of images.
func CloseAll(images []recognition.NamedImage) {
	for _, img := range images {
		img.Image.Close()
	}
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
