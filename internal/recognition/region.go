package recognition

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// toGray returns a single-channel copy of img.
func toGray(img gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()
	var err error
	switch img.Channels() {
	case 1:
		err = img.CopyTo(&gray)
	case 4:
		err = gocv.CvtColor(img, &gray, gocv.ColorBGRAToGray)
	default:
		err = gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	}
	if err != nil {
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("grayscale: %w", err)
	}
	return gray, nil
}

// Threshold binarizes img: pixels with value >= cutoff become 255, all others 0.
// Multi-channel input is converted to grayscale first. Cutoffs are clamped to
// [0,256], so 0 keeps every pixel and 256 keeps none.
func Threshold(img gocv.Mat, cutoff int) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), fmt.Errorf("threshold: %w", ErrEmptyImage)
	}
	if cutoff < 0 {
		cutoff = 0
	}
	if cutoff > 256 {
		cutoff = 256
	}

	gray, err := toGray(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer gray.Close()

	// OpenCV's binary threshold keeps values strictly above the level.
	dst := gocv.NewMat()
	gocv.Threshold(gray, &dst, float32(cutoff-1), 255, gocv.ThresholdBinary)
	return dst, nil
}

// CloseMask applies a morphological closing with a 3x3 rectangular kernel:
// iterations dilations followed by iterations erosions. Zero iterations
// returns an unchanged copy.
func CloseMask(mask gocv.Mat, iterations int) (gocv.Mat, error) {
	if mask.Empty() {
		return gocv.NewMat(), fmt.Errorf("close: %w", ErrEmptyImage)
	}
	out := mask.Clone()
	if iterations <= 0 {
		return out, nil
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{3, 3})
	defer kernel.Close()

	for i := 0; i < iterations; i++ {
		if err := gocv.Dilate(out, &out, kernel); err != nil {
			out.Close()
			return gocv.NewMat(), fmt.Errorf("dilate: %w", err)
		}
	}
	for i := 0; i < iterations; i++ {
		if err := gocv.Erode(out, &out, kernel); err != nil {
			out.Close()
			return gocv.NewMat(), fmt.Errorf("erode: %w", err)
		}
	}
	return out, nil
}

// MaskPageContent keeps the bright page region of a BGR photograph and zeroes
// everything else. The region is the grayscale image thresholded at cutoff
// and closed with the given number of iterations.
func MaskPageContent(img gocv.Mat, cutoff, iterations int) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), fmt.Errorf("page content: %w", ErrEmptyImage)
	}

	bin, err := Threshold(img, cutoff)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer bin.Close()

	closed, err := CloseMask(bin, iterations)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer closed.Close()

	masked := gocv.NewMat()
	if err := img.CopyToWithMask(&masked, closed); err != nil {
		masked.Close()
		return gocv.NewMat(), fmt.Errorf("page content: %w", err)
	}
	return masked, nil
}
