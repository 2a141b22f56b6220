package recognition

import (
	"fmt"

	"gocv.io/x/gocv"
)

// EdgeParams holds the Canny hysteresis thresholds. The gradient kernel is
// fixed at 3x3.
type EdgeParams struct {
	Low  float32
	High float32
}

// DefaultEdgeParams returns the 50/150 thresholds used for pages and templates.
func DefaultEdgeParams() EdgeParams {
	return EdgeParams{Low: DefaultCannyLow, High: DefaultCannyHigh}
}

// EdgeMap returns a binary 0/255 edge image of img.
func EdgeMap(img gocv.Mat, p EdgeParams) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), fmt.Errorf("edge map: %w", ErrEmptyImage)
	}

	gray, err := toGray(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer gray.Close()

	edges := gocv.NewMat()
	if err := gocv.Canny(gray, &edges, p.Low, p.High); err != nil {
		edges.Close()
		return gocv.NewMat(), fmt.Errorf("edge map: %w", err)
	}
	return edges, nil
}
