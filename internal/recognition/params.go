// Package recognition identifies which reference page of a book is visible
// in a photograph. Colored corner markers locate the page, a homography
// rectifies it onto each reference template and normalized cross-correlation
// of edge maps picks the best template.
package recognition

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrEmptyImage is returned when an input image has no pixels.
	ErrEmptyImage = errors.New("empty image")
	// ErrCornerCount is returned when a corner list does not hold exactly four points.
	ErrCornerCount = errors.New("exactly four corners required")
	// ErrDegenerateGeometry is returned for coincident or collinear corners and
	// for singular homographies.
	ErrDegenerateGeometry = errors.New("degenerate corner geometry")
	// ErrNoCorners is returned when a mask has no foreground pixels.
	ErrNoCorners = errors.New("no corners found")
	// ErrMaskFormat is returned when a mask is not single-channel 8-bit.
	ErrMaskFormat = errors.New("mask must be single-channel 8-bit")
)

// Default thresholds and filter settings.
const (
	DefaultContentThreshold        = 160
	DefaultMarkerThreshold         = 10
	DefaultTemplateMarkerThreshold = 20
	DefaultCloseIterations         = 3
	DefaultBins                    = 16
	DefaultCannyLow                = 50
	DefaultCannyHigh               = 150
)

// Params holds every tunable used by the recognition pipeline.
type Params struct {
	Color ColorModelParams

	// ContentThreshold separates bright page content from background.
	ContentThreshold int
	// MarkerThreshold binarizes the page back-projection.
	MarkerThreshold int
	// TemplateMarkerThreshold binarizes the template back-projection.
	TemplateMarkerThreshold int
	// CloseIterations is the number of dilate and erode passes.
	CloseIterations int

	Edges EdgeParams
	Match MatchMethod

	// OrientationSearch scores all four cyclic relabelings of the page corners.
	OrientationSearch bool
	// Workers bounds parallel template evaluation. Zero means runtime.NumCPU.
	Workers int
	// PageTimeout bounds classification of a single page. Zero disables it.
	PageTimeout time.Duration

	Logger zerolog.Logger
}

// DefaultParams returns the reference configuration.
func DefaultParams() Params {
	return Params{
		Color:                   DefaultColorModelParams(),
		ContentThreshold:        DefaultContentThreshold,
		MarkerThreshold:         DefaultMarkerThreshold,
		TemplateMarkerThreshold: DefaultTemplateMarkerThreshold,
		CloseIterations:         DefaultCloseIterations,
		Edges:                   DefaultEdgeParams(),
		Match:                   MatchCcorrNormed,
		OrientationSearch:       true,
		Logger:                  zerolog.Nop(),
	}
}

// Validate checks that the parameters are usable.
func (p Params) Validate() error {
	if err := p.Color.Validate(); err != nil {
		return err
	}
	for name, v := range map[string]int{
		"content threshold":         p.ContentThreshold,
		"marker threshold":          p.MarkerThreshold,
		"template marker threshold": p.TemplateMarkerThreshold,
	} {
		if v < 0 || v > 256 {
			return fmt.Errorf("%s %d out of range [0,256]", name, v)
		}
	}
	if p.CloseIterations < 0 {
		return fmt.Errorf("close iterations must be >= 0, got %d", p.CloseIterations)
	}
	if p.Edges.Low < 0 || p.Edges.High < p.Edges.Low {
		return fmt.Errorf("invalid edge thresholds %v/%v", p.Edges.Low, p.Edges.High)
	}
	if p.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", p.Workers)
	}
	return nil
}

func (p Params) workerCount(jobs int) int {
	n := p.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > jobs {
		n = jobs
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (p Params) orientations() int {
	if p.OrientationSearch {
		return 4
	}
	return 1
}
