package recognition

import (
	"fmt"
	"image/color"
	"strings"

	"gocv.io/x/gocv"
)

// DisplayCeiling is the value of the largest histogram bin after Normalize.
const DisplayCeiling = 255.0

// ColorSpace selects the conversion applied before histogramming.
type ColorSpace int

const (
	ColorSpaceHLS ColorSpace = iota
	ColorSpaceHSV
	ColorSpaceLab
	ColorSpaceBGR
)

func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceHLS:
		return "hls"
	case ColorSpaceHSV:
		return "hsv"
	case ColorSpaceLab:
		return "lab"
	case ColorSpaceBGR:
		return "bgr"
	default:
		return fmt.Sprintf("ColorSpace(%d)", int(c))
	}
}

// ParseColorSpace maps a name such as "hls" to a ColorSpace.
func ParseColorSpace(s string) (ColorSpace, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hls":
		return ColorSpaceHLS, nil
	case "hsv":
		return ColorSpaceHSV, nil
	case "lab":
		return ColorSpaceLab, nil
	case "bgr", "rgb":
		return ColorSpaceBGR, nil
	}
	return ColorSpaceHLS, fmt.Errorf("unknown color space %q", s)
}

// convert writes src, a BGR image, into dst in this color space.
func (c ColorSpace) convert(src gocv.Mat, dst *gocv.Mat) error {
	var err error
	switch c {
	case ColorSpaceHLS:
		err = gocv.CvtColor(src, dst, gocv.ColorBGRToHLS)
	case ColorSpaceHSV:
		err = gocv.CvtColor(src, dst, gocv.ColorBGRToHSV)
	case ColorSpaceLab:
		err = gocv.CvtColor(src, dst, gocv.ColorBGRToLab)
	default:
		err = src.CopyTo(dst)
	}
	if err != nil {
		return fmt.Errorf("convert to %s: %w", c, err)
	}
	return nil
}

// channelRange returns the half-open 8-bit value range of a channel.
// Hue is stored as degrees/2 by OpenCV.
func (c ColorSpace) channelRange(ch int) (float64, float64) {
	if ch == 0 && (c == ColorSpaceHLS || c == ColorSpaceHSV) {
		return 0, 180
	}
	return 0, 256
}

// ColorModelParams configures the histogram of a ColorModel.
type ColorModelParams struct {
	Space    ColorSpace
	Channels []int
	// Bins holds one bin count per channel, or a single count for all.
	Bins []int
}

// DefaultColorModelParams returns a 16x16x16 HLS histogram.
func DefaultColorModelParams() ColorModelParams {
	return ColorModelParams{
		Space:    ColorSpaceHLS,
		Channels: []int{0, 1, 2},
		Bins:     []int{DefaultBins},
	}
}

// Validate checks channel indices and bin counts.
func (p ColorModelParams) Validate() error {
	if len(p.Channels) == 0 || len(p.Channels) > 3 {
		return fmt.Errorf("need 1 to 3 histogram channels, got %d", len(p.Channels))
	}
	seen := map[int]bool{}
	for _, ch := range p.Channels {
		if ch < 0 || ch > 2 || seen[ch] {
			return fmt.Errorf("invalid histogram channel set %v", p.Channels)
		}
		seen[ch] = true
	}
	if len(p.Bins) != 1 && len(p.Bins) != len(p.Channels) {
		return fmt.Errorf("bin counts %v do not match channels %v", p.Bins, p.Channels)
	}
	for _, b := range p.Bins {
		if b < 1 || b > 256 {
			return fmt.Errorf("bin count %d out of range [1,256]", b)
		}
	}
	return nil
}

func (p ColorModelParams) binSizes() []int {
	sizes := make([]int, len(p.Channels))
	for i := range sizes {
		if len(p.Bins) == 1 {
			sizes[i] = p.Bins[0]
		} else {
			sizes[i] = p.Bins[i]
		}
	}
	return sizes
}

func (p ColorModelParams) ranges() []float64 {
	r := make([]float64, 0, 2*len(p.Channels))
	for _, ch := range p.Channels {
		lo, hi := p.Space.channelRange(ch)
		r = append(r, lo, hi)
	}
	return r
}

// ColorModel is a joint color histogram of a marker sample.
type ColorModel struct {
	hist       gocv.Mat
	space      ColorSpace
	channels   []int
	ranges     []float64
	normalized bool
}

// NewColorModel builds a histogram from a BGR sample image.
func NewColorModel(sample gocv.Mat, p ColorModelParams) (*ColorModel, error) {
	if sample.Empty() {
		return nil, fmt.Errorf("marker sample: %w", ErrEmptyImage)
	}
	if sample.Channels() != 3 {
		return nil, fmt.Errorf("marker sample must have 3 channels, got %d", sample.Channels())
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	converted := gocv.NewMat()
	defer converted.Close()
	if err := p.Space.convert(sample, &converted); err != nil {
		return nil, fmt.Errorf("marker sample: %w", err)
	}

	mask := gocv.NewMat()
	defer mask.Close()

	hist := gocv.NewMat()
	ranges := p.ranges()
	if err := gocv.CalcHist([]gocv.Mat{converted}, p.Channels, mask, &hist, p.binSizes(), ranges, false); err != nil {
		hist.Close()
		return nil, fmt.Errorf("histogram: %w", err)
	}
	if hist.Empty() {
		hist.Close()
		return nil, fmt.Errorf("histogram computation produced no bins")
	}

	return &ColorModel{
		hist:     hist,
		space:    p.Space,
		channels: append([]int(nil), p.Channels...),
		ranges:   ranges,
	}, nil
}

// Normalize rescales the histogram so that its largest bin equals
// DisplayCeiling. Calling it again has no effect.
func (m *ColorModel) Normalize() error {
	if m.normalized {
		return nil
	}
	if err := gocv.Normalize(m.hist, &m.hist, DisplayCeiling, 0, gocv.NormInf); err != nil {
		return fmt.Errorf("normalize histogram: %w", err)
	}
	m.normalized = true
	return nil
}

// Normalized reports whether Normalize has been applied.
func (m *ColorModel) Normalized() bool {
	return m.normalized
}

// Space returns the color space the model was built in.
func (m *ColorModel) Space() ColorSpace {
	return m.space
}

// BackProject returns a single-channel 8-bit map holding, for every pixel of
// the BGR target, the histogram value of its color bin. The histogram is
// normalized first if Normalize has not been called.
func (m *ColorModel) BackProject(target gocv.Mat) (gocv.Mat, error) {
	if target.Empty() {
		return gocv.NewMat(), fmt.Errorf("back projection target: %w", ErrEmptyImage)
	}
	if target.Channels() != 3 {
		return gocv.NewMat(), fmt.Errorf("back projection target must have 3 channels, got %d", target.Channels())
	}

	if err := m.Normalize(); err != nil {
		return gocv.NewMat(), err
	}

	converted := gocv.NewMat()
	defer converted.Close()
	if err := m.space.convert(target, &converted); err != nil {
		return gocv.NewMat(), fmt.Errorf("back projection: %w", err)
	}

	prob := gocv.NewMat()
	if err := gocv.CalcBackProject([]gocv.Mat{converted}, m.channels, m.hist, &prob, m.ranges, true); err != nil {
		prob.Close()
		return gocv.NewMat(), fmt.Errorf("back projection: %w", err)
	}
	return prob, nil
}

// Close releases the histogram.
func (m *ColorModel) Close() error {
	return m.hist.Close()
}

// UniformSample returns a size x size BGR image filled with c. It stands in
// for a marker sample photograph when only the marker color is known.
func UniformSample(c color.RGBA, size int) gocv.Mat {
	if size < 1 {
		size = 1
	}
	return gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0),
		size, size, gocv.MatTypeCV8UC3)
}
