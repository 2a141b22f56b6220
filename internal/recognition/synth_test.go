package recognition

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

var (
	markerColor = color.RGBA{R: 120, G: 200, B: 255, A: 255}
	white       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black       = color.RGBA{A: 255}
	backdrop    = color.RGBA{R: 40, G: 40, B: 40, A: 255}
)

const (
	tmplWidth   = 120
	tmplHeight  = 160
	markerSize  = 6
	markerInset = 4
	pageBorder  = 40
)

func solid(rows, cols int, c color.RGBA) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0),
		rows, cols, gocv.MatTypeCV8UC3)
}

// drawMarkers paints the four square markers just inside the corners.
func drawMarkers(img *gocv.Mat) {
	w, h := img.Cols(), img.Rows()
	for _, o := range []image.Point{
		{markerInset, markerInset},
		{markerInset, h - markerInset - markerSize},
		{w - markerInset - markerSize, h - markerInset - markerSize},
		{w - markerInset - markerSize, markerInset},
	} {
		gocv.Rectangle(img, image.Rect(o.X, o.Y, o.X+markerSize, o.Y+markerSize), markerColor, -1)
	}
}

// synthTemplate returns a white page with one of several black drawings.
func synthTemplate(shape int, markers bool) gocv.Mat {
	img := solid(tmplHeight, tmplWidth, white)
	switch shape % 4 {
	case 0:
		gocv.Circle(&img, image.Pt(60, 80), 30, black, -1)
	case 1:
		gocv.Rectangle(&img, image.Rect(30, 40, 90, 120), black, -1)
	case 2:
		for y := 40; y <= 120; y += 30 {
			gocv.Line(&img, image.Pt(20, y), image.Pt(100, y), black, 5)
		}
	case 3:
		gocv.Line(&img, image.Pt(25, 30), image.Pt(95, 130), black, 4)
		gocv.Line(&img, image.Pt(95, 30), image.Pt(25, 130), black, 4)
	}
	if markers {
		drawMarkers(&img)
	}
	return img
}

// synthPage embeds a template in a dark backdrop, like a photograph of the
// page lying on a table.
func synthPage(tmpl gocv.Mat) gocv.Mat {
	page := gocv.NewMat()
	gocv.CopyMakeBorder(tmpl, &page, pageBorder, pageBorder, pageBorder, pageBorder, gocv.BorderConstant, backdrop)
	return page
}

func markerSample() gocv.Mat {
	return UniformSample(markerColor, 8)
}

func templateSet(t *testing.T, shapes ...int) []NamedImage {
	t.Helper()
	refs := make([]NamedImage, len(shapes))
	for i, s := range shapes {
		refs[i] = NamedImage{Name: "template", Image: synthTemplate(s, true)}
	}
	t.Cleanup(func() {
		for _, r := range refs {
			r.Image.Close()
		}
	})
	return refs
}

func newTestPipeline(t *testing.T, refs []NamedImage, p Params) *Pipeline {
	t.Helper()
	marker := markerSample()
	defer marker.Close()
	pl, err := NewPipeline(refs, marker, p)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	t.Cleanup(func() { pl.Close() })
	return pl
}

// foreground returns the set bits of a single-channel mask.
func foreground(m gocv.Mat) []bool {
	data := m.ToBytes()
	out := make([]bool, len(data))
	for i, v := range data {
		out[i] = v != 0
	}
	return out
}
