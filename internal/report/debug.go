package report

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	imgpkg "page-recognizer/internal/image"
	"page-recognizer/internal/recognition"
	"page-recognizer/pkg/colorutil"

	"gocv.io/x/gocv"
)

// DebugHeight is the panel height of debug composites.
const DebugHeight = 480

// cornerLabels are drawn next to the detected corners.
var cornerLabels = [4]string{"TL", "BL", "BR", "TR"}

// Annotate returns a copy of page with the detected corners circled and the
// page outline drawn. Unmatched pages get a red outline.
func Annotate(page gocv.Mat, res recognition.ClassificationResult) (gocv.Mat, error) {
	out := page.Clone()
	if res.Corners == (recognition.CornerSet{}) {
		return out, nil
	}

	outline := colorutil.Green
	if !res.Matched() {
		outline = colorutil.Red
	}
	radius := page.Cols() / 60
	if radius < 4 {
		radius = 4
	}

	for i, c := range res.Corners {
		p := c.ImagePoint()
		next := res.Corners[(i+1)%4].ImagePoint()
		err := errors.Join(
			gocv.Line(&out, p, next, outline, 2),
			gocv.Circle(&out, p, radius, colorutil.Magenta, 2),
			gocv.PutText(&out, cornerLabels[i], p.Add(image.Pt(radius, -radius)),
				gocv.FontHersheySimplex, 0.6, colorutil.Magenta, 2),
		)
		if err != nil {
			out.Close()
			return gocv.NewMat(), fmt.Errorf("annotate corner %s: %w", cornerLabels[i], err)
		}
	}

	center := res.Corners.Bounds().Center().ImagePoint()
	label := "no match"
	if res.Matched() {
		label = fmt.Sprintf("#%d %.3f", res.Index, res.Score)
	}
	if err := gocv.PutText(&out, label, center, gocv.FontHersheySimplex, 0.8, outline, 2); err != nil {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("annotate label: %w", err)
	}
	return out, nil
}

// WriteDebugImage writes <dir>/<name>_result.png holding the annotated page
// and, when a template matched, the template to its right. It returns the
// written path.
func WriteDebugImage(dir, name string, page gocv.Mat, res recognition.ClassificationResult, tmpl *recognition.TemplateRecord) (string, error) {
	annotated, err := Annotate(page, res)
	if err != nil {
		return "", fmt.Errorf("debug image for %s: %w", name, err)
	}
	defer annotated.Close()

	pageImg, err := imgpkg.ToImage(annotated)
	if err != nil {
		return "", fmt.Errorf("debug image for %s: %w", name, err)
	}

	comp := imgpkg.NewComposite(DebugHeight)
	comp.BackColor = colorutil.Black
	comp.Add(pageImg, name)
	if tmpl != nil && res.Matched() {
		tmplImg, err := imgpkg.ToImage(tmpl.Image)
		if err != nil {
			return "", fmt.Errorf("debug image for template %d: %w", tmpl.Index, err)
		}
		comp.Add(tmplImg, fmt.Sprintf("template %d: %s", tmpl.Index, tmpl.Name))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+"_result.png")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := png.Encode(f, comp.Render()); err != nil {
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	return path, nil
}
