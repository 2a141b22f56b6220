package recognition

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// NamedImage is a BGR image with the name it was loaded under.
type NamedImage struct {
	Name  string
	Image gocv.Mat
}

// TemplateRecord is a reference page prepared for classification.
type TemplateRecord struct {
	// Index is the 1-based position of the template in load order.
	Index int
	Name  string
	// Image is the template photograph. It is owned by the caller.
	Image   gocv.Mat
	Corners CornerSet
	Width   int
	Height  int
	// CornerErr is set when marker location failed. Such templates never match.
	CornerErr error

	edges gocv.Mat
}

// Size returns the template dimensions.
func (t *TemplateRecord) Size() image.Point {
	return image.Point{X: t.Width, Y: t.Height}
}

// EdgeMap returns the cached edge map of the template image.
func (t *TemplateRecord) EdgeMap() gocv.Mat {
	return t.edges
}

// Usable reports whether the template has valid corners.
func (t *TemplateRecord) Usable() bool {
	return t.CornerErr == nil && !t.Corners.Degenerate()
}

// Close releases the cached edge map.
func (t *TemplateRecord) Close() error {
	return t.edges.Close()
}

// BuildTemplateRecords prepares one record per reference image, in order.
// Marker corners are located with the bounding-box policy after
// back-projecting marker and thresholding at p.TemplateMarkerThreshold.
func BuildTemplateRecords(refs []NamedImage, marker gocv.Mat, p Params) ([]*TemplateRecord, error) {
	model, err := NewColorModel(marker, p.Color)
	if err != nil {
		return nil, err
	}
	defer model.Close()
	if err := model.Normalize(); err != nil {
		return nil, err
	}

	return buildTemplateRecords(refs, model, p)
}

func buildTemplateRecords(refs []NamedImage, model *ColorModel, p Params) ([]*TemplateRecord, error) {
	log := p.Logger.With().Str("component", "templates").Logger()

	records := make([]*TemplateRecord, 0, len(refs))
	for i, ref := range refs {
		rec, err := buildTemplateRecord(i+1, ref, model, p)
		if err != nil {
			CloseTemplates(records)
			return nil, err
		}
		if rec.CornerErr != nil {
			log.Warn().Err(rec.CornerErr).Int("index", rec.Index).Str("name", rec.Name).
				Msg("template markers not found, template will never match")
		} else {
			log.Debug().Int("index", rec.Index).Str("name", rec.Name).
				Interface("corners", rec.Corners).Msg("template prepared")
		}
		records = append(records, rec)
	}
	return records, nil
}

func buildTemplateRecord(index int, ref NamedImage, model *ColorModel, p Params) (*TemplateRecord, error) {
	if ref.Image.Empty() {
		return nil, fmt.Errorf("template %d (%s): %w", index, ref.Name, ErrEmptyImage)
	}

	prob, err := model.BackProject(ref.Image)
	if err != nil {
		return nil, fmt.Errorf("template %d (%s): %w", index, ref.Name, err)
	}
	defer prob.Close()

	bin, err := Threshold(prob, p.TemplateMarkerThreshold)
	if err != nil {
		return nil, fmt.Errorf("template %d (%s): %w", index, ref.Name, err)
	}
	defer bin.Close()

	corners, cornerErr := LocateCorners(bin, BoundingBoxPolicy{})
	if cornerErr != nil && !errors.Is(cornerErr, ErrNoCorners) && !errors.Is(cornerErr, ErrDegenerateGeometry) {
		return nil, fmt.Errorf("template %d (%s): %w", index, ref.Name, cornerErr)
	}

	edges, err := EdgeMap(ref.Image, p.Edges)
	if err != nil {
		return nil, fmt.Errorf("template %d (%s): %w", index, ref.Name, err)
	}

	return &TemplateRecord{
		Index:     index,
		Name:      ref.Name,
		Image:     ref.Image,
		Corners:   corners,
		Width:     ref.Image.Cols(),
		Height:    ref.Image.Rows(),
		CornerErr: cornerErr,
		edges:     edges,
	}, nil
}

// CloseTemplates releases the edge maps of all records.
func CloseTemplates(records []*TemplateRecord) {
	for _, r := range records {
		if r != nil {
			r.Close()
		}
	}
}
