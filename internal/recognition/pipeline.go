package recognition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// Pipeline classifies photographed pages against a fixed template set. The
// marker model and template edge maps are built once by NewPipeline.
type Pipeline struct {
	params     Params
	marker     *ColorModel
	templates  []*TemplateRecord
	classifier *Classifier
	log        zerolog.Logger

	// pageContext derives the context of one page in ClassifyAll.
	pageContext func(ctx context.Context) (context.Context, context.CancelFunc)
}

// NewPipeline builds the marker color model from the sample and prepares
// every template. The template images must stay open while the pipeline is used.
func NewPipeline(templates []NamedImage, marker gocv.Mat, p Params) (*Pipeline, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, errors.New("no templates")
	}

	model, err := NewColorModel(marker, p.Color)
	if err != nil {
		return nil, err
	}
	if err := model.Normalize(); err != nil {
		model.Close()
		return nil, err
	}

	records, err := buildTemplateRecords(templates, model, p)
	if err != nil {
		model.Close()
		return nil, err
	}

	log := p.Logger.With().Str("component", "pipeline").Logger()
	log.Info().Int("templates", len(records)).Str("color_space", p.Color.Space.String()).
		Str("match", p.Match.String()).Msg("pipeline ready")

	return &Pipeline{
		params:     p,
		marker:     model,
		templates:  records,
		classifier: NewClassifier(records, p),
		log:        log,
	}, nil
}

// Templates returns the prepared template records in index order.
func (p *Pipeline) Templates() []*TemplateRecord {
	return p.templates
}

// Template returns the record with the given 1-based index, or nil.
func (p *Pipeline) Template(index int) *TemplateRecord {
	if index < 1 || index > len(p.templates) {
		return nil
	}
	return p.templates[index-1]
}

// MarkerMask returns the binary marker mask of a page: bright page content
// is isolated, back-projected through the marker model and thresholded.
func (p *Pipeline) MarkerMask(page gocv.Mat) (gocv.Mat, error) {
	masked, err := MaskPageContent(page, p.params.ContentThreshold, p.params.CloseIterations)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer masked.Close()

	prob, err := p.marker.BackProject(masked)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer prob.Close()

	return Threshold(prob, p.params.MarkerThreshold)
}

// LocatePageCorners finds the marker corners of a photographed page.
func (p *Pipeline) LocatePageCorners(page gocv.Mat) (CornerSet, error) {
	mask, err := p.MarkerMask(page)
	if err != nil {
		return CornerSet{}, err
	}
	defer mask.Close()
	return LocateCorners(mask, ExtremePointPolicy{})
}

// Classify identifies the template shown in page. A page without usable
// markers yields a NoMatch result and a nil error.
func (p *Pipeline) Classify(ctx context.Context, page gocv.Mat) (ClassificationResult, error) {
	res := ClassificationResult{Index: NoMatch}
	if page.Empty() {
		res.Err = fmt.Errorf("page: %w", ErrEmptyImage)
		return res, res.Err
	}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res, err
	}

	corners, err := p.LocatePageCorners(page)
	if errors.Is(err, ErrNoCorners) || errors.Is(err, ErrDegenerateGeometry) {
		p.log.Debug().Err(err).Msg("page markers not usable")
		res.Corners = corners
		return res, nil
	}
	if err != nil {
		res.Err = err
		return res, err
	}

	return p.classifier.Classify(ctx, page, corners)
}

// ClassifyAll classifies pages in order. A failing page is recorded with its
// error and NoMatch; the remaining pages are still processed unless ctx is done.
func (p *Pipeline) ClassifyAll(ctx context.Context, pages []NamedImage) []ClassificationResult {
	results := make([]ClassificationResult, len(pages))
	for i, page := range pages {
		start := time.Now()
		pageCtx, cancel := p.newPageContext(ctx)
		res, err := p.Classify(pageCtx, page.Image)
		cancel()

		if err != nil {
			res.Index = NoMatch
			res.Err = err
			p.log.Error().Err(err).Str("page", page.Name).Msg("page failed")
		} else {
			p.log.Info().Str("page", page.Name).Int("template", res.Index).
				Float64("score", res.Score).Dur("elapsed", time.Since(start)).Msg("page classified")
		}
		results[i] = res

		if ctx.Err() != nil {
			for j := i + 1; j < len(pages); j++ {
				results[j] = ClassificationResult{Index: NoMatch, Err: ctx.Err()}
			}
			break
		}
	}
	return results
}

func (p *Pipeline) newPageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.pageContext != nil {
		return p.pageContext(ctx)
	}
	if p.params.PageTimeout > 0 {
		return context.WithTimeout(ctx, p.params.PageTimeout)
	}
	return context.WithCancel(ctx)
}

// Close releases the marker model and template edge maps.
func (p *Pipeline) Close() error {
	CloseTemplates(p.templates)
	return p.marker.Close()
}

// Classify is a one-shot form of Pipeline.Classify for callers holding
// prepared templates. The marker model is rebuilt from marker on every call.
func Classify(ctx context.Context, page, marker gocv.Mat, templates []*TemplateRecord, contentThreshold, markerThreshold int) (ClassificationResult, error) {
	p := DefaultParams()
	p.ContentThreshold = contentThreshold
	p.MarkerThreshold = markerThreshold
	if err := p.Validate(); err != nil {
		return ClassificationResult{Index: NoMatch, Err: err}, err
	}

	model, err := NewColorModel(marker, p.Color)
	if err != nil {
		return ClassificationResult{Index: NoMatch, Err: err}, err
	}
	defer model.Close()
	if err := model.Normalize(); err != nil {
		return ClassificationResult{Index: NoMatch, Err: err}, err
	}

	pl := &Pipeline{
		params:     p,
		marker:     model,
		templates:  templates,
		classifier: NewClassifier(templates, p),
		log:        p.Logger,
	}
	return pl.Classify(ctx, page)
}
